package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Source driver constants
const (
	SourceDriverSQLite = "sqlite"
	SourceDriverMemory = "memory"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// IndexSettings configuration for the search index and sweeps
type IndexSettings struct {
	BaseDir           string        `mapstructure:"base_dir"`
	BatchSize         int           `mapstructure:"batch_size"`
	PageSize          int           `mapstructure:"page_size"`
	MaxAttachmentSize int64         `mapstructure:"max_attachment_size"`
	LockWait          time.Duration `mapstructure:"lock_wait"` // 0 fails fast when a sweep holds the lock
}

// SourceSettings configuration for the source-of-record store
type SourceSettings struct {
	Driver string `mapstructure:"driver"` // SourceDriverSQLite or SourceDriverMemory
	Path   string `mapstructure:"path"`
}

// LogSettings configuration for logging
type LogSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	Auth      AuthSettings   `mapstructure:"auth"`
	Index     IndexSettings  `mapstructure:"index"`
	Source    SourceSettings `mapstructure:"source"`
	Log       LogSettings    `mapstructure:"log"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	baseDir := defaultBaseDir()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("index.base_dir", baseDir)
	v.SetDefault("index.batch_size", 500)
	v.SetDefault("index.page_size", 500)
	v.SetDefault("index.max_attachment_size", int64(10*1024*1024)) // 10MB
	v.SetDefault("index.lock_wait", time.Duration(0))

	v.SetDefault("source.driver", SourceDriverSQLite)
	v.SetDefault("source.path", filepath.Join(baseDir, "source.db"))

	v.SetDefault("log.level", "info")

	// Environment variables
	v.SetEnvPrefix("CMS_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.type", "CMS_INDEXER_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "CMS_INDEXER_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "CMS_INDEXER_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "CMS_INDEXER_AUTH_API_KEYS")

	_ = v.BindEnv("index.base_dir", "CMS_INDEXER_INDEX_BASE_DIR")
	_ = v.BindEnv("index.batch_size", "CMS_INDEXER_INDEX_BATCH_SIZE")
	_ = v.BindEnv("index.page_size", "CMS_INDEXER_INDEX_PAGE_SIZE")
	_ = v.BindEnv("index.max_attachment_size", "CMS_INDEXER_INDEX_MAX_ATTACHMENT_SIZE")
	_ = v.BindEnv("index.lock_wait", "CMS_INDEXER_INDEX_LOCK_WAIT")

	_ = v.BindEnv("source.driver", "CMS_INDEXER_SOURCE_DRIVER")
	_ = v.BindEnv("source.path", "CMS_INDEXER_SOURCE_PATH")

	_ = v.BindEnv("log.level", "CMS_INDEXER_LOG_LEVEL")
	_ = v.BindEnv("log.file", "CMS_INDEXER_LOG_FILE")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		bindFlag(v, flags, "transport", "transport")
		bindFlag(v, flags, "host", "host")
		bindFlag(v, flags, "port", "port")
		bindFlag(v, flags, "auth.type", "auth-type")
		bindFlag(v, flags, "auth.basic.username", "auth-basic-username")
		bindFlag(v, flags, "auth.basic.password", "auth-basic-password")
		bindFlag(v, flags, "auth.api_keys", "auth-api-keys")

		bindFlag(v, flags, "index.base_dir", "index-base-dir")
		bindFlag(v, flags, "index.batch_size", "index-batch-size")
		bindFlag(v, flags, "index.page_size", "index-page-size")
		bindFlag(v, flags, "index.max_attachment_size", "index-max-attachment-size")
		bindFlag(v, flags, "index.lock_wait", "index-lock-wait")

		bindFlag(v, flags, "source.driver", "source-driver")
		bindFlag(v, flags, "source.path", "source-path")

		bindFlag(v, flags, "log.level", "log-level")
		bindFlag(v, flags, "log.file", "log-file")
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("CMS_INDEXER_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.Index.BaseDir = expandHomeDir(settings.Index.BaseDir)
	settings.Source.Path = expandHomeDir(settings.Source.Path)
	settings.Source.Driver = strings.ToLower(strings.TrimSpace(settings.Source.Driver))
	settings.Log.File = expandHomeDir(settings.Log.File)

	return &settings, nil
}

// bindFlag binds a flag when it is registered on the set.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if flag := flags.Lookup(name); flag != nil {
		_ = v.BindPFlag(key, flag)
	}
}

// defaultBaseDir returns the default directory for indexes and state
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cms-indexer"
	}
	return filepath.Join(home, ".cms-indexer")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if err := validateAuthSettings(&s.Auth); err != nil {
		return err
	}
	if err := validateIndexSettings(&s.Index); err != nil {
		return err
	}
	if err := validateSourceSettings(&s.Source); err != nil {
		return err
	}

	if _, err := ParseLevel(s.Log.Level); err != nil {
		return err
	}

	return nil
}

func validateAuthSettings(a *AuthSettings) error {
	hasBasicCreds := a.Basic.Username != "" || a.Basic.Password != ""
	hasAPIKeys := len(a.APIKeys) > 0

	switch a.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if a.Basic.Username == "" || a.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + a.Type)
	}
	return nil
}

func validateIndexSettings(i *IndexSettings) error {
	if i.BaseDir == "" {
		return errors.New("index-base-dir cannot be empty")
	}
	if i.BatchSize <= 0 {
		return errors.New("index-batch-size must be positive")
	}
	if i.PageSize <= 0 {
		return errors.New("index-page-size must be positive")
	}
	if i.MaxAttachmentSize < 0 {
		return errors.New("index-max-attachment-size cannot be negative")
	}
	if i.LockWait < 0 {
		return errors.New("index-lock-wait cannot be negative")
	}
	return nil
}

func validateSourceSettings(s *SourceSettings) error {
	switch s.Driver {
	case SourceDriverSQLite:
		if s.Path == "" {
			return errors.New("source-driver 'sqlite' requires source-path")
		}
	case SourceDriverMemory:
		// valid
	default:
		return errors.New("unknown source-driver: " + s.Driver)
	}
	return nil
}
