package auth

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/sha1n/cms-indexer/internal/config"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "X-API-Key"

// DefaultRealm is announced on basic auth challenges.
const DefaultRealm = "cms-indexer"

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// Options customize the middleware.
type Options struct {
	Realm string
	// Public paths bypass authentication.
	Public []string
	Logger *slog.Logger
}

// DefaultOptions leaves the health endpoint public.
func DefaultOptions() Options {
	return Options{
		Realm:  DefaultRealm,
		Public: []string{"/health"},
	}
}

// NewMiddleware creates the authentication middleware for the admin surface.
func NewMiddleware(settings config.AuthSettings) (Middleware, error) {
	return NewMiddlewareWithOptions(settings, DefaultOptions())
}

// NewMiddlewareWithOptions creates the authentication middleware with explicit options.
func NewMiddlewareWithOptions(settings config.AuthSettings, opts Options) (Middleware, error) {
	if opts.Realm == "" {
		opts.Realm = DefaultRealm
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var check func(*http.Request) bool
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler { return next }, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		check = basicCheck(settings.Basic)
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		check = apiKeyCheck(settings.APIKeys)
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}

	challenge := ""
	if settings.Type == config.AuthTypeBasic {
		challenge = fmt.Sprintf("Basic realm=%q", opts.Realm)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(opts.Public, r.URL.Path) || check(r) {
				next.ServeHTTP(w, r)
				return
			}
			opts.Logger.WarnContext(r.Context(), "Rejected admin request",
				"path", r.URL.Path, "remote", r.RemoteAddr, "auth_type", settings.Type)
			if challenge != "" {
				w.Header().Set("WWW-Authenticate", challenge)
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}, nil
}

func basicCheck(settings config.BasicAuthSettings) func(*http.Request) bool {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		if !ok {
			return false
		}
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(settings.Username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(settings.Password)) == 1
		return userMatch && passMatch
	}
}

func apiKeyCheck(apiKeys []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			return false
		}
		valid := false
		// Compare against every key so timing does not reveal which one matched.
		for _, candidate := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
				valid = true
			}
		}
		return valid
	}
}
