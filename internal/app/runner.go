package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/cms-indexer/internal/config"
	mcputil "github.com/sha1n/cms-indexer/internal/mcp"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings, string) (*mcp.Server, func(), error)
	OpenComponents    func(*config.Settings, *slog.Logger) (*Components, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
		OpenComponents: OpenComponents,
	}
}

// LoadValidSettings loads the settings and rejects conflicting configurations.
func LoadValidSettings(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := LoadValidSettings(params, flags)
	if err != nil {
		return err
	}

	logger, closeLog := config.SetupLogger(settings.Log)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	slog.Info("Starting CMS indexer", "version", version)
	config.LogWithLogger(settings, logger)
	logger.Debug("Resolved settings", "settings", config.SettingsLogValue(*settings))

	mcpServer, cleanup, err := params.CreateServer(settings, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(ctx, mcpServer, settings)
}

// CreateMCPServer opens the pipeline and creates the MCP server with the indexing tools
func CreateMCPServer(settings *config.Settings, version string) (*mcp.Server, func(), error) {
	components, err := OpenComponents(settings, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:     "cms-indexer",
		Version:  version,
		Service:  components.Service,
		Searcher: components.Engine,
	})

	cleanup := func() {
		if err := components.Close(); err != nil {
			slog.Error("Failed to close indexer components", "error", err)
		}
	}
	return server, cleanup, nil
}
