package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/cms-indexer/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "cms-indexer"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := app.DefaultRunParams()
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "CMS search indexer",
		Long:    "Projects CMS content and digital assets into a search index and serves the indexing admin tools over MCP",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Context(), params, cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterFlags(rootCmd.Flags())
	rootCmd.AddCommand(app.NewCommands(params)...)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

func runWithFlags(ctx context.Context, params app.RunParams, flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(ctx, params, flags, version)
}
