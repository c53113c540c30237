package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sha1n/cms-indexer/internal/config"
	"github.com/sha1n/cms-indexer/internal/domain"
	"github.com/sha1n/cms-indexer/internal/indexing"
	"github.com/sha1n/cms-indexer/internal/source"
	"github.com/sha1n/cms-indexer/internal/source/sqlite"
)

// NewCommands returns the admin subcommands of the indexer.
func NewCommands(params RunParams) []*cobra.Command {
	return []*cobra.Command{
		newReindexCommand(params),
		newReindexTypeCommand(params),
		newSeedCommand(params),
		newStatusCommand(params),
	}
}

func newReindexCommand(params RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <content|dam|all>",
		Short: "Drop and rebuild the search namespaces of a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := domain.ParseScope(args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd, params, func(ctx context.Context, c *Components) error {
				result, err := c.Service.IndexAll(ctx, scope)
				return printSweep(cmd, result, err)
			})
		},
	}
	RegisterStorageFlags(cmd.Flags())
	return cmd
}

func newReindexTypeCommand(params RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex-type <content|dam> <typeId>",
		Short: "Reindex every record of one type without dropping its namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := domain.ParseScope(args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd, params, func(ctx context.Context, c *Components) error {
				result, err := c.Service.IndexByType(ctx, scope, args[1])
				return printSweep(cmd, result, err)
			})
		},
	}
	RegisterStorageFlags(cmd.Flags())
	return cmd
}

func newSeedCommand(params RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load types, taxonomies, records and files into the sqlite source of record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, closeLog, err := commandSettings(cmd, params)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			if settings.Source.Driver != config.SourceDriverSQLite {
				return fmt.Errorf("seed requires the %s source driver, got %s", config.SourceDriverSQLite, settings.Source.Driver)
			}

			fixtures, err := source.LoadFixtures(args[0])
			if err != nil {
				return err
			}
			store, err := sqlite.Open(settings.Source.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Import(cmd.Context(), fixtures); err != nil {
				return fmt.Errorf("failed to seed %s: %w", store.Path(), err)
			}

			logger.Info("Seeded source of record", "path", store.Path(), "fixtures", args[0])
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Seeded %s: %d content types, %d dam types, %d vocabularies, %d terms, %d contents, %d assets, %d files\n",
				store.Path(),
				len(fixtures.ContentTypes), len(fixtures.DamTypes), len(fixtures.Vocabularies),
				len(fixtures.Terms), len(fixtures.Contents), len(fixtures.Assets), len(fixtures.Files))
			return err
		},
	}
	RegisterStorageFlags(cmd.Flags())
	return cmd
}

func newStatusCommand(params RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last sweeps and the document count per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, params, func(ctx context.Context, c *Components) error {
				_, err := fmt.Fprint(cmd.OutOrStdout(), indexing.FormatStatus(ctx, c.Service, c.Engine))
				return err
			})
		},
	}
	RegisterStorageFlags(cmd.Flags())
	return cmd
}

func commandSettings(cmd *cobra.Command, params RunParams) (*config.Settings, *slog.Logger, func() error, error) {
	settings, err := LoadValidSettings(params, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog := config.SetupLogger(settings.Log)
	return settings, logger, closeLog, nil
}

func withComponents(cmd *cobra.Command, params RunParams, fn func(context.Context, *Components) error) error {
	settings, logger, closeLog, err := commandSettings(cmd, params)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	components, err := params.OpenComponents(settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Error("Failed to close indexer components", "error", err)
		}
	}()

	return fn(cmd.Context(), components)
}

func printSweep(cmd *cobra.Command, result *indexing.SweepResult, sweepErr error) error {
	if result == nil {
		return sweepErr
	}
	if _, err := fmt.Fprint(cmd.OutOrStdout(), indexing.SweepReport(result, sweepErr)); err != nil {
		return err
	}
	return sweepErr
}
