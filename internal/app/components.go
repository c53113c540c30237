package app

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sha1n/cms-indexer/internal/config"
	"github.com/sha1n/cms-indexer/internal/engine"
	"github.com/sha1n/cms-indexer/internal/indexing"
	"github.com/sha1n/cms-indexer/internal/source"
	"github.com/sha1n/cms-indexer/internal/source/memory"
	"github.com/sha1n/cms-indexer/internal/source/sqlite"
)

// SourceStore is a source of record that owns resources.
type SourceStore interface {
	indexing.Source
	Close() error
}

// Components are the wired pipeline collaborators.
type Components struct {
	Source  SourceStore
	Engine  *engine.Bleve
	Service *indexing.Service
}

// OpenComponents opens the source of record and the search engine and builds the indexing service.
func OpenComponents(settings *config.Settings, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	src, err := OpenSource(settings.Source, logger)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewBleve(settings.Index.BaseDir, logger)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("failed to open search engine: %w", err)
	}

	svc, err := indexing.NewService(&settings.Index, eng, src, logger)
	if err != nil {
		_ = eng.Close()
		_ = src.Close()
		return nil, fmt.Errorf("failed to create indexing service: %w", err)
	}

	return &Components{Source: src, Engine: eng, Service: svc}, nil
}

// Close releases the engine and the source.
func (c *Components) Close() error {
	return errors.Join(c.Engine.Close(), c.Source.Close())
}

// OpenSource opens the configured source of record. The memory driver is
// seeded from source.path when it names a YAML fixture file.
func OpenSource(settings config.SourceSettings, logger *slog.Logger) (SourceStore, error) {
	switch settings.Driver {
	case config.SourceDriverSQLite:
		store, err := sqlite.Open(settings.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite source: %w", err)
		}
		logger.Info("Opened source of record", "driver", settings.Driver, "path", store.Path())
		return store, nil
	case config.SourceDriverMemory:
		store := memory.New()
		if isFixtureFile(settings.Path) {
			fixtures, err := source.LoadFixtures(settings.Path)
			if err != nil {
				return nil, err
			}
			if err := store.Import(fixtures); err != nil {
				return nil, fmt.Errorf("failed to seed memory source: %w", err)
			}
			logger.Info("Seeded memory source", "path", settings.Path)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown source driver: %s", settings.Driver)
	}
}

func isFixtureFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
