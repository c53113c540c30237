package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sha1n/cms-indexer/internal/config"
	"github.com/sha1n/cms-indexer/internal/domain"
)

// Service is the indexing entry point used by record and type write paths
// and by admin tooling.
type Service struct {
	settings *config.IndexSettings
	engine   Engine
	source   Source
	logger   *slog.Logger
	manifest *Manifest

	// live serves single-record and type operations; sweeps build their own.
	live *pipeline
	mu   sync.Mutex

	manifestMu sync.Mutex
}

// IndexOption customizes a single-record index call.
type IndexOption func(*indexOptions)

type indexOptions struct {
	batch *BatchIndexer
}

// WithBatch buffers the document in batch instead of writing it immediately.
func WithBatch(batch *BatchIndexer) IndexOption {
	return func(o *indexOptions) {
		o.batch = batch
	}
}

// NewService creates the indexing service.
func NewService(settings *config.IndexSettings, engine Engine, source Source, logger *slog.Logger) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if engine == nil || source == nil {
		return nil, fmt.Errorf("engine and source are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(settings.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	manifest, err := LoadManifest(ManifestPath(settings.BaseDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	s := &Service{
		settings: settings,
		engine:   engine,
		source:   source,
		logger:   logger,
		manifest: manifest,
	}
	s.live = s.newPipeline()
	return s, nil
}

// IndexContent projects and writes one content record.
func (s *Service) IndexContent(ctx context.Context, rec domain.SourceRecord, opts ...IndexOption) error {
	return s.indexRecord(ctx, domain.ObjectContent, rec, opts)
}

// IndexDam projects and writes one asset record.
func (s *Service) IndexDam(ctx context.Context, rec domain.SourceRecord, opts ...IndexOption) error {
	return s.indexRecord(ctx, domain.ObjectDam, rec, opts)
}

// DeleteContent removes a content document.
func (s *Service) DeleteContent(ctx context.Context, typeID, id string) error {
	return s.live.types.DeleteRecord(ctx, domain.ObjectContent, typeID, id)
}

// DeleteDam removes an asset document.
func (s *Service) DeleteDam(ctx context.Context, typeID, id string) error {
	return s.live.types.DeleteRecord(ctx, domain.ObjectDam, typeID, id)
}

// IndexContentType creates the namespace of a content type.
func (s *Service) IndexContentType(ctx context.Context, id string, def domain.TypeDefinition, overwrite bool) (domain.FieldSet, error) {
	return s.live.types.CreateOrReplace(ctx, domain.ObjectContent, id, def, overwrite)
}

// IndexDamType creates the namespace of an asset type.
func (s *Service) IndexDamType(ctx context.Context, id string, def domain.TypeDefinition, overwrite bool) (domain.FieldSet, error) {
	return s.live.types.CreateOrReplace(ctx, domain.ObjectDam, id, def, overwrite)
}

// DeleteContentType removes the namespace of a content type.
func (s *Service) DeleteContentType(ctx context.Context, id string) error {
	return s.deleteType(ctx, domain.ObjectContent, id)
}

// DeleteDamType removes the namespace of an asset type.
func (s *Service) DeleteDamType(ctx context.Context, id string) error {
	return s.deleteType(ctx, domain.ObjectDam, id)
}

// NewBatch creates a batch for bulk calls to IndexContent or IndexDam.
func (s *Service) NewBatch(kind domain.ObjectType, typeID string) *BatchIndexer {
	return NewBatchIndexer(s.engine, kind, typeID, s.settings.BatchSize)
}

// Status returns the journaled state of every swept type.
func (s *Service) Status() ([]TypeState, *RunState) {
	s.manifestMu.Lock()
	defer s.manifestMu.Unlock()

	var last *RunState
	if s.manifest.LastRun != nil {
		run := *s.manifest.LastRun
		last = &run
	}
	return s.manifest.States(), last
}

func (s *Service) indexRecord(ctx context.Context, kind domain.ObjectType, rec domain.SourceRecord, opts []IndexOption) error {
	var o indexOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Term and vocabulary caches only live for one projection pass.
	s.live.projector.Reset()

	fields, err := s.live.mapper.Structure(ctx, kind, rec.TypeID)
	if err != nil {
		return err
	}
	doc, ok, err := s.live.projector.Project(ctx, kind, rec, fields)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.DebugContext(ctx, "Skipping record of system type", "kind", kind, "type_id", rec.TypeID, "record_id", rec.ID)
		return nil
	}

	if o.batch != nil {
		return o.batch.Add(ctx, *doc)
	}

	if err := s.engine.Index(ctx, kind, rec.TypeID, []domain.IndexDocument{*doc}); err != nil {
		return fmt.Errorf("failed to index %s %q: %w", kind, rec.ID, err)
	}
	if err := s.engine.Refresh(ctx, kind, rec.TypeID); err != nil {
		return fmt.Errorf("failed to refresh %s type %q: %w", kind, rec.TypeID, err)
	}
	return nil
}

func (s *Service) deleteType(ctx context.Context, kind domain.ObjectType, id string) error {
	if err := s.live.types.Delete(ctx, kind, id); err != nil {
		return err
	}

	s.manifestMu.Lock()
	defer s.manifestMu.Unlock()
	s.manifest.Remove(kind, id)
	if err := s.manifest.Save(ManifestPath(s.settings.BaseDir)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save manifest", "error", err)
	}
	return nil
}

func (s *Service) recordSweep(ctx context.Context, result *SweepResult, sweepErr error) {
	s.manifestMu.Lock()
	defer s.manifestMu.Unlock()

	s.manifest.Record(result, sweepErr)
	if err := s.manifest.Save(ManifestPath(s.settings.BaseDir)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save manifest", "run_id", result.RunID, "error", err)
	}
}

// pipeline is one independent set of mapper, projector and type manager.
// Each sweep gets its own so caches are never shared between runs.
type pipeline struct {
	mapper    *SchemaMapper
	projector *Projector
	types     *TypeManager
}

func (s *Service) newPipeline() *pipeline {
	mapper := NewSchemaMapper(s.source, s.source)
	resolver := NewResolver(s.source, s.logger)
	return &pipeline{
		mapper: mapper,
		projector: NewProjector(ProjectorConfig{
			Resolver:     resolver,
			Vocabularies: s.source,
			Terms:        s.source,
			Files:        s.source,
			Filter:       NewAttachmentFilter(s.settings.MaxAttachmentSize),
			Logger:       s.logger,
		}),
		types: NewTypeManager(s.engine, mapper, s.logger),
	}
}
