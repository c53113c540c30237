package indexing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// SweepResult summarizes a full or per-type reindex.
type SweepResult struct {
	RunID      string         `json:"run_id"`
	Scope      domain.Scope   `json:"scope"`
	TypeID     string         `json:"type_id,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Counts     map[string]int `json:"counts"`
	Types      []TypeSummary  `json:"types"`
}

// TypeSummary is the outcome of sweeping one type.
type TypeSummary struct {
	Kind      domain.ObjectType `json:"kind"`
	TypeID    string            `json:"type_id"`
	Name      string            `json:"name"`
	Count     int               `json:"count"`
	FailedIDs []string          `json:"failed_ids,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Failed returns the ids of every record that could not be indexed.
func (r *SweepResult) Failed() []string {
	var ids []string
	for _, summary := range r.Types {
		ids = append(ids, summary.FailedIDs...)
	}
	return ids
}

func newSweepResult(scope domain.Scope, typeID string) *SweepResult {
	return &SweepResult{
		RunID:     uuid.NewString(),
		Scope:     scope,
		TypeID:    typeID,
		StartedAt: time.Now(),
		Counts:    make(map[string]int),
	}
}

func (r *SweepResult) add(summary TypeSummary) {
	r.Counts[summary.TypeID] = summary.Count
	r.Types = append(r.Types, summary)
}

// IndexAll rebuilds every namespace of scope: each namespace is dropped and
// recreated, then every non-system type is remapped and all its records
// are reindexed. Record failures are collected, not returned. A namespace
// failure stops that namespace only; failures are joined in the error.
func (s *Service) IndexAll(ctx context.Context, scope domain.Scope) (*SweepResult, error) {
	kinds := scope.ObjectTypes()
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedScope, string(scope))
	}

	result := newSweepResult(scope, "")
	s.logger.InfoContext(ctx, "Starting full reindex", "run_id", result.RunID, "scope", scope)

	var errs []error
	for _, kind := range kinds {
		if err := s.sweepKind(ctx, kind, result); err != nil {
			s.logger.ErrorContext(ctx, "Reindex failed", "run_id", result.RunID, "kind", kind, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}

	result.FinishedAt = time.Now()
	err := errors.Join(errs...)
	s.recordSweep(ctx, result, err)
	s.live.mapper.Reset()

	s.logger.InfoContext(ctx, "Finished full reindex",
		"run_id", result.RunID,
		"types", len(result.Types),
		"failed", len(result.Failed()),
		"duration", result.FinishedAt.Sub(result.StartedAt))

	return result, err
}

// IndexByType reindexes one type of a content or dam scope without dropping
// anything. The type's namespace is created when missing. Records are read
// page by page and flushed after every page.
func (s *Service) IndexByType(ctx context.Context, scope domain.Scope, typeID string) (*SweepResult, error) {
	kind, err := scope.ObjectType()
	if err != nil {
		return nil, err
	}
	if err := ValidateTypeID(typeID); err != nil {
		return nil, err
	}

	lock, err := s.lockSweep(ctx, kind)
	if err != nil {
		return nil, err
	}
	defer s.unlockSweep(ctx, lock)

	result := newSweepResult(scope, typeID)
	p := s.newPipeline()

	def, err := p.mapper.Definition(ctx, kind, typeID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Starting type reindex", "run_id", result.RunID, "kind", kind, "type_id", typeID)
	summary, err := s.sweepTypePaged(ctx, p, kind, def)
	result.add(summary)
	result.FinishedAt = time.Now()

	s.recordSweep(ctx, result, err)
	s.live.mapper.Invalidate(kind, typeID)

	s.logger.InfoContext(ctx, "Finished type reindex",
		"run_id", result.RunID,
		"kind", kind,
		"type_id", typeID,
		"count", summary.Count,
		"failed", len(summary.FailedIDs))

	return result, err
}

func (s *Service) sweepKind(ctx context.Context, kind domain.ObjectType, result *SweepResult) error {
	lock, err := s.lockSweep(ctx, kind)
	if err != nil {
		return err
	}
	defer s.unlockSweep(ctx, lock)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.engine.DropNamespace(ctx, kind); err != nil {
		return fmt.Errorf("failed to drop namespace: %w", err)
	}
	if err := s.engine.CreateNamespace(ctx, kind); err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}

	defs, err := s.source.ListTypes(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to list types: %w", err)
	}

	p := s.newPipeline()
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if def.System {
			continue
		}
		p.mapper.Prime(kind, def)
		result.add(s.sweepType(ctx, p, kind, def))
	}

	return nil
}

// sweepType remaps one type and indexes all of its records.
func (s *Service) sweepType(ctx context.Context, p *pipeline, kind domain.ObjectType, def domain.TypeDefinition) TypeSummary {
	summary := TypeSummary{Kind: kind, TypeID: def.ID, Name: def.DisplayName()}

	if _, err := p.types.CreateOrReplace(ctx, kind, def.ID, def, true); err != nil {
		summary.Error = err.Error()
		s.logger.ErrorContext(ctx, "Failed to create type mapping", "kind", kind, "type_id", def.ID, "error", err)
		return summary
	}

	records, err := s.source.GetByType(ctx, kind, def.ID)
	if err != nil {
		summary.Error = err.Error()
		s.logger.ErrorContext(ctx, "Failed to read records", "kind", kind, "type_id", def.ID, "error", err)
		return summary
	}

	// Records carry the searchable fields, not the mapped names.
	fields := StructureOf(kind, def)
	batch := NewBatchIndexer(s.engine, kind, def.ID, s.settings.BatchSize)
	for _, rec := range records {
		s.indexSweepRecord(ctx, p, batch, kind, rec, fields, &summary)
	}
	s.flushSweep(ctx, batch, &summary)

	s.logger.InfoContext(ctx, "Indexed type", "kind", kind, "type_id", def.ID, "count", summary.Count, "failed", len(summary.FailedIDs))
	return summary
}

// sweepTypePaged indexes one type page by page, advancing the offset by the
// page size until a short page is returned.
func (s *Service) sweepTypePaged(ctx context.Context, p *pipeline, kind domain.ObjectType, def domain.TypeDefinition) (TypeSummary, error) {
	summary := TypeSummary{Kind: kind, TypeID: def.ID, Name: def.DisplayName()}
	fields := StructureOf(kind, def)

	if !fields.IsEmpty() {
		exists, err := s.engine.TypeExists(ctx, kind, def.ID)
		if err != nil {
			summary.Error = err.Error()
			return summary, fmt.Errorf("failed to check %s type %q: %w", kind, def.ID, err)
		}
		if !exists {
			if _, err := p.types.CreateOrReplace(ctx, kind, def.ID, def, false); err != nil {
				summary.Error = err.Error()
				return summary, err
			}
		}
	}

	pageSize := s.settings.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	batch := NewBatchIndexer(s.engine, kind, def.ID, s.settings.BatchSize)
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			s.flushSweep(ctx, batch, &summary)
			summary.Error = err.Error()
			return summary, err
		}

		page, err := s.source.GetPageByType(ctx, kind, def.ID, offset, pageSize)
		if err != nil {
			s.flushSweep(ctx, batch, &summary)
			summary.Error = err.Error()
			return summary, fmt.Errorf("failed to read page at offset %d: %w", offset, err)
		}

		for _, rec := range page {
			s.indexSweepRecord(ctx, p, batch, kind, rec, fields, &summary)
		}
		s.flushSweep(ctx, batch, &summary)

		if len(page) < pageSize {
			break
		}
	}
	s.flushSweep(ctx, batch, &summary)

	return summary, nil
}

func (s *Service) indexSweepRecord(ctx context.Context, p *pipeline, batch *BatchIndexer, kind domain.ObjectType, rec domain.SourceRecord, fields domain.FieldSet, summary *TypeSummary) {
	summary.Count++

	doc, ok, err := p.projector.Project(ctx, kind, rec, fields)
	if err != nil {
		summary.FailedIDs = append(summary.FailedIDs, rec.ID)
		s.logger.WarnContext(ctx, "Failed to project record", "kind", kind, "type_id", rec.TypeID, "record_id", rec.ID, "error", err)
		return
	}
	if !ok {
		return
	}

	if err := batch.Add(ctx, *doc); err != nil {
		s.recordFlushError(ctx, err, summary)
	}
}

func (s *Service) flushSweep(ctx context.Context, batch *BatchIndexer, summary *TypeSummary) {
	if err := batch.Flush(ctx); err != nil {
		s.recordFlushError(ctx, err, summary)
	}
}

func (s *Service) recordFlushError(ctx context.Context, err error, summary *TypeSummary) {
	var flushErr *FlushError
	if errors.As(err, &flushErr) {
		summary.FailedIDs = append(summary.FailedIDs, flushErr.IDs...)
		for _, id := range flushErr.IDs {
			s.logger.WarnContext(ctx, "Failed to index record", "kind", summary.Kind, "type_id", summary.TypeID, "record_id", id, "error", flushErr.Err)
		}
		return
	}
	s.logger.WarnContext(ctx, "Failed to flush batch", "kind", summary.Kind, "type_id", summary.TypeID, "error", err)
}

// lockSweep takes the sweep lock of a namespace. With a LockWait setting it
// waits that long for a running sweep to finish, otherwise it fails fast.
func (s *Service) lockSweep(ctx context.Context, kind domain.ObjectType) (*FileLock, error) {
	lock := NewFileLock(SweepLockPath(s.settings.BaseDir, string(kind)))

	if wait := s.settings.LockWait; wait > 0 {
		err := lock.Lock(ctx, wait)
		if errors.Is(err, ErrLockTimeout) {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrSweepInProgress, kind, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		return lock, nil
	}

	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", domain.ErrSweepInProgress, kind)
	}
	return lock, nil
}

func (s *Service) unlockSweep(ctx context.Context, lock *FileLock) {
	if err := lock.Unlock(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to release sweep lock", "path", lock.Path(), "error", err)
	}
}
