package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sha1n/cms-indexer/internal/domain"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// MappingSuffix is the suffix of the type mapping kept next to each index
	MappingSuffix = ".mapping.json"
)

// Bleve implements the indexing engine on one bleve index per type, grouped
// in a directory per object type.
type Bleve struct {
	baseDir string
	logger  *slog.Logger

	mu      sync.Mutex
	indexes map[string]*typeIndex
}

type typeIndex struct {
	index   bleve.Index
	mapping domain.TypeMapping
}

// NewBleve creates an engine storing indexes under baseDir/indexes.
func NewBleve(baseDir string, logger *slog.Logger) (*Bleve, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "indexes"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}
	return &Bleve{
		baseDir: baseDir,
		logger:  logger,
		indexes: make(map[string]*typeIndex),
	}, nil
}

func (e *Bleve) namespacePath(kind domain.ObjectType) string {
	return filepath.Join(e.baseDir, "indexes", string(kind))
}

func (e *Bleve) indexPath(kind domain.ObjectType, typeID string) string {
	return filepath.Join(e.namespacePath(kind), typeID+IndexSuffix)
}

func (e *Bleve) mappingPath(kind domain.ObjectType, typeID string) string {
	return filepath.Join(e.namespacePath(kind), typeID+MappingSuffix)
}

func indexKey(kind domain.ObjectType, typeID string) string {
	return string(kind) + "/" + typeID
}

// CreateNamespace creates the directory of an object type.
func (e *Bleve) CreateNamespace(_ context.Context, kind domain.ObjectType) error {
	if err := os.MkdirAll(e.namespacePath(kind), 0755); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", kind, err)
	}
	return nil
}

// DropNamespace closes and removes every type index of an object type.
func (e *Bleve) DropNamespace(_ context.Context, kind domain.ObjectType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := string(kind) + "/"
	for key, ti := range e.indexes {
		if strings.HasPrefix(key, prefix) {
			if err := ti.index.Close(); err != nil {
				e.logger.Warn("Failed to close index", "index", key, "error", err)
			}
			delete(e.indexes, key)
		}
	}

	if err := os.RemoveAll(e.namespacePath(kind)); err != nil {
		return fmt.Errorf("failed to remove namespace %s: %w", kind, err)
	}
	return nil
}

// TypeExists reports whether a type index exists on disk.
func (e *Bleve) TypeExists(_ context.Context, kind domain.ObjectType, typeID string) (bool, error) {
	_, err := os.Stat(e.indexPath(kind, typeID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CreateType creates a new type index from its mapping.
func (e *Bleve) CreateType(_ context.Context, kind domain.ObjectType, typeID string, tm domain.TypeMapping) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.create(kind, typeID, tm)
	return err
}

func (e *Bleve) create(kind domain.ObjectType, typeID string, tm domain.TypeMapping) (*typeIndex, error) {
	if err := os.MkdirAll(e.namespacePath(kind), 0755); err != nil {
		return nil, fmt.Errorf("failed to create namespace %s: %w", kind, err)
	}

	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mapping: %w", err)
	}
	if err := os.WriteFile(e.mappingPath(kind, typeID), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write mapping: %w", err)
	}

	index, err := bleve.New(e.indexPath(kind, typeID), BuildIndexMapping(tm))
	if err != nil {
		if rmErr := os.Remove(e.mappingPath(kind, typeID)); rmErr != nil && !os.IsNotExist(rmErr) {
			e.logger.Warn("Failed to remove mapping", "kind", kind, "type_id", typeID, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	ti := &typeIndex{index: index, mapping: tm}
	e.indexes[indexKey(kind, typeID)] = ti
	return ti, nil
}

// DeleteType closes and removes a type index. Missing types are ignored.
func (e *Bleve) DeleteType(_ context.Context, kind domain.ObjectType, typeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := indexKey(kind, typeID)
	if ti, ok := e.indexes[key]; ok {
		if err := ti.index.Close(); err != nil {
			e.logger.Warn("Failed to close index", "index", key, "error", err)
		}
		delete(e.indexes, key)
	}

	if err := os.RemoveAll(e.indexPath(kind, typeID)); err != nil {
		return fmt.Errorf("failed to remove index: %w", err)
	}
	if err := os.Remove(e.mappingPath(kind, typeID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove mapping: %w", err)
	}
	return nil
}

// Index writes documents in one bleve batch. A missing type index is
// created with a system-only mapping.
func (e *Bleve) Index(ctx context.Context, kind domain.ObjectType, typeID string, docs []domain.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ti, err := e.openForWrite(kind, typeID)
	if err != nil {
		return err
	}

	batch := ti.index.NewBatch()
	for _, doc := range docs {
		body := prepareDocument(doc, ti.mapping)
		if doc.Attachment != nil {
			text, err := ExtractText(doc.Attachment.MIMEType, doc.Attachment.Data)
			if errors.Is(err, ErrUnsupportedFormat) {
				e.logger.DebugContext(ctx, "No text extractor for attachment", "record_id", doc.ID, "mime", doc.Attachment.MIMEType)
			} else if err != nil {
				e.logger.WarnContext(ctx, "Failed to extract attachment text", "record_id", doc.ID, "mime", doc.Attachment.MIMEType, "error", err)
			} else if text != "" {
				body[doc.Attachment.Field] = text
			}
		}
		if err := batch.Index(doc.ID, body); err != nil {
			return fmt.Errorf("failed to add document %q to batch: %w", doc.ID, err)
		}
	}

	if err := ti.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}

// Delete removes one document. Missing types and documents are ignored.
func (e *Bleve) Delete(_ context.Context, kind domain.ObjectType, typeID, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ti, err := e.openExisting(kind, typeID)
	if err != nil {
		return err
	}
	if ti == nil {
		return nil
	}
	return ti.index.Delete(id)
}

// Refresh makes written documents visible. Bleve applies batches
// synchronously, so only the existence of the index is checked.
func (e *Bleve) Refresh(ctx context.Context, kind domain.ObjectType, typeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.openExisting(kind, typeID)
	return err
}

// Search runs a match query over the type indexes of one namespace.
// The engine lock is held for the query so no index is closed under it.
func (e *Bleve) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	indexes, err := e.searchIndexes(req.Kind, req.TypeID)
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return &domain.SearchResult{}, nil
	}

	match := bleve.NewMatchQuery(req.Query)
	var q query.Query = match
	if req.Target != "" {
		target := bleve.NewTermQuery(req.Target)
		target.SetField(domain.FieldTarget)
		q = bleve.NewConjunctionQuery(match, target)
	}

	searchReq := bleve.NewSearchRequest(q)
	if req.Limit > 0 {
		searchReq.Size = req.Limit
	}
	searchReq.Fields = []string{"*"}

	alias := bleve.NewIndexAlias(indexes...)
	results, err := alias.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return toSearchResult(req.Kind, results), nil
}

// Document returns the stored fields of one document.
func (e *Bleve) Document(ctx context.Context, kind domain.ObjectType, typeID, id string) (map[string]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ti, err := e.openExisting(kind, typeID)
	if err != nil {
		return nil, err
	}
	if ti == nil {
		return nil, fmt.Errorf("%w: type %s/%s", domain.ErrNotFound, kind, typeID)
	}

	searchReq := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	searchReq.Fields = []string{"*"}
	results, err := ti.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(results.Hits) == 0 {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return results.Hits[0].Fields, nil
}

// DocCount returns the number of documents of a type.
func (e *Bleve) DocCount(_ context.Context, kind domain.ObjectType, typeID string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ti, err := e.openExisting(kind, typeID)
	if err != nil || ti == nil {
		return 0, err
	}
	return ti.index.DocCount()
}

// Close closes every open index.
func (e *Bleve) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for key, ti := range e.indexes {
		if err := ti.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", key, err))
		}
		delete(e.indexes, key)
	}
	return errors.Join(errs...)
}

// openExisting returns the open index of a type, opening it from disk if
// needed. It returns nil when the type has no index.
func (e *Bleve) openExisting(kind domain.ObjectType, typeID string) (*typeIndex, error) {
	key := indexKey(kind, typeID)
	if ti, ok := e.indexes[key]; ok {
		return ti, nil
	}

	path := e.indexPath(kind, typeID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	tm, err := e.readMapping(kind, typeID)
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	ti := &typeIndex{index: index, mapping: tm}
	e.indexes[key] = ti
	return ti, nil
}

// openForWrite opens or creates the index of a type.
func (e *Bleve) openForWrite(kind domain.ObjectType, typeID string) (*typeIndex, error) {
	ti, err := e.openExisting(kind, typeID)
	if err != nil || ti != nil {
		return ti, err
	}
	e.logger.Debug("Creating index for unmapped type", "kind", kind, "type_id", typeID)
	return e.create(kind, typeID, domain.TypeMapping{})
}

func (e *Bleve) readMapping(kind domain.ObjectType, typeID string) (domain.TypeMapping, error) {
	data, err := os.ReadFile(e.mappingPath(kind, typeID))
	if os.IsNotExist(err) {
		return domain.TypeMapping{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}

	var tm domain.TypeMapping
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("failed to parse mapping: %w", err)
	}
	return tm, nil
}

// searchIndexes returns the indexes to search: one type, or every type of the namespace.
func (e *Bleve) searchIndexes(kind domain.ObjectType, typeID string) ([]bleve.Index, error) {
	if typeID != "" {
		ti, err := e.openExisting(kind, typeID)
		if err != nil || ti == nil {
			return nil, err
		}
		return []bleve.Index{ti.index}, nil
	}

	entries, err := os.ReadDir(e.namespacePath(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %s: %w", kind, err)
	}

	var indexes []bleve.Index
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), IndexSuffix)
		if !ok || !entry.IsDir() {
			continue
		}
		ti, err := e.openExisting(kind, name)
		if err != nil {
			return nil, err
		}
		if ti != nil {
			indexes = append(indexes, ti.index)
		}
	}
	return indexes, nil
}
