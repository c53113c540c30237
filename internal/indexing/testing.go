package indexing

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// EngineCall records one call made to a RecordingEngine.
type EngineCall struct {
	Op     string
	Kind   domain.ObjectType
	TypeID string
	IDs    []string
}

// RecordingEngine is an in-memory Engine and Searcher that records every call.
// This is exported for use in integration tests.
type RecordingEngine struct {
	mu       sync.Mutex
	calls    []EngineCall
	mappings map[string]domain.TypeMapping
	docs     map[string]map[string]domain.IndexDocument
	failures map[string]error
}

// NewRecordingEngine creates an empty recording engine.
func NewRecordingEngine() *RecordingEngine {
	return &RecordingEngine{
		mappings: make(map[string]domain.TypeMapping),
		docs:     make(map[string]map[string]domain.IndexDocument),
		failures: make(map[string]error),
	}
}

// FailOn makes every call of op (e.g. "index", "create_type") return err.
// A nil err clears the failure.
func (e *RecordingEngine) FailOn(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, op)
		return
	}
	e.failures[op] = err
}

func (e *RecordingEngine) record(op string, kind domain.ObjectType, typeID string, ids ...string) error {
	e.calls = append(e.calls, EngineCall{Op: op, Kind: kind, TypeID: typeID, IDs: ids})
	return e.failures[op]
}

func engineKey(kind domain.ObjectType, typeID string) string {
	return string(kind) + "/" + typeID
}

func (e *RecordingEngine) CreateNamespace(_ context.Context, kind domain.ObjectType) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record("create_namespace", kind, "")
}

func (e *RecordingEngine) DropNamespace(_ context.Context, kind domain.ObjectType) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("drop_namespace", kind, ""); err != nil {
		return err
	}
	prefix := string(kind) + "/"
	for key := range e.mappings {
		if strings.HasPrefix(key, prefix) {
			delete(e.mappings, key)
		}
	}
	for key := range e.docs {
		if strings.HasPrefix(key, prefix) {
			delete(e.docs, key)
		}
	}
	return nil
}

func (e *RecordingEngine) TypeExists(_ context.Context, kind domain.ObjectType, typeID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("type_exists", kind, typeID); err != nil {
		return false, err
	}
	_, ok := e.mappings[engineKey(kind, typeID)]
	return ok, nil
}

func (e *RecordingEngine) CreateType(_ context.Context, kind domain.ObjectType, typeID string, mapping domain.TypeMapping) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("create_type", kind, typeID); err != nil {
		return err
	}
	e.mappings[engineKey(kind, typeID)] = maps.Clone(mapping)
	return nil
}

func (e *RecordingEngine) DeleteType(_ context.Context, kind domain.ObjectType, typeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("delete_type", kind, typeID); err != nil {
		return err
	}
	delete(e.mappings, engineKey(kind, typeID))
	delete(e.docs, engineKey(kind, typeID))
	return nil
}

func (e *RecordingEngine) Index(_ context.Context, kind domain.ObjectType, typeID string, docs []domain.IndexDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	if err := e.record("index", kind, typeID, ids...); err != nil {
		return err
	}
	key := engineKey(kind, typeID)
	if e.docs[key] == nil {
		e.docs[key] = make(map[string]domain.IndexDocument)
	}
	for _, doc := range docs {
		e.docs[key][doc.ID] = doc
	}
	return nil
}

func (e *RecordingEngine) Delete(_ context.Context, kind domain.ObjectType, typeID, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("delete", kind, typeID, id); err != nil {
		return err
	}
	delete(e.docs[engineKey(kind, typeID)], id)
	return nil
}

func (e *RecordingEngine) Refresh(_ context.Context, kind domain.ObjectType, typeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record("refresh", kind, typeID)
}

// Search matches documents whose text contains the query, case-insensitively.
func (e *RecordingEngine) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("search", req.Kind, req.TypeID); err != nil {
		return nil, err
	}

	result := &domain.SearchResult{}
	needle := strings.ToLower(req.Query)
	for _, key := range slices.Sorted(maps.Keys(e.docs)) {
		for _, id := range slices.Sorted(maps.Keys(e.docs[key])) {
			doc := e.docs[key][id]
			if doc.ObjectType != req.Kind || (req.TypeID != "" && doc.TypeID != req.TypeID) {
				continue
			}
			if req.Target != "" && !slices.Contains(doc.Target, req.Target) {
				continue
			}
			text, _ := doc.Fields[domain.FieldText].(string)
			if !strings.Contains(strings.ToLower(text), needle) {
				continue
			}
			result.Total++
			if req.Limit <= 0 || len(result.Hits) < req.Limit {
				result.Hits = append(result.Hits, domain.SearchHit{ID: doc.ID, TypeID: doc.TypeID, Score: 1, Fields: doc.Body()})
			}
		}
	}
	return result, nil
}

func (e *RecordingEngine) Document(_ context.Context, kind domain.ObjectType, typeID, id string) (map[string]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[engineKey(kind, typeID)][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc.Body(), nil
}

func (e *RecordingEngine) DocCount(_ context.Context, kind domain.ObjectType, typeID string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.docs[engineKey(kind, typeID)])), nil
}

// Calls returns every recorded call.
func (e *RecordingEngine) Calls() []EngineCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// CallsTo returns the recorded calls of one operation.
func (e *RecordingEngine) CallsTo(op string) []EngineCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []EngineCall
	for _, call := range e.calls {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

// Mapping returns the mapping of a created type.
func (e *RecordingEngine) Mapping(kind domain.ObjectType, typeID string) (domain.TypeMapping, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	mapping, ok := e.mappings[engineKey(kind, typeID)]
	return mapping, ok
}

// Doc returns an indexed document.
func (e *RecordingEngine) Doc(kind domain.ObjectType, typeID, id string) (domain.IndexDocument, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[engineKey(kind, typeID)][id]
	return doc, ok
}

// ResetCalls forgets recorded calls but keeps state.
func (e *RecordingEngine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// MustGetDoc returns an indexed document, failing the test if it is missing.
func (e *RecordingEngine) MustGetDoc(t *testing.T, kind domain.ObjectType, typeID, id string) domain.IndexDocument {
	t.Helper()
	doc, ok := e.Doc(kind, typeID, id)
	if !ok {
		t.Fatalf("Expected document %s/%s/%s to be indexed", kind, typeID, id)
	}
	return doc
}
