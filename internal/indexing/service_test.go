package indexing

import (
	"context"
	"errors"
	"testing"

	"github.com/sha1n/cms-indexer/internal/domain"
)

func TestNewService_Validation(t *testing.T) {
	store := seedStore()
	engine := NewRecordingEngine()

	if _, err := NewService(nil, engine, store, nil); err == nil {
		t.Error("expected error for nil settings")
	}
	if _, err := NewService(testSettings(t), nil, store, nil); err == nil {
		t.Error("expected error for nil engine")
	}
	if _, err := NewService(testSettings(t), engine, nil, nil); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestService_IndexContent(t *testing.T) {
	engine := NewRecordingEngine()
	svc := newTestService(t, engine, seedStore())
	ctx := context.Background()

	rec := domain.SourceRecord{ID: "c1", TypeID: "article", Text: "Hello", Fields: map[string]any{"title": "Hello"}}
	if err := svc.IndexContent(ctx, rec); err != nil {
		t.Fatalf("IndexContent failed: %v", err)
	}

	doc := engine.MustGetDoc(t, domain.ObjectContent, "article", "c1")
	if doc.Fields["title"] != "Hello" {
		t.Errorf("title = %v", doc.Fields["title"])
	}
	if len(engine.CallsTo("refresh")) != 1 {
		t.Error("a single write should be refreshed")
	}
}

func TestService_IndexDam(t *testing.T) {
	engine := NewRecordingEngine()
	svc := newTestService(t, engine, seedStore())

	rec := domain.SourceRecord{ID: "d1", TypeID: "image", Text: "Logo"}
	if err := svc.IndexDam(context.Background(), rec); err != nil {
		t.Fatalf("IndexDam failed: %v", err)
	}

	doc := engine.MustGetDoc(t, domain.ObjectDam, "image", "d1")
	if doc.Fields[domain.FieldDamType] != "image" {
		t.Errorf("damType = %v", doc.Fields[domain.FieldDamType])
	}
}

func TestService_IndexSystemTypeIsSkipped(t *testing.T) {
	engine := NewRecordingEngine()
	svc := newTestService(t, engine, seedStore())

	if err := svc.IndexContent(context.Background(), domain.SourceRecord{ID: "s1", TypeID: "system-page"}); err != nil {
		t.Fatalf("IndexContent failed: %v", err)
	}
	if len(engine.CallsTo("index")) != 0 {
		t.Error("records of system types must not be indexed")
	}
}

func TestService_IndexUnknownType(t *testing.T) {
	svc := newTestService(t, NewRecordingEngine(), seedStore())

	err := svc.IndexContent(context.Background(), domain.SourceRecord{ID: "x", TypeID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestService_IndexWithBatch(t *testing.T) {
	engine := NewRecordingEngine()
	svc := newTestService(t, engine, seedStore())
	ctx := context.Background()

	batch := svc.NewBatch(domain.ObjectContent, "article")
	for _, id := range []string{"c1", "c2"} {
		if err := svc.IndexContent(ctx, domain.SourceRecord{ID: id, TypeID: "article"}, WithBatch(batch)); err != nil {
			t.Fatalf("IndexContent failed: %v", err)
		}
	}
	if len(engine.CallsTo("index")) != 0 {
		t.Fatal("batched records should not be written before flush")
	}

	if err := batch.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	calls := engine.CallsTo("index")
	if len(calls) != 1 || len(calls[0].IDs) != 2 {
		t.Errorf("index calls = %+v, want one call with 2 ids", calls)
	}
}

func TestService_IndexWithBatchOfOtherType(t *testing.T) {
	engine := NewRecordingEngine()
	svc := newTestService(t, engine, seedStore())
	ctx := context.Background()

	batch := svc.NewBatch(domain.ObjectContent, "article")
	err := svc.IndexDam(ctx, domain.SourceRecord{ID: "a1", TypeID: "image"}, WithBatch(batch))
	if !errors.Is(err, ErrBatchMismatch) {
		t.Errorf("error = %v, want ErrBatchMismatch", err)
	}
	if batch.Len() != 0 {
		t.Errorf("Len = %d, want 0", batch.Len())
	}
	if err := batch.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(engine.CallsTo("index")) != 0 {
		t.Error("a rejected document must not be written")
	}
}

func TestService_IndexEngineFailure(t *testing.T) {
	engine := NewRecordingEngine()
	engine.FailOn("index", errBoom)
	svc := newTestService(t, engine, seedStore())

	err := svc.IndexContent(context.Background(), domain.SourceRecord{ID: "c1", TypeID: "article"})
	if !errors.Is(err, errBoom) {
		t.Errorf("error = %v, want errBoom", err)
	}
}

func TestService_Delete(t *testing.T) {
	engine := NewRecordingEngine()
	svc := newTestService(t, engine, seedStore())
	ctx := context.Background()

	if err := svc.IndexContent(ctx, domain.SourceRecord{ID: "c1", TypeID: "article"}); err != nil {
		t.Fatalf("IndexContent failed: %v", err)
	}
	if err := svc.DeleteContent(ctx, "article", "c1"); err != nil {
		t.Fatalf("DeleteContent failed: %v", err)
	}
	if _, ok := engine.Doc(domain.ObjectContent, "article", "c1"); ok {
		t.Error("document should be deleted")
	}
	if err := svc.DeleteDam(ctx, "image", "never-indexed"); err != nil {
		t.Errorf("DeleteDam of a missing document failed: %v", err)
	}
}

func TestService_TypeLifecycle(t *testing.T) {
	engine := NewRecordingEngine()
	svc := newTestService(t, engine, seedStore())
	ctx := context.Background()

	fields, err := svc.IndexContentType(ctx, "article", articleType(), false)
	if err != nil {
		t.Fatalf("IndexContentType failed: %v", err)
	}
	if !fields.Contains("title") {
		t.Errorf("fields = %v", fields)
	}

	if _, err := svc.IndexContentType(ctx, "article", articleType(), false); !errors.Is(err, domain.ErrDuplicateType) {
		t.Errorf("error = %v, want ErrDuplicateType", err)
	}

	if _, err := svc.IndexDamType(ctx, "image", imageType(), true); err != nil {
		t.Fatalf("IndexDamType failed: %v", err)
	}

	if err := svc.DeleteContentType(ctx, "article"); err != nil {
		t.Fatalf("DeleteContentType failed: %v", err)
	}
	if _, ok := engine.Mapping(domain.ObjectContent, "article"); ok {
		t.Error("content type should be deleted")
	}
	if err := svc.DeleteDamType(ctx, "image"); err != nil {
		t.Fatalf("DeleteDamType failed: %v", err)
	}
}

func TestService_TypeChangeVisibleToRecordPath(t *testing.T) {
	engine := NewRecordingEngine()
	store := seedStore()
	svc := newTestService(t, engine, store)
	ctx := context.Background()

	if err := svc.IndexContent(ctx, domain.SourceRecord{ID: "c1", TypeID: "article", Fields: map[string]any{"subtitle": "v1"}}); err != nil {
		t.Fatalf("IndexContent failed: %v", err)
	}
	if _, ok := engine.MustGetDoc(t, domain.ObjectContent, "article", "c1").Fields["subtitle"]; ok {
		t.Fatal("subtitle is not searchable yet")
	}

	def := articleType()
	def.Fields = append(def.Fields, domain.FieldConfig{Name: "subtitle", Searchable: true})
	store.PutType(domain.ObjectContent, def)
	if _, err := svc.IndexContentType(ctx, "article", def, true); err != nil {
		t.Fatalf("IndexContentType failed: %v", err)
	}

	if err := svc.IndexContent(ctx, domain.SourceRecord{ID: "c1", TypeID: "article", Fields: map[string]any{"subtitle": "v2"}}); err != nil {
		t.Fatalf("IndexContent failed: %v", err)
	}
	if got := engine.MustGetDoc(t, domain.ObjectContent, "article", "c1").Fields["subtitle"]; got != "v2" {
		t.Errorf("subtitle = %v, want v2", got)
	}
}
