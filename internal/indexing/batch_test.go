package indexing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sha1n/cms-indexer/internal/domain"
)

func batchDoc(i int) domain.IndexDocument {
	return domain.IndexDocument{ID: fmt.Sprintf("d%d", i), ObjectType: domain.ObjectContent, TypeID: "article"}
}

func TestBatchIndexer_FlushesAtThreshold(t *testing.T) {
	engine := NewRecordingEngine()
	batch := NewBatchIndexer(engine, domain.ObjectContent, "article", 500)
	ctx := context.Background()

	for i := range 1001 {
		if err := batch.Add(ctx, batchDoc(i)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if batch.Len() != 1 {
		t.Errorf("Len = %d, want 1", batch.Len())
	}
	if err := batch.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if batch.Flushes() != 3 {
		t.Errorf("Flushes = %d, want 3", batch.Flushes())
	}
	if batch.Written() != 1001 {
		t.Errorf("Written = %d, want 1001", batch.Written())
	}

	sizes := []int{}
	for _, call := range engine.CallsTo("index") {
		sizes = append(sizes, len(call.IDs))
	}
	if fmt.Sprint(sizes) != "[500 500 1]" {
		t.Errorf("batch sizes = %v, want [500 500 1]", sizes)
	}
	if len(engine.CallsTo("refresh")) != 3 {
		t.Errorf("every flush should refresh, got %d refreshes", len(engine.CallsTo("refresh")))
	}
}

func TestBatchIndexer_EmptyFlush(t *testing.T) {
	engine := NewRecordingEngine()
	batch := NewBatchIndexer(engine, domain.ObjectContent, "article", 10)

	if err := batch.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if batch.Flushes() != 0 || len(engine.Calls()) != 0 {
		t.Error("an empty flush must not call the engine")
	}
}

func TestBatchIndexer_RejectsOtherTypes(t *testing.T) {
	batch := NewBatchIndexer(NewRecordingEngine(), domain.ObjectContent, "article", 10)

	for name, doc := range map[string]domain.IndexDocument{
		"other type": {ID: "p1", ObjectType: domain.ObjectContent, TypeID: "page"},
		"other kind": {ID: "a1", ObjectType: domain.ObjectDam, TypeID: "article"},
	} {
		t.Run(name, func(t *testing.T) {
			if err := batch.Add(context.Background(), doc); !errors.Is(err, ErrBatchMismatch) {
				t.Errorf("error = %v, want ErrBatchMismatch", err)
			}
		})
	}
	if batch.Len() != 0 {
		t.Errorf("Len = %d, want 0", batch.Len())
	}
}

func TestBatchIndexer_DefaultSize(t *testing.T) {
	batch := NewBatchIndexer(NewRecordingEngine(), domain.ObjectContent, "article", 0)
	if batch.size != DefaultBatchSize {
		t.Errorf("size = %d, want %d", batch.size, DefaultBatchSize)
	}
}

func TestBatchIndexer_FlushError(t *testing.T) {
	engine := NewRecordingEngine()
	engine.FailOn("index", errBoom)
	batch := NewBatchIndexer(engine, domain.ObjectContent, "article", 2)
	ctx := context.Background()

	if err := batch.Add(ctx, batchDoc(1)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := batch.Add(ctx, batchDoc(2))

	var flushErr *FlushError
	if !errors.As(err, &flushErr) {
		t.Fatalf("error = %v, want *FlushError", err)
	}
	if !errors.Is(err, errBoom) {
		t.Error("FlushError should unwrap to the engine error")
	}
	if !equalIDs(flushErr.IDs, []string{"d1", "d2"}) {
		t.Errorf("IDs = %v", flushErr.IDs)
	}
	if batch.Len() != 0 || batch.Written() != 0 {
		t.Errorf("Len = %d, Written = %d, want 0, 0", batch.Len(), batch.Written())
	}

	engine.FailOn("index", nil)
	if err := batch.Add(ctx, batchDoc(3)); err != nil {
		t.Fatalf("Add after failure failed: %v", err)
	}
	if err := batch.Flush(ctx); err != nil {
		t.Fatalf("Flush after failure failed: %v", err)
	}
	if batch.Written() != 1 {
		t.Errorf("Written = %d, want 1", batch.Written())
	}
}
