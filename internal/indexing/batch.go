package indexing

import (
	"context"
	"errors"
	"fmt"

	"github.com/sha1n/cms-indexer/internal/domain"
)

const (
	// DefaultBatchSize is the number of documents buffered before a bulk write.
	DefaultBatchSize = 500

	// DefaultPageSize is the number of records fetched per page in a type sweep.
	DefaultPageSize = 500
)

// ErrBatchMismatch indicates a document of another type was added to a batch.
var ErrBatchMismatch = errors.New("document does not belong to batch type")

// FlushError reports a failed bulk write and the ids of the documents it carried.
type FlushError struct {
	Kind   domain.ObjectType
	TypeID string
	IDs    []string
	Err    error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("failed to flush %d %s documents to type %q: %v", len(e.IDs), e.Kind, e.TypeID, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}

// BatchIndexer buffers documents of one type and writes them in bulk.
// Every flush is followed by a refresh so flushed documents are visible.
type BatchIndexer struct {
	engine  Engine
	kind    domain.ObjectType
	typeID  string
	size    int
	docs    []domain.IndexDocument
	flushes int
	written int
}

// NewBatchIndexer creates a batch for one type. Sizes below one use DefaultBatchSize.
func NewBatchIndexer(engine Engine, kind domain.ObjectType, typeID string, size int) *BatchIndexer {
	if size < 1 {
		size = DefaultBatchSize
	}
	return &BatchIndexer{
		engine: engine,
		kind:   kind,
		typeID: typeID,
		size:   size,
		docs:   make([]domain.IndexDocument, 0, size),
	}
}

// Add buffers doc and flushes when the batch reaches its size.
// Documents of another kind or type are rejected with ErrBatchMismatch.
func (b *BatchIndexer) Add(ctx context.Context, doc domain.IndexDocument) error {
	if doc.ObjectType != b.kind || doc.TypeID != b.typeID {
		return fmt.Errorf("%w: %s %q is not %s %q", ErrBatchMismatch, doc.ObjectType, doc.TypeID, b.kind, b.typeID)
	}
	b.docs = append(b.docs, doc)
	if len(b.docs) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered documents and refreshes the type.
// The buffer is emptied even when the write fails; the failure is
// returned as a *FlushError naming the lost documents.
func (b *BatchIndexer) Flush(ctx context.Context) error {
	if len(b.docs) == 0 {
		return nil
	}

	docs := b.docs
	b.docs = make([]domain.IndexDocument, 0, b.size)
	b.flushes++

	err := b.engine.Index(ctx, b.kind, b.typeID, docs)
	if err == nil {
		err = b.engine.Refresh(ctx, b.kind, b.typeID)
	}
	if err != nil {
		ids := make([]string, len(docs))
		for i, doc := range docs {
			ids[i] = doc.ID
		}
		return &FlushError{Kind: b.kind, TypeID: b.typeID, IDs: ids, Err: err}
	}

	b.written += len(docs)
	return nil
}

// Len returns the number of buffered documents.
func (b *BatchIndexer) Len() int {
	return len(b.docs)
}

// Flushes returns the number of bulk writes attempted.
func (b *BatchIndexer) Flushes() int {
	return b.flushes
}

// Written returns the number of documents successfully flushed.
func (b *BatchIndexer) Written() int {
	return b.written
}
