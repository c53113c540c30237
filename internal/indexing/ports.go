package indexing

import (
	"context"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// Engine is the write side of the search engine.
// Namespaces are per object type; types are per-type mappings inside a namespace.
type Engine interface {
	CreateNamespace(ctx context.Context, kind domain.ObjectType) error
	DropNamespace(ctx context.Context, kind domain.ObjectType) error
	TypeExists(ctx context.Context, kind domain.ObjectType, typeID string) (bool, error)
	CreateType(ctx context.Context, kind domain.ObjectType, typeID string, mapping domain.TypeMapping) error
	DeleteType(ctx context.Context, kind domain.ObjectType, typeID string) error
	Index(ctx context.Context, kind domain.ObjectType, typeID string, docs []domain.IndexDocument) error
	Delete(ctx context.Context, kind domain.ObjectType, typeID, id string) error
	Refresh(ctx context.Context, kind domain.ObjectType, typeID string) error
}

// Searcher is the read side of the search engine, used by admin tooling.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
	Document(ctx context.Context, kind domain.ObjectType, typeID, id string) (map[string]any, error)
	DocCount(ctx context.Context, kind domain.ObjectType, typeID string) (uint64, error)
}

// TypeRegistry looks up content and asset type definitions.
// FindType returns domain.ErrNotFound for unknown ids.
type TypeRegistry interface {
	FindType(ctx context.Context, kind domain.ObjectType, id string) (domain.TypeDefinition, error)
	ListTypes(ctx context.Context, kind domain.ObjectType) ([]domain.TypeDefinition, error)
}

// VocabularyFinder looks up taxonomies by id.
type VocabularyFinder interface {
	FindVocabulary(ctx context.Context, id string) (domain.Vocabulary, error)
}

// TermFinder looks up taxonomy terms by id.
type TermFinder interface {
	FindTerm(ctx context.Context, id string) (domain.TaxonomyTerm, error)
}

// RecordStore reads content and asset records by type.
// Pages are ordered and stable so that offset paging visits every record once.
type RecordStore interface {
	GetByType(ctx context.Context, kind domain.ObjectType, typeID string) ([]domain.SourceRecord, error)
	GetPageByType(ctx context.Context, kind domain.ObjectType, typeID string, offset, limit int) ([]domain.SourceRecord, error)
}

// BinaryStore reads stored files.
type BinaryStore interface {
	FindFile(ctx context.Context, id string) (domain.File, error)
}

// Source bundles every upstream collaborator of the pipeline.
type Source interface {
	TypeRegistry
	VocabularyFinder
	TermFinder
	RecordStore
	BinaryStore
}
