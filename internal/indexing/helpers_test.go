package indexing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/sha1n/cms-indexer/internal/config"
	"github.com/sha1n/cms-indexer/internal/domain"
	"github.com/sha1n/cms-indexer/internal/source/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func articleType() domain.TypeDefinition {
	return domain.TypeDefinition{
		ID:   "article",
		Name: "Article",
		Fields: []domain.FieldConfig{
			{Name: "title", CType: "textfield", Searchable: true},
			{Name: "body", CType: "textareafield", Searchable: true},
			{Name: "internal", CType: "textfield", Searchable: false},
			{Name: "published", CType: domain.CTypeDateField, Searchable: true},
		},
		Vocabularies: []string{"v-tags"},
	}
}

func imageType() domain.TypeDefinition {
	return domain.TypeDefinition{
		ID:     "image",
		Name:   "Image",
		Fields: []domain.FieldConfig{{Name: "caption", CType: "textfield", Searchable: true}},
	}
}

// seedStore returns a store with one content type, one asset type and a
// three-level tag hierarchy: t-root > t-mid > t-leaf.
func seedStore() *memory.Store {
	s := memory.New()
	s.PutType(domain.ObjectContent, articleType())
	s.PutType(domain.ObjectContent, domain.TypeDefinition{ID: "system-page", System: true})
	s.PutType(domain.ObjectDam, imageType())
	s.PutVocabulary(domain.Vocabulary{ID: "v-tags", Name: "tags"})
	s.PutTerm(domain.TaxonomyTerm{ID: "t-root", VocabularyID: "v-tags", ParentID: domain.RootTermID})
	s.PutTerm(domain.TaxonomyTerm{ID: "t-mid", VocabularyID: "v-tags", ParentID: "t-root"})
	s.PutTerm(domain.TaxonomyTerm{ID: "t-leaf", VocabularyID: "v-tags", ParentID: "t-mid"})
	return s
}

func addArticles(s *memory.Store, n int) {
	for i := range n {
		s.PutRecord(domain.ObjectContent, domain.SourceRecord{
			ID:     fmt.Sprintf("c%04d", i),
			TypeID: "article",
			Text:   fmt.Sprintf("Article %d", i),
			Fields: map[string]any{"title": fmt.Sprintf("Article %d", i)},
		})
	}
}

func testSettings(t *testing.T) *config.IndexSettings {
	t.Helper()
	return &config.IndexSettings{
		BaseDir:           t.TempDir(),
		BatchSize:         DefaultBatchSize,
		PageSize:          DefaultPageSize,
		MaxAttachmentSize: 1024,
	}
}

func newTestService(t *testing.T, engine Engine, src Source) *Service {
	t.Helper()
	return newTestServiceWithSettings(t, testSettings(t), engine, src)
}

func newTestServiceWithSettings(t *testing.T, settings *config.IndexSettings, engine Engine, src Source) *Service {
	t.Helper()
	svc, err := NewService(settings, engine, src, discardLogger())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

// failingSource wraps a Source and fails selected lookups.
type failingSource struct {
	Source
	failTerms   map[string]error
	failRecords map[string]error
}

func (s *failingSource) FindTerm(ctx context.Context, id string) (domain.TaxonomyTerm, error) {
	if err, ok := s.failTerms[id]; ok {
		return domain.TaxonomyTerm{}, err
	}
	return s.Source.FindTerm(ctx, id)
}

func (s *failingSource) GetByType(ctx context.Context, kind domain.ObjectType, typeID string) ([]domain.SourceRecord, error) {
	if err, ok := s.failRecords[typeID]; ok {
		return nil, err
	}
	return s.Source.GetByType(ctx, kind, typeID)
}

var errBoom = errors.New("boom")
