package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/cms-indexer/internal/domain"
	"github.com/sha1n/cms-indexer/internal/indexing"
	"github.com/sha1n/cms-indexer/internal/source"
)

var _ indexing.Source = (*Store)(nil)

func TestStore_Import(t *testing.T) {
	fixtures, err := source.ParseFixtures([]byte(`
contentTypes:
  - id: article
damTypes:
  - id: image
vocabularies:
  - id: v1
    name: tags
terms:
  - id: t1
    vocabularyId: v1
contents:
  - id: c1
    typeId: article
assets:
  - id: a1
    typeId: image
files:
  - id: f1
    content: data
`))
	require.NoError(t, err)

	s := New()
	require.NoError(t, s.Import(fixtures))
	ctx := context.Background()

	def, err := s.FindType(ctx, domain.ObjectContent, "article")
	require.NoError(t, err)
	assert.Equal(t, "article", def.ID)

	_, err = s.FindType(ctx, domain.ObjectContent, "image")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	v, err := s.FindVocabulary(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "tags", v.Key())

	term, err := s.FindTerm(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "v1", term.VocabularyID)

	assets, err := s.GetByType(ctx, domain.ObjectDam, "image")
	require.NoError(t, err)
	require.Len(t, assets, 1)

	f, err := s.FindFile(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "data", string(f.Data))

	_, err = s.FindFile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.FindTerm(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.FindVocabulary(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_PutReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.PutType(domain.ObjectContent, domain.TypeDefinition{ID: "article", Name: "Old"})
	s.PutType(domain.ObjectContent, domain.TypeDefinition{ID: "article", Name: "New"})
	s.PutRecord(domain.ObjectContent, domain.SourceRecord{ID: "c1", TypeID: "article", Text: "old"})
	s.PutRecord(domain.ObjectContent, domain.SourceRecord{ID: "c1", TypeID: "article", Text: "new"})

	types, err := s.ListTypes(ctx, domain.ObjectContent)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "New", types[0].Name)

	records, err := s.GetByType(ctx, domain.ObjectContent, "article")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Text)
}

func TestStore_GetPageByType(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := range 7 {
		s.PutRecord(domain.ObjectContent, domain.SourceRecord{ID: fmt.Sprintf("c%d", i), TypeID: "article"})
	}

	var seen []string
	for offset := 0; ; offset += 3 {
		page, err := s.GetPageByType(ctx, domain.ObjectContent, "article", offset, 3)
		require.NoError(t, err)
		for _, rec := range page {
			seen = append(seen, rec.ID)
		}
		if len(page) < 3 {
			break
		}
	}
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6"}, seen)

	_, err := s.GetPageByType(ctx, domain.ObjectContent, "article", -1, 3)
	assert.Error(t, err)
	_, err = s.GetPageByType(ctx, domain.ObjectContent, "article", 0, 0)
	assert.Error(t, err)
}
