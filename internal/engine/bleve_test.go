package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sha1n/cms-indexer/internal/domain"
)

func newTestEngine(t *testing.T) *Bleve {
	t.Helper()
	e, err := NewBleve(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewBleve failed: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return e
}

func articleMapping() domain.TypeMapping {
	tm := domain.TypeMapping{}
	tm.Add("title", domain.IndexTypeString, true, true)
	tm.Add(domain.FieldText, domain.IndexTypeString, true, true)
	tm.Add(domain.FieldContentType, domain.IndexTypeString, false, true)
	tm.Add(domain.FieldTarget, domain.IndexTypeString, false, true)
	tm.Add(domain.FieldStartPublicationDate, domain.IndexTypeInteger, false, true)
	tm.Add(domain.TaxonomyField("tags"), domain.IndexTypeString, false, false)
	tm[domain.FieldLastUpdateTime] = domain.IndexMappingEntry{
		Name:   domain.FieldLastUpdateTime,
		Type:   domain.IndexTypeDate,
		Stored: true,
		Format: domain.DateFormat,
	}
	return tm
}

func articleDoc(id, title string, target []string) domain.IndexDocument {
	return domain.IndexDocument{
		ID:         id,
		ObjectType: domain.ObjectContent,
		TypeID:     "article",
		Fields: map[string]any{
			"title":                    title,
			domain.FieldText:           title,
			domain.FieldContentType:    "article",
			domain.FieldLastUpdateTime: "1700000000",
			domain.FieldWriteWorkspace: nil,
		},
		Taxonomy: map[string][]string{"tags": {"t1", "t2"}},
		Target:   target,
	}
}

func TestBleve_CreateType(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	exists, err := e.TypeExists(ctx, domain.ObjectContent, "article")
	if err != nil || exists {
		t.Fatalf("TypeExists before create = %v, %v", exists, err)
	}

	if err := e.CreateType(ctx, domain.ObjectContent, "article", articleMapping()); err != nil {
		t.Fatalf("CreateType failed: %v", err)
	}

	exists, err = e.TypeExists(ctx, domain.ObjectContent, "article")
	if err != nil || !exists {
		t.Fatalf("TypeExists after create = %v, %v", exists, err)
	}

	if _, err := os.Stat(filepath.Join(e.baseDir, "indexes", "content", "article"+MappingSuffix)); err != nil {
		t.Errorf("mapping file should exist: %v", err)
	}
}

func TestBleve_CreateTypeFailureRemovesMapping(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CreateNamespace(ctx, domain.ObjectContent); err != nil {
		t.Fatalf("CreateNamespace failed: %v", err)
	}
	// A plain file where the index directory belongs makes bleve.New fail.
	if err := os.WriteFile(e.indexPath(domain.ObjectContent, "article"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := e.CreateType(ctx, domain.ObjectContent, "article", articleMapping()); err == nil {
		t.Fatal("Expected CreateType to fail")
	}
	if _, err := os.Stat(e.mappingPath(domain.ObjectContent, "article")); !os.IsNotExist(err) {
		t.Errorf("mapping file should be removed, stat error = %v", err)
	}
}

func TestBleve_SearchWhileDeletingTypes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	done := make(chan struct{})
	errs := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			req := domain.SearchRequest{Kind: domain.ObjectContent, Query: "hello"}
			if _, err := e.Search(ctx, req); err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
			if _, err := e.Document(ctx, domain.ObjectContent, "article", "c1"); err != nil && !errors.Is(err, domain.ErrNotFound) {
				select {
				case errs <- err:
				default:
				}
				return
			}
		}
	}()

	for i := range 20 {
		if err := e.CreateType(ctx, domain.ObjectContent, "article", articleMapping()); err != nil {
			t.Fatalf("CreateType %d failed: %v", i, err)
		}
		if err := e.Index(ctx, domain.ObjectContent, "article", []domain.IndexDocument{articleDoc("c1", "hello", nil)}); err != nil {
			t.Fatalf("Index %d failed: %v", i, err)
		}
		if i%2 == 0 {
			if err := e.DeleteType(ctx, domain.ObjectContent, "article"); err != nil {
				t.Fatalf("DeleteType %d failed: %v", i, err)
			}
		} else if err := e.DropNamespace(ctx, domain.ObjectContent); err != nil {
			t.Fatalf("DropNamespace %d failed: %v", i, err)
		}
	}
	close(done)
	wg.Wait()

	select {
	case err := <-errs:
		t.Errorf("concurrent read failed: %v", err)
	default:
	}
}

func TestBleve_IndexSearchDocument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CreateType(ctx, domain.ObjectContent, "article", articleMapping()); err != nil {
		t.Fatalf("CreateType failed: %v", err)
	}

	docs := []domain.IndexDocument{
		articleDoc("a1", "Hello world", []string{domain.GlobalTarget}),
		articleDoc("a2", "Goodbye moon", []string{"site-1"}),
	}
	if err := e.Index(ctx, domain.ObjectContent, "article", docs); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := e.Refresh(ctx, domain.ObjectContent, "article"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	count, err := e.DocCount(ctx, domain.ObjectContent, "article")
	if err != nil {
		t.Fatalf("DocCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("DocCount = %d, want 2", count)
	}

	result, err := e.Search(ctx, domain.SearchRequest{Kind: domain.ObjectContent, Query: "hello"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Total != 1 || result.Hits[0].ID != "a1" {
		t.Fatalf("Search hits = %+v, want a1", result.Hits)
	}
	if result.Hits[0].TypeID != "article" {
		t.Errorf("TypeID = %q, want 'article'", result.Hits[0].TypeID)
	}

	fields, err := e.Document(ctx, domain.ObjectContent, "article", "a2")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if fields["title"] != "Goodbye moon" {
		t.Errorf("title = %v", fields["title"])
	}
	if _, ok := fields[domain.FieldWriteWorkspace]; ok {
		t.Error("null fields should not be indexed")
	}
}

func TestBleve_SearchByTarget(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CreateType(ctx, domain.ObjectContent, "article", articleMapping()); err != nil {
		t.Fatalf("CreateType failed: %v", err)
	}
	docs := []domain.IndexDocument{
		articleDoc("a1", "news today", []string{domain.GlobalTarget}),
		articleDoc("a2", "news tomorrow", []string{"site-1"}),
	}
	if err := e.Index(ctx, domain.ObjectContent, "article", docs); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	result, err := e.Search(ctx, domain.SearchRequest{Kind: domain.ObjectContent, TypeID: "article", Query: "news", Target: "site-1"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Total != 1 || result.Hits[0].ID != "a2" {
		t.Errorf("Search hits = %+v, want a2", result.Hits)
	}
}

func TestBleve_SearchMissingNamespace(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Search(context.Background(), domain.SearchRequest{Kind: domain.ObjectDam, Query: "x"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Total != 0 || len(result.Hits) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestBleve_IndexCreatesMissingType(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.Index(ctx, domain.ObjectContent, "page", []domain.IndexDocument{articleDoc("p1", "landing", nil)}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	exists, err := e.TypeExists(ctx, domain.ObjectContent, "page")
	if err != nil || !exists {
		t.Errorf("TypeExists = %v, %v, want true", exists, err)
	}
}

func TestBleve_Delete(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.Index(ctx, domain.ObjectContent, "article", []domain.IndexDocument{articleDoc("a1", "one", nil)}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := e.Delete(ctx, domain.ObjectContent, "article", "a1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := e.Document(ctx, domain.ObjectContent, "article", "a1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Document after delete error = %v, want ErrNotFound", err)
	}

	// Missing types are ignored
	if err := e.Delete(ctx, domain.ObjectContent, "missing", "x"); err != nil {
		t.Errorf("Delete on missing type failed: %v", err)
	}
}

func TestBleve_DeleteTypeAndDropNamespace(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for _, id := range []string{"article", "page"} {
		if err := e.CreateType(ctx, domain.ObjectContent, id, articleMapping()); err != nil {
			t.Fatalf("CreateType %s failed: %v", id, err)
		}
	}

	if err := e.DeleteType(ctx, domain.ObjectContent, "article"); err != nil {
		t.Fatalf("DeleteType failed: %v", err)
	}
	if exists, _ := e.TypeExists(ctx, domain.ObjectContent, "article"); exists {
		t.Error("article should be gone")
	}
	if err := e.DeleteType(ctx, domain.ObjectContent, "article"); err != nil {
		t.Errorf("second DeleteType failed: %v", err)
	}

	if err := e.DropNamespace(ctx, domain.ObjectContent); err != nil {
		t.Fatalf("DropNamespace failed: %v", err)
	}
	if exists, _ := e.TypeExists(ctx, domain.ObjectContent, "page"); exists {
		t.Error("page should be gone after dropping the namespace")
	}
	if err := e.DropNamespace(ctx, domain.ObjectContent); err != nil {
		t.Errorf("dropping an absent namespace failed: %v", err)
	}
}

func TestBleve_ReopenKeepsMapping(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	e1, err := NewBleve(dir, nil)
	if err != nil {
		t.Fatalf("NewBleve failed: %v", err)
	}
	if err := e1.CreateType(ctx, domain.ObjectContent, "article", articleMapping()); err != nil {
		t.Fatalf("CreateType failed: %v", err)
	}
	if err := e1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	e2, err := NewBleve(dir, nil)
	if err != nil {
		t.Fatalf("NewBleve failed: %v", err)
	}
	defer func() { _ = e2.Close() }()

	if err := e2.Index(ctx, domain.ObjectContent, "article", []domain.IndexDocument{articleDoc("a1", "reopened", nil)}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	fields, err := e2.Document(ctx, domain.ObjectContent, "article", "a1")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if _, ok := fields[domain.FieldLastUpdateTime].(string); !ok {
		t.Errorf("lastUpdateTime should be stored as a date, got %T", fields[domain.FieldLastUpdateTime])
	}
}

func TestBleve_IndexAttachment(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tm := domain.TypeMapping{}
	tm.Add(domain.FieldFile, domain.IndexTypeAttachment, true, false)
	tm.Add(domain.FieldDamType, domain.IndexTypeString, false, true)
	if err := e.CreateType(ctx, domain.ObjectDam, "image", tm); err != nil {
		t.Fatalf("CreateType failed: %v", err)
	}

	doc := domain.IndexDocument{
		ID:         "d1",
		ObjectType: domain.ObjectDam,
		TypeID:     "image",
		Fields:     map[string]any{domain.FieldDamType: "image"},
		Target:     []string{domain.GlobalTarget},
		Attachment: &domain.Attachment{
			Field:    domain.FieldFile,
			MIMEType: "text/plain",
			Data:     []byte("quarterly revenue report"),
		},
	}
	if err := e.Index(ctx, domain.ObjectDam, "image", []domain.IndexDocument{doc}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	result, err := e.Search(ctx, domain.SearchRequest{Kind: domain.ObjectDam, Query: "revenue"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}
	if _, ok := result.Hits[0].Fields[domain.FieldFile]; ok {
		t.Error("attachment text should not be stored")
	}
}
