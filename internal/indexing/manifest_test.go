package indexing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sha1n/cms-indexer/internal/domain"
)

func sweepResult(scope domain.Scope, typeID string, summaries ...TypeSummary) *SweepResult {
	result := newSweepResult(scope, typeID)
	for _, summary := range summaries {
		result.add(summary)
	}
	result.FinishedAt = result.StartedAt.Add(time.Second)
	return result
}

func TestNewManifest(t *testing.T) {
	m := NewManifest()

	if m.Version != ManifestVersion {
		t.Errorf("Version = %d, want %d", m.Version, ManifestVersion)
	}
	if m.Types == nil || len(m.Types) != 0 {
		t.Errorf("Types should be initialized and empty, got %v", m.Types)
	}
	if m.LastRun != nil {
		t.Error("LastRun should be nil")
	}
}

func TestLoadManifest_NewFile(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "manifest.json"))
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.Version != ManifestVersion || len(m.Types) != 0 {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestLoadManifest_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestManifest_SaveAndLoad(t *testing.T) {
	path := ManifestPath(filepath.Join(t.TempDir(), "nested"))

	m := NewManifest()
	m.Record(sweepResult(domain.ScopeContent, "", TypeSummary{
		Kind: domain.ObjectContent, TypeID: "article", Name: "Article", Count: 3, FailedIDs: []string{"c2"},
	}), nil)

	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after save")
	}

	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	state, ok := loaded.Get(domain.ObjectContent, "article")
	if !ok {
		t.Fatal("article state should be loaded")
	}
	if state.Count != 3 || state.Failed != 1 || state.Name != "Article" {
		t.Errorf("state = %+v", state)
	}
	if loaded.LastRun == nil || loaded.LastRun.Scope != "content" {
		t.Errorf("LastRun = %+v", loaded.LastRun)
	}
}

func TestManifest_FullSweepReplacesKind(t *testing.T) {
	m := NewManifest()
	m.Record(sweepResult(domain.ScopeAll, "",
		TypeSummary{Kind: domain.ObjectContent, TypeID: "old"},
		TypeSummary{Kind: domain.ObjectDam, TypeID: "image"},
	), nil)

	m.Record(sweepResult(domain.ScopeContent, "", TypeSummary{Kind: domain.ObjectContent, TypeID: "article"}), nil)

	if _, ok := m.Get(domain.ObjectContent, "old"); ok {
		t.Error("types gone from a full sweep should be forgotten")
	}
	if _, ok := m.Get(domain.ObjectDam, "image"); !ok {
		t.Error("other namespaces should be kept")
	}
	if _, ok := m.Get(domain.ObjectContent, "article"); !ok {
		t.Error("swept types should be recorded")
	}
}

func TestManifest_TypeSweepKeepsOthers(t *testing.T) {
	m := NewManifest()
	m.Record(sweepResult(domain.ScopeContent, "",
		TypeSummary{Kind: domain.ObjectContent, TypeID: "a"},
		TypeSummary{Kind: domain.ObjectContent, TypeID: "b"},
	), nil)

	m.Record(sweepResult(domain.ScopeContent, "a", TypeSummary{Kind: domain.ObjectContent, TypeID: "a", Count: 9}), os.ErrClosed)

	if state, _ := m.Get(domain.ObjectContent, "a"); state.Count != 9 {
		t.Errorf("a = %+v, want count 9", state)
	}
	if _, ok := m.Get(domain.ObjectContent, "b"); !ok {
		t.Error("a type sweep should keep other types")
	}
	if m.LastRun.TypeID != "a" || m.LastRun.Error == "" {
		t.Errorf("LastRun = %+v", m.LastRun)
	}
}

func TestManifest_RemoveAndStates(t *testing.T) {
	m := NewManifest()
	m.Record(sweepResult(domain.ScopeAll, "",
		TypeSummary{Kind: domain.ObjectDam, TypeID: "z"},
		TypeSummary{Kind: domain.ObjectContent, TypeID: "b"},
		TypeSummary{Kind: domain.ObjectContent, TypeID: "a"},
	), nil)

	states := m.States()
	var keys []string
	for _, state := range states {
		keys = append(keys, string(state.Kind)+"/"+state.TypeID)
	}
	if !equalIDs(keys, []string{"content/a", "content/b", "dam/z"}) {
		t.Errorf("States order = %v", keys)
	}

	m.Remove(domain.ObjectContent, "a")
	m.Remove(domain.ObjectContent, "missing")
	if len(m.States()) != 2 {
		t.Errorf("States after remove = %v", m.States())
	}
}
