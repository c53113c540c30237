package indexing

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sha1n/cms-indexer/internal/domain"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the default manifest filename
	ManifestFilename = "manifest.json"
)

// Manifest journals the outcome of sweeps per type.
type Manifest struct {
	Version int                  `json:"version"`
	LastRun *RunState            `json:"last_run,omitempty"`
	Types   map[string]TypeState `json:"types"`
	mu      sync.RWMutex         `json:"-"`
}

// RunState describes the most recent sweep.
type RunState struct {
	RunID      string    `json:"run_id"`
	Scope      string    `json:"scope"`
	TypeID     string    `json:"type_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// TypeState describes the last sweep of one type.
type TypeState struct {
	Kind       domain.ObjectType `json:"kind"`
	TypeID     string            `json:"type_id"`
	Name       string            `json:"name"`
	RunID      string            `json:"run_id"`
	Count      int               `json:"count"`
	Failed     int               `json:"failed"`
	FinishedAt time.Time         `json:"finished_at"`
	Error      string            `json:"error,omitempty"`
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Types:   make(map[string]TypeState),
	}
}

// ManifestPath returns the manifest location under baseDir.
func ManifestPath(baseDir string) string {
	return filepath.Join(baseDir, ManifestFilename)
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Types == nil {
		manifest.Types = make(map[string]TypeState)
	}

	return &manifest, nil
}

// Save writes the manifest to disk atomically.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}

	return nil
}

// Record stores the outcome of a sweep.
func (m *Manifest) Record(result *SweepResult, sweepErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := &RunState{
		RunID:      result.RunID,
		Scope:      string(result.Scope),
		TypeID:     result.TypeID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if sweepErr != nil {
		run.Error = sweepErr.Error()
	}
	m.LastRun = run

	// A full sweep rebuilt its namespaces, so older states are gone.
	if result.TypeID == "" {
		kinds := result.Scope.ObjectTypes()
		for key, state := range m.Types {
			if slices.Contains(kinds, state.Kind) {
				delete(m.Types, key)
			}
		}
	}

	for _, summary := range result.Types {
		m.Types[stateKey(summary.Kind, summary.TypeID)] = TypeState{
			Kind:       summary.Kind,
			TypeID:     summary.TypeID,
			Name:       summary.Name,
			RunID:      result.RunID,
			Count:      summary.Count,
			Failed:     len(summary.FailedIDs),
			FinishedAt: result.FinishedAt,
			Error:      summary.Error,
		}
	}
}

// Get returns the state of one type.
func (m *Manifest) Get(kind domain.ObjectType, typeID string) (TypeState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.Types[stateKey(kind, typeID)]
	return state, ok
}

// Remove forgets a type, e.g. after its namespace was deleted.
func (m *Manifest) Remove(kind domain.ObjectType, typeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Types, stateKey(kind, typeID))
}

// States returns every type state ordered by kind and type id.
func (m *Manifest) States() []TypeState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make([]TypeState, 0, len(m.Types))
	for _, key := range slices.Sorted(maps.Keys(m.Types)) {
		states = append(states, m.Types[key])
	}
	return states
}

func stateKey(kind domain.ObjectType, typeID string) string {
	return string(kind) + "/" + typeID
}
