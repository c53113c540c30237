// Package memory provides an in-process source of record.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sha1n/cms-indexer/internal/domain"
	"github.com/sha1n/cms-indexer/internal/source"
)

type typeKey struct {
	kind domain.ObjectType
	id   string
}

// Store keeps types, taxonomies, records and files in memory.
// Records keep their insertion order, which makes paging stable.
type Store struct {
	mu           sync.RWMutex
	types        map[domain.ObjectType][]domain.TypeDefinition
	vocabularies map[string]domain.Vocabulary
	terms        map[string]domain.TaxonomyTerm
	records      map[typeKey][]domain.SourceRecord
	files        map[string]domain.File
}

// New creates an empty store.
func New() *Store {
	return &Store{
		types:        make(map[domain.ObjectType][]domain.TypeDefinition),
		vocabularies: make(map[string]domain.Vocabulary),
		terms:        make(map[string]domain.TaxonomyTerm),
		records:      make(map[typeKey][]domain.SourceRecord),
		files:        make(map[string]domain.File),
	}
}

// Import loads every fixture into the store.
func (s *Store) Import(fixtures *source.Fixtures) error {
	files, err := fixtures.LoadFiles()
	if err != nil {
		return err
	}

	for _, kind := range domain.ScopeAll.ObjectTypes() {
		for _, def := range fixtures.Types(kind) {
			s.PutType(kind, def)
		}
		for _, rec := range fixtures.Records(kind) {
			s.PutRecord(kind, rec)
		}
	}
	for _, v := range fixtures.Vocabularies {
		s.PutVocabulary(v)
	}
	for _, term := range fixtures.Terms {
		s.PutTerm(term)
	}
	for _, f := range files {
		s.PutFile(f)
	}
	return nil
}

// PutType adds or replaces a type definition.
func (s *Store) PutType(kind domain.ObjectType, def domain.TypeDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.types[kind] {
		if existing.ID == def.ID {
			s.types[kind][i] = def
			return
		}
	}
	s.types[kind] = append(s.types[kind], def)
}

// PutVocabulary adds or replaces a vocabulary.
func (s *Store) PutVocabulary(v domain.Vocabulary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocabularies[v.ID] = v
}

// PutTerm adds or replaces a taxonomy term.
func (s *Store) PutTerm(term domain.TaxonomyTerm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[term.ID] = term
}

// PutRecord adds or replaces a record within its type.
func (s *Store) PutRecord(kind domain.ObjectType, rec domain.SourceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := typeKey{kind: kind, id: rec.TypeID}
	for i, existing := range s.records[key] {
		if existing.ID == rec.ID {
			s.records[key][i] = rec
			return
		}
	}
	s.records[key] = append(s.records[key], rec)
}

// PutFile adds or replaces a file.
func (s *Store) PutFile(f domain.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.ID] = f
}

// FindType returns a type definition or domain.ErrNotFound.
func (s *Store) FindType(_ context.Context, kind domain.ObjectType, id string) (domain.TypeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, def := range s.types[kind] {
		if def.ID == id {
			return def, nil
		}
	}
	return domain.TypeDefinition{}, fmt.Errorf("%w: %s type %s", domain.ErrNotFound, kind, id)
}

// ListTypes returns every type definition of an object type.
func (s *Store) ListTypes(_ context.Context, kind domain.ObjectType) ([]domain.TypeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TypeDefinition(nil), s.types[kind]...), nil
}

// FindVocabulary returns a vocabulary or domain.ErrNotFound.
func (s *Store) FindVocabulary(_ context.Context, id string) (domain.Vocabulary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vocabularies[id]
	if !ok {
		return domain.Vocabulary{}, fmt.Errorf("%w: vocabulary %s", domain.ErrNotFound, id)
	}
	return v, nil
}

// FindTerm returns a taxonomy term or domain.ErrNotFound.
func (s *Store) FindTerm(_ context.Context, id string) (domain.TaxonomyTerm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term, ok := s.terms[id]
	if !ok {
		return domain.TaxonomyTerm{}, fmt.Errorf("%w: term %s", domain.ErrNotFound, id)
	}
	return term, nil
}

// GetByType returns every record of a type.
func (s *Store) GetByType(_ context.Context, kind domain.ObjectType, typeID string) ([]domain.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SourceRecord(nil), s.records[typeKey{kind: kind, id: typeID}]...), nil
}

// GetPageByType returns up to limit records of a type starting at offset.
func (s *Store) GetPageByType(_ context.Context, kind domain.ObjectType, typeID string, offset, limit int) ([]domain.SourceRecord, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid page offset=%d limit=%d", offset, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[typeKey{kind: kind, id: typeID}]
	if offset >= len(records) {
		return nil, nil
	}
	end := min(offset+limit, len(records))
	return append([]domain.SourceRecord(nil), records[offset:end]...), nil
}

// FindFile returns a file or domain.ErrNotFound.
func (s *Store) FindFile(_ context.Context, id string) (domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return domain.File{}, fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}
	return f, nil
}

// Close releases nothing; the store lives in memory.
func (s *Store) Close() error {
	return nil
}
