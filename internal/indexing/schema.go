package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sha1n/cms-indexer/internal/domain"
)

var (
	contentBaseFields = []string{
		domain.FieldLastUpdateTime,
		domain.FieldText,
		domain.FieldTextNotAnalyzed,
		domain.FieldSummary,
		domain.FieldType,
		domain.FieldAuthor,
		domain.FieldTarget,
	}

	damBaseFields = []string{
		domain.FieldLastUpdateTime,
		domain.FieldText,
		domain.FieldTextNotAnalyzed,
		domain.FieldType,
		domain.FieldAuthor,
		domain.FieldFileSize,
		domain.FieldTarget,
	}
)

type typeKey struct {
	kind domain.ObjectType
	id   string
}

// SchemaMapper derives searchable field sets and engine mappings from type definitions.
// Definitions are cached per instance; nothing is shared across instances.
type SchemaMapper struct {
	types        TypeRegistry
	vocabularies VocabularyFinder

	mu    sync.Mutex
	cache map[typeKey]domain.TypeDefinition
}

// NewSchemaMapper creates a mapper reading definitions from types.
func NewSchemaMapper(types TypeRegistry, vocabularies VocabularyFinder) *SchemaMapper {
	return &SchemaMapper{
		types:        types,
		vocabularies: vocabularies,
		cache:        make(map[typeKey]domain.TypeDefinition),
	}
}

// Definition returns the type definition, fetching it on first use.
func (m *SchemaMapper) Definition(ctx context.Context, kind domain.ObjectType, typeID string) (domain.TypeDefinition, error) {
	key := typeKey{kind: kind, id: typeID}

	m.mu.Lock()
	def, ok := m.cache[key]
	m.mu.Unlock()
	if ok {
		return def, nil
	}

	def, err := m.types.FindType(ctx, kind, typeID)
	if err != nil {
		return domain.TypeDefinition{}, fmt.Errorf("failed to find %s type %q: %w", kind, typeID, err)
	}

	m.Prime(kind, def)
	return def, nil
}

// Prime stores a definition already in hand, avoiding a registry lookup.
func (m *SchemaMapper) Prime(kind domain.ObjectType, def domain.TypeDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[typeKey{kind: kind, id: def.ID}] = def
}

// Invalidate drops one cached definition.
func (m *SchemaMapper) Invalidate(kind domain.ObjectType, typeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, typeKey{kind: kind, id: typeID})
}

// Reset drops every cached definition.
func (m *SchemaMapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[typeKey]domain.TypeDefinition)
}

// Structure returns the searchable field set of a type.
// System types yield an empty set, meaning the type is not indexed.
func (m *SchemaMapper) Structure(ctx context.Context, kind domain.ObjectType, typeID string) (domain.FieldSet, error) {
	def, err := m.Definition(ctx, kind, typeID)
	if err != nil {
		return nil, err
	}
	return StructureOf(kind, def), nil
}

// StructureOf computes the searchable field set of a definition: the fixed
// base fields of the object type plus every searchable custom field.
func StructureOf(kind domain.ObjectType, def domain.TypeDefinition) domain.FieldSet {
	if def.System {
		return nil
	}

	base := contentBaseFields
	if kind == domain.ObjectDam {
		base = damBaseFields
	}

	names := make([]string, 0, len(base)+len(def.Fields))
	names = append(names, base...)
	for _, field := range def.Fields {
		if field.Searchable {
			names = append(names, field.Name)
		}
	}
	return domain.NewFieldSet(names...)
}

// IndexMapping maps the searchable custom fields of a definition.
// Non-searchable fields are ignored.
func IndexMapping(fields []domain.FieldConfig) domain.TypeMapping {
	mapping := make(domain.TypeMapping)

	for _, field := range fields {
		if !field.Searchable || field.Name == "" {
			continue
		}

		switch field.Kind() {
		case domain.KindDate:
			mapping[field.Name] = domain.IndexMappingEntry{
				Name:   field.Name,
				Type:   domain.IndexTypeDate,
				Stored: true,
				Format: domain.DateFormat,
			}
		case domain.KindAttachment:
			mapping.Add(field.Name, domain.IndexTypeAttachment, true, false)
		case domain.KindLocaliser:
			mapping.Add(domain.FieldPositionLocation, domain.IndexTypeGeoPoint, false, true)
			mapping.Add(domain.FieldPositionAddress, domain.IndexTypeString, true, true)
		case domain.KindString:
			mapping.Add(field.Name, domain.IndexTypeString, true, true)
		}
	}

	return mapping
}

// TypeMapping builds the complete engine mapping of a definition: custom
// fields, system metadata and one entry per linked vocabulary.
// System types yield an empty mapping.
func (m *SchemaMapper) TypeMapping(ctx context.Context, kind domain.ObjectType, def domain.TypeDefinition) (domain.TypeMapping, error) {
	if def.System {
		return domain.TypeMapping{}, nil
	}

	mapping := IndexMapping(def.Fields)
	addSystemFields(mapping, kind)

	for _, vocabularyID := range def.Vocabularies {
		name, err := m.vocabularyKey(ctx, vocabularyID)
		if err != nil {
			return nil, err
		}
		mapping.Add(domain.TaxonomyField(name), domain.IndexTypeString, false, false)
	}

	return mapping, nil
}

func (m *SchemaMapper) vocabularyKey(ctx context.Context, id string) (string, error) {
	vocabulary, err := m.vocabularies.FindVocabulary(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find vocabulary %q: %w", id, err)
	}
	return vocabulary.Key(), nil
}

func addSystemFields(mapping domain.TypeMapping, kind domain.ObjectType) {
	mapping.Add(domain.FieldLastUpdateTime, domain.IndexTypeDate, false, true)
	mapping.Add(domain.FieldText, domain.IndexTypeString, true, true)
	mapping.Add(domain.FieldTextNotAnalyzed, domain.IndexTypeString, false, true)
	mapping.Add(domain.FieldObjectType, domain.IndexTypeString, true, true)
	mapping.Add(domain.FieldSummary, domain.IndexTypeString, true, true)
	mapping.Add(domain.FieldAuthor, domain.IndexTypeString, false, true)
	mapping.Add(domain.FieldAuthorName, domain.IndexTypeString, true, true)
	mapping.Add(domain.FieldStatus, domain.IndexTypeString, false, true)
	mapping.Add(kind.TypeField(), domain.IndexTypeString, false, true)
	mapping.Add(domain.FieldTarget, domain.IndexTypeString, false, true)
	mapping.Add(domain.FieldWriteWorkspace, domain.IndexTypeString, false, true)
	mapping.Add(domain.FieldStartPublicationDate, domain.IndexTypeInteger, false, true)
	mapping.Add(domain.FieldEndPublicationDate, domain.IndexTypeInteger, false, true)

	if kind == domain.ObjectDam {
		mapping.Add(domain.FieldFileSize, domain.IndexTypeInteger, false, true)
		mapping.Add(domain.FieldFile, domain.IndexTypeAttachment, true, false)
	}
}
