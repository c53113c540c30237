package domain

import "sort"

// Field type tags as stored in a type definition.
const (
	CTypeDateField = "datefield"
	CTypeDocument  = "document"
	CTypeLocaliser = "localiserField"
)

// FieldKind is the closed set of field kinds the mapper distinguishes.
// Adding a kind means adding a case to every switch over FieldKind.
type FieldKind int

const (
	KindString FieldKind = iota
	KindDate
	KindAttachment
	KindLocaliser
)

// KindOf maps a cType tag to its FieldKind. Unknown tags are plain strings.
func KindOf(cType string) FieldKind {
	switch cType {
	case CTypeDateField:
		return KindDate
	case CTypeDocument:
		return KindAttachment
	case CTypeLocaliser:
		return KindLocaliser
	default:
		return KindString
	}
}

func (k FieldKind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindAttachment:
		return "attachment"
	case KindLocaliser:
		return "localiser"
	default:
		return "string"
	}
}

// FieldConfig describes one custom field of a type definition.
type FieldConfig struct {
	Name       string `json:"name" yaml:"name"`
	CType      string `json:"cType" yaml:"cType"`
	Searchable bool   `json:"searchable" yaml:"searchable"`
	FieldLabel string `json:"fieldLabel,omitempty" yaml:"fieldLabel,omitempty"`
}

// Kind returns the field's kind derived from its cType.
func (f FieldConfig) Kind() FieldKind {
	return KindOf(f.CType)
}

// TypeDefinition is a content or asset type as owned by the source of record.
// System types are never indexed.
type TypeDefinition struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"type" yaml:"type"`
	System       bool          `json:"system,omitempty" yaml:"system,omitempty"`
	Fields       []FieldConfig `json:"fields,omitempty" yaml:"fields,omitempty"`
	Vocabularies []string      `json:"vocabularies,omitempty" yaml:"vocabularies,omitempty"`
}

// DisplayName returns the type's name, or its id when the name is empty.
func (d TypeDefinition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// FieldSet is an ordered, duplicate-free list of field names.
type FieldSet []string

// NewFieldSet builds a FieldSet, keeping the first occurrence of each name.
func NewFieldSet(names ...string) FieldSet {
	seen := make(map[string]struct{}, len(names))
	set := make(FieldSet, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		set = append(set, name)
	}
	return set
}

// Contains reports whether name is in the set.
func (s FieldSet) Contains(name string) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set marks a type as not indexed.
func (s FieldSet) IsEmpty() bool {
	return len(s) == 0
}

// IndexType is the engine-side type of a mapped field.
type IndexType string

const (
	IndexTypeDate       IndexType = "date"
	IndexTypeString     IndexType = "string"
	IndexTypeAttachment IndexType = "attachment"
	IndexTypeGeoPoint   IndexType = "geo_point"
	IndexTypeInteger    IndexType = "integer"
)

// DateFormat is the layout used for date fields.
const DateFormat = "2006-01-02"

// IndexMappingEntry describes how one document field is indexed.
type IndexMappingEntry struct {
	Name     string    `json:"name"`
	Type     IndexType `json:"type"`
	Analyzed bool      `json:"analyzed"`
	Stored   bool      `json:"stored"`
	Format   string    `json:"format,omitempty"`
}

// TypeMapping is the full field mapping of one type namespace, keyed by field name.
type TypeMapping map[string]IndexMappingEntry

// Names returns the mapped field names in sorted order.
func (m TypeMapping) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldSet returns the mapped field names as a FieldSet.
func (m TypeMapping) FieldSet() FieldSet {
	return NewFieldSet(m.Names()...)
}

// Add sets the entry for name, replacing any previous one.
func (m TypeMapping) Add(name string, t IndexType, analyzed, stored bool) {
	m[name] = IndexMappingEntry{Name: name, Type: t, Analyzed: analyzed, Stored: stored}
}
