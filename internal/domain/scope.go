package domain

import (
	"fmt"
	"strings"
)

// ObjectType distinguishes structured content from digital assets.
// Each object type owns one top-level index namespace.
type ObjectType string

const (
	ObjectContent ObjectType = "content"
	ObjectDam     ObjectType = "dam"
)

// TypeField returns the document field that carries the record's type id.
func (o ObjectType) TypeField() string {
	if o == ObjectDam {
		return FieldDamType
	}
	return FieldContentType
}

// Scope selects the namespaces touched by a sweep.
type Scope string

const (
	ScopeContent Scope = "content"
	ScopeDam     Scope = "dam"
	ScopeAll     Scope = "all"
)

// ParseScope validates a scope name. Anything other than content, dam or all
// is rejected with ErrUnsupportedScope.
func ParseScope(s string) (Scope, error) {
	switch scope := Scope(strings.ToLower(strings.TrimSpace(s))); scope {
	case ScopeContent, ScopeDam, ScopeAll:
		return scope, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScope, s)
	}
}

// ObjectTypes returns the namespaces covered by the scope, content first.
func (s Scope) ObjectTypes() []ObjectType {
	switch s {
	case ScopeContent:
		return []ObjectType{ObjectContent}
	case ScopeDam:
		return []ObjectType{ObjectDam}
	case ScopeAll:
		return []ObjectType{ObjectContent, ObjectDam}
	default:
		return nil
	}
}

// ObjectType returns the single namespace of a content or dam scope.
// The all scope does not name a single namespace and is rejected.
func (s Scope) ObjectType() (ObjectType, error) {
	switch s {
	case ScopeContent:
		return ObjectContent, nil
	case ScopeDam:
		return ObjectDam, nil
	default:
		return "", fmt.Errorf("%w: %q (expected content or dam)", ErrUnsupportedScope, string(s))
	}
}
