package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// TypeManager owns the lifecycle of per-type namespaces in the engine.
type TypeManager struct {
	engine Engine
	mapper *SchemaMapper
	logger *slog.Logger
}

// NewTypeManager creates a type manager.
func NewTypeManager(engine Engine, mapper *SchemaMapper, logger *slog.Logger) *TypeManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TypeManager{
		engine: engine,
		mapper: mapper,
		logger: logger,
	}
}

// ValidateTypeID rejects ids that cannot name a namespace on disk.
func ValidateTypeID(typeID string) error {
	if typeID == "" || typeID == "." || typeID == ".." || strings.ContainsAny(typeID, `/\`) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTypeID, typeID)
	}
	return nil
}

// CreateOrReplace creates the namespace of a type and returns its mapped fields.
// An existing namespace is an ErrDuplicateType unless overwrite is set, in
// which case it is deleted before the new one is created. System types
// create nothing and return an empty set.
func (m *TypeManager) CreateOrReplace(ctx context.Context, kind domain.ObjectType, typeID string, def domain.TypeDefinition, overwrite bool) (domain.FieldSet, error) {
	if err := ValidateTypeID(typeID); err != nil {
		return nil, err
	}
	def.ID = typeID

	mapping, err := m.mapper.TypeMapping(ctx, kind, def)
	if err != nil {
		return nil, err
	}

	exists, err := m.engine.TypeExists(ctx, kind, typeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s type %q: %w", kind, typeID, err)
	}
	if exists {
		if !overwrite {
			return nil, fmt.Errorf("%w: %s type %q", domain.ErrDuplicateType, kind, typeID)
		}
		if err := m.engine.DeleteType(ctx, kind, typeID); err != nil {
			return nil, fmt.Errorf("failed to delete %s type %q: %w", kind, typeID, err)
		}
	}

	m.mapper.Invalidate(kind, typeID)

	if len(mapping) == 0 {
		m.logger.DebugContext(ctx, "Type has no indexable fields", "kind", kind, "type_id", typeID)
		return domain.FieldSet{}, nil
	}

	if err := m.engine.CreateType(ctx, kind, typeID, mapping); err != nil {
		return nil, fmt.Errorf("failed to create %s type %q: %w", kind, typeID, err)
	}
	m.mapper.Prime(kind, def)

	m.logger.InfoContext(ctx, "Created type mapping", "kind", kind, "type_id", typeID, "fields", len(mapping))
	return mapping.FieldSet(), nil
}

// Delete removes the namespace of a type. Missing types are not an error.
func (m *TypeManager) Delete(ctx context.Context, kind domain.ObjectType, typeID string) error {
	if err := ValidateTypeID(typeID); err != nil {
		return err
	}
	m.mapper.Invalidate(kind, typeID)
	if err := m.engine.DeleteType(ctx, kind, typeID); err != nil {
		return fmt.Errorf("failed to delete %s type %q: %w", kind, typeID, err)
	}
	return nil
}

// DeleteRecord removes one document from a type. Missing documents are not an error.
func (m *TypeManager) DeleteRecord(ctx context.Context, kind domain.ObjectType, typeID, recordID string) error {
	if err := ValidateTypeID(typeID); err != nil {
		return err
	}
	if err := m.engine.Delete(ctx, kind, typeID, recordID); err != nil {
		return fmt.Errorf("failed to delete %s %q from type %q: %w", kind, recordID, typeID, err)
	}
	return m.engine.Refresh(ctx, kind, typeID)
}
