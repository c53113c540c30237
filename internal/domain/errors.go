package domain

import "errors"

// Sentinel errors for the indexing pipeline.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDuplicateType indicates a type mapping already exists and overwrite was not requested.
	ErrDuplicateType = errors.New("type already exists")

	// ErrUnsupportedScope indicates a scope other than content, dam or all.
	ErrUnsupportedScope = errors.New("unsupported scope")

	// ErrCorruptHierarchy indicates a cycle in a taxonomy parent chain.
	// It is recovered locally by truncating the chain and never surfaces from a sweep.
	ErrCorruptHierarchy = errors.New("corrupt taxonomy hierarchy")

	// ErrNotFound indicates the requested entity does not exist in the source of record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTypeID indicates a type id that cannot name an index namespace.
	ErrInvalidTypeID = errors.New("invalid type id")

	// ErrSweepInProgress indicates another sweep holds the lock for the same namespace.
	ErrSweepInProgress = errors.New("sweep in progress")
)
