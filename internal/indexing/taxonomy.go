package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// Resolver expands taxonomy terms to their ancestor chains.
// Closures are cached per term id for the lifetime of the resolver.
type Resolver struct {
	terms  TermFinder
	logger *slog.Logger
	cache  map[string][]domain.TaxonomyTerm
}

// NewResolver creates a resolver reading terms from terms.
func NewResolver(terms TermFinder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		terms:  terms,
		logger: logger,
		cache:  make(map[string][]domain.TaxonomyTerm),
	}
}

// Ancestors returns the parent chain of term, root-most first, excluding the term.
// A cycle truncates the chain at the first revisited id. A parent that
// cannot be found ends the chain.
func (r *Resolver) Ancestors(ctx context.Context, term domain.TaxonomyTerm) ([]domain.TaxonomyTerm, error) {
	visited := map[string]struct{}{term.ID: {}}
	var chain []domain.TaxonomyTerm

	current := term
	for current.HasParent() {
		parentID := current.ParentID
		if _, seen := visited[parentID]; seen {
			r.logger.WarnContext(ctx, "Truncating taxonomy ancestor chain",
				"term_id", term.ID,
				"revisited_id", parentID,
				"error", domain.ErrCorruptHierarchy)
			break
		}

		parent, err := r.terms.FindTerm(ctx, parentID)
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.DebugContext(ctx, "Dangling taxonomy parent", "term_id", current.ID, "parent_id", parentID)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find taxonomy term %q: %w", parentID, err)
		}

		visited[parentID] = struct{}{}
		chain = append(chain, parent)
		current = parent
	}

	slices.Reverse(chain)
	return chain, nil
}

// Closure returns the ancestors of term followed by the term itself.
func (r *Resolver) Closure(ctx context.Context, term domain.TaxonomyTerm) ([]domain.TaxonomyTerm, error) {
	if closure, ok := r.cache[term.ID]; ok {
		return closure, nil
	}

	ancestors, err := r.Ancestors(ctx, term)
	if err != nil {
		return nil, err
	}

	closure := append(ancestors, term)
	r.cache[term.ID] = closure
	return closure, nil
}

// Reset clears the closure cache.
func (r *Resolver) Reset() {
	r.cache = make(map[string][]domain.TaxonomyTerm)
}
