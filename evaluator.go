package rowguard

import (
	"context"
	"log"
)

// Evaluator resolves relationship paths against a store.
// It is read-only: each hop is a keyed point lookup of the next row, never a
// scan. Evaluators hold no state beyond the store and path table and are
// safe for concurrent use.
type Evaluator struct {
	store Store
	paths *PathSet
}

// NewEvaluator creates an evaluator over the given store and path table.
func NewEvaluator(store Store, paths *PathSet) *Evaluator {
	return &Evaluator{store: store, paths: paths}
}

// Holds reports whether the named path links the row to the principal.
//
// Evaluation is fail-closed: an undeclared path name, a path anchored at a
// different relation, an absent or empty foreign-key column, and a dangling
// reference (the keyed lookup finds no row) all evaluate to false with a nil
// error. Only infrastructure failures from the store surface as errors, and
// an error result always carries false.
func (e *Evaluator) Holds(ctx context.Context, principal Principal, name string, row Row) (bool, error) {
	path, from, ok := e.paths.Path(name)
	if !ok {
		// Validate catches this at provisioning time; at runtime an unknown
		// path must deny, not grant or crash.
		log.Printf("[rowguard] WARNING: relationship check against undeclared path %q", name)
		return false, nil
	}
	if row.Relation != from {
		return false, nil
	}

	cur := row
	for _, edge := range path.Edges {
		fk, ok := cur.Field(edge.FKColumn)
		if !ok {
			return false, nil
		}
		next, found, err := e.store.Lookup(ctx, edge.Target, fk)
		if err != nil {
			return false, err
		}
		if !found {
			// Referential inconsistency: the chain is broken, the path does
			// not hold. Never an error, never a grant.
			return false, nil
		}
		cur = next
	}

	id, ok := cur.Field(path.IdentityColumn)
	if !ok {
		return false, nil
	}
	return principal.ID != "" && id == principal.ID, nil
}
