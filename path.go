package rowguard

import "fmt"

// Edge is one declared traversal step: follow the foreign-key column on the
// current row to a row of the target relation.
type Edge struct {
	FKColumn string
	Target   Relation
}

// Path declares how a row links back to a principal: zero or more
// foreign-key hops, then an equality test between IdentityColumn on the
// final row and the principal's ID.
//
// A zero-hop path (no edges) tests an owner column stored directly on the
// row, e.g. a "created_by" column. A multi-hop path chains point lookups
// left to right; paths in practice go at most three joins deep.
type Path struct {
	Edges          []Edge
	IdentityColumn string
}

type declaredPath struct {
	name string
	from Relation
	path Path
}

// PathSet is the static table of named relationship paths, each anchored at
// the relation whose rows it starts from. Like RuleSet, it is built at
// provisioning time and immutable afterwards.
type PathSet struct {
	paths map[string]declaredPath
}

// NewPathSet returns an empty path set.
func NewPathSet() *PathSet {
	return &PathSet{paths: make(map[string]declaredPath)}
}

// Declare registers a named path starting at rows of the given relation.
// Path names are unique across the set; redeclaring one is a configuration
// bug and returns an error.
func (ps *PathSet) Declare(name string, from Relation, p Path) error {
	if _, dup := ps.paths[name]; dup {
		return fmt.Errorf("%w: duplicate path %q", ErrInvalidRuleSet, name)
	}
	if p.IdentityColumn == "" {
		return fmt.Errorf("%w: path %q has no identity column", ErrInvalidRuleSet, name)
	}
	ps.paths[name] = declaredPath{name: name, from: from, path: p}
	return nil
}

// MustDeclare is Declare for static table construction; it panics on
// invalid declarations.
func (ps *PathSet) MustDeclare(name string, from Relation, p Path) {
	if err := ps.Declare(name, from, p); err != nil {
		panic(err)
	}
}

// Path returns the declared path and its anchor relation, or false when the
// name is undeclared.
func (ps *PathSet) Path(name string) (Path, Relation, bool) {
	d, ok := ps.paths[name]
	if !ok {
		return Path{}, "", false
	}
	return d.path, d.from, true
}

// Names returns the declared path names in unspecified order.
func (ps *PathSet) Names() []string {
	names := make([]string, 0, len(ps.paths))
	for name := range ps.paths {
		names = append(names, name)
	}
	return names
}
