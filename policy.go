package rowguard

import (
	"fmt"
	"sort"
	"strings"
)

// Predicate is a boolean expression over the two primitive checks.
// The concrete variants are RoleIn, RelationshipHolds, And, and Or.
//
// Predicates are plain inspectable values; evaluation lives in the Engine so
// a rule set can be constructed, validated, and rendered without a store.
type Predicate interface {
	fmt.Stringer
	isPredicate()
}

// RoleIn is satisfied when the principal's role is in the set.
// An empty set is never satisfied.
type RoleIn []Role

func (RoleIn) isPredicate() {}

// String renders the check as "roleIn(a, b)" with roles sorted.
func (p RoleIn) String() string {
	names := make([]string, len(p))
	for i, r := range p {
		names[i] = r.String()
	}
	sort.Strings(names)
	return "roleIn(" + strings.Join(names, ", ") + ")"
}

// RelationshipHolds is satisfied when the named relationship path links the
// row to the principal. An undeclared path name is never satisfied.
type RelationshipHolds string

func (RelationshipHolds) isPredicate() {}

// String renders the check as `holds(path-name)`.
func (p RelationshipHolds) String() string {
	return "holds(" + string(p) + ")"
}

// And is satisfied when every operand is satisfied. Evaluation
// short-circuits on the first false operand. An empty And is rejected by
// Validate rather than given a truth value.
type And []Predicate

func (And) isPredicate() {}

// String renders operands joined with "and", parenthesizing nested
// composites.
func (p And) String() string {
	return joinPredicates(p, " and ")
}

// Or is satisfied when any operand is satisfied. Evaluation short-circuits
// on the first true operand, so cheap role checks should precede
// relationship checks; Grant and OrOwned emit that order.
type Or []Predicate

func (Or) isPredicate() {}

// String renders operands joined with "or", parenthesizing nested
// composites.
func (p Or) String() string {
	return joinPredicates(p, " or ")
}

func joinPredicates(ops []Predicate, sep string) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		s := op.String()
		switch op.(type) {
		case And, Or:
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, sep)
}

// Grant builds the role-bypass half of the common policy shape.
// Use alone for role-only gates (the usual delete policy), or chain OrOwned
// to add an ownership alternative.
func Grant(roles ...Role) RoleIn {
	return RoleIn(roles)
}

// OrOwned composes the canonical "privileged role or ownership" policy:
// the role check is first so it short-circuits the more expensive
// relationship lookup.
func (p RoleIn) OrOwned(path string) Predicate {
	return Or{p, RelationshipHolds(path)}
}

// Policy is the effective access predicate for one (relation, operation)
// pair.
type Policy struct {
	Relation  Relation
	Operation Operation
	Predicate Predicate
}

type policyKey struct {
	relation  Relation
	operation Operation
}

// RuleSet is the static per-relation, per-operation policy table.
// Rule sets are built at provisioning time and are immutable configuration
// for the engine's lifetime; there is no runtime mutation API beyond
// Declare during construction.
type RuleSet struct {
	policies map[policyKey]Policy
}

// NewRuleSet returns an empty rule set. A pair with no declared policy is
// always-deny.
func NewRuleSet() *RuleSet {
	return &RuleSet{policies: make(map[policyKey]Policy)}
}

// Declare registers the policy for one (relation, operation) pair.
// Each pair has exactly one effective policy; redeclaring a pair is a
// configuration bug and returns an error.
func (rs *RuleSet) Declare(relation Relation, op Operation, p Predicate) error {
	key := policyKey{relation: relation, operation: op}
	if _, dup := rs.policies[key]; dup {
		return fmt.Errorf("%w: duplicate policy for %s %s", ErrInvalidRuleSet, relation, op)
	}
	rs.policies[key] = Policy{Relation: relation, Operation: op, Predicate: p}
	return nil
}

// MustDeclare is Declare for static table construction; it panics on a
// duplicate pair.
func (rs *RuleSet) MustDeclare(relation Relation, op Operation, p Predicate) {
	if err := rs.Declare(relation, op, p); err != nil {
		panic(err)
	}
}

// Policy returns the declared policy for the pair, or false when the pair
// is undeclared (and therefore always-deny).
func (rs *RuleSet) Policy(relation Relation, op Operation) (Policy, bool) {
	p, ok := rs.policies[policyKey{relation: relation, operation: op}]
	return p, ok
}

// Policies returns all declared policies ordered by relation, then by
// operation. The ordering is stable so rendered rule tables diff cleanly.
func (rs *RuleSet) Policies() []Policy {
	out := make([]Policy, 0, len(rs.policies))
	for _, p := range rs.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relation != out[j].Relation {
			return out[i].Relation < out[j].Relation
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}
