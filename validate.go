package rowguard

import (
	"fmt"
	"log"
	"strings"
)

// maxAdvisedDepth is the deepest relationship path seen in practice.
// Deeper paths still evaluate correctly but each extra hop is another keyed
// lookup on the decision hot path, so Validate flags them.
const maxAdvisedDepth = 3

// Validate checks a rule set and path table for configuration mistakes
// before an engine is built over them:
//
//   - empty RoleIn sets and empty And/Or composites
//   - RelationshipHolds referencing undeclared paths
//   - policies referencing paths anchored at a different relation
//   - cycles in the foreign-key graph induced by the declared edges
//     (a row must never transitively reference itself as owner)
//
// Paths deeper than three hops are logged as warnings, not rejected.
// Validation failures return errors wrapping ErrInvalidRuleSet. The engine
// stays fail-closed without validation - undeclared paths and empty sets
// deny - but validating at provisioning time turns silent denials into
// diagnosable configuration errors.
func Validate(rules *RuleSet, paths *PathSet) error {
	for _, policy := range rules.Policies() {
		if err := validatePredicate(policy, policy.Predicate, paths); err != nil {
			return err
		}
	}

	if err := detectPathCycles(paths); err != nil {
		return err
	}

	for _, name := range paths.Names() {
		p, _, _ := paths.Path(name)
		if len(p.Edges) > maxAdvisedDepth {
			log.Printf("[rowguard] WARNING: path %q is %d hops deep; each hop is a point lookup per decision", name, len(p.Edges))
		}
	}

	return nil
}

func validatePredicate(policy Policy, p Predicate, paths *PathSet) error {
	switch pred := p.(type) {
	case RoleIn:
		if len(pred) == 0 {
			return fmt.Errorf("%w: empty role set in policy %s %s", ErrInvalidRuleSet, policy.Relation, policy.Operation)
		}
		return nil

	case RelationshipHolds:
		_, from, ok := paths.Path(string(pred))
		if !ok {
			return fmt.Errorf("%w: policy %s %s references undeclared path %q", ErrInvalidRuleSet, policy.Relation, policy.Operation, string(pred))
		}
		if from != policy.Relation {
			return fmt.Errorf("%w: policy %s %s references path %q anchored at %s", ErrInvalidRuleSet, policy.Relation, policy.Operation, string(pred), from)
		}
		return nil

	case And:
		if len(pred) == 0 {
			return fmt.Errorf("%w: empty conjunction in policy %s %s", ErrInvalidRuleSet, policy.Relation, policy.Operation)
		}
		for _, op := range pred {
			if err := validatePredicate(policy, op, paths); err != nil {
				return err
			}
		}
		return nil

	case Or:
		if len(pred) == 0 {
			return fmt.Errorf("%w: empty disjunction in policy %s %s", ErrInvalidRuleSet, policy.Relation, policy.Operation)
		}
		for _, op := range pred {
			if err := validatePredicate(policy, op, paths); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown predicate %T in policy %s %s", ErrInvalidRuleSet, p, policy.Relation, policy.Operation)
	}
}

// color represents the state of a node during DFS cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // in current DFS path (cycle if revisited)
	black              // fully processed
)

// detectPathCycles checks that the foreign-key graph induced by all
// declared edges is a DAG. Within a single path a repeated relation is
// already a cycle.
func detectPathCycles(paths *PathSet) error {
	graph := make(map[Relation][]Relation)

	for _, name := range paths.Names() {
		p, from, _ := paths.Path(name)

		seen := map[Relation]bool{from: true}
		prev := from
		for _, edge := range p.Edges {
			if seen[edge.Target] {
				return fmt.Errorf("%w: path %q revisits relation %s", ErrInvalidRuleSet, name, edge.Target)
			}
			seen[edge.Target] = true
			graph[prev] = append(graph[prev], edge.Target)
			prev = edge.Target
		}
	}

	colors := make(map[Relation]color)
	var stack []Relation

	var visit func(Relation) []Relation
	visit = func(n Relation) []Relation {
		colors[n] = gray
		stack = append(stack, n)
		for _, next := range graph[n] {
			switch colors[next] {
			case gray:
				return append(stack, next)
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		colors[n] = black
		stack = stack[:len(stack)-1]
		return nil
	}

	for n := range graph {
		if colors[n] == white {
			if cycle := visit(n); cycle != nil {
				return fmt.Errorf("%w: cycle in foreign-key graph: %s", ErrInvalidRuleSet, formatCycle(cycle))
			}
		}
		stack = stack[:0]
	}

	return nil
}

func formatCycle(cycle []Relation) string {
	names := make([]string, len(cycle))
	for i, r := range cycle {
		names[i] = r.String()
	}
	return strings.Join(names, " -> ")
}
