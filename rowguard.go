// Package rowguard is a row-level access-control evaluation engine.
//
// Rowguard decides whether a principal (an authenticated identity carrying
// exactly one role) may perform an operation (read, create, modify, delete)
// on a row of a named relation. Decisions are computed from a static rule
// set of predicates built from two primitive checks:
//
//   - RoleIn: the principal's role is in a declared set
//   - RelationshipHolds: the principal is transitively linked to the row
//     through a declared chain of foreign-key hops ending at an
//     identity-bearing column
//
// # Core Concepts
//
// Relations are named resource types; rows are instances of relations:
//
//	row := rowguard.Row{
//	    Relation: "appointments",
//	    ID:       "a-17",
//	    Fields:   map[string]string{"doctor_id": "c-3", "patient_id": "p-9"},
//	}
//
// Relationship paths declare how a row links back to a principal:
//
//	paths := rowguard.NewPathSet()
//	paths.Declare("appointment-doctor", "appointments", rowguard.Path{
//	    Edges:          []rowguard.Edge{{FKColumn: "doctor_id", Target: "clinicians"}},
//	    IdentityColumn: "user_id",
//	})
//
// Policies attach one predicate per (relation, operation) pair:
//
//	rules := rowguard.NewRuleSet()
//	rules.Declare("appointments", rowguard.OpModify,
//	    rowguard.Grant("admin", "front_desk").OrOwned("appointment-doctor"))
//
// # Basic Usage
//
//	engine := rowguard.NewEngine(rules, paths, store)
//	d, err := engine.Decide(ctx, principal, "appointments", rowguard.OpModify, row)
//
// Absence of a declared policy is an unconditional Deny (default-deny), and
// any ambiguity during evaluation - a dangling foreign key, an unknown role,
// an undeclared path - resolves to Deny, never to Allow (fail-closed).
//
// # Transaction Support
//
// The Engine reads related rows through the minimal Store interface. Stores
// backed by SQL databases satisfy it at the *sql.Tx level, so a decision and
// the mutation it guards can share one consistency snapshot:
//
//	tx, _ := db.BeginTx(ctx, nil)
//	engine := rowguard.NewEngine(rules, paths, sqlstore.New(tx, tables, sqlstore.Postgres))
//	// decision sees uncommitted transaction state
//
// Engines are lightweight and safe to create per request or per transaction.
//
// # Caching
//
// Use WithCache for repeated checks of the same (principal, relation,
// operation, row) tuple:
//
//	cache := rowguard.NewCache(rowguard.WithTTL(time.Minute))
//	engine := rowguard.NewEngine(rules, paths, store, rowguard.WithCache(cache))
//
// # Decision Overrides
//
// Use WithDecision for admin tools or tests:
//
//	engine := rowguard.NewEngine(rules, paths, store, rowguard.WithDecision(rowguard.DecisionAllow))
package rowguard

import "context"

// Role is a closed-set tag classifying a principal's privilege level.
// Each principal holds exactly one role per request. The empty role matches
// no RoleIn set and therefore grants nothing.
type Role string

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Relation is a named resource type with a fixed set of operations.
type Relation string

// String returns the string representation of the relation.
func (r Relation) String() string {
	return string(r)
}

// Operation is one of the four row operations a policy can gate.
type Operation int

// The operation set is closed. Delete is conventionally the most
// restrictive operation for a relation.
const (
	OpRead Operation = iota
	OpCreate
	OpModify
	OpDelete
)

var operationNames = [...]string{"read", "create", "modify", "delete"}

// String returns the lowercase operation name.
func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return "unknown"
	}
	return operationNames[o]
}

// ParseOperation converts an operation name to an Operation.
// Used by the CLI; application code should use the constants directly.
func ParseOperation(s string) (Operation, bool) {
	for i, name := range operationNames {
		if name == s {
			return Operation(i), true
		}
	}
	return 0, false
}

// Principal is the resolved identity and role making a request.
//
// Principals are value types, immutable for the duration of one decision.
// The role comes from an identity directory, never from row data - row data
// may only be used to test relationship, not to assign privilege.
type Principal struct {
	ID   string
	Role Role
}

// String returns the canonical representation "role:id".
func (p Principal) String() string {
	return p.Role.String() + ":" + p.ID
}

// Row is one instance of a Relation. Fields carries the row's foreign-key
// and identity columns by column name; only columns referenced by declared
// relationship paths need to be present.
//
// Rows are value types and safe to copy. The canonical string format is
// "relation:id", used in logging and debugging.
type Row struct {
	Relation Relation
	ID       string
	Fields   map[string]string
}

// String returns the canonical representation "relation:id".
func (r Row) String() string {
	return r.Relation.String() + ":" + r.ID
}

// Field returns the named column value. The second result is false when the
// column is absent or empty; path evaluation treats both as a missing link.
func (r Row) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Store performs keyed point lookups of rows by relation and ID.
// Implemented by memstore.Store and sqlstore.Store (over *sql.DB, *sql.Tx,
// or *sql.Conn).
//
// The minimal interface allows the Engine to work in transaction contexts
// without requiring a full database connection, so a permission check and
// the mutation it guards can run inside one atomic transaction.
//
// Lookup returns (row, true, nil) when the row exists, (zero, false, nil)
// when it does not, and a non-nil error only for infrastructure failures.
// Implementations must be read-only and side-effect-free through this
// interface: a single decision may invoke Lookup several times, in any
// order.
type Store interface {
	Lookup(ctx context.Context, relation Relation, id string) (Row, bool, error)
}
