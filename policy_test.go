package rowguard_test

import (
	"errors"
	"testing"

	"github.com/rowguard/rowguard"
)

func TestPredicateString(t *testing.T) {
	tests := []struct {
		name string
		p    rowguard.Predicate
		want string
	}{
		{
			name: "role set sorted",
			p:    rowguard.RoleIn{"front_desk", "admin"},
			want: "roleIn(admin, front_desk)",
		},
		{
			name: "relationship",
			p:    rowguard.RelationshipHolds("appointment-doctor"),
			want: "holds(appointment-doctor)",
		},
		{
			name: "role or owned",
			p:    rowguard.Grant("admin", "billing").OrOwned("invoice-doctor"),
			want: "roleIn(admin, billing) or holds(invoice-doctor)",
		},
		{
			name: "nested composite parenthesized",
			p: rowguard.And{
				rowguard.RoleIn{"doctor"},
				rowguard.Or{rowguard.RelationshipHolds("a"), rowguard.RelationshipHolds("b")},
			},
			want: "roleIn(doctor) and (holds(a) or holds(b))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuleSetDeclare(t *testing.T) {
	rs := rowguard.NewRuleSet()
	if err := rs.Declare("patients", rowguard.OpRead, rowguard.Grant("admin")); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	t.Run("duplicate pair rejected", func(t *testing.T) {
		err := rs.Declare("patients", rowguard.OpRead, rowguard.Grant("doctor"))
		if !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("duplicate Declare = %v, want ErrInvalidRuleSet", err)
		}
	})

	t.Run("distinct operation fine", func(t *testing.T) {
		if err := rs.Declare("patients", rowguard.OpDelete, rowguard.Grant("admin")); err != nil {
			t.Errorf("Declare: %v", err)
		}
	})

	t.Run("undeclared pair absent", func(t *testing.T) {
		if _, ok := rs.Policy("patients", rowguard.OpModify); ok {
			t.Error("undeclared pair reported present")
		}
	})
}

func TestPoliciesOrdering(t *testing.T) {
	rs := rowguard.NewRuleSet()
	rs.MustDeclare("b", rowguard.OpDelete, rowguard.Grant("admin"))
	rs.MustDeclare("a", rowguard.OpModify, rowguard.Grant("admin"))
	rs.MustDeclare("a", rowguard.OpRead, rowguard.Grant("admin"))

	got := rs.Policies()
	want := []struct {
		rel rowguard.Relation
		op  rowguard.Operation
	}{
		{"a", rowguard.OpRead},
		{"a", rowguard.OpModify},
		{"b", rowguard.OpDelete},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Relation != w.rel || got[i].Operation != w.op {
			t.Errorf("Policies()[%d] = %s %s, want %s %s", i, got[i].Relation, got[i].Operation, w.rel, w.op)
		}
	}
}

func TestOperationRoundTrip(t *testing.T) {
	for _, op := range []rowguard.Operation{rowguard.OpRead, rowguard.OpCreate, rowguard.OpModify, rowguard.OpDelete} {
		parsed, ok := rowguard.ParseOperation(op.String())
		if !ok || parsed != op {
			t.Errorf("ParseOperation(%q) = %v, %v", op.String(), parsed, ok)
		}
	}
	if _, ok := rowguard.ParseOperation("truncate"); ok {
		t.Error("ParseOperation accepted unknown operation")
	}
}
