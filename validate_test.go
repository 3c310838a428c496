package rowguard_test

import (
	"errors"
	"testing"

	"github.com/rowguard/rowguard"
)

func TestValidate(t *testing.T) {
	validPaths := func() *rowguard.PathSet {
		ps := rowguard.NewPathSet()
		ps.MustDeclare("owner", "docs", rowguard.Path{IdentityColumn: "owner_id"})
		return ps
	}

	t.Run("valid model", func(t *testing.T) {
		rs := rowguard.NewRuleSet()
		rs.MustDeclare("docs", rowguard.OpRead, rowguard.Grant("admin").OrOwned("owner"))
		if err := rowguard.Validate(rs, validPaths()); err != nil {
			t.Errorf("Validate = %v, want nil", err)
		}
	})

	t.Run("empty role set", func(t *testing.T) {
		rs := rowguard.NewRuleSet()
		rs.MustDeclare("docs", rowguard.OpRead, rowguard.RoleIn{})
		if err := rowguard.Validate(rs, validPaths()); !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("Validate = %v, want ErrInvalidRuleSet", err)
		}
	})

	t.Run("undeclared path", func(t *testing.T) {
		rs := rowguard.NewRuleSet()
		rs.MustDeclare("docs", rowguard.OpRead, rowguard.RelationshipHolds("nope"))
		if err := rowguard.Validate(rs, validPaths()); !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("Validate = %v, want ErrInvalidRuleSet", err)
		}
	})

	t.Run("path anchored at wrong relation", func(t *testing.T) {
		rs := rowguard.NewRuleSet()
		rs.MustDeclare("files", rowguard.OpRead, rowguard.RelationshipHolds("owner"))
		if err := rowguard.Validate(rs, validPaths()); !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("Validate = %v, want ErrInvalidRuleSet", err)
		}
	})

	t.Run("empty disjunction", func(t *testing.T) {
		rs := rowguard.NewRuleSet()
		rs.MustDeclare("docs", rowguard.OpRead, rowguard.Or{})
		if err := rowguard.Validate(rs, validPaths()); !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("Validate = %v, want ErrInvalidRuleSet", err)
		}
	})

	t.Run("path revisiting a relation", func(t *testing.T) {
		ps := rowguard.NewPathSet()
		ps.MustDeclare("loop", "docs", rowguard.Path{
			Edges: []rowguard.Edge{
				{FKColumn: "parent_id", Target: "folders"},
				{FKColumn: "doc_id", Target: "docs"},
			},
			IdentityColumn: "owner_id",
		})
		if err := rowguard.Validate(rowguard.NewRuleSet(), ps); !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("Validate = %v, want ErrInvalidRuleSet", err)
		}
	})

	t.Run("cross-path cycle", func(t *testing.T) {
		ps := rowguard.NewPathSet()
		ps.MustDeclare("a-to-b", "alpha", rowguard.Path{
			Edges:          []rowguard.Edge{{FKColumn: "b_id", Target: "beta"}},
			IdentityColumn: "user_id",
		})
		ps.MustDeclare("b-to-a", "beta", rowguard.Path{
			Edges:          []rowguard.Edge{{FKColumn: "a_id", Target: "alpha"}},
			IdentityColumn: "user_id",
		})
		if err := rowguard.Validate(rowguard.NewRuleSet(), ps); !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("Validate = %v, want ErrInvalidRuleSet", err)
		}
	})
}

func TestPathSetDeclare(t *testing.T) {
	ps := rowguard.NewPathSet()
	if err := ps.Declare("owner", "docs", rowguard.Path{IdentityColumn: "owner_id"}); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := ps.Declare("owner", "files", rowguard.Path{IdentityColumn: "owner_id"})
		if !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("duplicate Declare = %v", err)
		}
	})

	t.Run("missing identity column rejected", func(t *testing.T) {
		err := ps.Declare("anon", "docs", rowguard.Path{})
		if !errors.Is(err, rowguard.ErrInvalidRuleSet) {
			t.Errorf("identity-less Declare = %v", err)
		}
	})
}
