package rowguard_test

import (
	"testing"
	"time"

	"github.com/rowguard/rowguard"
)

func TestCache(t *testing.T) {
	p := rowguard.Principal{ID: "u-1", Role: "doctor"}

	t.Run("set and get", func(t *testing.T) {
		c := rowguard.NewCache()
		c.Set(p, "notes", rowguard.OpRead, "n-1", rowguard.DecisionAllow)

		d, ok := c.Get(p, "notes", rowguard.OpRead, "n-1")
		if !ok || d != rowguard.DecisionAllow {
			t.Errorf("Get = %s, %v, want allow, true", d, ok)
		}
	})

	t.Run("miss on different tuple", func(t *testing.T) {
		c := rowguard.NewCache()
		c.Set(p, "notes", rowguard.OpRead, "n-1", rowguard.DecisionAllow)

		if _, ok := c.Get(p, "notes", rowguard.OpModify, "n-1"); ok {
			t.Error("hit on different operation")
		}
		other := rowguard.Principal{ID: "u-1", Role: "nurse"}
		if _, ok := c.Get(other, "notes", rowguard.OpRead, "n-1"); ok {
			t.Error("hit on same identity with different role")
		}
	})

	t.Run("deny decisions cached too", func(t *testing.T) {
		c := rowguard.NewCache()
		c.Set(p, "notes", rowguard.OpDelete, "n-1", rowguard.DecisionDeny)
		d, ok := c.Get(p, "notes", rowguard.OpDelete, "n-1")
		if !ok || d != rowguard.DecisionDeny {
			t.Errorf("Get = %s, %v, want deny, true", d, ok)
		}
	})

	t.Run("ttl expiry", func(t *testing.T) {
		c := rowguard.NewCache(rowguard.WithTTL(time.Nanosecond))
		c.Set(p, "notes", rowguard.OpRead, "n-1", rowguard.DecisionAllow)
		time.Sleep(time.Millisecond)
		if _, ok := c.Get(p, "notes", rowguard.OpRead, "n-1"); ok {
			t.Error("expired entry still served")
		}
		if c.Size() != 0 {
			t.Errorf("Size after expiry = %d, want 0", c.Size())
		}
	})

	t.Run("clear", func(t *testing.T) {
		c := rowguard.NewCache()
		c.Set(p, "notes", rowguard.OpRead, "n-1", rowguard.DecisionAllow)
		c.Clear()
		if c.Size() != 0 {
			t.Errorf("Size after Clear = %d, want 0", c.Size())
		}
	})
}
