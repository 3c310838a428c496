package rowguard

import (
	"context"
	"fmt"
)

// Authenticator verifies an opaque identity token and returns the identity
// ID it belongs to. Implemented by the external authentication collaborator;
// StaticAuthenticator serves tests and tooling.
type Authenticator interface {
	Verify(ctx context.Context, token string) (string, error)
}

// RoleDirectory resolves an identity ID to its active role. Roles come from
// this external collaborator only - never from row data, which may only be
// used to test relationship.
//
// The second result is false when the identity has no role assignment; the
// caller receives a principal whose empty role matches no RoleIn set.
type RoleDirectory interface {
	RoleOf(ctx context.Context, id string) (Role, bool, error)
}

// ResolvePrincipal verifies the token and looks up the role, producing the
// immutable principal context for one operation. It returns
// ErrUnauthenticated when the token is empty or verification fails.
func ResolvePrincipal(ctx context.Context, token string, auth Authenticator, dir RoleDirectory) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthenticated
	}
	id, err := auth.Verify(ctx, token)
	if err != nil || id == "" {
		return Principal{}, fmt.Errorf("%w: token verification failed", ErrUnauthenticated)
	}

	role, ok, err := dir.RoleOf(ctx, id)
	if err != nil {
		return Principal{}, fmt.Errorf("resolving role for %s: %w", id, err)
	}
	if !ok {
		// Authenticated but roleless: a valid principal that no RoleIn set
		// will ever match. Relationship checks still apply.
		return Principal{ID: id}, nil
	}
	return Principal{ID: id, Role: role}, nil
}

// StaticAuthenticator verifies tokens against a fixed token -> identity map.
type StaticAuthenticator map[string]string

// Verify returns the identity for the token or ErrUnauthenticated.
func (a StaticAuthenticator) Verify(_ context.Context, token string) (string, error) {
	id, ok := a[token]
	if !ok {
		return "", ErrUnauthenticated
	}
	return id, nil
}

// StaticDirectory resolves roles from a fixed identity -> role map.
type StaticDirectory map[string]Role

// RoleOf returns the role for the identity, or false when unassigned.
func (d StaticDirectory) RoleOf(_ context.Context, id string) (Role, bool, error) {
	role, ok := d[id]
	return role, ok, nil
}
