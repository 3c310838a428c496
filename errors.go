package rowguard

import "errors"

// Sentinel errors for the outcomes an operation gated by the engine can
// surface. Denied permission checks return DecisionDeny, not an error; these
// errors classify why a guarded operation was rejected or could not proceed.
//
// Use the Is* helper functions to classify wrapped errors at call sites.
var (
	// ErrUnauthenticated is returned by principal resolution when no valid
	// identity is present. Callers surfacing outcomes to end users should
	// report it as ErrAccessDenied; see Redact.
	ErrUnauthenticated = errors.New("rowguard: no authenticated principal")

	// ErrPolicyDenied is returned by Engine.Authorize when the decision is
	// Deny. Callers surfacing outcomes to end users should report it as
	// ErrAccessDenied; see Redact.
	ErrPolicyDenied = errors.New("rowguard: operation denied by policy")

	// ErrAccessDenied is the single undifferentiated denial outcome.
	// It deliberately does not reveal whether the target row exists, whether
	// the principal was authenticated, or which predicate failed.
	ErrAccessDenied = errors.New("rowguard: access denied")

	// ErrConstraintViolation is returned for uniqueness, value-range, and
	// cross-field check failures. A violation during business-key generation
	// is expected to be retried by the caller with a fresh key; it is not an
	// authorization concern.
	ErrConstraintViolation = errors.New("rowguard: constraint violation")

	// ErrReferentialIntegrity is returned when a foreign-key target is
	// absent at write time. During relationship evaluation a missing target
	// is not an error: the path evaluates to false (fail-closed).
	ErrReferentialIntegrity = errors.New("rowguard: referential integrity violation")

	// ErrInvalidRuleSet is returned by Validate for malformed policy or
	// path declarations: empty predicates, undeclared paths, or cycles in
	// the relationship graph.
	ErrInvalidRuleSet = errors.New("rowguard: invalid rule set")
)

// Redact collapses denial causes into the single ErrAccessDenied outcome.
// ErrUnauthenticated and ErrPolicyDenied both redact; every other error
// passes through unchanged. Outward-facing callers should redact before
// reporting, so a forbidden row is indistinguishable from a nonexistent one.
func Redact(err error) error {
	if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrPolicyDenied) {
		return ErrAccessDenied
	}
	return err
}

// IsAccessDenied returns true if err is or wraps any denial outcome.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrPolicyDenied) ||
		errors.Is(err, ErrUnauthenticated)
}

// IsConstraintViolation returns true if err is or wraps ErrConstraintViolation.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsReferentialIntegrity returns true if err is or wraps ErrReferentialIntegrity.
func IsReferentialIntegrity(err error) bool {
	return errors.Is(err, ErrReferentialIntegrity)
}
