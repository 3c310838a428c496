package rowguard

import "context"

// Decision is the boolean outcome of a policy evaluation, plus an unset
// value used for overrides. Decide only ever returns DecisionAllow or
// DecisionDeny; DecisionUnset exists so overrides can mean "no override".
type Decision int

const (
	// DecisionUnset means no override - perform the normal policy evaluation.
	DecisionUnset Decision = iota

	// DecisionAllow permits the operation. As an override it bypasses
	// evaluation entirely; use for admin tools, migrations, or testing
	// authorized code paths.
	DecisionAllow

	// DecisionDeny rejects the operation. As an override, use for testing
	// unauthorized code paths without store setup.
	DecisionDeny
)

// String returns "allow", "deny", or "unset".
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "unset"
	}
}

type ctxKey int

const decisionKey ctxKey = iota

// WithDecisionContext returns a new context carrying a decision override.
//
// Prefer the WithDecision engine option for explicit control. Use
// context-based decisions when the override needs to propagate through
// middleware layers where passing an Engine is impractical.
//
// Note: the Engine does NOT consult this value unless constructed with
// WithContextDecision; the opt-in keeps ambient state from silently
// overriding policy.
func WithDecisionContext(ctx context.Context, decision Decision) context.Context {
	return context.WithValue(ctx, decisionKey, decision)
}

// GetDecisionContext retrieves the decision override from context.
// Returns DecisionUnset if none is set.
func GetDecisionContext(ctx context.Context) Decision {
	if decision, ok := ctx.Value(decisionKey).(Decision); ok {
		return decision
	}
	return DecisionUnset
}
