package rowguard

import "context"

// Engine evaluates the rule set against (principal, relation, operation,
// row) tuples.
//
// Engines are lightweight and safe to create per request or per
// transaction. They hold no state beyond the static tables, the store
// handle, the optional cache, and the decision override. Creating the
// engine over a transaction-scoped store keeps the decision and the guarded
// mutation on one consistency snapshot.
type Engine struct {
	rules              *RuleSet
	eval               *Evaluator
	cache              Cache
	decision           Decision
	useContextDecision bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables caching of decisions. Caching is safe across goroutines
// but scoped to the Engine instance it is given to; for request-scoped
// caching, create an Engine per request with a request-scoped cache.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithDecision sets a decision override that bypasses evaluation.
// Use DecisionAllow for admin tools or testing authorized paths,
// DecisionDeny for testing unauthorized paths. The override is set at
// construction time to keep the bypass explicit in code.
func WithDecision(d Decision) Option {
	return func(e *Engine) {
		e.decision = d
	}
}

// WithContextDecision enables context-based decision overrides.
// When enabled, Decide consults GetDecisionContext(ctx) before evaluating.
//
// Decision precedence when enabled:
//  1. Context decision (via WithDecisionContext)
//  2. Engine decision (via WithDecision)
//  3. Policy evaluation
//
// By default context decisions are NOT consulted.
func WithContextDecision() Option {
	return func(e *Engine) {
		e.useContextDecision = true
	}
}

// NewEngine creates an engine over the given static tables and store.
// The tables should have passed Validate at provisioning time; the engine
// itself stays fail-closed in the presence of invalid declarations.
func NewEngine(rules *RuleSet, paths *PathSet, store Store, opts ...Option) *Engine {
	e := &Engine{
		rules:    rules,
		eval:     NewEvaluator(store, paths),
		decision: DecisionUnset,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide returns the access decision for the tuple.
//
// The predicate for the (relation, operation) pair is evaluated with
// short-circuiting: Or stops at the first satisfied operand, And at the
// first unsatisfied one, bounding relationship-lookup cost. If no policy is
// declared for the pair, the decision is Deny.
//
// Decide is a pure function of its inputs and the static tables: repeated
// calls with unchanged inputs and store state return identical results. A
// non-nil error (infrastructure failure during a relationship lookup)
// always accompanies DecisionDeny.
func (e *Engine) Decide(ctx context.Context, principal Principal, relation Relation, op Operation, row Row) (Decision, error) {
	// Context override is opt-in via WithContextDecision.
	if e.useContextDecision {
		if d := GetDecisionContext(ctx); d != DecisionUnset {
			return d, nil
		}
	}

	if e.decision != DecisionUnset {
		return e.decision, nil
	}

	// Rows without an id (candidates not yet inserted) are not cached:
	// the id is the cache key's row component, and two distinct
	// candidates would share one entry.
	cacheable := e.cache != nil && row.ID != ""
	if cacheable {
		if d, found := e.cache.Get(principal, relation, op, row.ID); found {
			return d, nil
		}
	}

	policy, ok := e.rules.Policy(relation, op)
	if !ok {
		// Default-deny: absence of a declared policy is an always-deny policy.
		return DecisionDeny, nil
	}

	satisfied, err := e.evalPredicate(ctx, principal, policy.Predicate, row)
	if err != nil {
		return DecisionDeny, err
	}

	d := DecisionDeny
	if satisfied {
		d = DecisionAllow
	}
	if cacheable {
		e.cache.Set(principal, relation, op, row.ID, d)
	}
	return d, nil
}

// Authorize is Decide returning an error instead of a Decision: nil on
// Allow, ErrPolicyDenied on Deny. Infrastructure failures surface as their
// own errors; callers reporting outcomes to end users should pass the
// result through Redact.
func (e *Engine) Authorize(ctx context.Context, principal Principal, relation Relation, op Operation, row Row) error {
	d, err := e.Decide(ctx, principal, relation, op, row)
	if err != nil {
		return err
	}
	if d != DecisionAllow {
		return ErrPolicyDenied
	}
	return nil
}

func (e *Engine) evalPredicate(ctx context.Context, principal Principal, p Predicate, row Row) (bool, error) {
	switch pred := p.(type) {
	case RoleIn:
		for _, role := range pred {
			if principal.Role != "" && principal.Role == role {
				return true, nil
			}
		}
		return false, nil

	case RelationshipHolds:
		return e.eval.Holds(ctx, principal, string(pred), row)

	case Or:
		for _, op := range pred {
			ok, err := e.evalPredicate(ctx, principal, op, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case And:
		if len(pred) == 0 {
			return false, nil
		}
		for _, op := range pred {
			ok, err := e.evalPredicate(ctx, principal, op, row)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	default:
		// Unknown predicate variants deny; Validate rejects them up front.
		return false, nil
	}
}
