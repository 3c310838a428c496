package rowguard

import (
	"fmt"
	"strings"

	"sigs.k8s.io/yaml"
)

// PolicyDoc is one rendered policy table entry, used by FormatRules and
// MarshalRules. The Rule field is the predicate's canonical rendering.
type PolicyDoc struct {
	Relation  string `json:"relation"`
	Operation string `json:"operation"`
	Rule      string `json:"rule"`
}

// Inspect renders the rule set as documents ordered by relation, then
// operation. The output is deterministic for a given rule set.
func Inspect(rules *RuleSet) []PolicyDoc {
	policies := rules.Policies()
	docs := make([]PolicyDoc, len(policies))
	for i, p := range policies {
		docs[i] = PolicyDoc{
			Relation:  p.Relation.String(),
			Operation: p.Operation.String(),
			Rule:      p.Predicate.String(),
		}
	}
	return docs
}

// FormatRules renders the rule set as an aligned plain-text table, one
// policy per line.
func FormatRules(rules *RuleSet) string {
	docs := Inspect(rules)

	relWidth, opWidth := 0, 0
	for _, d := range docs {
		if len(d.Relation) > relWidth {
			relWidth = len(d.Relation)
		}
		if len(d.Operation) > opWidth {
			opWidth = len(d.Operation)
		}
	}

	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%-*s  %-*s  %s\n", relWidth, d.Relation, opWidth, d.Operation, d.Rule)
	}
	return b.String()
}

// MarshalRules renders the rule set as YAML, for the CLI inspect command
// and for diffing policy tables across revisions.
func MarshalRules(rules *RuleSet) ([]byte, error) {
	return yaml.Marshal(Inspect(rules))
}
