package resolver

import (
	"strings"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Rule maps category keywords to a canned candidate.
type Rule struct {
	Keywords  []string
	Candidate domain.Candidate
}

// Table is an ordered keyword table with a catch-all.
type Table struct {
	Rules   []Rule
	Generic domain.Candidate
}

// Match returns the candidate of the first rule with a keyword contained in
// subject, case-insensitively, or Generic.
func (t Table) Match(subject string) domain.Candidate {
	s := strings.ToLower(subject)
	for _, rule := range t.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(s, strings.ToLower(kw)) {
				return rule.Candidate
			}
		}
	}
	return t.Generic
}
