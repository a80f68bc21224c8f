package intent

import (
	"fmt"
	"regexp"

	"flowbot/pkg/agent"
)

// Rule pairs a pattern template with the action it resolves to. Rules are
// evaluated in declaration order and the first match wins, so overlapping
// patterns are resolved by whoever orders the table, never by chance.
type Rule struct {
	Pattern string
	Action  agent.Action
}

// Match is the normalized result of resolving an utterance.
type Match struct {
	Action agent.Action
	Params agent.Params
}

type compiledRule struct {
	re     *regexp.Regexp
	action agent.Action
}

// Matcher maps raw text to at most one (action, parameters) pair. The
// compiled rule table is immutable and safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher expands and compiles a rule table. Any unknown placeholder
// token or invalid expression fails here, at startup.
func NewMatcher(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		expanded, err := ExpandPattern(rule.Pattern, defaultPlaceholders)
		if err != nil {
			return nil, err
		}

		re, err := regexp.Compile("(?i)" + expanded)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", rule.Pattern, err)
		}

		compiled = append(compiled, compiledRule{re: re, action: rule.Action})
	}

	return &Matcher{rules: compiled}, nil
}

// Match resolves an utterance against the rule table. Matching is
// case-insensitive substring search; the expression need not cover the
// whole utterance. Named capture groups of the winning rule become the
// parameter mapping. A miss across the whole table returns ok=false,
// which signals silence rather than an error.
func (m *Matcher) Match(utterance string) (Match, bool) {
	for _, rule := range m.rules {
		groups := rule.re.FindStringSubmatch(utterance)
		if groups == nil {
			continue
		}

		var params agent.Params
		for i, name := range rule.re.SubexpNames() {
			if i == 0 || name == "" || groups[i] == "" {
				continue
			}
			if params == nil {
				params = make(agent.Params)
			}
			params[name] = groups[i]
		}

		return Match{Action: rule.action, Params: params}, true
	}

	return Match{}, false
}
