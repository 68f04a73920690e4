// Package errprompt appends operator-written guidance to error messages that
// reach the agent, e.g. pointing at list_tables after "unconfigured table".
package errprompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule pairs an error message pattern with the guidance shown when it matches.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// Matcher checks error messages against rules in order.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher compiles the rules. Returns an error on invalid regex patterns.
func NewMatcher(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("errprompt: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Matcher{rules: compiled}, nil
}

// Annotate returns errMsg followed by a blank line and the guidance of every
// matching rule, plus the matched patterns for logging. errMsg is returned
// unchanged when nothing matches.
func (m *Matcher) Annotate(errMsg string) (string, []string) {
	messages, patterns := m.match(errMsg)
	if len(messages) == 0 {
		return errMsg, nil
	}
	return errMsg + "\n\n" + strings.Join(messages, "\n"), patterns
}

func (m *Matcher) match(errMsg string) (messages, patterns []string) {
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			messages = append(messages, rule.message)
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return messages, patterns
}
