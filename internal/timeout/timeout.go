package timeout

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Rule gives statements matching Pattern their own timeout.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

// Config is the timeout manager's own config type.
type Config struct {
	DefaultTimeout time.Duration
	Rules          []Rule
}

type compiledRule struct {
	pattern *regexp.Regexp
	timeout time.Duration
}

// Manager resolves per-statement timeouts by matching CQL text.
type Manager struct {
	rules          []compiledRule
	defaultTimeout time.Duration
}

// NewManager compiles the rules. Returns an error on invalid regex patterns.
func NewManager(config Config) (*Manager, error) {
	compiled := make([]compiledRule, len(config.Rules))
	for i, r := range config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("timeout: invalid regex pattern %q: %v", r.Pattern, err)
		}
		if r.Timeout <= 0 {
			return nil, fmt.Errorf("timeout: rule %q must have a positive timeout", r.Pattern)
		}
		compiled[i] = compiledRule{pattern: re, timeout: r.Timeout}
	}
	return &Manager{rules: compiled, defaultTimeout: config.DefaultTimeout}, nil
}

// GetTimeoutWithPattern returns the timeout for stmt and the pattern of the
// rule that set it, or "" when the default applies. First matching rule wins.
func (m *Manager) GetTimeoutWithPattern(stmt string) (time.Duration, string) {
	for _, rule := range m.rules {
		if rule.pattern.MatchString(stmt) {
			return rule.timeout, rule.pattern.String()
		}
	}
	return m.defaultTimeout, ""
}

// WithTimeout derives a context bounded by the timeout for stmt. A zero
// timeout leaves ctx without a deadline.
func (m *Manager) WithTimeout(ctx context.Context, stmt string) (context.Context, context.CancelFunc) {
	d, _ := m.GetTimeoutWithPattern(stmt)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
