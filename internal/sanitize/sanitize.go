// Package sanitize redacts string values in normalized result rows.
package sanitize

import (
	"fmt"
	"regexp"
)

// Rule replaces Pattern matches with Replacement. When Column is set, the
// rule only applies to columns whose name matches that regex.
type Rule struct {
	Pattern     string
	Replacement string
	Column      string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
	column      *regexp.Regexp
}

// Sanitizer applies rules in order to every string in a row, recursing into
// lists, sets, tuples, maps and UDTs.
type Sanitizer struct {
	rules []compiledRule
}

// NewSanitizer compiles the rules. Returns an error on invalid regex patterns.
func NewSanitizer(rules []Rule) (*Sanitizer, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
		if r.Column != "" {
			col, err := regexp.Compile(r.Column)
			if err != nil {
				return nil, fmt.Errorf("sanitize: invalid column pattern %q: %v", r.Column, err)
			}
			compiled[i].column = col
		}
	}
	return &Sanitizer{rules: compiled}, nil
}

// HasRules reports whether any rule is configured.
func (s *Sanitizer) HasRules() bool {
	return len(s.rules) > 0
}

// SanitizeRows rewrites rows in place and returns them. Rows must be
// normalized (see package normalize), so every value is nil, bool, number,
// string, []any or map[string]any.
func (s *Sanitizer) SanitizeRows(rows []map[string]any) []map[string]any {
	if !s.HasRules() {
		return rows
	}
	for _, row := range rows {
		for col, v := range row {
			row[col] = s.sanitizeColumn(col, v)
		}
	}
	return rows
}

func (s *Sanitizer) sanitizeColumn(col string, v any) any {
	for _, rule := range s.rules {
		if rule.column != nil && !rule.column.MatchString(col) {
			continue
		}
		v = rule.apply(v)
	}
	return v
}

func (r compiledRule) apply(v any) any {
	switch val := v.(type) {
	case string:
		return r.pattern.ReplaceAllString(val, r.replacement)
	case map[string]any:
		for k, e := range val {
			val[k] = r.apply(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = r.apply(e)
		}
		return val
	default:
		// json.Number is a string type but does not match `case string`.
		return v
	}
}
