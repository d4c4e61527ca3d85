// Normalization of merged toolpaths for golden output comparison.
//
// Two merges of the same inputs can differ in ways a regression check
// should not care about: build progress annotations, trailing
// whitespace, or comment text when a case is compared without comments.
// A Normalizer applies a declarative list of rules to both sides before
// they are compared.
//
// Usage:
//
//	n := normalize.New("cube")
//	n.Register(normalize.Rule{
//		Type:        normalize.RemoveRuleType,
//		Pattern:     []string{"M73 P"},
//		Description: "Drop build progress",
//	})
//	got := n.Apply(lines)
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package normalize

import (
	"strings"
)

// RuleType defines the type of normalization rule.
type RuleType int

const (
	// RemoveRuleType removes every block matching Pattern.
	RemoveRuleType RuleType = iota

	// TransformRuleType rewrites every line through Transform, dropping
	// the lines it does not keep.
	TransformRuleType
)

func (t RuleType) String() string {
	switch t {
	case RemoveRuleType:
		return "remove"
	case TransformRuleType:
		return "transform"
	default:
		return "unknown"
	}
}

// Rule is a single normalization rule. Pattern entries match line
// prefixes, so "M73 P" matches every progress line.
type Rule struct {
	Type    RuleType
	Pattern []string

	// For TransformRuleType: returns the rewritten line and whether to
	// keep it.
	Transform func(line string) (string, bool)

	Description string
}

// Normalizer holds the rules for one comparison case.
type Normalizer struct {
	name  string
	rules []Rule
}

// New creates an empty Normalizer for the named case.
func New(name string) *Normalizer {
	return &Normalizer{name: name}
}

// Name returns the case name.
func (n *Normalizer) Name() string { return n.name }

// Rules returns the registered rules in application order.
func (n *Normalizer) Rules() []Rule { return n.rules }

// Register appends a rule.
func (n *Normalizer) Register(rule Rule) {
	rule.Description = strings.TrimSpace(rule.Description)
	n.rules = append(n.rules, rule)
}

// Apply runs every rule in order over a copy of lines.
func (n *Normalizer) Apply(lines []string) []string {
	result := append([]string(nil), lines...)
	for _, rule := range n.rules {
		if rule.Type == TransformRuleType {
			result = transform(result, rule)
			continue
		}
		result = removeBlocks(result, rule)
	}
	return result
}

// matchAt reports whether pattern matches the block starting at lines[i].
func matchAt(lines []string, i int, pattern []string) bool {
	if i+len(pattern) > len(lines) {
		return false
	}
	for j, prefix := range pattern {
		if !strings.HasPrefix(lines[i+j], prefix) {
			return false
		}
	}
	return true
}

// removeBlocks drops every non-overlapping match of rule.Pattern.
func removeBlocks(lines []string, rule Rule) []string {
	if len(rule.Pattern) == 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if !matchAt(lines, i, rule.Pattern) {
			out = append(out, lines[i])
			continue
		}
		i += len(rule.Pattern) - 1
	}
	return out
}

func transform(lines []string, rule Rule) []string {
	if rule.Transform == nil {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s, keep := rule.Transform(line); keep {
			out = append(out, s)
		}
	}
	return out
}

// Mismatch describes the first line where two toolpaths differ. Line is
// 1-based; a missing side is reported as "<eof>".
type Mismatch struct {
	Line     int
	Expected string
	Actual   string
}

// Compare returns the first difference between expected and actual, or
// nil when they are equal.
func Compare(expected, actual []string) *Mismatch {
	for i := 0; i < len(expected) || i < len(actual); i++ {
		want, got := "<eof>", "<eof>"
		if i < len(expected) {
			want = expected[i]
		}
		if i < len(actual) {
			got = actual[i]
		}
		if want != got || i >= len(expected) || i >= len(actual) {
			return &Mismatch{Line: i + 1, Expected: want, Actual: got}
		}
	}
	return nil
}
