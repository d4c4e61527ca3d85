// Predefined normalization rules for merged toolpaths.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package normalize

import (
	"strings"
)

// RegisterProgressRules drops build progress annotations, whose
// percentages shift whenever a layer is added or removed.
func RegisterProgressRules(n *Normalizer) {
	n.Register(Rule{
		Type:        RemoveRuleType,
		Pattern:     []string{"M73 P"},
		Description: "Drop build progress",
	})
}

// RegisterWhitespaceRules trims each line and collapses runs of blanks
// between words.
func RegisterWhitespaceRules(n *Normalizer) {
	n.Register(Rule{
		Type: TransformRuleType,
		Transform: func(line string) (string, bool) {
			return strings.Join(strings.Fields(line), " "), true
		},
		Description: "Canonical spacing",
	})
}

// RegisterCommentRules drops comment-only lines and strips trailing
// comments, so a case can be checked against output made without them.
func RegisterCommentRules(n *Normalizer) {
	n.Register(Rule{
		Type: TransformRuleType,
		Transform: func(line string) (string, bool) {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "(") || strings.HasPrefix(trimmed, ";") {
				return "", false
			}
			if i := strings.IndexAny(trimmed, "(;"); i >= 0 {
				trimmed = strings.TrimSpace(trimmed[:i])
			}
			return trimmed, true
		},
		Description: "Drop comments",
	})
}

// ForCase returns the normalizer used for a golden case. Comment
// stripping is opt-in.
func ForCase(name string, stripComments bool) *Normalizer {
	n := New(name)
	RegisterProgressRules(n)
	if stripComments {
		RegisterCommentRules(n)
	}
	RegisterWhitespaceRules(n)
	return n
}
