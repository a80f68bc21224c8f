package agent

import (
	"fmt"
	"strings"
)

// pluralize appends "s" to a noun unless the count is exactly one.
func pluralize(noun string, count int) string {
	if count == 1 {
		return noun
	}

	return noun + "s"
}

// joinAnd joins items the way a sentence would: "a", "a and b",
// "a and b and c".
func joinAnd(items []string) string {
	return strings.Join(items, " and ")
}

// joinSpeech joins non-empty fragments with single spaces.
func joinSpeech(fragments ...string) string {
	parts := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		parts = append(parts, fragment)
	}

	return strings.Join(parts, " ")
}

// countNoun renders "3 tasks" style phrases.
func countNoun(count int, noun string) string {
	return fmt.Sprintf("%d %s", count, pluralize(noun, count))
}
