package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder tokens are substitution points inside pattern templates.
// A token is written [NAME] with an uppercase name, which keeps it
// distinct from ordinary regexp character classes. Each token expands to a
// named capturing group with a fixed character class and length bound.
var defaultPlaceholders = map[string]string{
	"HABIT_PATTERN": `(?P<habit>[a-zA-Z ]+)`,
	"TASK_PATTERN":  `(?P<task_name>[a-zA-Z ]{5,50})`,
}

var placeholderToken = regexp.MustCompile(`\[([A-Z][A-Z0-9_]*)\]`)

// ExpandPattern substitutes every placeholder token in a template with its
// registered sub-expression. Expansion is purely textual; the result still
// needs compiling. A template referencing an unregistered token is an
// error, surfaced at table-build time rather than at first match.
func ExpandPattern(template string, placeholders map[string]string) (string, error) {
	var unknown []string
	expanded := placeholderToken.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		sub, ok := placeholders[name]
		if !ok {
			unknown = append(unknown, name)
			return token
		}
		return sub
	})

	if len(unknown) > 0 {
		return "", fmt.Errorf("pattern %q references unknown placeholder %s", template, strings.Join(unknown, ", "))
	}

	return expanded, nil
}
