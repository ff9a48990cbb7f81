// pattern.go defines the match types used by the filter stage.

package faultline

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern matches event text for filtering decisions. String patterns use
// the defined match semantics of the list they appear in (exact for ignored
// messages, substring for URLs); pattern objects apply their own test.
type Pattern interface {
	matches(value string, exact bool) bool
}

// Literal matches by exact comparison when the list requires it, substring
// containment otherwise.
type Literal string

func (p Literal) matches(value string, exact bool) bool {
	if exact {
		return value == string(p)
	}
	return strings.Contains(value, string(p))
}

// regexPattern applies a compiled regular expression.
type regexPattern struct {
	re *regexp.Regexp
}

// Regex wraps a compiled regular expression as a Pattern.
func Regex(re *regexp.Regexp) Pattern {
	return regexPattern{re: re}
}

func (p regexPattern) matches(value string, _ bool) bool {
	return p.re != nil && p.re.MatchString(value)
}

// Glob matches doublestar glob syntax, convenient for URL and path lists
// ("**/vendor/*.js"). A pattern that fails to parse matches nothing.
type Glob string

func (p Glob) matches(value string, _ bool) bool {
	ok, err := doublestar.Match(string(p), value)
	return err == nil && ok
}

// ParsePattern builds a Pattern from its string form: "re:" prefixes compile
// to a regular expression, "glob:" prefixes to a glob, anything else is a
// literal. Used by configuration surfaces that read pattern lists as strings.
func ParsePattern(s string) (Pattern, error) {
	switch {
	case strings.HasPrefix(s, "re:"):
		re, err := regexp.Compile(strings.TrimPrefix(s, "re:"))
		if err != nil {
			return nil, err
		}
		return Regex(re), nil
	case strings.HasPrefix(s, "glob:"):
		return Glob(strings.TrimPrefix(s, "glob:")), nil
	default:
		return Literal(s), nil
	}
}

// ParsePatterns converts a list of string forms, failing on the first
// malformed entry.
func ParsePatterns(values []string) ([]Pattern, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]Pattern, 0, len(values))
	for _, v := range values {
		p, err := ParsePattern(v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// matchesAny reports whether any pattern matches the value.
func matchesAny(value string, patterns []Pattern, exact bool) bool {
	for _, p := range patterns {
		if p != nil && p.matches(value, exact) {
			return true
		}
	}
	return false
}
