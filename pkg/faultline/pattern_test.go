package faultline

import (
	"regexp"
	"testing"
)

func TestLiteral_ExactVersusSubstring(t *testing.T) {
	p := Literal("Script error.")

	if !p.matches("Script error.", true) {
		t.Error("exact mode should match the identical string")
	}
	if p.matches("Script error. extra context", true) {
		t.Error("exact mode must not match a superstring")
	}
	if !p.matches("https://host/Script error./x", false) {
		t.Error("substring mode should match containment")
	}
}

func TestRegexAndGlob(t *testing.T) {
	re := Regex(regexp.MustCompile(`^context (canceled|deadline exceeded)$`))
	if !re.matches("context canceled", true) || re.matches("wrapped: context canceled", true) {
		t.Error("regex pattern should apply its own anchors regardless of mode")
	}

	g := Glob("**/vendor/*.js")
	if !g.matches("https:/host/assets/vendor/jquery.js", false) {
		t.Error("glob should match nested vendor paths")
	}
	if g.matches("https:/host/app.js", false) {
		t.Error("glob must not match unrelated paths")
	}
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("re:^boom$")
	if err != nil {
		t.Fatalf("ParsePattern(re:...) error: %v", err)
	}
	if !p.matches("boom", true) || p.matches("kaboom", true) {
		t.Error("re: prefix should compile to an anchored regex")
	}

	p, err = ParsePattern("glob:*.js")
	if err != nil {
		t.Fatalf("ParsePattern(glob:...) error: %v", err)
	}
	if !p.matches("app.js", false) {
		t.Error("glob: prefix should compile to a glob")
	}

	p, err = ParsePattern("plain text")
	if err != nil {
		t.Fatalf("ParsePattern(literal) error: %v", err)
	}
	if _, ok := p.(Literal); !ok {
		t.Errorf("unprefixed pattern should be a Literal, got %T", p)
	}

	if _, err := ParsePattern("re:[unclosed"); err == nil {
		t.Error("malformed regex should fail to parse")
	}
}

func TestParsePatterns(t *testing.T) {
	ps, err := ParsePatterns([]string{"a", "re:^b$", "glob:c/*"})
	if err != nil {
		t.Fatalf("ParsePatterns error: %v", err)
	}
	if len(ps) != 3 {
		t.Fatalf("got %d patterns, want 3", len(ps))
	}

	if _, err := ParsePatterns([]string{"ok", "re:["}); err == nil {
		t.Error("first malformed entry should fail the whole list")
	}

	ps, err = ParsePatterns(nil)
	if err != nil || ps != nil {
		t.Error("empty input should yield nil, nil")
	}
}

func TestMatchesAny(t *testing.T) {
	patterns := []Pattern{nil, Literal("one"), Literal("two")}
	if !matchesAny("two", patterns, true) {
		t.Error("should match the second pattern and tolerate a nil entry")
	}
	if matchesAny("three", patterns, true) {
		t.Error("should not match")
	}
}
