package trigger

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// keywordSet is a YAML-defined list of regex patterns; a title or text
// matches the set if any pattern matches, case-insensitively. Grounded on
// the teacher's reflex.Trigger pattern-compile-and-cache idiom
// (internal/reflex/types.go), simplified here to a flat pattern list rather
// than a single-pattern-per-rule.
type keywordSet struct {
	Patterns []string `yaml:"patterns"`
	compiled []*regexp.Regexp
}

// defaultErrorPatterns is used when no YAML pattern file is configured;
// it matches the common vocabulary of on-screen error states.
var defaultErrorPatterns = []string{
	`(?i)\berror\b`,
	`(?i)\bexception\b`,
	`(?i)\bfailed\b`,
	`(?i)\bfailure\b`,
	`(?i)\bfatal\b`,
	`(?i)\bcrash(?:ed)?\b`,
	`(?i)\bpanic\b`,
	`(?i)\bnot responding\b`,
	`(?i)\bstack trace\b`,
}

// newKeywordSet compiles patterns case-insensitively and returns an error
// for the first one that fails to compile. An empty or nil patterns list
// falls back to defaultErrorPatterns.
func newKeywordSet(patterns []string) (*keywordSet, error) {
	if len(patterns) == 0 {
		patterns = defaultErrorPatterns
	}
	ks := &keywordSet{Patterns: patterns}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("trigger: compile pattern %q: %w", p, err)
		}
		ks.compiled = append(ks.compiled, re)
	}
	return ks, nil
}

// loadKeywordSetFromYAML reads a patterns.yaml file of the form
// `patterns: ["...", "..."]`, matching the engine's own reflex-file loading
// convention (internal/reflex/engine.go).
func loadKeywordSetFromYAML(path string) (*keywordSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trigger: read keyword file: %w", err)
	}
	var ks keywordSet
	if err := yaml.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("trigger: parse keyword file: %w", err)
	}
	return newKeywordSet(ks.Patterns)
}

// Matches reports whether any compiled pattern matches s.
func (ks *keywordSet) Matches(s string) bool {
	if ks == nil || s == "" {
		return false
	}
	for _, re := range ks.compiled {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
