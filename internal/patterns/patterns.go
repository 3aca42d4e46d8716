// Package patterns provides the rule values that policies are built from.
//
// A rule is matched against one piece of text taken from an action: the full
// shell command, or a file path. How it matches depends on its Kind.
package patterns

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind selects the matching semantics of a rule.
type Kind string

const (
	// KindRegex is an unanchored, case-sensitive regular expression search.
	KindRegex Kind = "regex"
	// KindLiteral is case-insensitive substring containment.
	KindLiteral Kind = "literal"
	// KindDirectory is case-sensitive substring containment against the raw path.
	KindDirectory Kind = "directory"
)

// Scope names the text a rule is tested against.
type Scope string

const (
	ScopeCommand   Scope = "command"
	ScopePath      Scope = "path"
	ScopeDirectory Scope = "directory"
)

// Rule is a single immutable entry in a policy.
type Rule struct {
	Name    string // human-readable label, used in diagnostics only
	Pattern string // original pattern text
	Kind    Kind
	Scope   Scope
	Regex   *regexp.Regexp // set for KindRegex

	needle string // lowercased pattern for KindLiteral
}

// Regex compiles a regex rule over command text.
// Returns an error if the pattern is invalid.
func Regex(pattern, name string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	if name == "" {
		name = pattern
	}
	return Rule{Name: name, Pattern: pattern, Kind: KindRegex, Scope: ScopeCommand, Regex: re}, nil
}

// MustRegex is like Regex but panics if the pattern is invalid.
func MustRegex(pattern, name string) Rule {
	r, err := Regex(pattern, name)
	if err != nil {
		panic(err)
	}
	return r
}

// Literal builds a case-insensitive substring rule over a file path.
// ".env" matches "/app/.ENV.local".
func Literal(pattern, name string) Rule {
	if name == "" {
		name = pattern
	}
	return Rule{
		Name:    name,
		Pattern: pattern,
		Kind:    KindLiteral,
		Scope:   ScopePath,
		needle:  strings.ToLower(pattern),
	}
}

// Directory builds a substring rule matched against the raw path, intended
// for directory markers such as ".ssh/".
func Directory(pattern, name string) Rule {
	if name == "" {
		name = pattern
	}
	return Rule{Name: name, Pattern: pattern, Kind: KindDirectory, Scope: ScopeDirectory}
}

// Match reports whether the rule matches target. Empty targets and empty
// patterns never match.
func (r Rule) Match(target string) bool {
	if target == "" {
		return false
	}
	switch r.Kind {
	case KindRegex:
		return r.Regex != nil && r.Regex.MatchString(target)
	case KindLiteral:
		needle := r.needle
		if needle == "" {
			needle = strings.ToLower(r.Pattern)
		}
		return needle != "" && strings.Contains(strings.ToLower(target), needle)
	case KindDirectory:
		return r.Pattern != "" && strings.Contains(target, r.Pattern)
	}
	return false
}

// String returns the rule as "name: pattern" for listings.
func (r Rule) String() string {
	if r.Name == r.Pattern {
		return fmt.Sprintf("[%s] %s", r.Kind, r.Pattern)
	}
	return fmt.Sprintf("[%s] %s: %s", r.Kind, r.Name, r.Pattern)
}
