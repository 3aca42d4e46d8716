// Package policy evaluates action targets against ordered rule lists.
package policy

import (
	"github.com/dgerlanc/toolguard/internal/patterns"
)

// Evaluate scans rules in order and returns the first one matching target.
// An empty target never matches: there is nothing to evaluate.
func Evaluate(target string, rules []patterns.Rule) (patterns.Rule, bool) {
	if target == "" {
		return patterns.Rule{}, false
	}
	for _, r := range rules {
		if r.Match(target) {
			return r, true
		}
	}
	return patterns.Rule{}, false
}

// Command blocks shell commands by regex.
type Command struct {
	Rules []patterns.Rule
}

// Check evaluates the full command text.
func (c Command) Check(command string) (patterns.Rule, bool) {
	return Evaluate(command, c.Rules)
}

// Path blocks file paths in two tiers: file name or extension substrings
// first, then sensitive directory markers.
type Path struct {
	Files []patterns.Rule
	Dirs  []patterns.Rule
}

// Check evaluates a file path. The returned rule's Scope tells which tier
// matched.
func (p Path) Check(path string) (patterns.Rule, bool) {
	if r, ok := Evaluate(path, p.Files); ok {
		return r, true
	}
	return Evaluate(path, p.Dirs)
}
