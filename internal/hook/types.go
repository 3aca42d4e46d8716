package hook

/*
Type Relationships in the hook package:

Data Flow:
  stdin (JSON from the host)
    → action.Decode() → action.Record
    → Driver.Handle(name, record)
      → command-guard:  policy.Command.Check() → patterns.Rule
      → file-guard:     policy.Path.Check()    → patterns.Rule
      → auto-format:    config.Formatter()  → runner.Run() → runner.Result
      → test-on-change: config.TestRunner() → runner.Run() → runner.Result
    → Result (returned to caller, logged to audit)
    → decision.Signal() → exit status

Related packages:
  - config.Config: rule lists, tool mappings and timeouts
  - decision.Outcome: the decision plus the lines printed for it
  - audit.Entry: logged for each invocation when audit is enabled
*/

import (
	"time"

	"github.com/dgerlanc/toolguard/internal/action"
	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/decision"
	"github.com/dgerlanc/toolguard/internal/patterns"
	"github.com/dgerlanc/toolguard/internal/runner"
)

// Name identifies a hook. It is also the subcommand and multi-call name.
type Name string

const (
	CommandGuard Name = "command-guard"
	FileGuard    Name = "file-guard"
	AutoFormat   Name = "auto-format"
	TestOnChange Name = "test-on-change"
)

// Names returns every hook in a stable order.
func Names() []Name {
	return []Name{CommandGuard, FileGuard, AutoFormat, TestOnChange}
}

// Lookup returns the hook called s.
func Lookup(s string) (Name, bool) {
	for _, n := range Names() {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// target returns the part of rec the hook acts on.
func (n Name) target(rec action.Record) string {
	if n == CommandGuard {
		return rec.Command
	}
	return rec.FilePath
}

// Reasons a hook allowed without evaluating anything.
const (
	SkipNoTarget     = "no target"
	SkipUnmapped     = "no tool for extension"
	SkipNotFound     = "file does not exist"
	SkipTestPath     = "excluded path"
	SkipUnknownHook  = "unknown hook"
	SkipToolNotFound = "tool not installed"
)

// Result contains the outcome of one hook invocation.
type Result struct {
	Hook    Name
	Record  action.Record
	Outcome decision.Outcome

	Rule       *patterns.Rule     // matched deny or skip rule
	Tool       *config.Tool       // tool selected, side-effect hooks only
	Invocation *runner.Invocation // what was run
	Run        *runner.Result     // how it ended
	Skipped    string             // why nothing was evaluated, if so

	Duration time.Duration
}

// ExitCode returns the process status for the result.
func (r Result) ExitCode() int {
	return r.Outcome.Decision.ExitCode()
}
