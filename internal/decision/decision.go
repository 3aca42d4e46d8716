// Package decision maps hook outcomes onto the exit status and message
// streams the host understands.
//
// The exit status is the only control signal. Text is for humans and is never
// parsed by the host.
package decision

import (
	"fmt"
	"io"

	"github.com/dgerlanc/toolguard/internal/constants"
)

// Decision is the closed set of hook results.
type Decision int

const (
	// Allow lets the action proceed without a message.
	Allow Decision = iota
	// AllowWithNote lets the action proceed and prints a note on stdout.
	AllowWithNote
	// Block denies the action. Message on stderr, exit 2.
	Block
	// ExternalFailure reports a failed, missing or timed-out tool. Message on
	// stderr, exit 1. Never a denial.
	ExternalFailure
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case AllowWithNote:
		return "allow_with_note"
	case Block:
		return "block"
	case ExternalFailure:
		return "external_failure"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// ExitCode returns the process status for d.
func (d Decision) ExitCode() int {
	switch d {
	case Block:
		return constants.ExitDeny
	case ExternalFailure:
		return constants.ExitFailure
	}
	return constants.ExitAllow
}

// Outcome is a decision plus the lines to print for it.
type Outcome struct {
	Decision Decision
	Lines    []string
}

// Silent allows without output.
func Silent() Outcome {
	return Outcome{Decision: Allow}
}

// Note allows and prints lines on stdout.
func Note(lines ...string) Outcome {
	return Outcome{Decision: AllowWithNote, Lines: lines}
}

// Deny blocks and prints lines on stderr.
func Deny(lines ...string) Outcome {
	return Outcome{Decision: Block, Lines: lines}
}

// Fail reports an external failure and prints lines on stderr.
func Fail(lines ...string) Outcome {
	return Outcome{Decision: ExternalFailure, Lines: lines}
}

// Signal writes o's lines to the stream its decision calls for and returns
// the exit status. Allow prints nothing even when lines are set.
func Signal(stdout, stderr io.Writer, o Outcome) int {
	var w io.Writer
	switch o.Decision {
	case AllowWithNote:
		w = stdout
	case Block, ExternalFailure:
		w = stderr
	}
	if w != nil {
		for _, line := range o.Lines {
			fmt.Fprintln(w, line)
		}
	}
	return o.Decision.ExitCode()
}
