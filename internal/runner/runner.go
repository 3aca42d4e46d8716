// Package runner invokes external tools with a wall-clock bound and
// classifies how they ended.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dgerlanc/toolguard/internal/logger"
	"mvdan.cc/sh/v3/syntax"
)

var (
	// ErrEmptyCommand is returned for invocations with no arguments.
	ErrEmptyCommand = errors.New("empty command")
	// ErrBadDir is returned when the working directory cannot be used.
	ErrBadDir = errors.New("working directory unavailable")
)

// waitDelay bounds how long Wait blocks on inherited pipes after the process
// group has been killed.
const waitDelay = 2 * time.Second

// Status classifies how an invocation ended.
type Status int

const (
	Success Status = iota
	Failure
	Missing
	Timeout
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Missing:
		return "missing"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Invocation is one external command line.
type Invocation struct {
	Args    []string
	Dir     string // working directory, "" for the current one
	Timeout time.Duration
}

// Name returns the executable name.
func (inv Invocation) Name() string {
	if len(inv.Args) == 0 {
		return ""
	}
	return inv.Args[0]
}

// String renders the command line with shell quoting, for diagnostics.
func (inv Invocation) String() string {
	words := make([]string, 0, len(inv.Args))
	for _, a := range inv.Args {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", a)
		}
		words = append(words, q)
	}
	return strings.Join(words, " ")
}

// Result is the classified outcome of an invocation.
type Result struct {
	Status   Status
	ExitCode int    // meaningful for Success and Failure
	Output   string // combined stdout and stderr
	Duration time.Duration
	Err      error
}

// Func is the signature of Run, so callers can swap in a stub.
type Func func(ctx context.Context, inv Invocation) Result

// Run executes inv and waits for it to finish or for its timeout to pass.
// On timeout the whole process group is killed.
func Run(ctx context.Context, inv Invocation) Result {
	if len(inv.Args) == 0 {
		return Result{Status: Missing, ExitCode: -1, Err: ErrEmptyCommand}
	}
	// A bad dir fails exec with ENOENT, which would read as a missing tool.
	if err := checkDir(inv.Dir); err != nil {
		logger.Debug("external command not started", "command", inv.String(), "error", err)
		return Result{Status: Failure, ExitCode: -1, Err: err}
	}

	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Dir = inv.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	prepareCommandTree(cmd)
	cmd.Cancel = func() error { return killCommandTree(cmd) }
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Output:   out.String(),
		Duration: time.Since(start),
		Err:      err,
	}
	res.Status, res.ExitCode = classify(ctx, err)

	logger.Debug("external command finished",
		"command", inv.String(),
		"status", res.Status.String(),
		"exit_code", res.ExitCode,
		"duration", res.Duration)
	return res
}

func checkDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrBadDir, dir)
	}
	return nil
}

// classify maps the error from cmd.Run onto a Status.
func classify(ctx context.Context, err error) (Status, int) {
	if err == nil {
		return Success, 0
	}
	if ctx.Err() != nil {
		return Timeout, -1
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Failure, exitErr.ExitCode()
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return Missing, -1
	}
	return Failure, -1
}
