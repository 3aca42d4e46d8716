// Package hook implements the four tool-use hooks: two guards that block
// dangerous actions and two side-effect hooks that run a formatter or the
// tests after an edit.
package hook

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dgerlanc/toolguard/internal/action"
	"github.com/dgerlanc/toolguard/internal/audit"
	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/decision"
	"github.com/dgerlanc/toolguard/internal/logger"
	"github.com/dgerlanc/toolguard/internal/runner"
)

// Driver runs hooks against a configuration.
type Driver struct {
	Config *config.Config
	// Run executes external tools. Defaults to runner.Run.
	Run runner.Func
	// Stat checks that an edited file exists. Defaults to os.Stat.
	Stat func(name string) (os.FileInfo, error)
}

// New returns a Driver using cfg, the real process runner and the real
// filesystem.
func New(cfg *config.Config) *Driver {
	return &Driver{Config: cfg, Run: runner.Run, Stat: os.Stat}
}

// Process reads one record from r, handles it and writes an audit entry.
func (d *Driver) Process(ctx context.Context, name Name, r io.Reader) Result {
	start := time.Now()
	rec := action.Decode(r)
	res := d.Handle(ctx, name, rec)
	res.Duration = time.Since(start)
	logAudit(res)
	return res
}

// Handle evaluates rec for the named hook.
func (d *Driver) Handle(ctx context.Context, name Name, rec action.Record) Result {
	res := Result{Hook: name, Record: rec, Outcome: decision.Silent()}

	target := name.target(rec)
	log := logger.With("hook", string(name), "kind", rec.Kind.String())
	if target == "" {
		log.Debug("nothing to evaluate", "tool", rec.ToolName)
		res.Skipped = SkipNoTarget
		return res
	}

	switch name {
	case CommandGuard:
		d.guardCommand(&res, target)
	case FileGuard:
		d.guardPath(&res, target)
	case AutoFormat:
		d.format(ctx, &res, target)
	case TestOnChange:
		d.test(ctx, &res, target)
	default:
		log.Warn("unknown hook")
		res.Skipped = SkipUnknownHook
		return res
	}

	log.Debug("hook finished",
		"target", target,
		"decision", res.Outcome.Decision.String(),
		"skipped", res.Skipped)
	return res
}

// logAudit logs a hook decision to the audit log.
func logAudit(res Result) {
	entry := audit.Entry{
		DurationMs: ms(res.Duration),
		Hook:       string(res.Hook),
		Kind:       res.Record.Kind.String(),
		Target:     res.Hook.target(res.Record),
		Decision:   res.Outcome.Decision.String(),
		ExitCode:   res.ExitCode(),
		Skipped:    res.Skipped,
		SessionID:  res.Record.SessionID,
		ToolUseID:  res.Record.ToolUseID,
		Cwd:        res.Record.Cwd,
		Input:      res.Record.Raw,
		ConfigPath: config.GetConfigPath(),
	}
	if err := config.InitError(); err != nil {
		entry.ConfigError = err.Error()
	}
	if res.Rule != nil {
		entry.Rule = &audit.Rule{Name: res.Rule.Name, Pattern: res.Rule.Pattern, Kind: string(res.Rule.Kind)}
	}
	if res.Tool != nil {
		t := &audit.Tool{Name: res.Tool.Name}
		if res.Invocation != nil {
			t.Command = res.Invocation.String()
		}
		if res.Run != nil {
			t.Status = res.Run.Status.String()
			t.ExitCode = res.Run.ExitCode
			t.DurationMs = ms(res.Run.Duration)
		}
		entry.Tool = t
	}
	if err := audit.Log(entry); err != nil {
		logger.Debug("failed to write audit entry", "error", err)
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
