package hook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgerlanc/toolguard/internal/decision"
	"github.com/dgerlanc/toolguard/internal/logger"
	"github.com/dgerlanc/toolguard/internal/policy"
	"github.com/dgerlanc/toolguard/internal/runner"
)

// outputTailLines is how much tool output is echoed on failure.
const outputTailLines = 20

// format runs the formatter mapped to the file's extension.
func (d *Driver) format(ctx context.Context, res *Result, path string) {
	tool, ok := d.Config.Formatter(filepath.Ext(path))
	if !ok {
		res.Skipped = SkipUnmapped
		return
	}
	if _, err := d.stat(path); err != nil {
		logger.Debug("skipping format of missing file", "path", path, "error", err)
		res.Skipped = SkipNotFound
		return
	}

	inv := runner.Invocation{Args: tool.Argv(path), Timeout: d.Config.FormatTimeout}
	run := d.run(ctx, inv)
	res.Tool, res.Invocation, res.Run = &tool, &inv, &run

	switch run.Status {
	case runner.Success:
		res.Outcome = decision.Note("✓ Formatted " + path)
	case runner.Failure:
		res.Outcome = decision.Fail(withTail(failureLine("Formatter failed: "+tool.Name, run), run.Output)...)
	case runner.Missing:
		res.Outcome = decision.Fail("Formatter not available: " + tool.Name)
	case runner.Timeout:
		res.Outcome = decision.Fail(fmt.Sprintf("Formatter timeout: %s did not finish within %s", tool.Name, inv.Timeout))
	}
}

// test runs the test command mapped to the file's extension. Test files and
// the hook's own tree are skipped, and a missing runner is not an error.
func (d *Driver) test(ctx context.Context, res *Result, path string) {
	if rule, ok := policy.Evaluate(path, d.Config.TestSkip); ok {
		logger.Debug("skipping tests for excluded path", "path", path, "rule", rule.Name)
		res.Rule = &rule
		res.Skipped = SkipTestPath
		return
	}
	tool, ok := d.Config.TestRunner(filepath.Ext(path))
	if !ok {
		res.Skipped = SkipUnmapped
		return
	}

	inv := runner.Invocation{Args: tool.Argv(path), Dir: res.Record.Cwd, Timeout: d.Config.TestTimeout}
	run := d.run(ctx, inv)
	res.Tool, res.Invocation, res.Run = &tool, &inv, &run

	switch run.Status {
	case runner.Success:
		res.Outcome = decision.Note("✓ Tests passing for " + path)
	case runner.Failure:
		head := "⚠️ Tests failed after editing " + path
		if run.ExitCode < 0 && run.Err != nil {
			head = failureLine(head, run)
		}
		res.Outcome = decision.Fail(withTail(head, run.Output)...)
	case runner.Missing:
		logger.Debug("test runner not installed", "tool", tool.Name, "error", run.Err)
		res.Skipped = SkipToolNotFound
	case runner.Timeout:
		res.Outcome = decision.Fail(fmt.Sprintf("Test timeout for %s after %s", path, inv.Timeout))
	}
}

func (d *Driver) run(ctx context.Context, inv runner.Invocation) runner.Result {
	if d.Run == nil {
		return runner.Run(ctx, inv)
	}
	return d.Run(ctx, inv)
}

func (d *Driver) stat(path string) (os.FileInfo, error) {
	if d.Stat == nil {
		return os.Stat(path)
	}
	return d.Stat(path)
}

// failureLine names the exit status, or the start error when the tool never
// produced one.
func failureLine(prefix string, run runner.Result) string {
	if run.ExitCode < 0 && run.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, run.Err)
	}
	return fmt.Sprintf("%s exited with status %d", prefix, run.ExitCode)
}

// withTail appends the last lines of output to head.
func withTail(head, output string) []string {
	return append([]string{head}, tail(output, outputTailLines)...)
}

func tail(output string, n int) []string {
	output = strings.TrimRight(output, " \t\r\n")
	if output == "" {
		return nil
	}
	lines := strings.Split(output, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
