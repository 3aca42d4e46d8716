// Package cmd implements the CLI commands for toolguard.
package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgerlanc/toolguard/internal/audit"
	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/constants"
	"github.com/dgerlanc/toolguard/internal/hook"
	"github.com/dgerlanc/toolguard/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	noAuditLog bool

	// exitCode is set by hook subcommands; maintenance commands leave it at 0.
	exitCode int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolguard",
	Short: "Guard and follow-up hooks for coding agent tool use",
	Long: `toolguard is a set of hooks for Claude Code. Two guards run before a tool
is used and block dangerous shell commands or edits to sensitive files. Two
follow-up hooks run after a file edit and format it or run the related tests.

Each hook reads one JSON record on stdin. The exit status is the decision:
0 allow, 1 tool failure (not a denial), 2 deny.

Usage in ~/.claude/settings.json:
  "hooks": {
    "PreToolUse": [
      {"matcher": "Bash", "hooks": [{"type": "command", "command": "toolguard command-guard"}]},
      {"matcher": "Read|Edit|MultiEdit|Write", "hooks": [{"type": "command", "command": "toolguard file-guard"}]}
    ],
    "PostToolUse": [
      {"matcher": "Edit|MultiEdit|Write", "hooks": [
        {"type": "command", "command": "toolguard auto-format"},
        {"type": "command", "command": "toolguard test-on-change"}
      ]}
    ]
  }

A hook also runs when the binary is invoked under its name, e.g. through a
symlink named command-guard.`,
	// Silence usage on errors
	SilenceUsage: true,
}

// Execute runs the CLI with the process arguments and returns the exit status.
func Execute() int {
	return execute(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	exitCode = constants.ExitAllow
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(commandArgs(argv))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return constants.ExitFailure
	}
	return exitCode
}

// commandArgs returns the cobra arguments for argv. When the executable's
// name is a hook name, that hook runs and the remaining arguments are kept.
func commandArgs(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	base := strings.TrimSuffix(filepath.Base(argv[0]), ".exe")
	if name, ok := hook.Lookup(base); ok {
		return append([]string{string(name)}, argv[1:]...)
	}
	return argv[1:]
}

func init() {
	// Initialize before running any command
	cobra.OnInitialize(initApp)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging, or set "+constants.EnvDebug+")")
	rootCmd.PersistentFlags().BoolVar(&noAuditLog, "no-audit-log", false, "Disable audit logging")
}

// initApp initializes the application (logger, config, audit)
func initApp() {
	debug := verbose
	if env, err := config.LoadEnv(); err == nil && env.Debug {
		debug = true
	}
	logger.Init(logger.Options{Verbose: debug, Output: rootCmd.ErrOrStderr()})

	if err := config.Init(); err != nil {
		logger.Warn("using default configuration", "error", err)
	}

	cfg := config.Get()
	if cfg.Audit.Enabled && !noAuditLog {
		if err := audit.Init(cfg.Audit.Path, cfg.Audit.MaxSizeMB, false); err != nil {
			logger.Debug("audit log unavailable", "error", err)
		}
	}
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}
