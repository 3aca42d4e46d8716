package cmd

import (
	"context"
	"io"

	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/decision"
	"github.com/dgerlanc/toolguard/internal/hook"
	"github.com/spf13/cobra"
)

var hookCmds = []struct {
	name  hook.Name
	short string
	long  string
}{
	{
		name:  hook.CommandGuard,
		short: "Block dangerous shell commands (PreToolUse, Bash)",
		long: `command-guard reads a Bash tool-use record on stdin and exits 2 when the
command matches a deny rule, printing the rule on stderr. Any other command,
and any record without a command, exits 0 silently.`,
	},
	{
		name:  hook.FileGuard,
		short: "Block edits to sensitive files (PreToolUse, Edit|Write)",
		long: `file-guard reads a file tool-use record on stdin and exits 2 when the path
names a sensitive file (keys, credentials, env files) or lies in a sensitive
directory. Any other path exits 0 silently.`,
	},
	{
		name:  hook.AutoFormat,
		short: "Format an edited file (PostToolUse, Edit|Write)",
		long: `auto-format runs the formatter mapped to the edited file's extension. It
exits 0 with a note on success and 1 when the formatter fails, is not
installed or times out. Unmapped extensions and missing files are skipped.`,
	},
	{
		name:  hook.TestOnChange,
		short: "Run related tests after an edit (PostToolUse, Edit|Write)",
		long: `test-on-change runs the test command mapped to the edited file's extension.
It exits 0 with a note when tests pass and 1 when they fail or time out.
Test files, the .claude tree, unmapped extensions and missing test runners are
skipped silently.`,
	},
}

func init() {
	for _, h := range hookCmds {
		name := h.name
		rootCmd.AddCommand(&cobra.Command{
			Use:   string(name),
			Short: h.short,
			Long:  h.long,
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				exitCode = runHook(cmd.Context(), name, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			},
		})
	}
}

// runHook processes one record and signals the decision.
func runHook(ctx context.Context, name hook.Name, stdin io.Reader, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	res := hook.New(config.Get()).Process(ctx, name, stdin)
	return decision.Signal(stdout, stderr, res.Outcome)
}
