package cmd

import (
	"fmt"
	"io"

	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/patterns"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and show compiled rules",
	Long: `Validate loads the toolguard configuration file and displays the compiled
rules, tool mappings and timeouts.

This is useful for:
- Checking that your config.toml or config.yaml syntax is correct
- Seeing what rules and tools will actually be used
- Debugging why a command or path was blocked`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := config.InitError(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("failed to load configuration")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration valid!")
	if path := config.GetConfigPath(); path != "" {
		fmt.Fprintf(out, "Loaded from: %s\n", path)
	} else {
		fmt.Fprintln(out, "Using built-in defaults")
	}
	fmt.Fprintln(out)

	printRules(out, "Command deny rules", cfg.CommandRules)
	printRules(out, "Sensitive file rules", cfg.FileRules)
	printRules(out, "Sensitive directory rules", cfg.DirRules)

	printTools(out, "Formatters", cfg.Formatters)
	fmt.Fprintf(out, "Format timeout: %s\n", cfg.FormatTimeout)
	fmt.Fprintln(out)

	printTools(out, "Test runners", cfg.TestRunners)
	printRules(out, "Test skip rules", cfg.TestSkip)
	fmt.Fprintf(out, "Test timeout: %s\n", cfg.TestTimeout)

	return nil
}

func printRules(w io.Writer, title string, rules []patterns.Rule) {
	fmt.Fprintf(w, "%s: %d\n", title, len(rules))
	for _, r := range rules {
		fmt.Fprintf(w, "  - %s\n", r)
	}
	fmt.Fprintln(w)
}

func printTools(w io.Writer, title string, tools []config.Tool) {
	fmt.Fprintf(w, "%s: %d\n", title, len(tools))
	for _, t := range tools {
		fmt.Fprintf(w, "  - %s %v: %s\n", t.Name, t.Extensions, t.Command)
	}
}
