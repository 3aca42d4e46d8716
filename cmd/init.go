package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/constants"
	"github.com/spf13/cobra"
)

var (
	initForce          bool
	initConfigOnly     bool
	initClaudeSettings string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration and register the hooks",
	Long: `Initialize writes the default toolguard configuration and registers the four
hooks in Claude Code's settings.

The config file is written to ~/.config/toolguard/config.toml (or the directory
given by the ` + constants.EnvConfigDir + ` environment variable). An existing file is kept
unless --force is given.

Hooks are added to ~/.claude/settings.json unless --config-only is given.
Existing settings and hooks are preserved.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
	initCmd.Flags().BoolVar(&initConfigOnly, "config-only", false, "Only write the config file, leave Claude settings alone")
	initCmd.Flags().StringVar(&initClaudeSettings, "claude-settings", "", "Path to Claude settings.json (default ~/.claude/settings.json)")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, constants.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Fprintf(out, "Config file already exists at %s (use --force to overwrite)\n", configPath)
	} else {
		if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, config.GetDefaultConfig(), constants.FileMode); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Fprintf(out, "Configuration written to: %s\n", configPath)
	}

	if initConfigOnly {
		fmt.Fprintln(out, "Run 'toolguard validate' to verify your configuration.")
		return nil
	}

	settingsPath := initClaudeSettings
	if settingsPath == "" {
		if settingsPath, err = defaultSettingsPath(); err != nil {
			return fmt.Errorf("failed to locate Claude settings: %w", err)
		}
	}
	added, err := installHooks(settingsPath)
	if err != nil {
		return err
	}
	if added == 0 {
		fmt.Fprintf(out, "Hooks already registered in %s\n", settingsPath)
	} else {
		fmt.Fprintf(out, "Registered %d hooks in %s\n", added, settingsPath)
	}
	fmt.Fprintln(out, "Run 'toolguard validate' to verify your configuration.")

	return nil
}
