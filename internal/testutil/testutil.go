// Package testutil provides shared test utilities for toolguard tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/constants"
)

// SetupTestConfig points the config loader at a temporary directory, writes
// configContent there as config.toml when it is not empty, and loads it.
// Returns the directory. State is reset when the test ends.
func SetupTestConfig(t *testing.T, configContent string) string {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv(constants.EnvConfigDir, tmpDir)

	if configContent != "" {
		configPath := filepath.Join(tmpDir, constants.ConfigFileName)
		if err := os.WriteFile(configPath, []byte(configContent), constants.FileMode); err != nil {
			t.Fatal(err)
		}
	}

	config.Reset()
	if err := config.Init(); err != nil {
		t.Fatalf("config.Init() error = %v", err)
	}
	t.Cleanup(config.Reset)

	return tmpDir
}

// WriteStub writes an executable shell script with the given body and
// returns its path. Used to stand in for formatters and test runners.
func WriteStub(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// MinimalTestConfig is a minimal config for testing: one deny rule, one
// sensitive name, no tools.
const MinimalTestConfig = `
[[command.deny]]
name = "shutdown"
pattern = 'shutdown\s+'

[path]
dirs = []

[[path.files]]
name = "vault"
patterns = ["vault"]

[format]
tools = []

[test]
runners = []
`
