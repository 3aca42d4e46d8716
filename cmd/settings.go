package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgerlanc/toolguard/internal/constants"
	"github.com/dgerlanc/toolguard/internal/hook"
)

// Matchers used when registering hooks.
const (
	matcherBash  = "Bash"
	matcherFiles = "Read|Edit|MultiEdit|Write"
	matcherEdits = "Edit|MultiEdit|Write"
)

// hookBinding ties a hook to the settings event and tool matcher it runs under.
type hookBinding struct {
	Event   string
	Matcher string
	Hook    hook.Name
}

var hookBindings = []hookBinding{
	{Event: "PreToolUse", Matcher: matcherBash, Hook: hook.CommandGuard},
	{Event: "PreToolUse", Matcher: matcherFiles, Hook: hook.FileGuard},
	{Event: "PostToolUse", Matcher: matcherEdits, Hook: hook.AutoFormat},
	{Event: "PostToolUse", Matcher: matcherEdits, Hook: hook.TestOnChange},
}

// hookCommand is the settings command line for a hook.
func hookCommand(n hook.Name) string {
	return constants.AppName + " " + string(n)
}

// defaultSettingsPath returns ~/.claude/settings.json
func defaultSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.ClaudeConfigDir, "settings.json"), nil
}

// isHookPresent reports whether settings already run b's hook under b's event
// and matcher.
func isHookPresent(settings map[string]any, b hookBinding) bool {
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		return false
	}
	entries, ok := hooks[b.Event].([]any)
	if !ok {
		return false
	}
	want := hookCommand(b.Hook)
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok || entry["matcher"] != b.Matcher {
			continue
		}
		list, _ := entry["hooks"].([]any)
		for _, h := range list {
			if hm, ok := h.(map[string]any); ok && hm["command"] == want {
				return true
			}
		}
	}
	return false
}

// addHooks registers every missing binding in settings and returns the
// updated settings with the number of hooks added. Unrelated keys, events
// and matchers are kept.
func addHooks(settings map[string]any) (map[string]any, int) {
	if settings == nil {
		settings = map[string]any{}
	}
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		hooks = map[string]any{}
		settings["hooks"] = hooks
	}

	added := 0
	for _, b := range hookBindings {
		if isHookPresent(settings, b) {
			continue
		}
		entries, _ := hooks[b.Event].([]any)
		command := map[string]any{"type": "command", "command": hookCommand(b.Hook)}

		merged := false
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok || entry["matcher"] != b.Matcher {
				continue
			}
			list, _ := entry["hooks"].([]any)
			entry["hooks"] = append(list, command)
			merged = true
			break
		}
		if !merged {
			entries = append(entries, map[string]any{
				"matcher": b.Matcher,
				"hooks":   []any{command},
			})
		}
		hooks[b.Event] = entries
		added++
	}
	return settings, added
}

// installHooks adds the hooks to the settings file at path, creating it if
// needed.
func installHooks(path string) (int, error) {
	var settings map[string]any
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &settings); err != nil {
			return 0, fmt.Errorf("failed to parse %s: invalid JSON: %w", path, err)
		}
	case !os.IsNotExist(err):
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	settings, added := addHooks(settings)
	if added == 0 {
		return 0, nil
	}

	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		return 0, fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), constants.FileMode); err != nil {
		return 0, fmt.Errorf("failed to write settings: %w", err)
	}
	return added, nil
}
