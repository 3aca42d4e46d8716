// toolguard - Claude Code hooks that guard and follow up on tool use
//
// Four hooks share one binary:
//
//	command-guard   PreToolUse  Bash             block dangerous shell commands
//	file-guard      PreToolUse  Read|Edit|Write  block access to sensitive files
//	auto-format     PostToolUse Edit|Write       run the formatter for the file
//	test-on-change  PostToolUse Edit|Write       run the related tests
//
// The exit status is the decision: 0 allow, 1 tool failure, 2 deny.
//
// Usage in ~/.claude/settings.json (or run `toolguard init`):
//
//	"hooks": {
//	  "PreToolUse": [{
//	    "matcher": "Bash",
//	    "hooks": [{"type": "command", "command": "toolguard command-guard"}]
//	  }]
//	}
//
// Test:
//
//	echo '{"tool_name": "Bash", "tool_input": {"command": "sudo rm -rf /"}}' | toolguard command-guard
package main

import (
	"os"

	"github.com/dgerlanc/toolguard/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
