package hook

import (
	"github.com/dgerlanc/toolguard/internal/decision"
	"github.com/dgerlanc/toolguard/internal/logger"
	"github.com/dgerlanc/toolguard/internal/patterns"
	"github.com/dgerlanc/toolguard/internal/policy"
)

// guardCommand blocks shell commands matching a deny rule.
func (d *Driver) guardCommand(res *Result, cmd string) {
	p := policy.Command{Rules: d.Config.CommandRules}
	rule, ok := p.Check(cmd)
	if !ok {
		return
	}
	logger.Debug("blocked command", "command", cmd, "rule", rule.Name)
	res.Rule = &rule
	res.Outcome = CommandBlocked(cmd, rule)
}

// guardPath blocks edits to sensitive files and directories.
func (d *Driver) guardPath(res *Result, path string) {
	p := policy.Path{Files: d.Config.FileRules, Dirs: d.Config.DirRules}
	rule, ok := p.Check(path)
	if !ok {
		return
	}
	logger.Debug("blocked path", "path", path, "rule", rule.Name, "scope", string(rule.Scope))
	res.Rule = &rule
	res.Outcome = PathBlocked(path, rule)
}

// CommandBlocked is the denial printed for a dangerous command.
func CommandBlocked(cmd string, rule patterns.Rule) decision.Outcome {
	return decision.Deny(
		"BLOCKED: Dangerous command pattern detected: "+rule.Pattern,
		"Command attempted: "+cmd,
		"",
		"If this is intentional, run manually outside the agent.",
	)
}

// PathBlocked is the denial printed for a sensitive path. Directory rules get
// the shorter message.
func PathBlocked(path string, rule patterns.Rule) decision.Outcome {
	if rule.Scope == patterns.ScopeDirectory {
		return decision.Deny(
			"BLOCKED: File in sensitive directory: "+path,
			"Pattern matched: "+rule.Pattern,
		)
	}
	return decision.Deny(
		"BLOCKED: Sensitive file access detected: "+path,
		"Pattern matched: "+rule.Pattern,
		"",
		"To edit sensitive files, use your editor directly.",
	)
}
