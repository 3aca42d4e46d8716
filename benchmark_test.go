package main

import (
	"context"
	"strings"
	"testing"

	"github.com/dgerlanc/toolguard/internal/action"
	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/hook"
	"github.com/dgerlanc/toolguard/internal/policy"
	"github.com/dgerlanc/toolguard/internal/runner"
)

// BenchmarkCommandPolicy benchmarks the command deny list
func BenchmarkCommandPolicy(b *testing.B) {
	rules := config.Default().CommandRules

	benchmarks := []struct {
		name string
		cmd  string
	}{
		{"first_rule", "rm -rf /"},
		{"last_rule", "echo x > /dev/null"},
		{"no_match", "git add . && git commit -m 'test' && git push"},
		{"long", strings.Repeat("echo hello && ", 200) + "ls"},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for b.Loop() {
				_, _ = policy.Evaluate(bm.cmd, rules)
			}
		})
	}
}

// BenchmarkPathPolicy benchmarks both path tiers
func BenchmarkPathPolicy(b *testing.B) {
	cfg := config.Default()
	p := policy.Path{Files: cfg.FileRules, Dirs: cfg.DirRules}

	benchmarks := []struct {
		name string
		path string
	}{
		{"file_tier", "/app/.env"},
		{"dir_tier", "/home/u/.gnupg/pubring.kbx"},
		{"no_match", "/home/user/project/src/components/Button.tsx"},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for b.Loop() {
				_, _ = p.Check(bm.path)
			}
		})
	}
}

// BenchmarkDecode benchmarks record decoding
func BenchmarkDecode(b *testing.B) {
	benchmarks := []struct {
		name  string
		input string
	}{
		{"bash", `{"session_id":"s","tool_name":"Bash","tool_input":{"command":"git status"}}`},
		{"edit", `{"session_id":"s","tool_name":"Edit","tool_input":{"file_path":"/app/a.py","old_string":"x","new_string":"y"}}`},
		{"invalid", `not json`},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			data := []byte(bm.input)
			for b.Loop() {
				_ = action.DecodeBytes(data)
			}
		})
	}
}

// BenchmarkProcess benchmarks a full hook invocation without external tools
func BenchmarkProcess(b *testing.B) {
	stub := func(context.Context, runner.Invocation) runner.Result {
		return runner.Result{Status: runner.Success}
	}
	d := &hook.Driver{Config: config.Default(), Run: stub}

	benchmarks := []struct {
		name  string
		hook  hook.Name
		input string
	}{
		{"command_allowed", hook.CommandGuard, `{"tool_name":"Bash","tool_input":{"command":"git status"}}`},
		{"command_blocked", hook.CommandGuard, `{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`},
		{"file_blocked", hook.FileGuard, `{"tool_name":"Edit","tool_input":{"file_path":"/app/.env"}}`},
		{"test_skipped", hook.TestOnChange, `{"tool_name":"Edit","tool_input":{"file_path":"/app/test_a.py"}}`},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for b.Loop() {
				_ = d.Process(context.Background(), bm.hook, strings.NewReader(bm.input))
			}
		})
	}
}
