package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgerlanc/toolguard/internal/action"
	"github.com/dgerlanc/toolguard/internal/audit"
	"github.com/dgerlanc/toolguard/internal/config"
	"github.com/dgerlanc/toolguard/internal/decision"
	"github.com/dgerlanc/toolguard/internal/runner"
)

// stubRunner records invocations and returns a canned result.
type stubRunner struct {
	calls  []runner.Invocation
	result runner.Result
}

func (s *stubRunner) Run(_ context.Context, inv runner.Invocation) runner.Result {
	s.calls = append(s.calls, inv)
	return s.result
}

func existing(string) (os.FileInfo, error) { return nil, nil }

func missing(string) (os.FileInfo, error) { return nil, fs.ErrNotExist }

func newDriver(result runner.Result) (*Driver, *stubRunner) {
	stub := &stubRunner{result: result}
	return &Driver{Config: config.Default(), Run: stub.Run, Stat: existing}, stub
}

func bashRecord(cmd string) action.Record {
	return action.Record{Kind: action.ShellCommand, ToolName: "Bash", Command: cmd}
}

func editRecord(path string) action.Record {
	return action.Record{Kind: action.FileEdit, ToolName: "Edit", FilePath: path}
}

// signal runs the result through the signaler and returns what the host sees.
func signal(res Result) (stdout, stderr string, code int) {
	var out, errOut bytes.Buffer
	code = decision.Signal(&out, &errOut, res.Outcome)
	return out.String(), errOut.String(), code
}

func TestNames(t *testing.T) {
	want := []Name{"command-guard", "file-guard", "auto-format", "test-on-change"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	for _, n := range want {
		if got, ok := Lookup(string(n)); !ok || got != n {
			t.Errorf("Lookup(%q) = %q, %v", n, got, ok)
		}
	}
	if _, ok := Lookup("toolguard"); ok {
		t.Error("Lookup(toolguard) should fail")
	}
}

func TestCommandGuard(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		blocked bool
		pattern string
	}{
		{"recursive delete from root", "rm -rf /", true, `rm\s+-rf\s+/`},
		{"sudo", "sudo apt install jq", true, `sudo\s+`},
		{"chmod 777", "chmod 777 script.sh", true, `chmod\s+777`},
		{"dd", "dd if=/dev/zero of=disk.img", true, `dd\s+if=`},
		{"mkfs", "mkfs.ext4 /dev/sdb1", true, `mkfs\.`},
		{"npm publish", "npm publish --access public", true, `npm\s+publish`},
		{"force push", "git push origin main --force", true, `git\s+push.*--force`},
		{"redirect to device", "echo x > /dev/sda", true, `>\s*/dev/`},
		{"listing", "ls -la", false, ""},
		{"plain push", "git push origin main", false, ""},
		{"npm test", "npm test", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDriver(runner.Result{})
			res := d.Handle(context.Background(), CommandGuard, bashRecord(tt.cmd))
			stdout, stderr, code := signal(res)

			if !tt.blocked {
				if code != 0 || stdout != "" || stderr != "" {
					t.Errorf("expected silent allow, got code=%d stdout=%q stderr=%q", code, stdout, stderr)
				}
				return
			}
			if code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
			if stdout != "" {
				t.Errorf("blocked command should not write stdout, got %q", stdout)
			}
			if res.Rule == nil || res.Rule.Pattern != tt.pattern {
				t.Errorf("matched rule = %+v, want pattern %q", res.Rule, tt.pattern)
			}
			if !strings.Contains(stderr, "BLOCKED: Dangerous command pattern detected: "+tt.pattern) {
				t.Errorf("stderr missing pattern line: %q", stderr)
			}
			if !strings.Contains(stderr, "Command attempted: "+tt.cmd) {
				t.Errorf("stderr missing command line: %q", stderr)
			}
		})
	}
}

func TestCommandGuardMessage(t *testing.T) {
	d, _ := newDriver(runner.Result{})
	_, stderr, _ := signal(d.Handle(context.Background(), CommandGuard, bashRecord("rm -rf /")))
	want := "BLOCKED: Dangerous command pattern detected: rm\\s+-rf\\s+/\n" +
		"Command attempted: rm -rf /\n" +
		"\n" +
		"If this is intentional, run manually outside the agent.\n"
	if stderr != want {
		t.Errorf("stderr = %q, want %q", stderr, want)
	}
}

func TestFileGuard(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		blocked bool
		dir     bool
		pattern string
	}{
		{"env file", "/app/.env", true, false, ".env"},
		{"env file uppercase", "/app/.ENV.local", true, false, ".env"},
		{"private key", "/home/u/backup/id_rsa", true, false, "id_rsa"},
		{"secret word any case", "/app/config/MySecret.txt", true, false, "secret"},
		{"password word", "/app/password-reset.ts", true, false, "password"},
		{"pem", "/etc/tls/server.pem", true, false, ".pem"},
		{"ssh dir", "/home/u/.ssh/known_hosts", true, true, ".ssh/"},
		{"secrets dir", "/repo/secrets/db.txt", true, false, "secret"},
		{"gnupg dir", "/home/u/.gnupg/pubring.kbx", true, true, ".gnupg/"},
		{"private dir", "/repo/private/notes.md", true, true, "private/"},
		{"readme", "/home/user/project/readme.md", false, false, ""},
		{"source file", "/repo/src/main.go", false, false, ""},
		{"directory rule is case-sensitive", "/repo/PRIVATE/notes.md", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDriver(runner.Result{})
			res := d.Handle(context.Background(), FileGuard, editRecord(tt.path))
			stdout, stderr, code := signal(res)

			if !tt.blocked {
				if code != 0 || stdout != "" || stderr != "" {
					t.Errorf("expected silent allow, got code=%d stdout=%q stderr=%q", code, stdout, stderr)
				}
				return
			}
			if code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
			if res.Rule == nil || res.Rule.Pattern != tt.pattern {
				t.Fatalf("matched rule = %+v, want pattern %q", res.Rule, tt.pattern)
			}
			heading := "BLOCKED: Sensitive file access detected: "
			if tt.dir {
				heading = "BLOCKED: File in sensitive directory: "
			}
			if !strings.HasPrefix(stderr, heading+tt.path+"\nPattern matched: "+tt.pattern+"\n") {
				t.Errorf("unexpected stderr: %q", stderr)
			}
		})
	}
}

func TestFileGuardDirectoryMessage(t *testing.T) {
	d, _ := newDriver(runner.Result{})
	_, stderr, _ := signal(d.Handle(context.Background(), FileGuard, editRecord("/home/u/.ssh/known_hosts")))
	want := "BLOCKED: File in sensitive directory: /home/u/.ssh/known_hosts\nPattern matched: .ssh/\n"
	if stderr != want {
		t.Errorf("stderr = %q, want %q", stderr, want)
	}
}

func TestGuardsAreIdempotent(t *testing.T) {
	d, _ := newDriver(runner.Result{})
	ctx := context.Background()

	for _, tt := range []struct {
		name Name
		rec  action.Record
	}{
		{CommandGuard, bashRecord("sudo rm -rf /")},
		{CommandGuard, bashRecord("ls")},
		{FileGuard, editRecord("/app/.env")},
		{FileGuard, editRecord("/app/main.go")},
	} {
		first := d.Handle(ctx, tt.name, tt.rec)
		second := d.Handle(ctx, tt.name, tt.rec)
		if !reflect.DeepEqual(first.Outcome, second.Outcome) {
			t.Errorf("%s(%q): outcomes differ: %+v vs %+v", tt.name, tt.rec.Target(), first.Outcome, second.Outcome)
		}
	}
}

func TestEmptyRecordAllowsSilently(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"tool_name":"Bash","tool_input":{}}`,
		`{"tool_name":"Edit","tool_input":{"file_path":""}}`,
		`not json`,
		``,
	}

	for _, name := range Names() {
		for _, in := range inputs {
			d, stub := newDriver(runner.Result{Status: runner.Failure, ExitCode: 1})
			res := d.Process(context.Background(), name, strings.NewReader(in))
			stdout, stderr, code := signal(res)
			if code != 0 || stdout != "" || stderr != "" {
				t.Errorf("%s(%q): code=%d stdout=%q stderr=%q", name, in, code, stdout, stderr)
			}
			if res.Skipped != SkipNoTarget {
				t.Errorf("%s(%q): Skipped = %q, want %q", name, in, res.Skipped, SkipNoTarget)
			}
			if len(stub.calls) != 0 {
				t.Errorf("%s(%q): expected no process, got %d", name, in, len(stub.calls))
			}
		}
	}
}

func TestGuardsIgnoreOtherKinds(t *testing.T) {
	d, _ := newDriver(runner.Result{})
	ctx := context.Background()

	if res := d.Handle(ctx, CommandGuard, editRecord("/app/.env")); res.ExitCode() != 0 {
		t.Error("command guard should ignore file edits")
	}
	if res := d.Handle(ctx, FileGuard, bashRecord("cat .env")); res.ExitCode() != 0 {
		t.Error("file guard should ignore shell commands")
	}
}

func TestGuardsReadTheirOwnField(t *testing.T) {
	d, _ := newDriver(runner.Result{})

	tests := []struct {
		name  string
		hook  Name
		input string
		want  int
	}{
		{"unknown tool with both fields to file guard", FileGuard,
			`{"tool_input":{"command":"cat notes","file_path":"/home/u/.ssh/id_rsa"}}`, 2},
		{"unknown tool with both fields to command guard", CommandGuard,
			`{"tool_input":{"command":"sudo cat notes","file_path":"/app/readme.md"}}`, 2},
		{"bash tool with file path", FileGuard,
			`{"tool_name":"Bash","tool_input":{"file_path":"/app/.env"}}`, 2},
		{"edit tool with command", CommandGuard,
			`{"tool_name":"Edit","tool_input":{"command":"rm -rf /","file_path":"/app/a.py"}}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Process(context.Background(), tt.hook, strings.NewReader(tt.input))
			if res.ExitCode() != tt.want {
				t.Errorf("exit code = %d (skipped %q), want %d", res.ExitCode(), res.Skipped, tt.want)
			}
		})
	}
}

func TestGuardsLargeRecord(t *testing.T) {
	d, _ := newDriver(runner.Result{})
	body := strings.Repeat("x", 5<<20)

	tests := []struct {
		name  string
		hook  Name
		input string
	}{
		{"large write to sensitive file", FileGuard,
			`{"tool_name":"Write","tool_input":{"file_path":"/app/.env","content":"` + body + `"}}`},
		{"large heredoc", CommandGuard,
			`{"tool_name":"Bash","tool_input":{"command":"sudo rm -rf / <<EOF\n` + body + `\nEOF"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Process(context.Background(), tt.hook, strings.NewReader(tt.input))
			if res.ExitCode() != 2 {
				t.Errorf("exit code = %d (skipped %q), want 2", res.ExitCode(), res.Skipped)
			}
		})
	}
}

func TestUnknownHook(t *testing.T) {
	d, _ := newDriver(runner.Result{})
	res := d.Handle(context.Background(), Name("lint"), editRecord("/app/a.py"))
	if res.ExitCode() != 0 || res.Skipped != SkipUnknownHook {
		t.Errorf("unknown hook: exit=%d skipped=%q", res.ExitCode(), res.Skipped)
	}
}

func TestAutoFormat(t *testing.T) {
	tests := []struct {
		name       string
		result     runner.Result
		wantCode   int
		wantStdout string
		wantStderr []string
	}{
		{
			name:       "success",
			result:     runner.Result{Status: runner.Success},
			wantCode:   0,
			wantStdout: "✓ Formatted /app/src/index.ts\n",
		},
		{
			name:       "failure",
			result:     runner.Result{Status: runner.Failure, ExitCode: 2, Output: "[error] index.ts: SyntaxError\n"},
			wantCode:   1,
			wantStderr: []string{"Formatter failed: prettier exited with status 2", "[error] index.ts: SyntaxError"},
		},
		{
			name:       "missing",
			result:     runner.Result{Status: runner.Missing, ExitCode: -1, Err: errors.New("not found")},
			wantCode:   1,
			wantStderr: []string{"Formatter not available: prettier"},
		},
		{
			name:       "timeout",
			result:     runner.Result{Status: runner.Timeout, ExitCode: -1},
			wantCode:   1,
			wantStderr: []string{"Formatter timeout: prettier did not finish within 10s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, stub := newDriver(tt.result)
			res := d.Handle(context.Background(), AutoFormat, editRecord("/app/src/index.ts"))
			stdout, stderr, code := signal(res)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantStdout)
			}
			for _, s := range tt.wantStderr {
				if !strings.Contains(stderr, s) {
					t.Errorf("stderr %q missing %q", stderr, s)
				}
			}
			if len(stub.calls) != 1 {
				t.Fatalf("expected 1 invocation, got %d", len(stub.calls))
			}
			want := []string{"npx", "prettier", "--write", "/app/src/index.ts"}
			if !reflect.DeepEqual(stub.calls[0].Args, want) {
				t.Errorf("args = %v, want %v", stub.calls[0].Args, want)
			}
			if stub.calls[0].Timeout != 10*time.Second {
				t.Errorf("timeout = %s, want 10s", stub.calls[0].Timeout)
			}
		})
	}
}

func TestAutoFormatPython(t *testing.T) {
	d, stub := newDriver(runner.Result{Status: runner.Success})
	d.Handle(context.Background(), AutoFormat, editRecord("/app/main.py"))
	want := []string{"black", "--line-length", "100", "/app/main.py"}
	if len(stub.calls) != 1 || !reflect.DeepEqual(stub.calls[0].Args, want) {
		t.Errorf("calls = %+v, want args %v", stub.calls, want)
	}
}

func TestAutoFormatSkips(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		stat    func(string) (os.FileInfo, error)
		skipped string
	}{
		{"unmapped extension", "/app/README.md", existing, SkipUnmapped},
		{"no extension", "/app/Makefile", existing, SkipUnmapped},
		{"extension is case-sensitive", "/app/INDEX.TS", existing, SkipUnmapped},
		{"file does not exist", "/app/gone.ts", missing, SkipNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, stub := newDriver(runner.Result{Status: runner.Failure, ExitCode: 1})
			d.Stat = tt.stat
			res := d.Handle(context.Background(), AutoFormat, editRecord(tt.path))
			stdout, stderr, code := signal(res)

			if code != 0 || stdout != "" || stderr != "" {
				t.Errorf("expected silent allow, got code=%d stdout=%q stderr=%q", code, stdout, stderr)
			}
			if res.Skipped != tt.skipped {
				t.Errorf("Skipped = %q, want %q", res.Skipped, tt.skipped)
			}
			if len(stub.calls) != 0 {
				t.Errorf("expected no process, got %d", len(stub.calls))
			}
		})
	}
}

func TestTestOnChange(t *testing.T) {
	tests := []struct {
		name       string
		result     runner.Result
		wantCode   int
		wantStdout string
		wantStderr []string
	}{
		{
			name:       "success",
			result:     runner.Result{Status: runner.Success},
			wantCode:   0,
			wantStdout: "✓ Tests passing for /app/pkg/calc.py\n",
		},
		{
			name:       "failure is not a denial",
			result:     runner.Result{Status: runner.Failure, ExitCode: 1, Output: "F\nFAILED calc_test.py::test_add\n"},
			wantCode:   1,
			wantStderr: []string{"⚠️ Tests failed after editing /app/pkg/calc.py", "FAILED calc_test.py::test_add"},
		},
		{
			name:     "missing runner is silent",
			result:   runner.Result{Status: runner.Missing, ExitCode: -1},
			wantCode: 0,
		},
		{
			name:       "timeout",
			result:     runner.Result{Status: runner.Timeout, ExitCode: -1},
			wantCode:   1,
			wantStderr: []string{"Test timeout for /app/pkg/calc.py after 1m0s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, stub := newDriver(tt.result)
			rec := editRecord("/app/pkg/calc.py")
			rec.Cwd = "/app"
			res := d.Handle(context.Background(), TestOnChange, rec)
			stdout, stderr, code := signal(res)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantStdout)
			}
			if len(tt.wantStderr) == 0 && stderr != "" {
				t.Errorf("unexpected stderr %q", stderr)
			}
			for _, s := range tt.wantStderr {
				if !strings.Contains(stderr, s) {
					t.Errorf("stderr %q missing %q", stderr, s)
				}
			}
			if len(stub.calls) != 1 {
				t.Fatalf("expected 1 invocation, got %d", len(stub.calls))
			}
			call := stub.calls[0]
			if !reflect.DeepEqual(call.Args, []string{"pytest", "-x", "-q", "--tb=short"}) {
				t.Errorf("args = %v", call.Args)
			}
			if call.Dir != "/app" {
				t.Errorf("dir = %q, want /app", call.Dir)
			}
			if call.Timeout != 60*time.Second {
				t.Errorf("timeout = %s, want 60s", call.Timeout)
			}
		})
	}
}

func TestTestOnChangeJavaScript(t *testing.T) {
	d, stub := newDriver(runner.Result{Status: runner.Success})
	d.Handle(context.Background(), TestOnChange, editRecord("/app/src/cart.tsx"))
	want := []string{"npm", "test", "--", "--bail", "--findRelatedTests", "/app/src/cart.tsx"}
	if len(stub.calls) != 1 || !reflect.DeepEqual(stub.calls[0].Args, want) {
		t.Errorf("calls = %+v, want args %v", stub.calls, want)
	}
	if stub.calls[0].Dir != "" {
		t.Errorf("dir = %q, want process cwd", stub.calls[0].Dir)
	}
}

func TestTestOnChangeSkips(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		skipped string
	}{
		{"test file", "/app/tests/test_calc.py", SkipTestPath},
		{"test word any case", "/app/src/Cart.TEST.tsx", SkipTestPath},
		{"latest contains test", "/app/src/latest.py", SkipTestPath},
		{"jest dir", "/app/src/__tests__/cart.js", SkipTestPath},
		{"hook tree", "/app/.claude/hooks/guard.py", SkipTestPath},
		{"unmapped extension", "/app/docs/guide.md", SkipUnmapped},
		{"go file", "/app/main.go", SkipUnmapped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, stub := newDriver(runner.Result{Status: runner.Failure, ExitCode: 1})
			res := d.Handle(context.Background(), TestOnChange, editRecord(tt.path))
			stdout, stderr, code := signal(res)

			if code != 0 || stdout != "" || stderr != "" {
				t.Errorf("expected silent allow, got code=%d stdout=%q stderr=%q", code, stdout, stderr)
			}
			if res.Skipped != tt.skipped {
				t.Errorf("Skipped = %q, want %q", res.Skipped, tt.skipped)
			}
			if len(stub.calls) != 0 {
				t.Errorf("expected no process, got %d", len(stub.calls))
			}
		})
	}
}

func TestTail(t *testing.T) {
	var b strings.Builder
	for i := range 30 {
		b.WriteString(strings.Repeat("x", i) + "\n")
	}
	lines := tail(b.String(), 20)
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	if lines[19] != strings.Repeat("x", 29) {
		t.Errorf("last line = %q", lines[19])
	}
	if tail("  \n", 20) != nil {
		t.Error("blank output should have no tail")
	}
}

func TestFailureLineWithStartError(t *testing.T) {
	got := failureLine("Formatter failed: black", runner.Result{Status: runner.Failure, ExitCode: -1, Err: errors.New("exec format error")})
	if got != "Formatter failed: black: exec format error" {
		t.Errorf("failureLine() = %q", got)
	}
}

func TestProcessWritesAuditEntry(t *testing.T) {
	defer audit.Reset()

	logPath := filepath.Join(t.TempDir(), "audit.log")
	if err := audit.Init(logPath, 10, false); err != nil {
		t.Fatalf("audit.Init() error = %v", err)
	}

	d, _ := newDriver(runner.Result{Status: runner.Failure, ExitCode: 3, Duration: 5 * time.Millisecond})
	input := `{"session_id":"s1","tool_use_id":"t1","tool_name":"Write","tool_input":{"file_path":"/app/a.py"}}`
	res := d.Process(context.Background(), AutoFormat, strings.NewReader(input))
	if res.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", res.ExitCode())
	}
	d.Process(context.Background(), CommandGuard, strings.NewReader(`{"tool_name":"Bash","tool_input":{"command":"sudo ls"}}`))
	audit.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}

	var format audit.Entry
	if err := json.Unmarshal([]byte(lines[0]), &format); err != nil {
		t.Fatalf("failed to parse entry: %v", err)
	}
	if format.Hook != "auto-format" || format.Decision != "external_failure" || format.ExitCode != 1 {
		t.Errorf("unexpected entry: %+v", format)
	}
	if format.Target != "/app/a.py" || format.SessionID != "s1" || format.ToolUseID != "t1" {
		t.Errorf("unexpected metadata: %+v", format)
	}
	if format.Tool == nil || format.Tool.Name != "black" || format.Tool.Status != "failure" || format.Tool.ExitCode != 3 {
		t.Errorf("unexpected tool: %+v", format.Tool)
	}
	if format.Tool.Command != "black --line-length 100 /app/a.py" {
		t.Errorf("tool command = %q", format.Tool.Command)
	}
	if format.Input != input {
		t.Errorf("raw input not recorded: %q", format.Input)
	}

	var guard audit.Entry
	if err := json.Unmarshal([]byte(lines[1]), &guard); err != nil {
		t.Fatalf("failed to parse entry: %v", err)
	}
	if guard.Decision != "block" || guard.ExitCode != 2 {
		t.Errorf("unexpected guard entry: %+v", guard)
	}
	if guard.Rule == nil || guard.Rule.Name != "privilege elevation" || guard.Rule.Kind != "regex" {
		t.Errorf("unexpected rule: %+v", guard.Rule)
	}
}

func TestNewUsesRealDependencies(t *testing.T) {
	d := New(config.Default())
	if d.Run == nil || d.Stat == nil {
		t.Error("New should wire the process runner and stat")
	}
}
