// Package action decodes the host's tool-use record into a normalized action.
//
// Decoding never fails. A record that is unreadable, malformed or missing
// fields decodes to an action with empty targets, which every hook treats as
// nothing to evaluate.
package action

import (
	"encoding/json"
	"io"

	"github.com/dgerlanc/toolguard/internal/logger"
)

// Kind tags what the action operates on.
type Kind int

const (
	Unknown Kind = iota
	ShellCommand
	FileEdit
)

func (k Kind) String() string {
	switch k {
	case ShellCommand:
		return "shell_command"
	case FileEdit:
		return "file_edit"
	}
	return "unknown"
}

// Tool names the host uses for shell and file tools.
var toolKinds = map[string]Kind{
	"Bash":         ShellCommand,
	"Edit":         FileEdit,
	"MultiEdit":    FileEdit,
	"Write":        FileEdit,
	"Read":         FileEdit,
	"NotebookEdit": FileEdit,
}

// Record is a decoded action. Command and FilePath are the tool_input fields
// as sent, whatever the tool; Kind labels the action for logs and Target.
type Record struct {
	Kind     Kind
	Command  string
	FilePath string

	// Metadata, used for logging only.
	ToolName  string
	HookEvent string
	SessionID string
	ToolUseID string
	Cwd       string

	// Raw is the input as read, for the audit log.
	Raw string
}

// Target returns the text a policy applies to.
func (r Record) Target() string {
	switch r.Kind {
	case ShellCommand:
		return r.Command
	case FileEdit:
		return r.FilePath
	}
	return ""
}

// input is the host's hook payload. Fields are decoded loosely so that a
// wrong type in one field does not discard the others.
type input struct {
	SessionID     json.RawMessage `json:"session_id"`
	Cwd           json.RawMessage `json:"cwd"`
	HookEventName json.RawMessage `json:"hook_event_name"`
	ToolName      json.RawMessage `json:"tool_name"`
	ToolUseID     json.RawMessage `json:"tool_use_id"`
	ToolInput     json.RawMessage `json:"tool_input"`
}

type toolInput struct {
	Command      json.RawMessage `json:"command"`
	FilePath     json.RawMessage `json:"file_path"`
	NotebookPath json.RawMessage `json:"notebook_path"`
}

// Decode reads one record from r.
func Decode(r io.Reader) Record {
	data, err := io.ReadAll(r)
	if err != nil {
		logger.Debug("failed to read input", "error", err)
		return Record{Raw: string(data)}
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes one record from data.
func DecodeBytes(data []byte) Record {
	rec := Record{Raw: string(data)}

	var in input
	if err := json.Unmarshal(data, &in); err != nil {
		logger.Debug("failed to decode input", "error", err)
		return rec
	}
	rec.SessionID = str(in.SessionID)
	rec.Cwd = str(in.Cwd)
	rec.HookEvent = str(in.HookEventName)
	rec.ToolName = str(in.ToolName)
	rec.ToolUseID = str(in.ToolUseID)

	var ti toolInput
	if err := json.Unmarshal(in.ToolInput, &ti); err != nil && len(in.ToolInput) > 0 {
		logger.Debug("failed to decode tool_input", "error", err)
	}
	rec.Command = str(ti.Command)
	rec.FilePath = str(ti.FilePath)
	if rec.FilePath == "" {
		rec.FilePath = str(ti.NotebookPath)
	}

	kind, known := toolKinds[rec.ToolName]
	if !known {
		switch {
		case rec.Command != "":
			kind = ShellCommand
		case rec.FilePath != "":
			kind = FileEdit
		}
	}
	rec.Kind = kind
	return rec
}

// str returns raw as a string if it is a JSON string, else "".
func str(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
