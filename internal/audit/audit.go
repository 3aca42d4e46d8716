// Package audit provides an optional JSONL log of hook decisions.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgerlanc/toolguard/internal/constants"
	"github.com/dgerlanc/toolguard/internal/logger"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// Version of the entry format.
const Version = 1

// TimestampFormat is the format used for audit log timestamps.
const TimestampFormat = "2006-01-02T15:04:05.0Z07:00"

// RotatedSuffix is appended to the log path for the compressed previous log.
const RotatedSuffix = ".1.gz"

// Entry is a single audit log line.
type Entry struct {
	Version      int     `json:"version"`
	InvocationID string  `json:"invocation_id"`
	Timestamp    string  `json:"timestamp"`
	DurationMs   float64 `json:"duration_ms"`
	Hook         string  `json:"hook"`
	Kind         string  `json:"kind"`
	Target       string  `json:"target"`
	Decision     string  `json:"decision"`
	ExitCode     int     `json:"exit_code"`
	Rule         *Rule   `json:"rule,omitempty"`
	Tool         *Tool   `json:"tool,omitempty"`
	Skipped      string  `json:"skipped,omitempty"`
	SessionID    string  `json:"session_id,omitempty"`
	ToolUseID    string  `json:"tool_use_id,omitempty"`
	Cwd          string  `json:"cwd,omitempty"`
	Input        string  `json:"input"`
	ConfigPath   string  `json:"config_path"`
	ConfigError  string  `json:"config_error,omitempty"`
}

// Rule identifies the policy rule that matched.
type Rule struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Kind    string `json:"kind"`
}

// Tool describes the external command a side-effect hook ran.
type Tool struct {
	Name       string  `json:"name"`
	Command    string  `json:"command"`
	Status     string  `json:"status"`
	ExitCode   int     `json:"exit_code"`
	DurationMs float64 `json:"duration_ms"`
}

var (
	auditFile *os.File
	auditPath string
	maxBytes  int64
	mu        sync.Mutex
	enabled   bool
)

// DefaultLogPath returns the default audit log path (~/.local/share/toolguard/audit.log)
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", constants.AppName, "audit.log"), nil
}

// Init opens the audit log. If path is empty, uses the default path. When
// the file already exceeds maxSizeMB it is rotated first. disable=true turns
// logging off.
func Init(path string, maxSizeMB int, disable bool) error {
	mu.Lock()
	defer mu.Unlock()

	if disable {
		enabled = false
		return nil
	}

	if path == "" {
		var err error
		path, err = DefaultLogPath()
		if err != nil {
			logger.Debug("failed to get default audit log path", "error", err)
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		logger.Debug("failed to create audit log directory", "error", err)
		return err
	}

	maxBytes = int64(maxSizeMB) << 20
	if err := rotateIfNeeded(path, maxBytes); err != nil {
		// keep appending to the oversized file rather than losing entries
		logger.Debug("failed to rotate audit log", "error", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		logger.Debug("failed to open audit log file", "error", err)
		return err
	}

	auditFile = f
	auditPath = path
	enabled = true
	logger.Debug("audit logging initialized", "path", path)
	return nil
}

// rotateIfNeeded compresses path into path+RotatedSuffix and removes it once
// it has grown past limit. A limit of zero disables rotation.
func rotateIfNeeded(path string, limit int64) error {
	if limit <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() < limit {
		return nil
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audit log for rotation: %w", err)
	}
	defer src.Close()

	tmp := path + RotatedSuffix + ".tmp"
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return fmt.Errorf("failed to create rotated audit log: %w", err)
	}

	zw := gzip.NewWriter(dst)
	zw.Name = filepath.Base(path)
	zw.ModTime = info.ModTime()
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to compress audit log: %w", err)
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to compress audit log: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write rotated audit log: %w", err)
	}

	if err := os.Rename(tmp, path+RotatedSuffix); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move rotated audit log: %w", err)
	}
	return os.Remove(path)
}

// Close closes the audit log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if auditFile != nil {
		err := auditFile.Close()
		auditFile = nil
		enabled = false
		return err
	}
	return nil
}

// Log writes an entry to the audit log.
// If audit logging is not initialized or disabled, this is a no-op.
func Log(entry Entry) error {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || auditFile == nil {
		return nil
	}

	entry.Version = Version
	if entry.InvocationID == "" {
		entry.InvocationID = uuid.NewString()
	}
	entry.Timestamp = time.Now().UTC().Format(TimestampFormat)

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Debug("failed to marshal audit entry", "error", err)
		return err
	}

	if _, err := auditFile.Write(append(data, '\n')); err != nil {
		logger.Debug("failed to write audit entry", "error", err)
		return err
	}

	return nil
}

// IsEnabled returns whether audit logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Path returns the open log path, or "" when disabled.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return ""
	}
	return auditPath
}

// Reset resets the audit state. Used for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	if auditFile != nil {
		auditFile.Close()
	}
	auditFile = nil
	auditPath = ""
	maxBytes = 0
	enabled = false
}
