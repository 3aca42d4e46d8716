// Package constants defines shared constants used across the toolguard codebase.
package constants

import "os"

// File permissions
const (
	DirMode  os.FileMode = 0755
	FileMode os.FileMode = 0644
)

// Environment variables
const (
	EnvConfigDir     = "TOOLGUARD_CONFIG"
	EnvDebug         = "TOOLGUARD_DEBUG"
	EnvFormatTimeout = "TOOLGUARD_FORMAT_TIMEOUT"
	EnvTestTimeout   = "TOOLGUARD_TEST_TIMEOUT"
	EnvAuditLog      = "TOOLGUARD_AUDIT_LOG"
)

// Application paths
const (
	AppName            = "toolguard"
	XDGConfigSubdir    = ".config"
	ClaudeConfigDir    = ".claude"
	ConfigFileName     = "config.toml"
	YAMLConfigFileName = "config.yaml"
)

// Exit statuses understood by the host.
const (
	ExitAllow   = 0
	ExitFailure = 1
	ExitDeny    = 2
)
