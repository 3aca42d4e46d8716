package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment overrides. Unset variables leave the file
// configuration untouched.
type Env struct {
	ConfigDir     string        `env:"TOOLGUARD_CONFIG"`
	Debug         bool          `env:"TOOLGUARD_DEBUG"`
	FormatTimeout time.Duration `env:"TOOLGUARD_FORMAT_TIMEOUT"`
	TestTimeout   time.Duration `env:"TOOLGUARD_TEST_TIMEOUT"`
	AuditLog      string        `env:"TOOLGUARD_AUDIT_LOG"`
}

// LoadEnv parses the TOOLGUARD_* variables.
func LoadEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// Apply writes the overrides into cfg. Setting TOOLGUARD_AUDIT_LOG turns the
// audit log on at that path.
func (e Env) Apply(cfg *Config) {
	if e.FormatTimeout > 0 {
		cfg.FormatTimeout = e.FormatTimeout
	}
	if e.TestTimeout > 0 {
		cfg.TestTimeout = e.TestTimeout
	}
	if e.AuditLog != "" {
		cfg.Audit.Enabled = true
		cfg.Audit.Path = e.AuditLog
	}
}
