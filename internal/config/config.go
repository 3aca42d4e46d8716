// Package config handles configuration loading and parsing for toolguard.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dgerlanc/toolguard/internal/constants"
	"github.com/dgerlanc/toolguard/internal/logger"
	"github.com/dgerlanc/toolguard/internal/patterns"
	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"
)

//go:embed config.toml
var defaultConfig []byte

// FilePlaceholder is replaced by the edited file path in tool commands.
const FilePlaceholder = "{file}"

// ErrUnknownFormat is returned for config files that are neither TOML nor YAML.
var ErrUnknownFormat = errors.New("unknown config format")

// Config holds the compiled rules and tool mappings.
type Config struct {
	// CommandRules block shell commands
	CommandRules []patterns.Rule
	// FileRules block paths by file name or extension
	FileRules []patterns.Rule
	// DirRules block paths inside sensitive directories
	DirRules []patterns.Rule

	Formatters    []Tool
	FormatTimeout time.Duration

	TestRunners []Tool
	// TestSkip keeps the test hook from running on test files and on its own tree
	TestSkip    []patterns.Rule
	TestTimeout time.Duration

	Audit Audit
}

// Tool is an external command bound to a set of file extensions.
type Tool struct {
	Name       string
	Extensions []string
	Command    string   // as written in the config
	Args       []string // Command split into words
}

// Audit controls the optional decision log.
type Audit struct {
	Enabled   bool
	Path      string
	MaxSizeMB int
}

// Argv returns the tool's argument vector with the file placeholder replaced.
func (t Tool) Argv(file string) []string {
	argv := make([]string, len(t.Args))
	for i, a := range t.Args {
		argv[i] = strings.ReplaceAll(a, FilePlaceholder, file)
	}
	return argv
}

// Handles reports whether the tool is mapped to ext (".py"). Matching is exact.
func (t Tool) Handles(ext string) bool {
	return ext != "" && slices.Contains(t.Extensions, ext)
}

// Formatter returns the first formatter mapped to ext.
func (c *Config) Formatter(ext string) (Tool, bool) {
	return findTool(c.Formatters, ext)
}

// TestRunner returns the first test runner mapped to ext.
func (c *Config) TestRunner(ext string) (Tool, bool) {
	return findTool(c.TestRunners, ext)
}

func findTool(tools []Tool, ext string) (Tool, bool) {
	for _, t := range tools {
		if t.Handles(ext) {
			return t, true
		}
	}
	return Tool{}, false
}

// file mirrors the on-disk layout shared by config.toml and config.yaml.
type file struct {
	Command struct {
		Deny []regexEntry `toml:"deny" yaml:"deny"`
	} `toml:"command" yaml:"command"`
	Path struct {
		Files []literalEntry `toml:"files" yaml:"files"`
		Dirs  []literalEntry `toml:"dirs" yaml:"dirs"`
	} `toml:"path" yaml:"path"`
	Format struct {
		Timeout duration    `toml:"timeout" yaml:"timeout"`
		Tools   []toolEntry `toml:"tools" yaml:"tools"`
	} `toml:"format" yaml:"format"`
	Test struct {
		Timeout  duration    `toml:"timeout" yaml:"timeout"`
		Skip     []string    `toml:"skip" yaml:"skip"`
		SkipDirs []string    `toml:"skip_dirs" yaml:"skip_dirs"`
		Runners  []toolEntry `toml:"runners" yaml:"runners"`
	} `toml:"test" yaml:"test"`
	Audit struct {
		Enabled   bool   `toml:"enabled" yaml:"enabled"`
		Path      string `toml:"path" yaml:"path"`
		MaxSizeMB int    `toml:"max_size_mb" yaml:"max_size_mb"`
	} `toml:"audit" yaml:"audit"`
}

type regexEntry struct {
	Name    string `toml:"name" yaml:"name"`
	Pattern string `toml:"pattern" yaml:"pattern"`
}

type literalEntry struct {
	Name     string   `toml:"name" yaml:"name"`
	Patterns []string `toml:"patterns" yaml:"patterns"`
}

type toolEntry struct {
	Name       string   `toml:"name" yaml:"name"`
	Extensions []string `toml:"extensions" yaml:"extensions"`
	Command    string   `toml:"command" yaml:"command"`
}

// duration accepts "10s" style strings in both TOML and YAML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

var (
	// globalConfig is the loaded configuration
	globalConfig *Config
	// configInitialized tracks whether config has been loaded
	configInitialized bool
	// configPath is the user file that was loaded, empty for embedded defaults
	configPath string
	// initErr is the error from the last Init, if any
	initErr error
)

// GetConfigDir returns the config directory path.
// Uses TOOLGUARD_CONFIG if set, otherwise ~/.config/toolguard
func GetConfigDir() (string, error) {
	if dir := os.Getenv(constants.EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, constants.XDGConfigSubdir, constants.AppName), nil
}

// findUserConfig returns the user config file in dir, preferring TOML.
func findUserConfig(dir string) (string, bool) {
	for _, name := range []string{constants.ConfigFileName, constants.YAMLConfigFileName} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// LoadConfig loads TOML data layered over the embedded defaults.
func LoadConfig(data []byte) (*Config, error) {
	return load(data, "toml")
}

// LoadYAML loads YAML data layered over the embedded defaults.
func LoadYAML(data []byte) (*Config, error) {
	return load(data, "yaml")
}

// LoadFile loads a config file, choosing the decoder from its extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return LoadConfig(data)
	case ".yaml", ".yml":
		return LoadYAML(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

func load(data []byte, format string) (*Config, error) {
	var raw file
	if _, err := toml.Decode(string(defaultConfig), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}

	var user file
	var defined func(key ...string) bool
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), &user)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		defined = md.IsDefined
	case "yaml":
		if err := yaml.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		var keys map[string]map[string]any
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		defined = func(key ...string) bool {
			section, ok := keys[key[0]]
			if !ok || len(key) == 1 {
				return ok
			}
			_, ok = section[key[1]]
			return ok
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	overlay(&raw, &user, defined)
	return compile(raw)
}

// overlay copies every key the user file defines over the defaults. Lists
// replace the default list rather than extending it.
func overlay(dst, src *file, defined func(key ...string) bool) {
	if defined("command", "deny") {
		dst.Command.Deny = src.Command.Deny
	}
	if defined("path", "files") {
		dst.Path.Files = src.Path.Files
	}
	if defined("path", "dirs") {
		dst.Path.Dirs = src.Path.Dirs
	}
	if defined("format", "timeout") {
		dst.Format.Timeout = src.Format.Timeout
	}
	if defined("format", "tools") {
		dst.Format.Tools = src.Format.Tools
	}
	if defined("test", "timeout") {
		dst.Test.Timeout = src.Test.Timeout
	}
	if defined("test", "skip") {
		dst.Test.Skip = src.Test.Skip
	}
	if defined("test", "skip_dirs") {
		dst.Test.SkipDirs = src.Test.SkipDirs
	}
	if defined("test", "runners") {
		dst.Test.Runners = src.Test.Runners
	}
	if defined("audit", "enabled") {
		dst.Audit.Enabled = src.Audit.Enabled
	}
	if defined("audit", "path") {
		dst.Audit.Path = src.Audit.Path
	}
	if defined("audit", "max_size_mb") {
		dst.Audit.MaxSizeMB = src.Audit.MaxSizeMB
	}
}

// compile turns the decoded file into rule values and tools.
func compile(raw file) (*Config, error) {
	cfg := &Config{
		FormatTimeout: raw.Format.Timeout.Duration,
		TestTimeout:   raw.Test.Timeout.Duration,
		Audit: Audit{
			Enabled:   raw.Audit.Enabled,
			Path:      raw.Audit.Path,
			MaxSizeMB: raw.Audit.MaxSizeMB,
		},
	}

	for _, e := range raw.Command.Deny {
		if e.Pattern == "" {
			continue
		}
		r, err := patterns.Regex(e.Pattern, e.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse command.deny: %w", err)
		}
		cfg.CommandRules = append(cfg.CommandRules, r)
	}

	for _, e := range raw.Path.Files {
		for _, p := range e.Patterns {
			if p == "" {
				continue
			}
			cfg.FileRules = append(cfg.FileRules, patterns.Literal(p, e.Name))
		}
	}
	for _, e := range raw.Path.Dirs {
		for _, p := range e.Patterns {
			if p == "" {
				continue
			}
			cfg.DirRules = append(cfg.DirRules, patterns.Directory(p, e.Name))
		}
	}

	var err error
	if cfg.Formatters, err = compileTools(raw.Format.Tools); err != nil {
		return nil, fmt.Errorf("failed to parse format.tools: %w", err)
	}
	if cfg.TestRunners, err = compileTools(raw.Test.Runners); err != nil {
		return nil, fmt.Errorf("failed to parse test.runners: %w", err)
	}

	for _, s := range raw.Test.Skip {
		if s != "" {
			cfg.TestSkip = append(cfg.TestSkip, patterns.Literal(s, "test file"))
		}
	}
	for _, s := range raw.Test.SkipDirs {
		if s != "" {
			cfg.TestSkip = append(cfg.TestSkip, patterns.Directory(s, "excluded directory"))
		}
	}

	if cfg.FormatTimeout <= 0 {
		return nil, fmt.Errorf("format.timeout must be positive, got %s", cfg.FormatTimeout)
	}
	if cfg.TestTimeout <= 0 {
		return nil, fmt.Errorf("test.timeout must be positive, got %s", cfg.TestTimeout)
	}

	return cfg, nil
}

func compileTools(entries []toolEntry) ([]Tool, error) {
	var tools []Tool
	for _, e := range entries {
		if strings.TrimSpace(e.Command) == "" {
			return nil, fmt.Errorf("tool %q has no command", e.Name)
		}
		// nil env: $VARS in commands expand from the hook's environment
		args, err := shell.Fields(e.Command, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid command for tool %q: %w", e.Name, err)
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("tool %q has no command", e.Name)
		}
		name := e.Name
		if name == "" {
			name = args[0]
		}
		tools = append(tools, Tool{
			Name:       name,
			Extensions: e.Extensions,
			Command:    e.Command,
			Args:       args,
		})
	}
	return tools, nil
}

// loadEmbeddedDefaults loads the embedded default config file.
func loadEmbeddedDefaults() *Config {
	cfg, err := LoadConfig(nil)
	if err != nil {
		// The embedded file is covered by tests; reaching this is a build defect.
		panic(fmt.Sprintf("embedded config is invalid: %v", err))
	}
	return cfg
}

// Init loads the user configuration if one exists, then applies environment
// overrides. Any failure falls back to the embedded defaults; the error is
// returned and kept for InitError.
func Init() error {
	if configInitialized {
		return initErr
	}
	configInitialized = true
	configPath = ""

	globalConfig, initErr = initConfig()
	if globalConfig == nil {
		globalConfig = loadEmbeddedDefaults()
	}

	env, err := LoadEnv()
	if err != nil {
		logger.Debug("ignoring invalid environment overrides", "error", err)
		if initErr == nil {
			initErr = err
		}
		return initErr
	}
	env.Apply(globalConfig)

	logger.Debug("config loaded",
		"path", configPath,
		"command_rules", len(globalConfig.CommandRules),
		"file_rules", len(globalConfig.FileRules),
		"dir_rules", len(globalConfig.DirRules),
		"formatters", len(globalConfig.Formatters),
		"test_runners", len(globalConfig.TestRunners))
	return initErr
}

func initConfig() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		logger.Debug("failed to get config dir, using embedded defaults", "error", err)
		return nil, err
	}

	path, ok := findUserConfig(configDir)
	if !ok {
		logger.Debug("no user config, using embedded defaults", "dir", configDir)
		return nil, nil
	}

	cfg, err := LoadFile(path)
	if err != nil {
		logger.Debug("failed to load config, using embedded defaults", "path", path, "error", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	configPath = path
	return cfg, nil
}

// Get returns the current configuration.
// If Init has not been called, it initializes first.
func Get() *Config {
	if !configInitialized {
		Init()
	}
	return globalConfig
}

// GetConfigPath returns the loaded user config file, or "" for embedded defaults.
func GetConfigPath() string {
	return configPath
}

// InitError returns the error from the last Init, if any.
func InitError() error {
	return initErr
}

// Reset resets the configuration state. Used for testing.
func Reset() {
	configInitialized = false
	globalConfig = nil
	configPath = ""
	initErr = nil
}

// GetDefaultConfig returns the embedded default configuration.
func GetDefaultConfig() []byte {
	return defaultConfig
}

// Default returns a freshly compiled copy of the embedded defaults.
func Default() *Config {
	return loadEmbeddedDefaults()
}
