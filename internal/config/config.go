// internal/config/config.go
//
// This package holds the fixed scaffold layout the overlay works against and
// the optional .governance.yaml file a project can use to tune the CLI.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const (
	// ScaffoldDir is the directory the external initializer creates in the workspace root.
	ScaffoldDir = ".specify"

	// MemoryDir lives inside ScaffoldDir and holds the constitution.
	MemoryDir = "memory"

	// ConstitutionFile is the target document receiving the overlay.
	ConstitutionFile = "constitution.md"

	// GovernanceDir is created inside MemoryDir by the overlay.
	GovernanceDir = "governance"

	// BackupPrefix names snapshots of ScaffoldDir, followed by a timestamp.
	BackupPrefix = ".specify-backup-"

	// ProjectConfigFile is the optional per-workspace configuration file.
	ProjectConfigFile = ".governance.yaml"

	// OverlayMarker is the sole signal that the overlay has been applied.
	// It must round-trip byte for byte between write and detection.
	OverlayMarker = "# --- 🏛️ GOVERNANCE OVERLAY ---"

	defaultAIAgent       = "copilot"
	defaultExecutable    = "specify"
	defaultLogLevel      = "warn"
	specKitRepository    = "git+https://github.com/github/spec-kit.git"
	ignoreAgentToolsFlag = "--ignore-agent-tools"
)

// RuleFiles returns the governance rule documents in their declared order.
func RuleFiles() []string {
	return []string{"architecture.md", "stack.md", "process.md"}
}

// ScaffoldPath returns the scaffold directory for a workspace root.
func ScaffoldPath(workspace string) string {
	return filepath.Join(workspace, ScaffoldDir)
}

// ConstitutionPath returns the constitution inside a scaffold directory.
func ConstitutionPath(scaffoldDir string) string {
	return filepath.Join(scaffoldDir, MemoryDir, ConstitutionFile)
}

// GovernancePath returns the governance directory inside a scaffold directory.
func GovernancePath(scaffoldDir string) string {
	return filepath.Join(scaffoldDir, MemoryDir, GovernanceDir)
}

// InitializerConfig describes how the external initializer is launched.
type InitializerConfig struct {
	Executable string   `yaml:"executable"`
	Fallback   []string `yaml:"fallback,omitempty"`
	ExtraArgs  []string `yaml:"extra_args,omitempty"`
}

// BackupConfig tunes scaffold snapshots.
type BackupConfig struct {
	Exclude []string `yaml:"exclude,omitempty"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// ProjectConfig models .governance.yaml.
type ProjectConfig struct {
	Version     int               `yaml:"version"`
	AIAgent     string            `yaml:"ai_agent"`
	RulesDir    string            `yaml:"rules_dir,omitempty"`
	Initializer InitializerConfig `yaml:"initializer"`
	Backup      BackupConfig      `yaml:"backup,omitempty"`
	Log         LogConfig         `yaml:"log"`
}

// Config holds the runtime configuration for one invocation.
type Config struct {
	// Workspace is the directory holding the scaffold directory.
	Workspace string

	// Path is where the project config was (or would have been) read from.
	Path string

	Project ProjectConfig
}

// Load reads the project config for workspace. An empty path means
// <workspace>/.governance.yaml. A missing file yields defaults.
func Load(workspace, path string) (*Config, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("config: resolve workspace: %w", err)
	}
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(abs, ProjectConfigFile)
	}
	cfg := &Config{
		Workspace: abs,
		Path:      path,
		Project:   defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with defaults for workspace and no file backing.
func Default(workspace string) *Config {
	return &Config{
		Workspace: workspace,
		Path:      filepath.Join(workspace, ProjectConfigFile),
		Project:   defaultProjectConfig(),
	}
}

// ScaffoldPath returns the scaffold directory of the configured workspace.
func (c *Config) ScaffoldPath() string {
	return ScaffoldPath(c.Workspace)
}

// AIAgent returns the default AI assistant passed to the initializer.
func (c *Config) AIAgent() string {
	return c.Project.AIAgent
}

// RulesDir returns the rule override directory, or "" for the bundled set.
func (c *Config) RulesDir() string {
	return c.Project.RulesDir
}

// LogFile returns the resolved log file path, or "" when file logging is off.
func (c *Config) LogFile() string {
	return c.Project.Log.File
}

func (c *Config) loadProjectConfig() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", c.Path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", c.Path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.Workspace)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.AIAgent) == "" {
		pc.AIAgent = defaultAIAgent
	}
	if strings.TrimSpace(pc.Initializer.Executable) == "" {
		pc.Initializer.Executable = defaultExecutable
	}
	if pc.Initializer.Fallback == nil {
		pc.Initializer.Fallback = []string{"uvx", "--from", specKitRepository, defaultExecutable}
	}
	if pc.Initializer.ExtraArgs == nil {
		pc.Initializer.ExtraArgs = []string{ignoreAgentToolsFlag}
	}
	if strings.TrimSpace(pc.Log.Level) == "" {
		pc.Log.Level = defaultLogLevel
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.AIAgent = strings.TrimSpace(pc.AIAgent)
	pc.RulesDir = resolvePath(base, pc.RulesDir)
	pc.Initializer.Executable = strings.TrimSpace(pc.Initializer.Executable)
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
	pc.Log.File = resolvePath(base, pc.Log.File)
	for i, pattern := range pc.Backup.Exclude {
		pc.Backup.Exclude[i] = strings.TrimSpace(pattern)
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Initializer.Executable == "" {
		return fmt.Errorf("initializer.executable is required")
	}
	switch pc.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	for i, pattern := range pc.Backup.Exclude {
		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("backup.exclude[%d]: invalid pattern %q", i, pattern)
		}
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
