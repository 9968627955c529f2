package agent

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configDirName = ".swea"

// ConfigDir returns the workspace-local configuration directory.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configDirName)
}

// DefaultConfigPath returns .swea/config.yaml within the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// Config matches .swea/config.yaml inside the workspace.
type Config struct {
	Version     string        `yaml:"version"`
	Model       ModelConfig   `yaml:"model"`
	Interpreter string        `yaml:"interpreter"`
	Limits      LimitsConfig  `yaml:"limits"`
	Features    FeatureFlags  `yaml:"features"`
	Logging     LoggingConfig `yaml:"logging"`
	History     HistoryConfig `yaml:"history"`
}

// ModelConfig selects the backend model.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	Endpoint    string  `yaml:"endpoint"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LimitsConfig bounds the repair loop.
type LimitsConfig struct {
	MaxAttempts           int `yaml:"max_attempts"`
	MaxIterations         int `yaml:"max_iterations"`
	ScriptTimeoutSeconds  int `yaml:"script_timeout_seconds"`
	InstallTimeoutSeconds int `yaml:"install_timeout_seconds"`
}

// FeatureFlags toggles optional behaviors.
type FeatureFlags struct {
	// ProactiveInstall installs packages the sanitizer stripped from
	// hallucinated install lines before the first execution.
	ProactiveInstall bool `yaml:"proactive_install"`
	// ManageBackend starts ollama serve on demand and stops it afterwards.
	ManageBackend bool `yaml:"manage_backend"`
}

// LoggingConfig describes debug output.
type LoggingConfig struct {
	LLMDebug   bool   `yaml:"llm_debug"`
	HealDebug  bool   `yaml:"heal_debug"`
	EventsFile string `yaml:"events_file"`
}

// HistoryConfig controls the session store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(workspace string) *Config {
	return &Config{
		Version:     "1.0.0",
		Interpreter: "python3",
		Model: ModelConfig{
			Name:     "qwen2.5-coder:7b",
			Endpoint: "http://localhost:11434",
		},
		Limits: LimitsConfig{
			MaxAttempts:           4,
			MaxIterations:         8,
			ScriptTimeoutSeconds:  60,
			InstallTimeoutSeconds: 300,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(ConfigDir(workspace), "history.db"),
		},
	}
}

// LoadConfig loads the config or returns defaults when the file is missing.
func LoadConfig(path, workspace string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(workspace), nil
		}
		return nil, err
	}
	cfg := DefaultConfig(workspace)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// SaveConfig writes the config to disk, creating the directory if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// normalize backfills zero-valued limits so a sparse file cannot disable
// loop termination.
func (c *Config) normalize() {
	if c.Limits.MaxAttempts <= 0 {
		c.Limits.MaxAttempts = 4
	}
	if c.Limits.MaxIterations <= 0 {
		c.Limits.MaxIterations = 2 * c.Limits.MaxAttempts
	}
	if c.Limits.ScriptTimeoutSeconds <= 0 {
		c.Limits.ScriptTimeoutSeconds = 60
	}
	if c.Limits.InstallTimeoutSeconds <= 0 {
		c.Limits.InstallTimeoutSeconds = 300
	}
	if c.Interpreter == "" {
		c.Interpreter = "python3"
	}
}

// ScriptTimeout converts the configured seconds into a duration.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.Limits.ScriptTimeoutSeconds) * time.Second
}

// InstallTimeout converts the configured seconds into a duration.
func (c *Config) InstallTimeout() time.Duration {
	return time.Duration(c.Limits.InstallTimeoutSeconds) * time.Second
}
