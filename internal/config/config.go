package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// LLM contains provider selection and connection settings for document
// generation. Exactly one provider is active at a time; credentials for the
// selected provider must be present at startup.
type LLM struct {
	Provider         string  `toml:"provider"`
	Model            string  `toml:"model"`
	Temperature      float64 `toml:"temperature"`
	MaxTokens        int     `toml:"max_tokens"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	SlotDelaySeconds int     `toml:"slot_delay_seconds"`

	OpenAIAPIKey      string `toml:"openai_api_key"`
	OpenAIBaseURL     string `toml:"openai_base_url"`
	AnthropicAPIKey   string `toml:"anthropic_api_key"`
	AnthropicBaseURL  string `toml:"anthropic_base_url"`
	OpenRouterAPIKey  string `toml:"openrouter_api_key"`
	OpenRouterBaseURL string `toml:"openrouter_base_url"`
}

// Webhooks contains delivery settings for the notification dispatcher.
type Webhooks struct {
	Enabled          bool `toml:"enabled"`
	RequestTimeout   int  `toml:"request_timeout"`
	MaxAttempts      int  `toml:"max_attempts"`
	BackoffBaseMS    int  `toml:"backoff_base_ms"`
	FailureThreshold int  `toml:"failure_threshold"`
}

// HealthWeights holds the four health sub-score weights. They must sum to 1.
type HealthWeights struct {
	Email     float64 `toml:"email"`
	Milestone float64 `toml:"milestone"`
	Activity  float64 `toml:"activity"`
	Progress  float64 `toml:"progress"`
}

// ReadinessWeights holds the five launch-readiness sub-score weights. They
// must sum to 1.
type ReadinessWeights struct {
	MilestoneCompletion float64 `toml:"milestone_completion"`
	AssetCompleteness   float64 `toml:"asset_completeness"`
	RecentActivity      float64 `toml:"recent_activity"`
	StageProgress       float64 `toml:"stage_progress"`
	ContractSigned      float64 `toml:"contract_signed"`
}

// Scores contains readiness engine configuration.
type Scores struct {
	Health             HealthWeights    `toml:"health"`
	Readiness          ReadinessWeights `toml:"readiness"`
	StuckAfterDays     int              `toml:"stuck_after_days"`
	SweepIntervalHours int              `toml:"sweep_interval_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cadence.
type Config struct {
	Paths    Paths    `toml:"paths"`
	LLM      LLM      `toml:"llm"`
	Webhooks Webhooks `toml:"webhooks"`
	Scores   Scores   `toml:"scores"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cadence/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and env overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("cadence.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
