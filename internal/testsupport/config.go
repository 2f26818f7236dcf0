package testsupport

import (
	"path/filepath"
	"testing"

	"cadence/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Webhooks stay disabled unless a test opts in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAIAPIKey = "test"
	cfg.Webhooks.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithProvider selects the LLM provider on the test config.
func WithProvider(provider string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.Provider = provider
	}
}

// WithWebhooks enables webhook delivery on the test config.
func WithWebhooks() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Webhooks.Enabled = true
	}
}
