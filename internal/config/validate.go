package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const weightTolerance = 1e-6

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWebhooks(); err != nil {
		return err
	}
	if err := c.validateScores(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "openrouter":
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (expected openai, anthropic, or openrouter)", c.LLM.Provider)
	}
	if key := c.ProviderAPIKey(c.LLM.Provider); strings.TrimSpace(key) == "" {
		return fmt.Errorf("llm.%s_api_key is required when llm.provider is %q (set %s)",
			c.LLM.Provider, c.LLM.Provider, providerEnvVar(c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateWebhooks() error {
	if c.Webhooks.MaxAttempts > 10 {
		return errors.New("webhooks.max_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateScores() error {
	healthSum := c.Scores.Health.Email + c.Scores.Health.Milestone +
		c.Scores.Health.Activity + c.Scores.Health.Progress
	if err := checkWeightSum("scores.health", healthSum); err != nil {
		return err
	}
	for name, weight := range map[string]float64{
		"scores.health.email":     c.Scores.Health.Email,
		"scores.health.milestone": c.Scores.Health.Milestone,
		"scores.health.activity":  c.Scores.Health.Activity,
		"scores.health.progress":  c.Scores.Health.Progress,
	} {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	readinessSum := c.Scores.Readiness.MilestoneCompletion + c.Scores.Readiness.AssetCompleteness +
		c.Scores.Readiness.RecentActivity + c.Scores.Readiness.StageProgress +
		c.Scores.Readiness.ContractSigned
	if err := checkWeightSum("scores.readiness", readinessSum); err != nil {
		return err
	}
	for name, weight := range map[string]float64{
		"scores.readiness.milestone_completion": c.Scores.Readiness.MilestoneCompletion,
		"scores.readiness.asset_completeness":   c.Scores.Readiness.AssetCompleteness,
		"scores.readiness.recent_activity":      c.Scores.Readiness.RecentActivity,
		"scores.readiness.stage_progress":       c.Scores.Readiness.StageProgress,
		"scores.readiness.contract_signed":      c.Scores.Readiness.ContractSigned,
	} {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

func checkWeightSum(section string, sum float64) error {
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%s weights must sum to 1.0, got %.4f", section, sum)
	}
	return nil
}

// ProviderAPIKey returns the configured credential for the named provider.
func (c *Config) ProviderAPIKey(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return c.LLM.OpenAIAPIKey
	case "anthropic":
		return c.LLM.AnthropicAPIKey
	case "openrouter":
		return c.LLM.OpenRouterAPIKey
	default:
		return ""
	}
}

func providerEnvVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return "LLM_PROVIDER"
	}
}
