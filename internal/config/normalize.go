package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeWebhooks()
	c.normalizeScores()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	if value, ok := os.LookupEnv("LLM_PROVIDER"); ok && strings.TrimSpace(value) != "" {
		c.LLM.Provider = value
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}

	if c.LLM.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.AnthropicAPIKey == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.LLM.AnthropicAPIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.OpenRouterAPIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.OpenRouterAPIKey = strings.TrimSpace(value)
		}
	}

	if strings.TrimSpace(c.LLM.OpenAIBaseURL) == "" {
		c.LLM.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.LLM.AnthropicBaseURL) == "" {
		c.LLM.AnthropicBaseURL = defaultAnthropicBaseURL
	}
	if strings.TrimSpace(c.LLM.OpenRouterBaseURL) == "" {
		c.LLM.OpenRouterBaseURL = defaultOpenRouterBaseURL
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.SlotDelaySeconds < 0 {
		c.LLM.SlotDelaySeconds = defaultLLMSlotDelay
	}
}

func (c *Config) normalizeWebhooks() {
	if value, ok := os.LookupEnv("CADENCE_WEBHOOKS_ENABLED"); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.Webhooks.Enabled = parsed
		}
	}
	if c.Webhooks.RequestTimeout <= 0 {
		c.Webhooks.RequestTimeout = defaultWebhookTimeout
	}
	if c.Webhooks.MaxAttempts <= 0 {
		c.Webhooks.MaxAttempts = defaultWebhookMaxAttempts
	}
	if c.Webhooks.BackoffBaseMS <= 0 {
		c.Webhooks.BackoffBaseMS = defaultWebhookBackoffBaseMS
	}
	if c.Webhooks.FailureThreshold <= 0 {
		c.Webhooks.FailureThreshold = defaultWebhookFailureThreshold
	}
}

func (c *Config) normalizeScores() {
	if c.Scores.StuckAfterDays <= 0 {
		c.Scores.StuckAfterDays = defaultStuckAfterDays
	}
	if c.Scores.SweepIntervalHours <= 0 {
		c.Scores.SweepIntervalHours = defaultSweepIntervalHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
