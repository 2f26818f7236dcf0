package config

const (
	defaultDataDir = "~/.local/share/cadence"
	defaultLogDir  = "~/.local/share/cadence/logs"
	defaultAPIBind = "127.0.0.1:7580"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultLLMProvider       = "openrouter"
	defaultLLMTemperature    = 0.7
	defaultLLMMaxTokens      = 4096
	defaultLLMTimeout        = 120
	defaultLLMSlotDelay      = 1
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultAnthropicBaseURL  = "https://api.anthropic.com/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	defaultWebhookTimeout          = 10
	defaultWebhookMaxAttempts      = 3
	defaultWebhookBackoffBaseMS    = 500
	defaultWebhookFailureThreshold = 5

	defaultStuckAfterDays     = 14
	defaultSweepIntervalHours = 24
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			Provider:          defaultLLMProvider,
			Temperature:       defaultLLMTemperature,
			MaxTokens:         defaultLLMMaxTokens,
			TimeoutSeconds:    defaultLLMTimeout,
			SlotDelaySeconds:  defaultLLMSlotDelay,
			OpenAIBaseURL:     defaultOpenAIBaseURL,
			AnthropicBaseURL:  defaultAnthropicBaseURL,
			OpenRouterBaseURL: defaultOpenRouterBaseURL,
		},
		Webhooks: Webhooks{
			Enabled:          true,
			RequestTimeout:   defaultWebhookTimeout,
			MaxAttempts:      defaultWebhookMaxAttempts,
			BackoffBaseMS:    defaultWebhookBackoffBaseMS,
			FailureThreshold: defaultWebhookFailureThreshold,
		},
		Scores: Scores{
			Health: HealthWeights{
				Email:     0.25,
				Milestone: 0.30,
				Activity:  0.25,
				Progress:  0.20,
			},
			Readiness: ReadinessWeights{
				MilestoneCompletion: 0.40,
				AssetCompleteness:   0.20,
				RecentActivity:      0.15,
				StageProgress:       0.15,
				ContractSigned:      0.10,
			},
			StuckAfterDays:     defaultStuckAfterDays,
			SweepIntervalHours: defaultSweepIntervalHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
