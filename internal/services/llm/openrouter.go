package llm

import (
	"net/http"
	"strings"

	"cadence/internal/config"
)

const openrouterDefaultModel = "anthropic/claude-3.5-sonnet"

func init() {
	Register("openrouter", newOpenRouter)
}

func newOpenRouter(cfg *config.Config, client *http.Client) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.LLM.OpenRouterAPIKey)
	if apiKey == "" {
		return nil, newError(ErrNotConfigured, "openrouter", "missing api key (set OPENROUTER_API_KEY)", nil)
	}
	model := strings.TrimSpace(cfg.LLM.Model)
	if model == "" {
		model = openrouterDefaultModel
	}
	return &chatProvider{
		id:           "openrouter",
		endpoint:     strings.TrimRight(cfg.LLM.OpenRouterBaseURL, "/") + "/chat/completions",
		apiKey:       apiKey,
		defaultModel: model,
		headers: map[string]string{
			"HTTP-Referer": "https://github.com/cadence-hq/cadence",
			"X-Title":      "Cadence",
		},
		client: client,
	}, nil
}
