package llm

import (
	"net/http"
	"strings"

	"cadence/internal/config"
)

const openaiDefaultModel = "gpt-4-turbo-preview"

func init() {
	Register("openai", newOpenAI)
}

func newOpenAI(cfg *config.Config, client *http.Client) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.LLM.OpenAIAPIKey)
	if apiKey == "" {
		return nil, newError(ErrNotConfigured, "openai", "missing api key (set OPENAI_API_KEY)", nil)
	}
	model := strings.TrimSpace(cfg.LLM.Model)
	if model == "" {
		model = openaiDefaultModel
	}
	return &chatProvider{
		id:           "openai",
		endpoint:     strings.TrimRight(cfg.LLM.OpenAIBaseURL, "/") + "/chat/completions",
		apiKey:       apiKey,
		defaultModel: model,
		client:       client,
	}, nil
}
