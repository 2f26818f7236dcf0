package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cadence/internal/config"
)

const (
	anthropicDefaultModel = "claude-3-5-sonnet-20241022"
	anthropicAPIVersion   = "2023-06-01"
)

func init() {
	Register("anthropic", newAnthropic)
}

// anthropicProvider speaks the Anthropic messages API. The system prompt is a
// top-level field rather than a message, and there is no JSON response mode;
// JSON expectations are enforced by extraction after the fact.
type anthropicProvider struct {
	endpoint     string
	apiKey       string
	defaultModel string
	client       *http.Client
}

func newAnthropic(cfg *config.Config, client *http.Client) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.LLM.AnthropicAPIKey)
	if apiKey == "" {
		return nil, newError(ErrNotConfigured, "anthropic", "missing api key (set ANTHROPIC_API_KEY)", nil)
	}
	model := strings.TrimSpace(cfg.LLM.Model)
	if model == "" {
		model = anthropicDefaultModel
	}
	return &anthropicProvider{
		endpoint:     strings.TrimRight(cfg.LLM.AnthropicBaseURL, "/") + "/messages",
		apiKey:       apiKey,
		defaultModel: model,
		client:       client,
	}, nil
}

func (p *anthropicProvider) ID() string { return "anthropic" }

func (p *anthropicProvider) DefaultModel() string { return p.defaultModel }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Temperature float64          `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *anthropicProvider) Generate(ctx context.Context, req Request) (Result, error) {
	req, err := req.normalized()
	if err != nil {
		return Result{}, err
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}
	userPrompt := req.UserPrompt
	if req.ExpectJSON {
		userPrompt += "\n\nRespond with JSON only."
	}

	payload := anthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt}},
		Temperature: req.Temperature,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("llm request (anthropic): encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Result{}, fmt.Errorf("llm request (anthropic): new request: %w", err)
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, classifyHTTPError("anthropic", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, classifyHTTPError("anthropic", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, classifyStatus("anthropic", resp.StatusCode, string(body))
	}

	var message anthropicResponse
	if err := json.Unmarshal(body, &message); err != nil {
		return Result{}, newError(ErrMalformedResponse, "anthropic", "decode response", err)
	}
	if message.Error != nil {
		return Result{}, fmt.Errorf("llm request (anthropic): api error: %s", strings.TrimSpace(message.Error.Message))
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			content = strings.TrimSpace(block.Text)
			break
		}
	}
	if content == "" {
		return Result{}, newError(ErrMalformedResponse, "anthropic",
			fmt.Sprintf("empty content (snippet: %s)", snippet(string(body))), nil)
	}
	if req.ExpectJSON {
		extracted := ExtractJSON(content)
		if extracted == "" {
			return Result{}, newError(ErrMalformedResponse, "anthropic",
				fmt.Sprintf("expected JSON payload (snippet: %s)", snippet(content)), nil)
		}
		content = extracted
	}

	modelID := strings.TrimSpace(message.Model)
	if modelID == "" {
		modelID = model
	}
	return Result{
		Content:    content,
		TokensUsed: message.Usage.InputTokens + message.Usage.OutputTokens,
		ProviderID: "anthropic",
		ModelID:    modelID,
	}, nil
}
