package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// chatProvider speaks the OpenAI-compatible chat completions protocol, which
// both OpenAI and OpenRouter expose. Only the endpoint, credentials, and
// extra headers differ per backend.
type chatProvider struct {
	id           string
	endpoint     string
	apiKey       string
	defaultModel string
	headers      map[string]string
	client       *http.Client
}

func (p *chatProvider) ID() string { return p.id }

func (p *chatProvider) DefaultModel() string { return p.defaultModel }

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		// Some gateways return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *chatProvider) Generate(ctx context.Context, req Request) (Result, error) {
	req, err := req.normalized()
	if err != nil {
		return Result{}, err
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}

	payload := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ExpectJSON {
		payload.ResponseFormat = map[string]string{"type": "json_object"}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("llm request (%s): encode body: %w", p.id, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Result{}, fmt.Errorf("llm request (%s): new request: %w", p.id, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range p.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, classifyHTTPError(p.id, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, classifyHTTPError(p.id, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, classifyStatus(p.id, resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return Result{}, newError(ErrMalformedResponse, p.id, "decode response", err)
	}
	if completion.Error != nil {
		return Result{}, fmt.Errorf("llm request (%s): api error: %s", p.id, strings.TrimSpace(completion.Error.Message))
	}

	content := extractChatContent(completion)
	if content == "" {
		return Result{}, newError(ErrMalformedResponse, p.id,
			fmt.Sprintf("empty content (snippet: %s)", snippet(string(body))), nil)
	}
	if req.ExpectJSON {
		extracted := ExtractJSON(content)
		if extracted == "" {
			return Result{}, newError(ErrMalformedResponse, p.id,
				fmt.Sprintf("expected JSON payload (snippet: %s)", snippet(content)), nil)
		}
		content = extracted
	}

	modelID := strings.TrimSpace(completion.Model)
	if modelID == "" {
		modelID = model
	}
	return Result{
		Content:    content,
		TokensUsed: completion.Usage.TotalTokens,
		ProviderID: p.id,
		ModelID:    modelID,
	}, nil
}

func extractChatContent(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
