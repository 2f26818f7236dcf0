package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cadence/internal/config"
	"cadence/internal/services/llm"
)

func TestRegisteredProviders(t *testing.T) {
	names := llm.Registered()
	want := map[string]bool{"openai": false, "anthropic": false, "openrouter": false}
	for _, name := range names {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("provider %q not registered (got %v)", name, names)
		}
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "mystery"

	_, err := llm.New(&cfg)
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAIAPIKey = ""

	_, err := llm.New(&cfg)
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func chatConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAIAPIKey = "sk-test"
	cfg.LLM.OpenAIBaseURL = baseURL
	return cfg
}

func TestChatProviderGenerate(t *testing.T) {
	var captured struct {
		auth string
		body map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4-turbo-preview",
			"choices": [{"message": {"content": "Generated section."}}],
			"usage": {"total_tokens": 321}
		}`))
	}))
	defer server.Close()

	cfg := chatConfig(server.URL)
	provider, err := llm.New(&cfg)
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}

	result, err := provider.Generate(context.Background(), llm.Request{
		SystemPrompt: "You write documents.",
		UserPrompt:   "Write one.",
		Temperature:  0.7,
		MaxTokens:    500,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Content != "Generated section." {
		t.Errorf("content = %q", result.Content)
	}
	if result.TokensUsed != 321 {
		t.Errorf("tokens = %d, want 321", result.TokensUsed)
	}
	if result.ProviderID != "openai" {
		t.Errorf("provider = %q", result.ProviderID)
	}
	if captured.auth != "Bearer sk-test" {
		t.Errorf("authorization = %q", captured.auth)
	}
	if captured.body["model"] != "gpt-4-turbo-preview" {
		t.Errorf("model = %v", captured.body["model"])
	}
}

func TestChatProviderClassifiesStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, llm.ErrRateLimited},
		{"bad credentials", http.StatusUnauthorized, llm.ErrNotConfigured},
		{"gateway timeout", http.StatusGatewayTimeout, llm.ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer server.Close()

			cfg := chatConfig(server.URL)
			provider, err := llm.New(&cfg)
			if err != nil {
				t.Fatalf("llm.New: %v", err)
			}
			_, err = provider.Generate(context.Background(), llm.Request{
				SystemPrompt: "s", UserPrompt: "u",
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestChatProviderRejectsEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": ""}}]}`))
	}))
	defer server.Close()

	cfg := chatConfig(server.URL)
	provider, err := llm.New(&cfg)
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}
	_, err = provider.Generate(context.Background(), llm.Request{SystemPrompt: "s", UserPrompt: "u"})
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestChatProviderExtractsExpectedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := "Here you go:\n```json\n{\"ok\": true}\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		})
	}))
	defer server.Close()

	cfg := chatConfig(server.URL)
	provider, err := llm.New(&cfg)
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}
	result, err := provider.Generate(context.Background(), llm.Request{
		SystemPrompt: "s", UserPrompt: "u", ExpectJSON: true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var payload struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil || !payload.OK {
		t.Fatalf("content not clean JSON: %q (%v)", result.Content, err)
	}
}

func TestGenerateValidatesPrompts(t *testing.T) {
	cfg := chatConfig("http://127.0.0.1:0")
	provider, err := llm.New(&cfg)
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}
	if _, err := provider.Generate(context.Background(), llm.Request{UserPrompt: "u"}); err == nil {
		t.Error("expected missing system prompt to fail")
	}
	if _, err := provider.Generate(context.Background(), llm.Request{SystemPrompt: "s"}); err == nil {
		t.Error("expected missing user prompt to fail")
	}
}
