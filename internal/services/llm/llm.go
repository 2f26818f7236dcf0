package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"cadence/internal/config"
)

const defaultHTTPTimeout = 120 * time.Second

// Request carries one generation call through the provider adapter.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float64
	MaxTokens    int
	ExpectJSON   bool
}

// Result is the uniform outcome of a successful generation call.
type Result struct {
	Content    string
	TokensUsed int
	ProviderID string
	ModelID    string
}

// Provider is the uniform generation contract. Implementations perform no
// retries; retry policy belongs to the caller.
type Provider interface {
	ID() string
	DefaultModel() string
	Generate(ctx context.Context, req Request) (Result, error)
}

// Factory constructs a provider from configuration. Construction fails with
// ErrNotConfigured when the provider's credentials are missing.
type Factory func(cfg *config.Config, client *http.Client) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a provider factory under a name. Adding a provider to the
// system means one implementation file plus one Register call.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(strings.TrimSpace(name))] = factory
}

// Registered returns the sorted provider names.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the provider selected by cfg.LLM.Provider.
func New(cfg *config.Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &ProviderError{
			Kind:     ErrNotConfigured,
			Provider: name,
			Message:  fmt.Sprintf("unknown provider %q (registered: %s)", name, strings.Join(Registered(), ", ")),
		}
	}

	timeout := defaultHTTPTimeout
	if cfg.LLM.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	}
	return factory(cfg, &http.Client{Timeout: timeout})
}

func (r Request) normalized() (Request, error) {
	r.SystemPrompt = strings.TrimSpace(r.SystemPrompt)
	r.UserPrompt = strings.TrimSpace(r.UserPrompt)
	if r.SystemPrompt == "" {
		return r, fmt.Errorf("llm generate: system prompt required")
	}
	if r.UserPrompt == "" {
		return r, fmt.Errorf("llm generate: user prompt required")
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = 4096
	}
	return r, nil
}
