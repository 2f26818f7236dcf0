package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Failure kinds. Callers branch with errors.Is against these markers.
var (
	ErrNotConfigured     = errors.New("provider not configured")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrTimeout           = errors.New("provider timeout")
)

// ProviderError carries the failure kind plus provider context.
type ProviderError struct {
	Kind     error
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Kind.Error())
	if e.Provider != "" {
		builder.WriteString(" (")
		builder.WriteString(e.Provider)
		builder.WriteString(")")
	}
	if e.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Message)
	}
	if e.Cause != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Cause.Error())
	}
	return builder.String()
}

func (e *ProviderError) Unwrap() error { return e.Kind }

func newError(kind error, provider, message string, cause error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Message: message, Cause: cause}
}

// classifyHTTPError maps transport-level failures onto the adapter taxonomy.
func classifyHTTPError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrTimeout, provider, "request deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(ErrTimeout, provider, "network timeout", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return newError(ErrTimeout, provider, "request timed out", err)
	}
	return fmt.Errorf("llm request (%s): %w", provider, err)
}

func classifyStatus(provider string, status int, body string) error {
	body = strings.TrimSpace(body)
	switch {
	case status == 429:
		return newError(ErrRateLimited, provider, fmt.Sprintf("http %d: %s", status, snippet(body)), nil)
	case status == 401 || status == 403:
		return newError(ErrNotConfigured, provider, fmt.Sprintf("http %d: %s", status, snippet(body)), nil)
	case status == 408 || status == 504:
		return newError(ErrTimeout, provider, fmt.Sprintf("http %d", status), nil)
	default:
		return fmt.Errorf("llm request (%s): http %d: %s", provider, status, snippet(body))
	}
}

func snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := strings.Join(strings.Fields(replacer.Replace(trimmed)), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
