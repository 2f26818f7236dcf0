// Package llm is the provider adapter: a single Generate contract across
// interchangeable backends (OpenAI, Anthropic, OpenRouter) selected by
// configuration. Implementations register themselves in a lookup table, so
// adding a backend never touches call sites.
//
// The adapter performs no retries; rate limits, timeouts, and malformed
// responses surface as typed errors (ErrRateLimited, ErrTimeout,
// ErrMalformedResponse, ErrNotConfigured) and the caller decides whether to
// retry. The only local recovery is JSON extraction: when a caller expects
// JSON, near-miss formatting (code fences, prose around a balanced object)
// is repaired before the response is rejected.
package llm
