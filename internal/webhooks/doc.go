// Package webhooks delivers state-transition events to registered HTTP
// subscribers.
//
// Each matching subscription is delivered concurrently and independently:
// the body is signed with the subscription secret (HMAC-SHA256, hex, in
// X-Signature), delivery is retried up to the configured attempt count with
// linear backoff, and repeated failures trip a per-subscription circuit
// breaker that deactivates the endpoint until it is manually re-enabled. A
// successful delivery resets the failure counter.
//
// State machines publish through the Publisher interface and never observe
// delivery failures; a disabled configuration yields a noop publisher.
package webhooks
