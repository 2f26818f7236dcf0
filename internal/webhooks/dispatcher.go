package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/program"
)

const userAgent = "Cadence-Go/0.1.0"

// Publisher is the notification surface exposed to the state machines.
// Publish returns quickly; delivery runs asynchronously and its failures are
// never propagated back to the state transition that produced the event.
type Publisher interface {
	Publish(ctx context.Context, clientID string, event Event, payload Payload) error
	Close()
}

// SubscriptionStore is the persistence surface the dispatcher needs.
type SubscriptionStore interface {
	ActiveSubscriptions(ctx context.Context, clientID string) ([]program.WebhookSubscription, error)
	MarkDeliverySuccess(ctx context.Context, id string, at time.Time) error
	MarkDeliveryFailure(ctx context.Context, id string, cause string, threshold int) (int, bool, error)
}

// NewPublisher builds a webhook dispatcher backed by the subscription store.
// When webhooks are disabled in configuration, a noop implementation is
// returned.
func NewPublisher(cfg *config.Config, store SubscriptionStore, logger *slog.Logger) Publisher {
	if cfg == nil || !cfg.Webhooks.Enabled || store == nil {
		return noopPublisher{}
	}
	timeout := time.Duration(cfg.Webhooks.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		store:       store,
		logger:      logger.With(logging.String(logging.FieldComponent, "webhooks")),
		client:      &http.Client{Timeout: timeout},
		maxAttempts: cfg.Webhooks.MaxAttempts,
		baseDelay:   time.Duration(cfg.Webhooks.BackoffBaseMS) * time.Millisecond,
		threshold:   cfg.Webhooks.FailureThreshold,
		sleep: func(d time.Duration) {
			time.Sleep(d)
		},
	}
}

// Dispatcher fans events out to matching subscriptions concurrently, signing
// each delivery and applying retry plus circuit-breaking per subscription.
type Dispatcher struct {
	store       SubscriptionStore
	logger      *slog.Logger
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	threshold   int
	sleep       func(time.Duration)

	wg sync.WaitGroup
}

// WithSleeper overrides how retry backoff sleeps are performed (tests).
func (d *Dispatcher) WithSleeper(sleep func(time.Duration)) *Dispatcher {
	if sleep != nil {
		d.sleep = sleep
	}
	return d
}

type deliveryEnvelope struct {
	SubscriptionID string  `json:"subscriptionId"`
	Event          string  `json:"event"`
	Timestamp      string  `json:"timestamp"`
	Data           Payload `json:"data"`
}

// Publish looks up the client's matching active subscriptions and hands each
// one to a delivery goroutine. Lookup errors are returned so callers can log
// them; delivery outcomes are not.
func (d *Dispatcher) Publish(ctx context.Context, clientID string, event Event, payload Payload) error {
	subs, err := d.store.ActiveSubscriptions(ctx, clientID)
	if err != nil {
		return fmt.Errorf("webhook lookup: %w", err)
	}
	now := time.Now().UTC()
	for _, sub := range subs {
		if !sub.Matches(string(event)) {
			continue
		}
		envelope := deliveryEnvelope{
			SubscriptionID: sub.ID,
			Event:          string(event),
			Timestamp:      now.Format(time.RFC3339),
			Data:           payload,
		}
		body, err := json.Marshal(envelope)
		if err != nil {
			d.logger.Error("encode webhook payload",
				logging.String("subscription_id", sub.ID),
				logging.String(logging.FieldEvent, string(event)),
				logging.Error(err))
			continue
		}
		d.wg.Add(1)
		go func(sub program.WebhookSubscription, body []byte) {
			defer d.wg.Done()
			d.deliver(sub, event, body)
		}(sub, body)
	}
	return nil
}

// Close waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(sub program.WebhookSubscription, event Event, body []byte) {
	logger := d.logger.With(
		logging.String("subscription_id", sub.ID),
		logging.String(logging.FieldClientID, sub.ClientID),
		logging.String(logging.FieldEvent, string(event)),
	)

	attempts := d.maxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			d.sleep(time.Duration(attempt-1) * d.baseDelay)
		}
		lastErr = d.post(sub, event, body)
		if lastErr == nil {
			if err := d.store.MarkDeliverySuccess(context.Background(), sub.ID, time.Now().UTC()); err != nil {
				logger.Warn("record delivery success failed", logging.Error(err))
			}
			return
		}
		logger.Debug("webhook delivery attempt failed",
			logging.Int("attempt", attempt),
			logging.Error(lastErr))
	}

	count, tripped, err := d.store.MarkDeliveryFailure(context.Background(), sub.ID, lastErr.Error(), d.threshold)
	if err != nil {
		logger.Warn("record delivery failure failed", logging.Error(err))
		return
	}
	if tripped {
		logger.Warn("webhook subscription deactivated after repeated failures",
			logging.Int("failure_count", count),
			logging.Error(lastErr))
		return
	}
	logger.Warn("webhook delivery failed",
		logging.Int("failure_count", count),
		logging.Error(lastErr))
}

func (d *Dispatcher) post(sub program.WebhookSubscription, event Event, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(body, sub.Secret))
	req.Header.Set("X-Event", string(event))
	req.Header.Set("X-Subscription-Id", sub.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Sign computes the hex HMAC-SHA256 signature subscribers verify.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// NewNop returns a publisher that drops every event.
func NewNop() Publisher { return noopPublisher{} }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, Event, Payload) error { return nil }
func (noopPublisher) Close()                                                {}
