package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadence/internal/program"
	"cadence/internal/services"
)

const subscriptionColumns = `id, client_id, url, events, secret, active,
    failure_count, last_triggered_at, last_error, created_at`

// CreateSubscription registers a webhook endpoint for a client.
func (s *Store) CreateSubscription(ctx context.Context, sub *program.WebhookSubscription) error {
	ctx = ensureContext(ctx)
	if sub == nil {
		return services.Wrap(services.ErrValidation, "store", "create subscription", "nil subscription", nil)
	}
	if strings.TrimSpace(sub.URL) == "" {
		return services.Wrap(services.ErrValidation, "store", "create subscription", "url required", nil)
	}
	if strings.TrimSpace(sub.ID) == "" {
		sub.ID = uuid.NewString()
	}
	sub.Active = true
	sub.CreatedAt = time.Now().UTC()

	events, err := json.Marshal(sub.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO webhook_subscriptions (
            id, client_id, url, events, secret, active, failure_count, last_error, created_at
        ) VALUES (?, ?, ?, ?, ?, 1, 0, '', ?)`,
		sub.ID, sub.ClientID, sub.URL, string(events), sub.Secret, formatTime(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// GetSubscription fetches one subscription by identifier.
func (s *Store) GetSubscription(ctx context.Context, id string) (*program.WebhookSubscription, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM webhook_subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get subscription", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// ActiveSubscriptions returns the active subscriptions for a client.
func (s *Store) ActiveSubscriptions(ctx context.Context, clientID string) ([]program.WebhookSubscription, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM webhook_subscriptions
         WHERE client_id = ? AND active = 1 ORDER BY created_at, id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []program.WebhookSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ensureContext(ctx),
		`DELETE FROM webhook_subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return requireRow(res, "store", "delete subscription", id)
}

// ReactivateSubscription manually closes the circuit on a tripped
// subscription, clearing its failure state.
func (s *Store) ReactivateSubscription(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE webhook_subscriptions SET active = 1, failure_count = 0, last_error = '' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("reactivate subscription: %w", err)
	}
	return requireRow(res, "store", "reactivate subscription", id)
}

// MarkDeliverySuccess resets the failure counter after a successful delivery.
func (s *Store) MarkDeliverySuccess(ctx context.Context, id string, at time.Time) error {
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE webhook_subscriptions
         SET failure_count = 0, last_error = '', last_triggered_at = ?
         WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("mark delivery success: %w", err)
	}
	return requireRow(res, "store", "mark delivery success", id)
}

// MarkDeliveryFailure increments the failure counter, records the cause, and
// deactivates the subscription once the threshold is reached (circuit open).
// It returns the post-update failure count and whether the circuit tripped.
func (s *Store) MarkDeliveryFailure(ctx context.Context, id string, cause string, threshold int) (int, bool, error) {
	ctx = ensureContext(ctx)
	if threshold <= 0 {
		threshold = 5
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE webhook_subscriptions
         SET failure_count = failure_count + 1,
             last_error = ?,
             active = CASE WHEN failure_count + 1 >= ? THEN 0 ELSE active END
         WHERE id = ?`,
		cause, threshold, id,
	)
	if err != nil {
		return 0, false, fmt.Errorf("mark delivery failure: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT failure_count, active FROM webhook_subscriptions WHERE id = ?`, id)
	var count, active int
	if err := row.Scan(&count, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, services.Wrap(services.ErrNotFound, "store", "mark delivery failure", id, nil)
		}
		return 0, false, fmt.Errorf("mark delivery failure: %w", err)
	}
	return count, active == 0, nil
}

func scanSubscription(row rowScanner) (*program.WebhookSubscription, error) {
	var (
		sub         program.WebhookSubscription
		events      string
		active      int
		triggeredAt sql.NullString
		createdAt   sql.NullString
	)
	if err := row.Scan(
		&sub.ID, &sub.ClientID, &sub.URL, &events, &sub.Secret, &active,
		&sub.FailureCount, &triggeredAt, &sub.LastError, &createdAt,
	); err != nil {
		return nil, err
	}
	sub.Active = active != 0
	if strings.TrimSpace(events) != "" {
		if err := json.Unmarshal([]byte(events), &sub.Events); err != nil {
			return nil, fmt.Errorf("parse events: %w", err)
		}
	}
	var err error
	if sub.LastTriggeredAt, err = parseTime(triggeredAt); err != nil {
		return nil, err
	}
	if sub.CreatedAt, err = mustTime(createdAt); err != nil {
		return nil, err
	}
	return &sub, nil
}
