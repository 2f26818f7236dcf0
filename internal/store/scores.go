package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cadence/internal/program"
	"cadence/internal/services"
)

const scoreColumns = `id, client_id, kind, score, status, components, delta, created_at`

// AppendScoreLog records one score computation. Entries are append-only.
func (s *Store) AppendScoreLog(ctx context.Context, entry *program.ScoreEntry) error {
	ctx = ensureContext(ctx)
	if entry == nil {
		return services.Wrap(services.ErrValidation, "store", "append score", "nil entry", nil)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	components, err := json.Marshal(entry.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO score_log (client_id, kind, score, status, components, delta, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ClientID, entry.Kind, entry.Score, entry.Status,
		string(components), entry.Delta, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("score insert id: %w", err)
	}
	return nil
}

// LatestScore returns the most recent entry of one kind for a client, or nil
// when none has been recorded yet.
func (s *Store) LatestScore(ctx context.Context, clientID, kind string) (*program.ScoreEntry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoreColumns+` FROM score_log
         WHERE client_id = ? AND kind = ? ORDER BY id DESC LIMIT 1`,
		clientID, kind,
	)
	entry, err := scanScoreEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest score: %w", err)
	}
	return entry, nil
}

// ScoreHistory returns up to limit entries of one kind, newest first.
func (s *Store) ScoreHistory(ctx context.Context, clientID, kind string, limit int) ([]program.ScoreEntry, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM score_log
         WHERE client_id = ? AND kind = ? ORDER BY id DESC LIMIT ?`,
		clientID, kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("score history: %w", err)
	}
	defer rows.Close()

	var entries []program.ScoreEntry
	for rows.Next() {
		entry, err := scanScoreEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// RecordActivity upserts the rolling engagement counters for a client. The
// excluded UI layer feeds these from email and milestone tracking.
func (s *Store) RecordActivity(ctx context.Context, window *program.ActivityWindow) error {
	ctx = ensureContext(ctx)
	if window == nil {
		return services.Wrap(services.ErrValidation, "store", "record activity", "nil window", nil)
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO client_activity (
            client_id, emails_sent, emails_opened, milestones_done, milestones_total,
            last_activity_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(client_id) DO UPDATE SET
            emails_sent = excluded.emails_sent,
            emails_opened = excluded.emails_opened,
            milestones_done = excluded.milestones_done,
            milestones_total = excluded.milestones_total,
            last_activity_at = excluded.last_activity_at,
            updated_at = excluded.updated_at`,
		window.ClientID, window.EmailsSent, window.EmailsOpened,
		window.MilestonesDone, window.MilestonesTotal,
		nullableTime(window.LastActivityAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// GetActivityWindow assembles the readiness engine inputs for a client:
// stored engagement counters plus document and stage aggregates.
func (s *Store) GetActivityWindow(ctx context.Context, clientID string) (*program.ActivityWindow, error) {
	ctx = ensureContext(ctx)
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	window := &program.ActivityWindow{
		ClientID:       clientID,
		CurrentStage:   client.CurrentStage,
		ContractSigned: client.ContractSigned,
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT emails_sent, emails_opened, milestones_done, milestones_total, last_activity_at
         FROM client_activity WHERE client_id = ?`,
		clientID,
	)
	var lastActivity sql.NullString
	err = row.Scan(&window.EmailsSent, &window.EmailsOpened,
		&window.MilestonesDone, &window.MilestonesTotal, &lastActivity)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	if window.LastActivityAt, err = parseTime(lastActivity); err != nil {
		return nil, err
	}

	counts, err := s.CountDocumentsByStatus(ctx, clientID)
	if err != nil {
		return nil, err
	}
	window.DocumentsReady = counts[program.DocApproved]
	window.DocumentsTotal = client.CurrentStage * program.SlotsPerStage

	record, err := s.GetStageRecord(ctx, clientID, client.CurrentStage)
	if err != nil {
		return nil, err
	}
	window.StageEnteredAt = record.UnlockedAt
	return window, nil
}

func scanScoreEntry(row rowScanner) (*program.ScoreEntry, error) {
	var (
		entry      program.ScoreEntry
		components string
		createdAt  sql.NullString
	)
	if err := row.Scan(
		&entry.ID, &entry.ClientID, &entry.Kind, &entry.Score, &entry.Status,
		&components, &entry.Delta, &createdAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(components), &entry.Components); err != nil {
		return nil, fmt.Errorf("parse components: %w", err)
	}
	var err error
	if entry.CreatedAt, err = mustTime(createdAt); err != nil {
		return nil, err
	}
	return &entry, nil
}
