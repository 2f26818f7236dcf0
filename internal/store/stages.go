package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cadence/internal/program"
	"cadence/internal/services"
)

const stageColumns = `client_id, stage, status, unlocked_at, completed_at, approved_at`

// GetStageRecord fetches one stage row for a client.
func (s *Store) GetStageRecord(ctx context.Context, clientID string, stage int) (*program.StageRecord, error) {
	ctx = ensureContext(ctx)
	if err := program.ValidateStage(stage); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "get stage", err.Error(), nil)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stageColumns+` FROM stage_records WHERE client_id = ? AND stage = ?`,
		clientID, stage,
	)
	record, err := scanStageRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get stage", fmt.Sprintf("client %s stage %d", clientID, stage), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get stage record: %w", err)
	}
	return record, nil
}

// ListStageRecords returns all stage rows for a client in stage order.
func (s *Store) ListStageRecords(ctx context.Context, clientID string) ([]program.StageRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM stage_records WHERE client_id = ? ORDER BY stage`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stage records: %w", err)
	}
	defer rows.Close()

	var records []program.StageRecord
	for rows.Next() {
		record, err := scanStageRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "store", "list stages", clientID, nil)
	}
	return records, nil
}

// TransitionStage moves a stage row from one status to another. The update is
// conditional on the expected current status so concurrent evaluations cannot
// double-apply a transition; a missed precondition reports ErrConflict.
func (s *Store) TransitionStage(ctx context.Context, clientID string, stage int, from, to program.StageStatus, at time.Time) error {
	ctx = ensureContext(ctx)
	if err := program.ValidateStage(stage); err != nil {
		return services.Wrap(services.ErrValidation, "store", "transition stage", err.Error(), nil)
	}

	var query string
	switch to {
	case program.StageActive:
		query = `UPDATE stage_records SET status = ?, unlocked_at = ?
            WHERE client_id = ? AND stage = ? AND status = ?`
	case program.StageCompleted:
		query = `UPDATE stage_records SET status = ?, completed_at = ?, approved_at = ?
            WHERE client_id = ? AND stage = ? AND status = ?`
	default:
		return services.Wrap(services.ErrValidation, "store", "transition stage", fmt.Sprintf("unsupported target status %q", to), nil)
	}

	stamp := formatTime(at)
	var (
		res sql.Result
		err error
	)
	if to == program.StageCompleted {
		res, err = s.execWithRetry(ctx, query, string(to), stamp, stamp, clientID, stage, string(from))
	} else {
		res, err = s.execWithRetry(ctx, query, string(to), stamp, clientID, stage, string(from))
	}
	if err != nil {
		return fmt.Errorf("transition stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition stage: rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrConflict, "store", "transition stage",
			fmt.Sprintf("client %s stage %d not in status %q", clientID, stage, from), nil)
	}

	if to == program.StageActive {
		return s.setCurrentStage(ctx, clientID, stage)
	}
	return nil
}

// GetProgress assembles the client's stage table snapshot.
func (s *Store) GetProgress(ctx context.Context, clientID string) (*program.Progress, error) {
	ctx = ensureContext(ctx)
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	records, err := s.ListStageRecords(ctx, clientID)
	if err != nil {
		return nil, err
	}
	completed := program.CompletedStages(records)
	return &program.Progress{
		ClientID:        clientID,
		CurrentStage:    client.CurrentStage,
		Completed:       len(completed) == program.StageCount,
		CompletedStages: completed,
		Stages:          records,
	}, nil
}

func scanStageRecord(row rowScanner) (*program.StageRecord, error) {
	var (
		record      program.StageRecord
		status      string
		unlockedAt  sql.NullString
		completedAt sql.NullString
		approvedAt  sql.NullString
	)
	if err := row.Scan(&record.ClientID, &record.Stage, &status, &unlockedAt, &completedAt, &approvedAt); err != nil {
		return nil, err
	}
	parsed, ok := program.ParseStageStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown stage status %q", status)
	}
	record.Status = parsed
	var err error
	if record.UnlockedAt, err = parseTime(unlockedAt); err != nil {
		return nil, err
	}
	if record.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}
	if record.ApprovedAt, err = parseTime(approvedAt); err != nil {
		return nil, err
	}
	return &record, nil
}
