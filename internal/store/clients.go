package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadence/internal/program"
	"cadence/internal/services"
)

// CreateClient inserts a new client and seeds its stage table: stage 1
// active, stages 2..StageCount locked.
func (s *Store) CreateClient(ctx context.Context, client *program.Client) error {
	ctx = ensureContext(ctx)
	if client == nil {
		return services.Wrap(services.ErrValidation, "store", "create client", "nil client", nil)
	}
	if strings.TrimSpace(client.Name) == "" {
		return services.Wrap(services.ErrValidation, "store", "create client", "name required", nil)
	}
	if strings.TrimSpace(client.ID) == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	client.CurrentStage = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO clients (
            id, name, email, niche, audience, goals, business_summary,
            current_stage, contract_signed, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID, client.Name, client.Email, client.Niche, client.Audience,
		client.Goals, client.BusinessSummary, client.CurrentStage,
		boolToInt(client.ContractSigned), formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}

	for stage := 1; stage <= program.StageCount; stage++ {
		status := program.StageLocked
		var unlockedAt any
		if stage == 1 {
			status = program.StageActive
			unlockedAt = formatTime(now)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stage_records (client_id, stage, status, unlocked_at) VALUES (?, ?, ?, ?)`,
			client.ID, stage, string(status), unlockedAt,
		); err != nil {
			return fmt.Errorf("seed stage %d: %w", stage, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO client_activity (client_id, updated_at) VALUES (?, ?)`,
		client.ID, formatTime(now),
	); err != nil {
		return fmt.Errorf("seed activity: %w", err)
	}

	return tx.Commit()
}

const clientColumns = `id, name, email, niche, audience, goals, business_summary,
    current_stage, contract_signed, created_at, updated_at`

// GetClient fetches a client by identifier.
func (s *Store) GetClient(ctx context.Context, clientID string) (*program.Client, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, clientID)
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get client", clientID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

// ListClients returns all clients ordered by creation time.
func (s *Store) ListClients(ctx context.Context) ([]*program.Client, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []*program.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// SetContractSigned flips the contract flag used by the readiness engine.
func (s *Store) SetContractSigned(ctx context.Context, clientID string, signed bool) error {
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE clients SET contract_signed = ?, updated_at = ? WHERE id = ?`,
		boolToInt(signed), formatTime(time.Now()), clientID,
	)
	if err != nil {
		return fmt.Errorf("set contract signed: %w", err)
	}
	return requireRow(res, "store", "set contract signed", clientID)
}

func (s *Store) setCurrentStage(ctx context.Context, clientID string, stage int) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE clients SET current_stage = ?, updated_at = ? WHERE id = ?`,
		stage, formatTime(time.Now()), clientID,
	)
	if err != nil {
		return fmt.Errorf("set current stage: %w", err)
	}
	return requireRow(res, "store", "set current stage", clientID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*program.Client, error) {
	var (
		client    program.Client
		contract  int
		createdAt sql.NullString
		updatedAt sql.NullString
	)
	if err := row.Scan(
		&client.ID, &client.Name, &client.Email, &client.Niche, &client.Audience,
		&client.Goals, &client.BusinessSummary, &client.CurrentStage,
		&contract, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	client.ContractSigned = contract != 0
	var err error
	if client.CreatedAt, err = mustTime(createdAt); err != nil {
		return nil, err
	}
	if client.UpdatedAt, err = mustTime(updatedAt); err != nil {
		return nil, err
	}
	return &client, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, component, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", operation, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, component, operation, id, nil)
	}
	return nil
}
