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

const documentColumns = `client_id, stage, slot, name, storage_ref, status, version,
    tokens_used, provider_id, model_id, revision_notes,
    generated_at, sent_at, viewed_at, approved_at, updated_at`

// GetDocument fetches one document row.
func (s *Store) GetDocument(ctx context.Context, clientID string, stage, slot int) (*program.Document, error) {
	ctx = ensureContext(ctx)
	if err := program.ValidateStage(stage); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "get document", err.Error(), nil)
	}
	if err := program.ValidateSlot(slot); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "get document", err.Error(), nil)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE client_id = ? AND stage = ? AND slot = ?`,
		clientID, stage, slot,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get document",
			fmt.Sprintf("client %s stage %d slot %d", clientID, stage, slot), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListStageDocuments returns the existing document rows for one stage in slot
// order. Slots that were never generated have no row.
func (s *Store) ListStageDocuments(ctx context.Context, clientID string, stage int) ([]program.Document, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE client_id = ? AND stage = ? ORDER BY slot`,
		clientID, stage,
	)
	if err != nil {
		return nil, fmt.Errorf("list stage documents: %w", err)
	}
	defer rows.Close()

	var docs []program.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// CountStageApproved counts documents in a stage that reached approval.
func (s *Store) CountStageApproved(ctx context.Context, clientID string, stage int) (int, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE client_id = ? AND stage = ? AND status = ?`,
		clientID, stage, string(program.DocApproved),
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count approved: %w", err)
	}
	return count, nil
}

// CountDocumentsByStatus tallies all of a client's documents by status.
func (s *Store) CountDocumentsByStatus(ctx context.Context, clientID string) (map[program.DocumentStatus]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM documents WHERE client_id = ? GROUP BY status`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[program.DocumentStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if parsed, ok := program.ParseDocumentStatus(status); ok {
			counts[parsed] = count
		}
	}
	return counts, rows.Err()
}

// SaveDocumentVersion writes a freshly generated document version. Version 1
// inserts a new row; later versions update conditionally on version-1 so a
// concurrent regeneration cannot silently overwrite (compare-and-swap).
func (s *Store) SaveDocumentVersion(ctx context.Context, doc *program.Document) error {
	ctx = ensureContext(ctx)
	if doc == nil {
		return services.Wrap(services.ErrValidation, "store", "save document", "nil document", nil)
	}
	if err := program.ValidateStage(doc.Stage); err != nil {
		return services.Wrap(services.ErrValidation, "store", "save document", err.Error(), nil)
	}
	if err := program.ValidateSlot(doc.Slot); err != nil {
		return services.Wrap(services.ErrValidation, "store", "save document", err.Error(), nil)
	}
	if doc.Version < 1 {
		return services.Wrap(services.ErrValidation, "store", "save document", "version must be >= 1", nil)
	}

	now := time.Now().UTC()
	doc.UpdatedAt = now

	if doc.Version == 1 {
		_, err := s.execWithRetry(ctx,
			`INSERT INTO documents (
                client_id, stage, slot, name, storage_ref, status, version,
                tokens_used, provider_id, model_id, revision_notes,
                generated_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ClientID, doc.Stage, doc.Slot, doc.Name, doc.StorageRef,
			string(doc.Status), doc.Version, doc.TokensUsed, doc.ProviderID,
			doc.ModelID, doc.RevisionNotes, nullableTime(doc.GeneratedAt), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return nil
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE documents SET
            name = ?, storage_ref = ?, status = ?, version = ?,
            tokens_used = ?, provider_id = ?, model_id = ?, revision_notes = '',
            generated_at = ?, sent_at = NULL, viewed_at = NULL, approved_at = NULL,
            updated_at = ?
        WHERE client_id = ? AND stage = ? AND slot = ? AND version = ?`,
		doc.Name, doc.StorageRef, string(doc.Status), doc.Version,
		doc.TokensUsed, doc.ProviderID, doc.ModelID,
		nullableTime(doc.GeneratedAt), formatTime(now),
		doc.ClientID, doc.Stage, doc.Slot, doc.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update document version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document version: rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrConflict, "store", "save document",
			fmt.Sprintf("client %s stage %d slot %d expected version %d", doc.ClientID, doc.Stage, doc.Slot, doc.Version-1), nil)
	}
	return nil
}

// UpdateDocument persists review-state mutations (status, timestamps, notes)
// conditionally on the document version, rejecting writes against a row that
// was regenerated underneath the caller.
func (s *Store) UpdateDocument(ctx context.Context, doc *program.Document) error {
	ctx = ensureContext(ctx)
	if doc == nil {
		return services.Wrap(services.ErrValidation, "store", "update document", "nil document", nil)
	}
	now := time.Now().UTC()
	doc.UpdatedAt = now

	res, err := s.execWithRetry(ctx,
		`UPDATE documents SET
            status = ?, revision_notes = ?, sent_at = ?, viewed_at = ?, approved_at = ?, updated_at = ?
        WHERE client_id = ? AND stage = ? AND slot = ? AND version = ?`,
		string(doc.Status), doc.RevisionNotes,
		nullableTime(doc.SentAt), nullableTime(doc.ViewedAt), nullableTime(doc.ApprovedAt),
		formatTime(now),
		doc.ClientID, doc.Stage, doc.Slot, doc.Version,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrConflict, "store", "update document",
			fmt.Sprintf("client %s stage %d slot %d version %d", doc.ClientID, doc.Stage, doc.Slot, doc.Version), nil)
	}
	return nil
}

func scanDocument(row rowScanner) (*program.Document, error) {
	var (
		doc         program.Document
		status      string
		generatedAt sql.NullString
		sentAt      sql.NullString
		viewedAt    sql.NullString
		approvedAt  sql.NullString
		updatedAt   sql.NullString
	)
	if err := row.Scan(
		&doc.ClientID, &doc.Stage, &doc.Slot, &doc.Name, &doc.StorageRef,
		&status, &doc.Version, &doc.TokensUsed, &doc.ProviderID, &doc.ModelID,
		&doc.RevisionNotes, &generatedAt, &sentAt, &viewedAt, &approvedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	parsed, ok := program.ParseDocumentStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown document status %q", status)
	}
	doc.Status = parsed
	var err error
	if doc.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, err
	}
	if doc.SentAt, err = parseTime(sentAt); err != nil {
		return nil, err
	}
	if doc.ViewedAt, err = parseTime(viewedAt); err != nil {
		return nil, err
	}
	if doc.ApprovedAt, err = parseTime(approvedAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = mustTime(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}
