package store

import "context"

// schemaVersion tracks the database layout. Bump on any schema change; the
// database is rebuilt from scratch rather than migrated in place.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_info (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS clients (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    email            TEXT NOT NULL DEFAULT '',
    niche            TEXT NOT NULL DEFAULT '',
    audience         TEXT NOT NULL DEFAULT '',
    goals            TEXT NOT NULL DEFAULT '',
    business_summary TEXT NOT NULL DEFAULT '',
    current_stage    INTEGER NOT NULL DEFAULT 1,
    contract_signed  INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stage_records (
    client_id    TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    stage        INTEGER NOT NULL,
    status       TEXT NOT NULL DEFAULT 'locked',
    unlocked_at  TEXT,
    completed_at TEXT,
    approved_at  TEXT,
    PRIMARY KEY (client_id, stage)
);

CREATE TABLE IF NOT EXISTS documents (
    client_id      TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    stage          INTEGER NOT NULL,
    slot           INTEGER NOT NULL,
    name           TEXT NOT NULL DEFAULT '',
    storage_ref    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'not-generated',
    version        INTEGER NOT NULL DEFAULT 0,
    tokens_used    INTEGER NOT NULL DEFAULT 0,
    provider_id    TEXT NOT NULL DEFAULT '',
    model_id       TEXT NOT NULL DEFAULT '',
    revision_notes TEXT NOT NULL DEFAULT '',
    generated_at   TEXT,
    sent_at        TEXT,
    viewed_at      TEXT,
    approved_at    TEXT,
    updated_at     TEXT NOT NULL,
    PRIMARY KEY (client_id, stage, slot)
);

CREATE TABLE IF NOT EXISTS webhook_subscriptions (
    id                TEXT PRIMARY KEY,
    client_id         TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    url               TEXT NOT NULL,
    events            TEXT NOT NULL DEFAULT '[]',
    secret            TEXT NOT NULL DEFAULT '',
    active            INTEGER NOT NULL DEFAULT 1,
    failure_count     INTEGER NOT NULL DEFAULT 0,
    last_triggered_at TEXT,
    last_error        TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_webhook_subscriptions_client
    ON webhook_subscriptions(client_id, active);

CREATE TABLE IF NOT EXISTS score_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id  TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    kind       TEXT NOT NULL,
    score      REAL NOT NULL,
    status     TEXT NOT NULL DEFAULT '',
    components TEXT NOT NULL DEFAULT '{}',
    delta      REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_log_client_kind
    ON score_log(client_id, kind, id);

CREATE TABLE IF NOT EXISTS client_activity (
    client_id        TEXT PRIMARY KEY REFERENCES clients(id) ON DELETE CASCADE,
    emails_sent      INTEGER NOT NULL DEFAULT 0,
    emails_opened    INTEGER NOT NULL DEFAULT 0,
    milestones_done  INTEGER NOT NULL DEFAULT 0,
    milestones_total INTEGER NOT NULL DEFAULT 0,
    last_activity_at TEXT,
    updated_at       TEXT NOT NULL
);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_info`)
	var count int
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, schemaVersion)
		return err
	}
	return nil
}
