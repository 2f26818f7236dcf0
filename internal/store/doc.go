// Package store persists program state in SQLite: clients with their seeded
// stage tables, per-slot documents, webhook subscriptions, the append-only
// score log, and the engagement counters the readiness engine scores.
//
// Rows are normalized (no embedded JSON blobs for mutable state) and every
// mutating path that can race uses a conditional update: stage transitions
// check the expected current status, document writes check the expected
// version. A missed precondition surfaces services.ErrConflict rather than
// silently losing an update.
//
// Treat this package as the single source of truth for storage semantics;
// when you add a status or column, update schema.go and bump schemaVersion.
package store
