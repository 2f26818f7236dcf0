// Package program defines the shared domain model for the staged delivery
// program: clients, stage records, and documents, plus the status enums and
// validation helpers the rest of the system builds on.
//
// A client moves through StageCount ordered stages. Each stage holds
// SlotsPerStage document slots that must all reach StatusApproved before the
// gate controller completes the stage and unlocks the next one. Treat this
// package as the single source of truth for status semantics; when you add a
// status, update the parse helpers and the store schema together.
package program
