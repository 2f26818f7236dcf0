package program

import (
	"strings"
	"time"
)

const (
	// StageCount is the number of ordered stages in the program.
	StageCount = 8
	// SlotsPerStage is the number of document slots per stage.
	SlotsPerStage = 5
)

// StageStatus represents the gate state of a single stage.
type StageStatus string

const (
	StageLocked    StageStatus = "locked"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
)

var stageStatusSet = map[StageStatus]struct{}{
	StageLocked:    {},
	StageActive:    {},
	StageCompleted: {},
}

// ParseStageStatus converts a string into a known StageStatus.
func ParseStageStatus(value string) (StageStatus, bool) {
	normalized := StageStatus(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stageStatusSet[normalized]
	return normalized, ok
}

// DocumentStatus represents the review lifecycle of a document.
type DocumentStatus string

const (
	DocNotGenerated      DocumentStatus = "not-generated"
	DocGenerated         DocumentStatus = "generated"
	DocSent              DocumentStatus = "sent"
	DocViewed            DocumentStatus = "viewed"
	DocRevisionRequested DocumentStatus = "revision-requested"
	DocApproved          DocumentStatus = "approved"
)

var allDocumentStatuses = []DocumentStatus{
	DocNotGenerated,
	DocGenerated,
	DocSent,
	DocViewed,
	DocRevisionRequested,
	DocApproved,
}

var documentStatusSet = func() map[DocumentStatus]struct{} {
	set := make(map[DocumentStatus]struct{}, len(allDocumentStatuses))
	for _, status := range allDocumentStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllDocumentStatuses returns the ordered list of known document statuses.
func AllDocumentStatuses() []DocumentStatus {
	cp := make([]DocumentStatus, len(allDocumentStatuses))
	copy(cp, allDocumentStatuses)
	return cp
}

// ParseDocumentStatus converts a string into a known DocumentStatus.
func ParseDocumentStatus(value string) (DocumentStatus, bool) {
	normalized := DocumentStatus(strings.ToLower(strings.TrimSpace(value)))
	_, ok := documentStatusSet[normalized]
	return normalized, ok
}

// Reviewable reports whether a document in this status can be approved or
// sent back for revision.
func (s DocumentStatus) Reviewable() bool {
	switch s {
	case DocGenerated, DocSent, DocViewed, DocRevisionRequested:
		return true
	default:
		return false
	}
}

// Client is the aggregate root for one program participant.
type Client struct {
	ID              string
	Name            string
	Email           string
	Niche           string
	Audience        string
	Goals           string
	BusinessSummary string
	CurrentStage    int
	ContractSigned  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StageRecord tracks the gate state of one stage for one client.
type StageRecord struct {
	ClientID    string
	Stage       int
	Status      StageStatus
	UnlockedAt  *time.Time
	CompletedAt *time.Time
	ApprovedAt  *time.Time
}

// Document is one deliverable occupying a (client, stage, slot) position.
type Document struct {
	ClientID      string
	Stage         int
	Slot          int
	Name          string
	StorageRef    string
	Status        DocumentStatus
	Version       int
	TokensUsed    int
	ProviderID    string
	ModelID       string
	RevisionNotes string
	GeneratedAt   *time.Time
	SentAt        *time.Time
	ViewedAt      *time.Time
	ApprovedAt    *time.Time
	UpdatedAt     time.Time
}

// Progress is a read-only snapshot of a client's position in the program.
type Progress struct {
	ClientID        string
	CurrentStage    int
	Completed       bool
	CompletedStages []int
	Stages          []StageRecord
}

// ActivityWindow aggregates the time-windowed signals the readiness engine
// scores. Values are collected over the trailing window the caller chooses.
type ActivityWindow struct {
	ClientID        string
	CurrentStage    int
	EmailsSent      int
	EmailsOpened    int
	MilestonesDone  int
	MilestonesTotal int
	DocumentsReady  int
	DocumentsTotal  int
	LastActivityAt  *time.Time
	StageEnteredAt  *time.Time
	ContractSigned  bool
}

// ScoreEntry is one append-only score log row.
type ScoreEntry struct {
	ID         int64
	ClientID   string
	Kind       string
	Score      float64
	Status     string
	Components map[string]float64
	Delta      float64
	CreatedAt  time.Time
}

// WebhookSubscription registers an endpoint for event delivery.
type WebhookSubscription struct {
	ID              string
	ClientID        string
	URL             string
	Events          []string
	Secret          string
	Active          bool
	FailureCount    int
	LastTriggeredAt *time.Time
	LastError       string
	CreatedAt       time.Time
}

// Matches reports whether the subscription wants the named event. An empty
// event list or a "*" entry subscribes to everything.
func (s WebhookSubscription) Matches(event string) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, candidate := range s.Events {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.EqualFold(candidate, event) {
			return true
		}
	}
	return false
}
