package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ClientView describes a client in a transport-friendly format.
type ClientView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Niche           string `json:"niche,omitempty"`
	Audience        string `json:"audience,omitempty"`
	Goals           string `json:"goals,omitempty"`
	BusinessSummary string `json:"businessSummary,omitempty"`
	CurrentStage    int    `json:"currentStage"`
	ContractSigned  bool   `json:"contractSigned"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// StageView describes one stage gate row.
type StageView struct {
	Stage       int    `json:"stage"`
	Theme       string `json:"theme,omitempty"`
	Status      string `json:"status"`
	UnlockedAt  string `json:"unlockedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// ProgressView is the full stage-table snapshot for a client.
type ProgressView struct {
	ClientID        string      `json:"clientId"`
	CurrentStage    int         `json:"currentStage"`
	Completed       bool        `json:"completed"`
	CompletedStages []int       `json:"completedStages,omitempty"`
	Stages          []StageView `json:"stages"`
}

// DocumentView describes a document slot.
type DocumentView struct {
	Stage         int    `json:"stage"`
	Slot          int    `json:"slot"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	Version       int    `json:"version"`
	TokensUsed    int    `json:"tokensUsed,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	RevisionNotes string `json:"revisionNotes,omitempty"`
	GeneratedAt   string `json:"generatedAt,omitempty"`
	SentAt        string `json:"sentAt,omitempty"`
	ViewedAt      string `json:"viewedAt,omitempty"`
	ApprovedAt    string `json:"approvedAt,omitempty"`
}

// SlotFailureView reports one failed slot of a stage generation run.
type SlotFailureView struct {
	Slot  int    `json:"slot"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// GenerationView summarizes a stage generation run.
type GenerationView struct {
	ClientID       string            `json:"clientId"`
	Stage          int               `json:"stage"`
	Succeeded      []int             `json:"succeeded"`
	Failed         []SlotFailureView `json:"failed,omitempty"`
	TotalRequested int               `json:"totalRequested"`
	TokensUsed     int               `json:"tokensUsed"`
}

// ScoreView describes one computed composite score.
type ScoreView struct {
	ClientID    string             `json:"clientId"`
	Kind        string             `json:"kind"`
	Score       float64            `json:"score"`
	Status      string             `json:"status"`
	Components  map[string]float64 `json:"components"`
	Delta       float64            `json:"delta"`
	Blockers    []string           `json:"blockers,omitempty"`
	Stuck       bool               `json:"stuck,omitempty"`
	StuckReason string             `json:"stuckReason,omitempty"`
}

// SubscriptionView describes a webhook subscription.
type SubscriptionView struct {
	ID              string   `json:"id"`
	ClientID        string   `json:"clientId"`
	URL             string   `json:"url"`
	Events          []string `json:"events,omitempty"`
	Active          bool     `json:"active"`
	FailureCount    int      `json:"failureCount"`
	LastTriggeredAt string   `json:"lastTriggeredAt,omitempty"`
	LastError       string   `json:"lastError,omitempty"`
}

// ProgressResponse wraps the progress snapshot with its documents.
type ProgressResponse struct {
	Client    ClientView     `json:"client"`
	Progress  ProgressView   `json:"progress"`
	Documents []DocumentView `json:"documents,omitempty"`
}
