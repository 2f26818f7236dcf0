package api

import (
	"time"

	"cadence/internal/generation"
	"cadence/internal/program"
	"cadence/internal/readiness"
)

// FromClient converts a client record to its API representation.
func FromClient(client *program.Client) ClientView {
	if client == nil {
		return ClientView{}
	}
	view := ClientView{
		ID:              client.ID,
		Name:            client.Name,
		Email:           client.Email,
		Niche:           client.Niche,
		Audience:        client.Audience,
		Goals:           client.Goals,
		BusinessSummary: client.BusinessSummary,
		CurrentStage:    client.CurrentStage,
		ContractSigned:  client.ContractSigned,
	}
	view.CreatedAt = formatTime(client.CreatedAt)
	view.UpdatedAt = formatTime(client.UpdatedAt)
	return view
}

// FromProgress converts a progress snapshot to its API representation.
func FromProgress(progress *program.Progress) ProgressView {
	if progress == nil {
		return ProgressView{}
	}
	view := ProgressView{
		ClientID:        progress.ClientID,
		CurrentStage:    progress.CurrentStage,
		Completed:       progress.Completed,
		CompletedStages: progress.CompletedStages,
	}
	for _, record := range progress.Stages {
		stage := StageView{
			Stage:  record.Stage,
			Theme:  generation.StageTheme(record.Stage),
			Status: string(record.Status),
		}
		stage.UnlockedAt = formatTimePtr(record.UnlockedAt)
		stage.CompletedAt = formatTimePtr(record.CompletedAt)
		view.Stages = append(view.Stages, stage)
	}
	return view
}

// FromDocument converts a document record to its API representation.
func FromDocument(doc *program.Document) DocumentView {
	if doc == nil {
		return DocumentView{}
	}
	return DocumentView{
		Stage:         doc.Stage,
		Slot:          doc.Slot,
		Name:          doc.Name,
		Status:        string(doc.Status),
		Version:       doc.Version,
		TokensUsed:    doc.TokensUsed,
		Provider:      doc.ProviderID,
		Model:         doc.ModelID,
		RevisionNotes: doc.RevisionNotes,
		GeneratedAt:   formatTimePtr(doc.GeneratedAt),
		SentAt:        formatTimePtr(doc.SentAt),
		ViewedAt:      formatTimePtr(doc.ViewedAt),
		ApprovedAt:    formatTimePtr(doc.ApprovedAt),
	}
}

// FromDocuments converts a slice of document records into API DTOs.
func FromDocuments(docs []program.Document) []DocumentView {
	if len(docs) == 0 {
		return nil
	}
	out := make([]DocumentView, 0, len(docs))
	for i := range docs {
		out = append(out, FromDocument(&docs[i]))
	}
	return out
}

// FromStageResult converts a generation run summary into its API form.
func FromStageResult(result *generation.StageResult) GenerationView {
	if result == nil {
		return GenerationView{}
	}
	view := GenerationView{
		ClientID:       result.ClientID,
		Stage:          result.Stage,
		Succeeded:      result.Succeeded,
		TotalRequested: result.TotalRequested,
		TokensUsed:     result.TokensUsed,
	}
	for _, failure := range result.Failed {
		view.Failed = append(view.Failed, SlotFailureView{
			Slot:  failure.Slot,
			Name:  failure.Name,
			Error: failure.Err.Error(),
		})
	}
	return view
}

// FromScore converts a computed score into its API form.
func FromScore(score *readiness.Score) ScoreView {
	if score == nil {
		return ScoreView{}
	}
	return ScoreView{
		ClientID:    score.ClientID,
		Kind:        score.Kind,
		Score:       score.Value,
		Status:      score.Status,
		Components:  score.Components,
		Delta:       score.Delta,
		Blockers:    score.Blockers,
		Stuck:       score.Stuck,
		StuckReason: score.StuckReason,
	}
}

// FromSubscription converts a webhook subscription into its API form.
func FromSubscription(sub *program.WebhookSubscription) SubscriptionView {
	if sub == nil {
		return SubscriptionView{}
	}
	return SubscriptionView{
		ID:              sub.ID,
		ClientID:        sub.ClientID,
		URL:             sub.URL,
		Events:          sub.Events,
		Active:          sub.Active,
		FailureCount:    sub.FailureCount,
		LastTriggeredAt: formatTimePtr(sub.LastTriggeredAt),
		LastError:       sub.LastError,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
