package api

import (
	"errors"
	"testing"
	"time"

	"cadence/internal/generation"
	"cadence/internal/program"
)

func TestFromDocumentFormatsTimestamps(t *testing.T) {
	generated := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	doc := &program.Document{
		Stage:       2,
		Slot:        3,
		Name:        "Messaging Framework",
		Status:      program.DocGenerated,
		Version:     2,
		TokensUsed:  1200,
		ProviderID:  "openai",
		ModelID:     "gpt-4-turbo-preview",
		GeneratedAt: &generated,
	}
	view := FromDocument(doc)
	if view.GeneratedAt != "2026-03-14T09:26:53.000Z" {
		t.Errorf("generatedAt = %q", view.GeneratedAt)
	}
	if view.SentAt != "" || view.ApprovedAt != "" {
		t.Error("unset timestamps rendered non-empty")
	}
	if view.Status != "generated" || view.Version != 2 {
		t.Errorf("status/version = %s/%d", view.Status, view.Version)
	}
}

func TestFromStageResultMapsFailures(t *testing.T) {
	result := &generation.StageResult{
		ClientID:       "client-1",
		Stage:          1,
		Succeeded:      []int{1, 3, 4},
		TotalRequested: 5,
		Failed: []generation.SlotError{
			{Slot: 2, Name: "Founder Story", Err: errors.New("rate limited")},
			{Slot: 5, Name: "Competitive Landscape", Err: errors.New("timeout")},
		},
	}
	view := FromStageResult(result)
	if len(view.Succeeded) != 3 || len(view.Failed) != 2 {
		t.Fatalf("succeeded/failed = %d/%d", len(view.Succeeded), len(view.Failed))
	}
	if view.Failed[0].Slot != 2 || view.Failed[0].Error != "rate limited" {
		t.Errorf("failure 0 = %+v", view.Failed[0])
	}
}

func TestFromProgressIncludesThemes(t *testing.T) {
	unlocked := time.Now().UTC()
	progress := &program.Progress{
		ClientID:     "client-1",
		CurrentStage: 1,
		Stages: []program.StageRecord{
			{Stage: 1, Status: program.StageActive, UnlockedAt: &unlocked},
			{Stage: 2, Status: program.StageLocked},
		},
	}
	view := FromProgress(progress)
	if len(view.Stages) != 2 {
		t.Fatalf("stages = %d", len(view.Stages))
	}
	if view.Stages[0].Theme == "" {
		t.Error("stage theme missing")
	}
	if view.Stages[1].UnlockedAt != "" {
		t.Error("locked stage has an unlocked timestamp")
	}
}
