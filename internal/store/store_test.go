package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cadence/internal/program"
	"cadence/internal/services"
	"cadence/internal/testsupport"
)

func TestCreateClientSeedsStageTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "seeded")
	ctx := context.Background()

	if client.CurrentStage != 1 {
		t.Errorf("current stage = %d, want 1", client.CurrentStage)
	}

	progress, err := s.GetProgress(ctx, client.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if len(progress.Stages) != program.StageCount {
		t.Fatalf("stage rows = %d, want %d", len(progress.Stages), program.StageCount)
	}
	for _, record := range progress.Stages {
		switch record.Stage {
		case 1:
			if record.Status != program.StageActive {
				t.Errorf("stage 1 status = %q, want active", record.Status)
			}
			if record.UnlockedAt == nil {
				t.Error("stage 1 has no unlocked timestamp")
			}
		default:
			if record.Status != program.StageLocked {
				t.Errorf("stage %d status = %q, want locked", record.Stage, record.Status)
			}
		}
	}
}

func TestCreateClientRequiresName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	err := s.CreateClient(context.Background(), &program.Client{Name: "   "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSaveDocumentVersionCompareAndSwap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "cas")
	ctx := context.Background()

	now := time.Now().UTC()
	v1 := &program.Document{
		ClientID:    client.ID,
		Stage:       1,
		Slot:        1,
		Name:        program.SlotName(1, 1),
		Status:      program.DocGenerated,
		Version:     1,
		GeneratedAt: &now,
	}
	if err := s.SaveDocumentVersion(ctx, v1); err != nil {
		t.Fatalf("save v1: %v", err)
	}

	// Advance the review state so the regeneration reset is observable.
	v1.Status = program.DocApproved
	v1.ApprovedAt = &now
	v1.RevisionNotes = "tighten the intro"
	if err := s.UpdateDocument(ctx, v1); err != nil {
		t.Fatalf("update v1: %v", err)
	}

	v2 := &program.Document{
		ClientID:    client.ID,
		Stage:       1,
		Slot:        1,
		Name:        program.SlotName(1, 1),
		Status:      program.DocGenerated,
		Version:     2,
		GeneratedAt: &now,
	}
	if err := s.SaveDocumentVersion(ctx, v2); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	stored, err := s.GetDocument(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if stored.Version != 2 || stored.Status != program.DocGenerated {
		t.Errorf("stored = v%d %q, want v2 generated", stored.Version, stored.Status)
	}
	if stored.ApprovedAt != nil || stored.RevisionNotes != "" {
		t.Error("regeneration did not reset review state")
	}

	// A writer still holding v1 loses the race.
	stale := *v2
	stale.Version = 2
	if err := s.SaveDocumentVersion(ctx, &stale); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("stale save err = %v, want ErrConflict", err)
	}
	skipped := *v2
	skipped.Version = 4
	if err := s.SaveDocumentVersion(ctx, &skipped); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("skipped version err = %v, want ErrConflict", err)
	}
}

func TestUpdateDocumentRejectsStaleVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "stale")
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &program.Document{
		ClientID: client.ID, Stage: 1, Slot: 2,
		Name: program.SlotName(1, 2), Status: program.DocGenerated,
		Version: 1, GeneratedAt: &now,
	}
	if err := s.SaveDocumentVersion(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	stale := *doc
	stale.Version = 3
	stale.Status = program.DocSent
	if err := s.UpdateDocument(ctx, &stale); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestTransitionStageIsConditional(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "transition")
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.TransitionStage(ctx, client.ID, 2, program.StageLocked, program.StageActive, now); err != nil {
		t.Fatalf("unlock stage 2: %v", err)
	}
	refreshed, err := s.GetClient(ctx, client.ID)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if refreshed.CurrentStage != 2 {
		t.Errorf("current stage = %d, want 2", refreshed.CurrentStage)
	}

	// The precondition already moved; a second identical transition misses.
	err = s.TransitionStage(ctx, client.ID, 2, program.StageLocked, program.StageActive, now)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "empty")

	_, err := s.GetDocument(context.Background(), client.ID, 1, 1)
	if !services.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSubscriptionCircuitBreaker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "hooks")
	ctx := context.Background()

	sub := &program.WebhookSubscription{
		ClientID: client.ID,
		URL:      "https://example.com/hook",
		Events:   []string{"stage.completed"},
		Secret:   "shh",
	}
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	const threshold = 3
	for attempt := 1; attempt <= threshold; attempt++ {
		count, tripped, err := s.MarkDeliveryFailure(ctx, sub.ID, "connection refused", threshold)
		if err != nil {
			t.Fatalf("MarkDeliveryFailure %d: %v", attempt, err)
		}
		if count != attempt {
			t.Errorf("failure count = %d, want %d", count, attempt)
		}
		if tripped != (attempt == threshold) {
			t.Errorf("attempt %d tripped = %v", attempt, tripped)
		}
	}

	active, err := s.ActiveSubscriptions(ctx, client.ID)
	if err != nil {
		t.Fatalf("ActiveSubscriptions: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active subscriptions = %d, want 0 after trip", len(active))
	}

	if err := s.ReactivateSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("ReactivateSubscription: %v", err)
	}
	active, err = s.ActiveSubscriptions(ctx, client.ID)
	if err != nil {
		t.Fatalf("ActiveSubscriptions: %v", err)
	}
	if len(active) != 1 || active[0].FailureCount != 0 {
		t.Fatalf("after reactivate: %+v", active)
	}
}

func TestMarkDeliverySuccessResetsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "recovery")
	ctx := context.Background()

	sub := &program.WebhookSubscription{ClientID: client.ID, URL: "https://example.com/hook"}
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if _, _, err := s.MarkDeliveryFailure(ctx, sub.ID, "boom", 5); err != nil {
		t.Fatalf("MarkDeliveryFailure: %v", err)
	}

	at := time.Now().UTC()
	if err := s.MarkDeliverySuccess(ctx, sub.ID, at); err != nil {
		t.Fatalf("MarkDeliverySuccess: %v", err)
	}
	stored, err := s.GetSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if stored.FailureCount != 0 || stored.LastError != "" {
		t.Errorf("failure state not cleared: %+v", stored)
	}
	if stored.LastTriggeredAt == nil {
		t.Error("last triggered timestamp not recorded")
	}
}

func TestScoreLogAppendAndLatest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "scores")
	ctx := context.Background()

	first := &program.ScoreEntry{
		ClientID:   client.ID,
		Kind:       "health",
		Score:      72.5,
		Status:     "yellow",
		Components: map[string]float64{"email": 80, "milestone": 60},
	}
	if err := s.AppendScoreLog(ctx, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	second := &program.ScoreEntry{
		ClientID: client.ID,
		Kind:     "health",
		Score:    81.0,
		Status:   "green",
		Delta:    8.5,
	}
	if err := s.AppendScoreLog(ctx, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	latest, err := s.LatestScore(ctx, client.ID, "health")
	if err != nil {
		t.Fatalf("LatestScore: %v", err)
	}
	if latest.Score != 81.0 || latest.Status != "green" {
		t.Errorf("latest = %+v", latest)
	}

	history, err := s.ScoreHistory(ctx, client.ID, "health", 10)
	if err != nil {
		t.Fatalf("ScoreHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d entries, want 2", len(history))
	}
}
