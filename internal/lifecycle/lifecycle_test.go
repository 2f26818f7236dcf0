package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cadence/internal/gate"
	"cadence/internal/lifecycle"
	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/services"
	"cadence/internal/store"
	"cadence/internal/testsupport"
	"cadence/internal/webhooks"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []webhooks.Event
}

func (c *capturePublisher) Publish(_ context.Context, _ string, event webhooks.Event, _ webhooks.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) Close() {}

func (c *capturePublisher) count(event webhooks.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e == event {
			n++
		}
	}
	return n
}

func newManager(t *testing.T) (*lifecycle.Manager, *store.Store, *capturePublisher, *program.Client) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "acme")
	publisher := &capturePublisher{}
	controller := gate.NewController(s, publisher, logging.NewNop())
	return lifecycle.NewManager(s, controller, publisher, logging.NewNop()), s, publisher, client
}

func record(t *testing.T, m *lifecycle.Manager, clientID string, stage, slot int) *program.Document {
	t.Helper()
	doc, err := m.RecordGeneration(context.Background(), clientID, stage, slot, lifecycle.Generation{
		StorageRef: "documents/test.md",
		TokensUsed: 100,
		ProviderID: "openai",
		ModelID:    "gpt-4-turbo-preview",
	})
	if err != nil {
		t.Fatalf("RecordGeneration: %v", err)
	}
	return doc
}

func TestRecordGenerationVersions(t *testing.T) {
	m, _, _, client := newManager(t)

	doc := record(t, m, client.ID, 1, 1)
	if doc.Version != 1 {
		t.Errorf("first version = %d, want 1", doc.Version)
	}
	if doc.Status != program.DocGenerated {
		t.Errorf("status = %s, want generated", doc.Status)
	}
	if doc.Name != program.SlotName(1, 1) {
		t.Errorf("name = %q, want slot default", doc.Name)
	}

	regen := record(t, m, client.ID, 1, 1)
	if regen.Version != 2 {
		t.Errorf("regenerated version = %d, want 2", regen.Version)
	}
}

func TestRecordGenerationResetsReviewState(t *testing.T) {
	m, s, _, client := newManager(t)
	ctx := context.Background()

	record(t, m, client.ID, 1, 1)
	if _, err := m.MarkSent(ctx, client.ID, 1, 1); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if _, err := m.RequestRevision(ctx, client.ID, 1, 1, "tighten the intro"); err != nil {
		t.Fatalf("RequestRevision: %v", err)
	}

	record(t, m, client.ID, 1, 1)

	doc, err := s.GetDocument(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Status != program.DocGenerated {
		t.Errorf("status = %s, want generated", doc.Status)
	}
	if doc.RevisionNotes != "" {
		t.Errorf("revision notes = %q, want cleared", doc.RevisionNotes)
	}
	if doc.SentAt != nil || doc.ViewedAt != nil || doc.ApprovedAt != nil {
		t.Error("review timestamps not cleared on regeneration")
	}
}

func TestRecordGenerationRejectsLockedStage(t *testing.T) {
	m, _, _, client := newManager(t)

	_, err := m.RecordGeneration(context.Background(), client.ID, 2, 1, lifecycle.Generation{})
	if !errors.Is(err, services.ErrStageLocked) {
		t.Fatalf("RecordGeneration(locked stage) = %v, want ErrStageLocked", err)
	}
}

func TestMarkSentAndViewedAreIdempotent(t *testing.T) {
	m, _, _, client := newManager(t)
	ctx := context.Background()

	record(t, m, client.ID, 1, 1)

	first, err := m.MarkSent(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if first.Status != program.DocSent || first.SentAt == nil {
		t.Fatalf("after MarkSent: status=%s sentAt=%v", first.Status, first.SentAt)
	}

	second, err := m.MarkSent(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("repeat MarkSent: %v", err)
	}
	if !second.SentAt.Equal(*first.SentAt) {
		t.Error("repeat MarkSent rewrote the sent timestamp")
	}

	viewed, err := m.MarkViewed(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}
	if viewed.Status != program.DocViewed || viewed.ViewedAt == nil {
		t.Fatalf("after MarkViewed: status=%s viewedAt=%v", viewed.Status, viewed.ViewedAt)
	}

	again, err := m.MarkViewed(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("repeat MarkViewed: %v", err)
	}
	if !again.ViewedAt.Equal(*viewed.ViewedAt) {
		t.Error("repeat MarkViewed rewrote the viewed timestamp")
	}
}

func TestMarkSentRequiresGeneratedDocument(t *testing.T) {
	m, _, _, client := newManager(t)

	_, err := m.MarkSent(context.Background(), client.ID, 1, 1)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("MarkSent(no document) = %v, want ErrNotFound", err)
	}
}

func TestRequestRevisionIdempotent(t *testing.T) {
	m, s, publisher, client := newManager(t)
	ctx := context.Background()

	record(t, m, client.ID, 1, 1)
	if _, err := m.RequestRevision(ctx, client.ID, 1, 1, "first pass"); err != nil {
		t.Fatalf("RequestRevision: %v", err)
	}
	if _, err := m.RequestRevision(ctx, client.ID, 1, 1, "second pass"); err != nil {
		t.Fatalf("repeat RequestRevision: %v", err)
	}

	doc, err := s.GetDocument(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Status != program.DocRevisionRequested {
		t.Errorf("status = %s, want revision-requested", doc.Status)
	}
	if doc.RevisionNotes != "second pass" {
		t.Errorf("notes = %q, want latest notes", doc.RevisionNotes)
	}
	if got := publisher.count(webhooks.EventDocumentRevisionRequested); got != 1 {
		t.Errorf("revision events = %d, want 1", got)
	}
}

func TestApproveClearsRevisionAndEvaluatesStage(t *testing.T) {
	m, s, publisher, client := newManager(t)
	ctx := context.Background()

	for slot := 1; slot <= program.SlotsPerStage; slot++ {
		record(t, m, client.ID, 1, slot)
	}
	if _, err := m.RequestRevision(ctx, client.ID, 1, 3, "rework"); err != nil {
		t.Fatalf("RequestRevision: %v", err)
	}

	for slot := 1; slot <= program.SlotsPerStage; slot++ {
		if _, err := m.Approve(ctx, client.ID, 1, slot); err != nil {
			t.Fatalf("Approve(slot %d): %v", slot, err)
		}
	}

	doc, err := s.GetDocument(ctx, client.ID, 1, 3)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Status != program.DocApproved || doc.RevisionNotes != "" || doc.ApprovedAt == nil {
		t.Errorf("approved doc: status=%s notes=%q approvedAt=%v", doc.Status, doc.RevisionNotes, doc.ApprovedAt)
	}

	recordRow, err := s.GetStageRecord(ctx, client.ID, 1)
	if err != nil {
		t.Fatalf("GetStageRecord: %v", err)
	}
	if recordRow.Status != program.StageCompleted {
		t.Errorf("stage 1 status = %s, want completed after final approval", recordRow.Status)
	}
	if got := publisher.count(webhooks.EventDocumentApproved); got != program.SlotsPerStage {
		t.Errorf("approval events = %d, want %d", got, program.SlotsPerStage)
	}
	if got := publisher.count(webhooks.EventStageCompleted); got != 1 {
		t.Errorf("stage completed events = %d, want 1", got)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	m, _, publisher, client := newManager(t)
	ctx := context.Background()

	record(t, m, client.ID, 1, 1)
	first, err := m.Approve(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	second, err := m.Approve(ctx, client.ID, 1, 1)
	if err != nil {
		t.Fatalf("repeat Approve: %v", err)
	}
	if !second.ApprovedAt.Equal(*first.ApprovedAt) {
		t.Error("repeat Approve rewrote the approved timestamp")
	}
	if got := publisher.count(webhooks.EventDocumentApproved); got != 1 {
		t.Errorf("approval events = %d, want 1", got)
	}
}
