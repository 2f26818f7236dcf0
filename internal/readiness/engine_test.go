package readiness_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/readiness"
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

func newEngine(t *testing.T, publisher webhooks.Publisher) *readiness.Engine {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	return readiness.NewEngine(cfg, s, publisher, logging.NewNop())
}

func uniformWindow(now time.Time, sub int) *program.ActivityWindow {
	// Every health sub-score lands at the same value so the composite equals
	// the sub-score regardless of weighting.
	daysAgo := 14 * (100 - float64(sub)) / 100
	lastActivity := now.Add(-time.Duration(daysAgo * 24 * float64(time.Hour)))
	return &program.ActivityWindow{
		ClientID:        "client-1",
		CurrentStage:    1,
		EmailsSent:      100,
		EmailsOpened:    sub,
		MilestonesDone:  sub,
		MilestonesTotal: 100,
		DocumentsReady:  sub,
		DocumentsTotal:  100,
		LastActivityAt:  &lastActivity,
	}
}

func TestHealthStatusBoundaries(t *testing.T) {
	engine := newEngine(t, webhooks.NewNop())
	now := time.Now().UTC()
	engine.WithClock(func() time.Time { return now })

	cases := []struct {
		sub    int
		status string
	}{
		{49, readiness.StatusRed},
		{50, readiness.StatusYellow},
		{79, readiness.StatusYellow},
		{80, readiness.StatusGreen},
		{100, readiness.StatusGreen},
	}
	for _, tc := range cases {
		score := engine.EvaluateHealth(uniformWindow(now, tc.sub))
		if score.Value != float64(tc.sub) {
			t.Errorf("sub-score %d: composite = %v, want %d", tc.sub, score.Value, tc.sub)
		}
		if score.Status != tc.status {
			t.Errorf("score %v: status = %s, want %s", score.Value, score.Status, tc.status)
		}
	}
}

func TestHealthScoreClamped(t *testing.T) {
	engine := newEngine(t, webhooks.NewNop())
	now := time.Now().UTC()
	engine.WithClock(func() time.Time { return now })

	old := now.Add(-90 * 24 * time.Hour)
	window := &program.ActivityWindow{
		ClientID:        "client-1",
		CurrentStage:    1,
		EmailsSent:      10,
		EmailsOpened:    25,
		MilestonesDone:  10,
		MilestonesTotal: 2,
		LastActivityAt:  &old,
	}
	score := engine.EvaluateHealth(window)
	if score.Value < 0 || score.Value > 100 {
		t.Errorf("composite %v outside [0,100]", score.Value)
	}
	for name, sub := range score.Components {
		if sub < 0 || sub > 100 {
			t.Errorf("sub-score %s = %v outside [0,100]", name, sub)
		}
	}
}

func TestReadinessBlockers(t *testing.T) {
	engine := newEngine(t, webhooks.NewNop())
	now := time.Now().UTC()
	engine.WithClock(func() time.Time { return now })

	window := &program.ActivityWindow{
		ClientID:        "client-1",
		CurrentStage:    1,
		MilestonesDone:  0,
		MilestonesTotal: 10,
		DocumentsReady:  0,
		DocumentsTotal:  5,
		ContractSigned:  false,
	}
	score := engine.EvaluateReadiness(window)
	if len(score.Blockers) != 5 {
		t.Fatalf("blockers = %v, want all five factors", score.Blockers)
	}

	signed := *window
	signed.ContractSigned = true
	signed.MilestonesDone = 10
	signed.LastActivityAt = &now
	score = engine.EvaluateReadiness(&signed)
	if len(score.Blockers) != 2 {
		t.Errorf("blockers = %v, want asset and stage factors only", score.Blockers)
	}
}

func TestReadinessStuckDetection(t *testing.T) {
	engine := newEngine(t, webhooks.NewNop())
	now := time.Now().UTC()
	engine.WithClock(func() time.Time { return now })

	entered := now.Add(-20 * 24 * time.Hour)
	window := &program.ActivityWindow{
		ClientID:        "client-1",
		CurrentStage:    1,
		MilestonesTotal: 10,
		DocumentsTotal:  5,
		StageEnteredAt:  &entered,
	}
	score := engine.EvaluateReadiness(window)
	if score.Value >= 50 {
		t.Fatalf("composite = %v, expected a failing score", score.Value)
	}
	if !score.Stuck {
		t.Fatal("expected stuck detection after 20 days in stage")
	}
	if score.StuckReason != "milestones behind schedule" {
		t.Errorf("stuck reason = %q, want dominant factor", score.StuckReason)
	}

	recent := now.Add(-2 * 24 * time.Hour)
	window.StageEnteredAt = &recent
	score = engine.EvaluateReadiness(window)
	if score.Stuck {
		t.Error("stuck reported inside the stage grace window")
	}

	healthy := &program.ActivityWindow{
		ClientID:        "client-1",
		CurrentStage:    8,
		MilestonesDone:  10,
		MilestonesTotal: 10,
		DocumentsReady:  40,
		DocumentsTotal:  40,
		LastActivityAt:  &now,
		StageEnteredAt:  &entered,
		ContractSigned:  true,
	}
	score = engine.EvaluateReadiness(healthy)
	if score.Stuck {
		t.Error("stuck reported for a passing score")
	}
}

func TestHealthScorePersistsLogAndEmitsOnChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewClient(t, s, "acme")
	publisher := &capturePublisher{}
	engine := readiness.NewEngine(cfg, s, publisher, logging.NewNop())
	ctx := context.Background()

	now := time.Now().UTC()
	window := &program.ActivityWindow{
		ClientID:        client.ID,
		EmailsSent:      10,
		EmailsOpened:    9,
		MilestonesDone:  9,
		MilestonesTotal: 10,
		LastActivityAt:  &now,
	}
	if err := s.RecordActivity(ctx, window); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}

	first, err := engine.HealthScore(ctx, client.ID)
	if err != nil {
		t.Fatalf("HealthScore: %v", err)
	}
	if first.Delta != 0 {
		t.Errorf("first delta = %v, want 0", first.Delta)
	}
	if got := publisher.count(webhooks.EventHealthChanged); got != 0 {
		t.Errorf("events after first calculation = %d, want 0", got)
	}

	// Engagement collapses; the status band drops.
	window.EmailsOpened = 0
	window.MilestonesDone = 0
	window.LastActivityAt = nil
	if err := s.RecordActivity(ctx, window); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}

	second, err := engine.HealthScore(ctx, client.ID)
	if err != nil {
		t.Fatalf("second HealthScore: %v", err)
	}
	if second.Delta >= 0 {
		t.Errorf("delta = %v, want negative", second.Delta)
	}
	if second.Status == first.Status {
		t.Fatalf("status did not change (%s)", second.Status)
	}
	if got := publisher.count(webhooks.EventHealthChanged); got != 1 {
		t.Errorf("health.changed events = %d, want 1", got)
	}

	history, err := s.ScoreHistory(ctx, client.ID, readiness.KindHealth, 10)
	if err != nil {
		t.Fatalf("ScoreHistory: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history entries = %d, want 2", len(history))
	}
}
