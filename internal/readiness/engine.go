package readiness

import (
	"context"
	"log/slog"
	"math"
	"time"

	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/webhooks"
)

const (
	KindHealth    = "health"
	KindReadiness = "readiness"

	StatusRed    = "Red"
	StatusYellow = "Yellow"
	StatusGreen  = "Green"
)

// activityDecayDays is the window over which the activity sub-score decays
// linearly from 100 to 0.
const activityDecayDays = 14.0

// blockerThreshold marks a sub-factor as failing for the blockers list.
const blockerThreshold = 60.0

// Score is one computed composite with its breakdown.
type Score struct {
	ClientID    string
	Kind        string
	Value       float64
	Status      string
	Components  map[string]float64
	Delta       float64
	Blockers    []string
	Stuck       bool
	StuckReason string
}

// Store is the persistence surface the engine needs.
type Store interface {
	GetActivityWindow(ctx context.Context, clientID string) (*program.ActivityWindow, error)
	LatestScore(ctx context.Context, clientID, kind string) (*program.ScoreEntry, error)
	AppendScoreLog(ctx context.Context, entry *program.ScoreEntry) error
}

// Engine computes the health and launch-readiness composites. Weights come
// from validated configuration; each recalculation appends a score log entry
// with the signed delta from the previous one.
type Engine struct {
	store      Store
	publisher  webhooks.Publisher
	logger     *slog.Logger
	health     config.HealthWeights
	readiness  config.ReadinessWeights
	stuckAfter float64
	now        func() time.Time
}

// NewEngine wires the scoring engine. A nil publisher suppresses events.
func NewEngine(cfg *config.Config, store Store, publisher webhooks.Publisher, logger *slog.Logger) *Engine {
	if publisher == nil {
		publisher = webhooks.NewNop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	stuckAfter := float64(cfg.Scores.StuckAfterDays)
	if stuckAfter <= 0 {
		stuckAfter = 14
	}
	return &Engine{
		store:      store,
		publisher:  publisher,
		logger:     logger.With(logging.String(logging.FieldComponent, "readiness")),
		health:     cfg.Scores.Health,
		readiness:  cfg.Scores.Readiness,
		stuckAfter: stuckAfter,
		now:        time.Now,
	}
}

// WithClock overrides the engine clock (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// HealthScore recalculates the client's health composite, appends it to the
// score log, and emits health.changed when the status band moved.
func (e *Engine) HealthScore(ctx context.Context, clientID string) (*Score, error) {
	window, err := e.store.GetActivityWindow(ctx, clientID)
	if err != nil {
		return nil, err
	}
	score := e.EvaluateHealth(window)
	if err := e.record(ctx, clientID, score, true); err != nil {
		return nil, err
	}
	return score, nil
}

// LaunchReadiness recalculates the client's launch-readiness composite and
// appends it to the score log.
func (e *Engine) LaunchReadiness(ctx context.Context, clientID string) (*Score, error) {
	window, err := e.store.GetActivityWindow(ctx, clientID)
	if err != nil {
		return nil, err
	}
	score := e.EvaluateReadiness(window)
	if err := e.record(ctx, clientID, score, false); err != nil {
		return nil, err
	}
	return score, nil
}

// EvaluateHealth computes the health composite from a window without
// touching storage.
func (e *Engine) EvaluateHealth(window *program.ActivityWindow) *Score {
	components := map[string]float64{
		"email":     emailScore(window),
		"milestone": milestoneScore(window),
		"activity":  e.activityScore(window),
		"progress":  assetScore(window),
	}
	value := round2(clamp(e.health.Email*components["email"] +
		e.health.Milestone*components["milestone"] +
		e.health.Activity*components["activity"] +
		e.health.Progress*components["progress"]))
	return &Score{
		ClientID:   window.ClientID,
		Kind:       KindHealth,
		Value:      value,
		Status:     statusFor(value),
		Components: components,
	}
}

// EvaluateReadiness computes the launch-readiness composite from a window
// without touching storage, including blockers and stuck detection.
func (e *Engine) EvaluateReadiness(window *program.ActivityWindow) *Score {
	components := map[string]float64{
		"milestoneCompletion": milestoneScore(window),
		"assetCompleteness":   assetScore(window),
		"recentActivity":      e.activityScore(window),
		"stageProgress":       stageProgressScore(window),
		"contractSigned":      contractScore(window),
	}
	weights := map[string]float64{
		"milestoneCompletion": e.readiness.MilestoneCompletion,
		"assetCompleteness":   e.readiness.AssetCompleteness,
		"recentActivity":      e.readiness.RecentActivity,
		"stageProgress":       e.readiness.StageProgress,
		"contractSigned":      e.readiness.ContractSigned,
	}
	var value float64
	for name, weight := range weights {
		value += weight * components[name]
	}
	value = round2(clamp(value))

	score := &Score{
		ClientID:   window.ClientID,
		Kind:       KindReadiness,
		Value:      value,
		Status:     statusFor(value),
		Components: components,
		Blockers:   blockers(components),
	}

	if value < 50 && e.daysInStage(window) > e.stuckAfter {
		score.Stuck = true
		score.StuckReason = dominantMissingFactor(components, weights)
	}
	return score
}

// record appends the score log row and, for health, emits health.changed on
// a status band transition.
func (e *Engine) record(ctx context.Context, clientID string, score *Score, emitOnChange bool) error {
	previous, err := e.store.LatestScore(ctx, clientID, score.Kind)
	if err != nil {
		return err
	}
	if previous != nil {
		score.Delta = score.Value - previous.Score
	}

	entry := &program.ScoreEntry{
		ClientID:   clientID,
		Kind:       score.Kind,
		Score:      score.Value,
		Status:     score.Status,
		Components: score.Components,
		Delta:      score.Delta,
	}
	if err := e.store.AppendScoreLog(ctx, entry); err != nil {
		return err
	}

	if emitOnChange && previous != nil && previous.Status != score.Status {
		e.logger.Info("health status changed",
			logging.String(logging.FieldClientID, clientID),
			logging.String("previous", previous.Status),
			logging.String("status", score.Status))
		if err := e.publisher.Publish(ctx, clientID, webhooks.EventHealthChanged, webhooks.Payload{
			"clientId":       clientID,
			"score":          score.Value,
			"status":         score.Status,
			"previousStatus": previous.Status,
			"delta":          score.Delta,
		}); err != nil {
			e.logger.Warn("publish event failed",
				logging.String(logging.FieldEvent, string(webhooks.EventHealthChanged)),
				logging.Error(err))
		}
	}
	return nil
}

func (e *Engine) daysInStage(window *program.ActivityWindow) float64 {
	if window.StageEnteredAt == nil {
		return 0
	}
	return e.now().Sub(*window.StageEnteredAt).Hours() / 24
}

// emailScore is the open rate. A client with no tracked emails yet scores a
// neutral 50 rather than a failing 0.
func emailScore(window *program.ActivityWindow) float64 {
	if window.EmailsSent <= 0 {
		return 50
	}
	return clamp(100 * float64(window.EmailsOpened) / float64(window.EmailsSent))
}

func milestoneScore(window *program.ActivityWindow) float64 {
	if window.MilestonesTotal <= 0 {
		return 0
	}
	return clamp(100 * float64(window.MilestonesDone) / float64(window.MilestonesTotal))
}

// activityScore decays linearly from 100 at the moment of the last tracked
// activity to 0 after two weeks of silence.
func (e *Engine) activityScore(window *program.ActivityWindow) float64 {
	if window.LastActivityAt == nil {
		return 0
	}
	days := e.now().Sub(*window.LastActivityAt).Hours() / 24
	return clamp(100 * (activityDecayDays - days) / activityDecayDays)
}

// assetScore is the share of expected documents (five per unlocked stage)
// that reached approval.
func assetScore(window *program.ActivityWindow) float64 {
	if window.DocumentsTotal <= 0 {
		return 0
	}
	return clamp(100 * float64(window.DocumentsReady) / float64(window.DocumentsTotal))
}

func stageProgressScore(window *program.ActivityWindow) float64 {
	if window.CurrentStage <= 1 {
		return 0
	}
	return clamp(100 * float64(window.CurrentStage-1) / float64(program.StageCount-1))
}

func contractScore(window *program.ActivityWindow) float64 {
	if window.ContractSigned {
		return 100
	}
	return 0
}

var blockerMessages = map[string]string{
	"milestoneCompletion": "milestones behind schedule",
	"assetCompleteness":   "stage documents not yet approved",
	"recentActivity":      "no recent client activity",
	"stageProgress":       "early in the program",
	"contractSigned":      "contract not signed",
}

// blockerOrder keeps the blockers list deterministic.
var blockerOrder = []string{
	"milestoneCompletion", "assetCompleteness", "recentActivity", "stageProgress", "contractSigned",
}

func blockers(components map[string]float64) []string {
	var out []string
	for _, name := range blockerOrder {
		if components[name] < blockerThreshold {
			out = append(out, blockerMessages[name])
		}
	}
	return out
}

// dominantMissingFactor names the sub-factor losing the most weighted points.
func dominantMissingFactor(components, weights map[string]float64) string {
	var (
		worst     string
		worstLoss float64
	)
	for _, name := range blockerOrder {
		loss := weights[name] * (100 - components[name])
		if loss > worstLoss {
			worstLoss = loss
			worst = name
		}
	}
	if worst == "" {
		return ""
	}
	return blockerMessages[worst]
}

func statusFor(value float64) string {
	switch {
	case value >= 80:
		return StatusGreen
	case value >= 50:
		return StatusYellow
	default:
		return StatusRed
	}
}

// round2 keeps the stored composite stable to two decimals so the status
// bands behave exactly at their documented boundaries.
func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
