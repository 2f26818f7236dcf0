package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cadence/internal/config"
	"cadence/internal/gate"
	"cadence/internal/lifecycle"
	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/services"
	"cadence/internal/services/llm"
	"cadence/internal/webhooks"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	GetClient(ctx context.Context, clientID string) (*program.Client, error)
	GetDocument(ctx context.Context, clientID string, stage, slot int) (*program.Document, error)
}

// SlotError records a single slot that failed during a stage run.
type SlotError struct {
	Slot int
	Name string
	Err  error
}

func (e SlotError) Error() string {
	return fmt.Sprintf("slot %d (%s): %v", e.Slot, e.Name, e.Err)
}

// StageResult summarizes a stage generation run. A run is partial-failure
// tolerant: one slot failing never aborts the remaining slots.
type StageResult struct {
	ClientID       string
	Stage          int
	Succeeded      []int
	Failed         []SlotError
	TotalRequested int
	TokensUsed     int
}

// Orchestrator drives document generation: prompt assembly, the provider
// call, content storage, and lifecycle bookkeeping. Generation requests are
// serialized per client; a request for a client that is already generating
// is rejected rather than queued.
type Orchestrator struct {
	store     Store
	manager   *lifecycle.Manager
	gate      *gate.Controller
	provider  llm.Provider
	publisher webhooks.Publisher
	logger    *slog.Logger

	dataDir     string
	temperature float64
	maxTokens   int
	slotDelay   time.Duration
	sleep       func(time.Duration)

	mu       sync.Mutex
	inflight map[string]bool
}

// NewOrchestrator wires the generation orchestrator.
func NewOrchestrator(cfg *config.Config, store Store, manager *lifecycle.Manager, controller *gate.Controller, provider llm.Provider, publisher webhooks.Publisher, logger *slog.Logger) *Orchestrator {
	if publisher == nil {
		publisher = webhooks.NewNop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		store:       store,
		manager:     manager,
		gate:        controller,
		provider:    provider,
		publisher:   publisher,
		logger:      logger.With(logging.String(logging.FieldComponent, "generation")),
		dataDir:     cfg.Paths.DataDir,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
		slotDelay:   time.Duration(cfg.LLM.SlotDelaySeconds) * time.Second,
		sleep:       time.Sleep,
		inflight:    make(map[string]bool),
	}
}

// WithSleeper overrides how inter-slot delays sleep (tests).
func (o *Orchestrator) WithSleeper(sleep func(time.Duration)) *Orchestrator {
	if sleep != nil {
		o.sleep = sleep
	}
	return o
}

func (o *Orchestrator) acquire(clientID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[clientID] {
		return services.Wrap(services.ErrValidation, "generation", "acquire",
			fmt.Sprintf("generation already in progress for client %s", clientID), nil)
	}
	o.inflight[clientID] = true
	return nil
}

func (o *Orchestrator) release(clientID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, clientID)
}

// GenerateStage generates the slots of one stage in fixed order 1..5,
// pausing between provider calls. Slot failures are collected, not fatal.
func (o *Orchestrator) GenerateStage(ctx context.Context, clientID string, stage int) (*StageResult, error) {
	if err := program.ValidateStage(stage); err != nil {
		return nil, services.Wrap(services.ErrValidation, "generation", "generate stage", err.Error(), nil)
	}
	if err := o.gate.Guard(ctx, clientID, stage); err != nil {
		return nil, err
	}
	if err := o.acquire(clientID); err != nil {
		return nil, err
	}
	defer o.release(clientID)

	client, err := o.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	result := &StageResult{
		ClientID:       clientID,
		Stage:          stage,
		TotalRequested: program.SlotsPerStage,
	}
	var prior []priorSection
	for slot := 1; slot <= program.SlotsPerStage; slot++ {
		if slot > 1 && o.slotDelay > 0 {
			o.sleep(o.slotDelay)
		}
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrTimeout, "generation", "generate stage", "run interrupted", err)
		}
		doc, content, err := o.generateSlot(ctx, client, stage, slot, prior)
		if err != nil {
			name := program.SlotName(stage, slot)
			o.logger.Error("slot generation failed",
				logging.String(logging.FieldClientID, clientID),
				logging.Int(logging.FieldStage, stage),
				logging.Int(logging.FieldSlot, slot),
				logging.Error(err))
			result.Failed = append(result.Failed, SlotError{Slot: slot, Name: name, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, slot)
		result.TokensUsed += doc.TokensUsed
		prior = append(prior, priorSection{name: doc.Name, content: content})
	}

	o.logger.Info("stage generation finished",
		logging.String(logging.FieldClientID, clientID),
		logging.Int(logging.FieldStage, stage),
		logging.Int("succeeded", len(result.Succeeded)),
		logging.Int("failed", len(result.Failed)))
	return result, nil
}

// GenerateDocument generates or regenerates a single slot.
func (o *Orchestrator) GenerateDocument(ctx context.Context, clientID string, stage, slot int) (*program.Document, error) {
	if err := program.ValidateStage(stage); err != nil {
		return nil, services.Wrap(services.ErrValidation, "generation", "generate document", err.Error(), nil)
	}
	if err := program.ValidateSlot(slot); err != nil {
		return nil, services.Wrap(services.ErrValidation, "generation", "generate document", err.Error(), nil)
	}
	if err := o.gate.Guard(ctx, clientID, stage); err != nil {
		return nil, err
	}
	if err := o.acquire(clientID); err != nil {
		return nil, err
	}
	defer o.release(clientID)

	client, err := o.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	doc, _, err := o.generateSlot(ctx, client, stage, slot, nil)
	return doc, err
}

func (o *Orchestrator) generateSlot(ctx context.Context, client *program.Client, stage, slot int, prior []priorSection) (*program.Document, string, error) {
	res, err := o.provider.Generate(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(client, stage, slot, prior),
		Temperature:  o.temperature,
		MaxTokens:    o.maxTokens,
	})
	if err != nil {
		return nil, "", err
	}

	version := 1
	if existing, err := o.store.GetDocument(ctx, client.ID, stage, slot); err == nil {
		version = existing.Version + 1
	} else if !services.IsNotFound(err) {
		return nil, "", err
	}

	ref := storageRef(client.ID, stage, slot, version)
	content := documentHeader(client, stage, slot) + strings.TrimSpace(res.Content) + "\n"
	if err := o.writeContent(ref, content); err != nil {
		return nil, "", err
	}

	doc, err := o.manager.RecordGeneration(ctx, client.ID, stage, slot, lifecycle.Generation{
		StorageRef: ref,
		TokensUsed: res.TokensUsed,
		ProviderID: res.ProviderID,
		ModelID:    res.ModelID,
	})
	if err != nil {
		return nil, "", err
	}

	o.publish(ctx, client.ID, webhooks.EventDocumentGenerated, webhooks.Payload{
		"clientId": client.ID,
		"stage":    stage,
		"slot":     slot,
		"name":     doc.Name,
		"version":  doc.Version,
		"provider": doc.ProviderID,
		"model":    doc.ModelID,
	})
	return doc, content, nil
}

// ReadContent loads stored document content by its storage reference.
func (o *Orchestrator) ReadContent(ref string) (string, error) {
	data, err := os.ReadFile(filepath.Join(o.dataDir, filepath.FromSlash(ref)))
	if err != nil {
		return "", fmt.Errorf("read document content: %w", err)
	}
	return string(data), nil
}

func (o *Orchestrator) writeContent(ref, content string) error {
	path := filepath.Join(o.dataDir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write document content: %w", err)
	}
	return nil
}

func storageRef(clientID string, stage, slot, version int) string {
	slug := strings.ToLower(strings.ReplaceAll(program.SlotName(stage, slot), " ", "-"))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return -1
		}
	}, slug)
	return fmt.Sprintf("documents/%s/stage-%d/%02d-%s-v%d.md", clientID, stage, slot, slug, version)
}

func (o *Orchestrator) publish(ctx context.Context, clientID string, event webhooks.Event, payload webhooks.Payload) {
	if err := o.publisher.Publish(ctx, clientID, event, payload); err != nil {
		o.logger.Warn("publish event failed",
			logging.String(logging.FieldEvent, string(event)),
			logging.Error(err))
	}
}
