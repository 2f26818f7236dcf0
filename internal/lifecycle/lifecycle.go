package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cadence/internal/gate"
	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/services"
	"cadence/internal/webhooks"
)

// Store is the persistence surface the lifecycle manager needs.
type Store interface {
	GetDocument(ctx context.Context, clientID string, stage, slot int) (*program.Document, error)
	SaveDocumentVersion(ctx context.Context, doc *program.Document) error
	UpdateDocument(ctx context.Context, doc *program.Document) error
}

// Generation carries the output of one generation call into the document
// record.
type Generation struct {
	Name       string
	StorageRef string
	TokensUsed int
	ProviderID string
	ModelID    string
}

// Manager drives documents through their review lifecycle. Every mutation is
// checked against the stage gate first, and approvals trigger a stage
// completion evaluation afterwards. Concurrent mutations of the same document
// are arbitrated by the store's version compare-and-swap; the loser receives
// ErrConflict and retries against fresh state if it still applies.
type Manager struct {
	store     Store
	gate      *gate.Controller
	publisher webhooks.Publisher
	logger    *slog.Logger
}

// NewManager wires the lifecycle manager. A nil publisher suppresses events.
func NewManager(store Store, controller *gate.Controller, publisher webhooks.Publisher, logger *slog.Logger) *Manager {
	if publisher == nil {
		publisher = webhooks.NewNop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:     store,
		gate:      controller,
		publisher: publisher,
		logger:    logger.With(logging.String(logging.FieldComponent, "lifecycle")),
	}
}

// RecordGeneration persists a freshly generated document. A first generation
// creates version 1; a regeneration increments the version and resets the
// review state (status back to generated, revision notes and review
// timestamps cleared).
func (m *Manager) RecordGeneration(ctx context.Context, clientID string, stage, slot int, gen Generation) (*program.Document, error) {
	if err := m.gate.Guard(ctx, clientID, stage); err != nil {
		return nil, err
	}

	version := 1
	if existing, err := m.store.GetDocument(ctx, clientID, stage, slot); err == nil {
		version = existing.Version + 1
	} else if !services.IsNotFound(err) {
		return nil, err
	}

	name := strings.TrimSpace(gen.Name)
	if name == "" {
		name = program.SlotName(stage, slot)
	}
	now := time.Now().UTC()
	doc := &program.Document{
		ClientID:    clientID,
		Stage:       stage,
		Slot:        slot,
		Name:        name,
		StorageRef:  gen.StorageRef,
		Status:      program.DocGenerated,
		Version:     version,
		TokensUsed:  gen.TokensUsed,
		ProviderID:  gen.ProviderID,
		ModelID:     gen.ModelID,
		GeneratedAt: &now,
	}
	if err := m.store.SaveDocumentVersion(ctx, doc); err != nil {
		return nil, err
	}
	m.logger.Info("document recorded",
		logging.String(logging.FieldClientID, clientID),
		logging.Int(logging.FieldStage, stage),
		logging.Int(logging.FieldSlot, slot),
		logging.Int("version", version))
	return doc, nil
}

// MarkSent records delivery of the document to the client. The sent timestamp
// is written once; repeating the call is a no-op.
func (m *Manager) MarkSent(ctx context.Context, clientID string, stage, slot int) (*program.Document, error) {
	doc, err := m.reviewableDocument(ctx, clientID, stage, slot, "mark sent")
	if err != nil {
		return nil, err
	}
	if doc.SentAt != nil {
		return doc, nil
	}
	now := time.Now().UTC()
	doc.SentAt = &now
	if doc.Status == program.DocGenerated {
		doc.Status = program.DocSent
	}
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// MarkViewed records the client opening the document. The viewed timestamp is
// written once; repeating the call is a no-op.
func (m *Manager) MarkViewed(ctx context.Context, clientID string, stage, slot int) (*program.Document, error) {
	doc, err := m.reviewableDocument(ctx, clientID, stage, slot, "mark viewed")
	if err != nil {
		return nil, err
	}
	if doc.ViewedAt != nil {
		return doc, nil
	}
	now := time.Now().UTC()
	doc.ViewedAt = &now
	if doc.Status == program.DocGenerated || doc.Status == program.DocSent {
		doc.Status = program.DocViewed
	}
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RequestRevision flags the document for rework with the client's notes.
// Repeating the call replaces the notes without emitting a second event.
func (m *Manager) RequestRevision(ctx context.Context, clientID string, stage, slot int, notes string) (*program.Document, error) {
	doc, err := m.reviewableDocument(ctx, clientID, stage, slot, "request revision")
	if err != nil {
		return nil, err
	}
	repeat := doc.Status == program.DocRevisionRequested
	doc.Status = program.DocRevisionRequested
	doc.RevisionNotes = strings.TrimSpace(notes)
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	if !repeat {
		m.publish(ctx, clientID, webhooks.EventDocumentRevisionRequested, webhooks.Payload{
			"clientId": clientID,
			"stage":    stage,
			"slot":     slot,
			"version":  doc.Version,
			"notes":    doc.RevisionNotes,
		})
	}
	return doc, nil
}

// Approve marks the document accepted, clearing any revision flag, and then
// evaluates the stage for completion. Approving an already approved document
// is a no-op.
func (m *Manager) Approve(ctx context.Context, clientID string, stage, slot int) (*program.Document, error) {
	doc, err := m.document(ctx, clientID, stage, slot)
	if err != nil {
		return nil, err
	}
	if doc.Status == program.DocApproved {
		return doc, nil
	}
	if err := m.gate.Guard(ctx, clientID, stage); err != nil {
		return nil, err
	}
	if !doc.Status.Reviewable() {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "approve",
			fmt.Sprintf("document in status %q cannot be approved", doc.Status), nil)
	}
	now := time.Now().UTC()
	doc.Status = program.DocApproved
	doc.RevisionNotes = ""
	if doc.ApprovedAt == nil {
		doc.ApprovedAt = &now
	}
	if err := m.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	m.logger.Info("document approved",
		logging.String(logging.FieldClientID, clientID),
		logging.Int(logging.FieldStage, stage),
		logging.Int(logging.FieldSlot, slot))
	m.publish(ctx, clientID, webhooks.EventDocumentApproved, webhooks.Payload{
		"clientId": clientID,
		"stage":    stage,
		"slot":     slot,
		"version":  doc.Version,
	})
	if _, err := m.gate.EvaluateCompletion(ctx, clientID, stage); err != nil {
		return nil, fmt.Errorf("evaluate completion: %w", err)
	}
	return doc, nil
}

func (m *Manager) document(ctx context.Context, clientID string, stage, slot int) (*program.Document, error) {
	if err := program.ValidateStage(stage); err != nil {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "load document", err.Error(), nil)
	}
	if err := program.ValidateSlot(slot); err != nil {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", "load document", err.Error(), nil)
	}
	return m.store.GetDocument(ctx, clientID, stage, slot)
}

func (m *Manager) reviewableDocument(ctx context.Context, clientID string, stage, slot int, operation string) (*program.Document, error) {
	if err := m.gate.Guard(ctx, clientID, stage); err != nil {
		return nil, err
	}
	doc, err := m.document(ctx, clientID, stage, slot)
	if err != nil {
		return nil, err
	}
	if doc.Status == program.DocNotGenerated {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", operation,
			"document has not been generated", nil)
	}
	if doc.Status == program.DocApproved {
		return nil, services.Wrap(services.ErrValidation, "lifecycle", operation,
			"document already approved", nil)
	}
	return doc, nil
}

func (m *Manager) publish(ctx context.Context, clientID string, event webhooks.Event, payload webhooks.Payload) {
	if err := m.publisher.Publish(ctx, clientID, event, payload); err != nil {
		m.logger.Warn("publish event failed",
			logging.String(logging.FieldEvent, string(event)),
			logging.Error(err))
	}
}
