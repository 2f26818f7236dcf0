package api

import (
	"context"
	"fmt"

	"cadence/internal/gate"
	"cadence/internal/generation"
	"cadence/internal/lifecycle"
	"cadence/internal/program"
	"cadence/internal/readiness"
	"cadence/internal/services"
	"cadence/internal/store"
)

// ProgramService exposes the delivery program operations as one façade
// returning API DTOs. The daemon's HTTP handlers and the CLI both sit on
// top of it.
type ProgramService struct {
	store        *store.Store
	gate         *gate.Controller
	lifecycle    *lifecycle.Manager
	orchestrator *generation.Orchestrator
	engine       *readiness.Engine
}

// NewProgramService constructs the façade around the wired components.
func NewProgramService(s *store.Store, controller *gate.Controller, manager *lifecycle.Manager, orchestrator *generation.Orchestrator, engine *readiness.Engine) *ProgramService {
	return &ProgramService{
		store:        s,
		gate:         controller,
		lifecycle:    manager,
		orchestrator: orchestrator,
		engine:       engine,
	}
}

// Progress assembles the client snapshot: profile, stage table, documents.
func (p *ProgramService) Progress(ctx context.Context, clientID string) (*ProgressResponse, error) {
	client, err := p.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	progress, err := p.store.GetProgress(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var docs []program.Document
	for stage := 1; stage <= client.CurrentStage; stage++ {
		stageDocs, err := p.store.ListStageDocuments(ctx, clientID, stage)
		if err != nil {
			return nil, err
		}
		docs = append(docs, stageDocs...)
	}
	return &ProgressResponse{
		Client:    FromClient(client),
		Progress:  FromProgress(progress),
		Documents: FromDocuments(docs),
	}, nil
}

// UnlockStage manually opens a stage for the client.
func (p *ProgramService) UnlockStage(ctx context.Context, clientID string, stage int) error {
	return p.gate.Unlock(ctx, clientID, stage)
}

// GenerateStage runs the full five-slot generation for one stage.
func (p *ProgramService) GenerateStage(ctx context.Context, clientID string, stage int) (*GenerationView, error) {
	result, err := p.orchestrator.GenerateStage(ctx, clientID, stage)
	if err != nil {
		return nil, err
	}
	view := FromStageResult(result)
	return &view, nil
}

// GenerateDocument generates or regenerates one slot.
func (p *ProgramService) GenerateDocument(ctx context.Context, clientID string, stage, slot int) (*DocumentView, error) {
	doc, err := p.orchestrator.GenerateDocument(ctx, clientID, stage, slot)
	if err != nil {
		return nil, err
	}
	view := FromDocument(doc)
	return &view, nil
}

// SetDocumentStatus applies a sent or viewed transition. Revision and
// approval have dedicated entry points because they carry extra semantics.
func (p *ProgramService) SetDocumentStatus(ctx context.Context, clientID string, stage, slot int, status string) (*DocumentView, error) {
	parsed, ok := program.ParseDocumentStatus(status)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "api", "set document status",
			fmt.Sprintf("unknown status %q", status), nil)
	}
	var (
		doc *program.Document
		err error
	)
	switch parsed {
	case program.DocSent:
		doc, err = p.lifecycle.MarkSent(ctx, clientID, stage, slot)
	case program.DocViewed:
		doc, err = p.lifecycle.MarkViewed(ctx, clientID, stage, slot)
	case program.DocRevisionRequested:
		doc, err = p.lifecycle.RequestRevision(ctx, clientID, stage, slot, "")
	case program.DocApproved:
		doc, err = p.lifecycle.Approve(ctx, clientID, stage, slot)
	default:
		return nil, services.Wrap(services.ErrValidation, "api", "set document status",
			fmt.Sprintf("status %q cannot be set directly", status), nil)
	}
	if err != nil {
		return nil, err
	}
	view := FromDocument(doc)
	return &view, nil
}

// RequestRevision flags a document for rework.
func (p *ProgramService) RequestRevision(ctx context.Context, clientID string, stage, slot int, notes string) (*DocumentView, error) {
	doc, err := p.lifecycle.RequestRevision(ctx, clientID, stage, slot, notes)
	if err != nil {
		return nil, err
	}
	view := FromDocument(doc)
	return &view, nil
}

// ApproveDocument marks a document accepted and evaluates the stage.
func (p *ProgramService) ApproveDocument(ctx context.Context, clientID string, stage, slot int) (*DocumentView, error) {
	doc, err := p.lifecycle.Approve(ctx, clientID, stage, slot)
	if err != nil {
		return nil, err
	}
	view := FromDocument(doc)
	return &view, nil
}

// HealthScore recalculates and returns the client's health composite.
func (p *ProgramService) HealthScore(ctx context.Context, clientID string) (*ScoreView, error) {
	score, err := p.engine.HealthScore(ctx, clientID)
	if err != nil {
		return nil, err
	}
	view := FromScore(score)
	return &view, nil
}

// LaunchReadiness recalculates and returns the launch-readiness composite.
func (p *ProgramService) LaunchReadiness(ctx context.Context, clientID string) (*ScoreView, error) {
	score, err := p.engine.LaunchReadiness(ctx, clientID)
	if err != nil {
		return nil, err
	}
	view := FromScore(score)
	return &view, nil
}
