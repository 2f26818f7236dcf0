package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/services"
	"cadence/internal/webhooks"
)

// Store is the persistence surface the gate controller needs.
type Store interface {
	GetClient(ctx context.Context, clientID string) (*program.Client, error)
	GetStageRecord(ctx context.Context, clientID string, stage int) (*program.StageRecord, error)
	TransitionStage(ctx context.Context, clientID string, stage int, from, to program.StageStatus, at time.Time) error
	CountStageApproved(ctx context.Context, clientID string, stage int) (int, error)
}

// Controller enforces the stage gates. All gate mutations for one client are
// serialized through a per-client mutex so a completion evaluation and a
// manual unlock cannot interleave.
type Controller struct {
	store     Store
	publisher webhooks.Publisher
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewController wires the gate controller. A nil publisher suppresses events.
func NewController(store Store, publisher webhooks.Publisher, logger *slog.Logger) *Controller {
	if publisher == nil {
		publisher = webhooks.NewNop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		store:     store,
		publisher: publisher,
		logger:    logger.With(logging.String(logging.FieldComponent, "gate")),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (c *Controller) clientLock(clientID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[clientID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[clientID] = lock
	}
	return lock
}

// WithClientLock runs fn while holding the client's gate mutex. Other
// packages use this to serialize multi-step document mutations against gate
// transitions.
func (c *Controller) WithClientLock(clientID string, fn func() error) error {
	lock := c.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// Guard verifies that the stage is active for the client. Any document
// operation against a locked or completed stage is rejected with
// ErrStageLocked.
func (c *Controller) Guard(ctx context.Context, clientID string, stage int) error {
	record, err := c.store.GetStageRecord(ctx, clientID, stage)
	if err != nil {
		return err
	}
	if record.Status != program.StageActive {
		return services.Wrap(services.ErrStageLocked, "gate", "guard",
			fmt.Sprintf("stage %d is %s", stage, record.Status), nil)
	}
	return nil
}

// Unlock manually opens a stage. Stage 1 is unlocked at enrollment; any later
// stage requires its predecessor to be completed. Unlocking an already active
// or completed stage is rejected.
func (c *Controller) Unlock(ctx context.Context, clientID string, stage int) error {
	if err := program.ValidateStage(stage); err != nil {
		return services.Wrap(services.ErrValidation, "gate", "unlock", err.Error(), nil)
	}
	return c.WithClientLock(clientID, func() error {
		return c.unlockLocked(ctx, clientID, stage)
	})
}

func (c *Controller) unlockLocked(ctx context.Context, clientID string, stage int) error {
	record, err := c.store.GetStageRecord(ctx, clientID, stage)
	if err != nil {
		return err
	}
	if record.Status != program.StageLocked {
		return services.Wrap(services.ErrValidation, "gate", "unlock",
			fmt.Sprintf("stage %d already %s", stage, record.Status), nil)
	}
	if stage > 1 {
		prev, err := c.store.GetStageRecord(ctx, clientID, stage-1)
		if err != nil {
			return err
		}
		if prev.Status != program.StageCompleted {
			return services.Wrap(services.ErrStageLocked, "gate", "unlock",
				fmt.Sprintf("stage %d requires stage %d completed (currently %s)", stage, stage-1, prev.Status), nil)
		}
	}
	if err := c.store.TransitionStage(ctx, clientID, stage, program.StageLocked, program.StageActive, time.Now().UTC()); err != nil {
		return err
	}
	c.logger.Info("stage unlocked",
		logging.String(logging.FieldClientID, clientID),
		logging.Int(logging.FieldStage, stage))
	c.publish(ctx, clientID, webhooks.EventStageUnlocked, webhooks.Payload{
		"clientId": clientID,
		"stage":    stage,
	})
	return nil
}

// EvaluateCompletion checks whether every slot in the stage reached approval
// and, if so, completes the stage and unlocks the successor. It returns true
// when the stage transitioned to completed during this call. Completing the
// final stage finishes the program; there is nothing left to unlock.
func (c *Controller) EvaluateCompletion(ctx context.Context, clientID string, stage int) (bool, error) {
	if err := program.ValidateStage(stage); err != nil {
		return false, services.Wrap(services.ErrValidation, "gate", "evaluate completion", err.Error(), nil)
	}
	var completed bool
	err := c.WithClientLock(clientID, func() error {
		var err error
		completed, err = c.evaluateLocked(ctx, clientID, stage)
		return err
	})
	return completed, err
}

func (c *Controller) evaluateLocked(ctx context.Context, clientID string, stage int) (bool, error) {
	record, err := c.store.GetStageRecord(ctx, clientID, stage)
	if err != nil {
		return false, err
	}
	if record.Status != program.StageActive {
		return false, nil
	}
	approved, err := c.store.CountStageApproved(ctx, clientID, stage)
	if err != nil {
		return false, err
	}
	if approved < program.SlotsPerStage {
		return false, nil
	}

	if err := c.store.TransitionStage(ctx, clientID, stage, program.StageActive, program.StageCompleted, time.Now().UTC()); err != nil {
		if errors.Is(err, services.ErrConflict) {
			// Another evaluation completed the stage first.
			return false, nil
		}
		return false, err
	}
	c.logger.Info("stage completed",
		logging.String(logging.FieldClientID, clientID),
		logging.Int(logging.FieldStage, stage))
	c.publish(ctx, clientID, webhooks.EventStageCompleted, webhooks.Payload{
		"clientId": clientID,
		"stage":    stage,
	})

	if stage < program.StageCount {
		if err := c.unlockLocked(ctx, clientID, stage+1); err != nil {
			return true, err
		}
	} else {
		c.logger.Info("program completed", logging.String(logging.FieldClientID, clientID))
	}
	return true, nil
}

func (c *Controller) publish(ctx context.Context, clientID string, event webhooks.Event, payload webhooks.Payload) {
	if err := c.publisher.Publish(ctx, clientID, event, payload); err != nil {
		c.logger.Warn("publish event failed",
			logging.String(logging.FieldEvent, string(event)),
			logging.Error(err))
	}
}
