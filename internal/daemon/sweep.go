package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/readiness"
)

// sweepStore is the store surface the score sweep needs.
type sweepStore interface {
	ListClients(ctx context.Context) ([]*program.Client, error)
}

// sweeper periodically recalculates every client's scores. Clients are
// walked sequentially so a sweep never amplifies load.
type sweeper struct {
	store    sweepStore
	engine   *readiness.Engine
	logger   *slog.Logger
	interval time.Duration

	wg sync.WaitGroup
}

func newSweeper(cfg *config.Config, store sweepStore, engine *readiness.Engine, logger *slog.Logger) *sweeper {
	interval := time.Duration(cfg.Scores.SweepIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &sweeper{
		store:    store,
		engine:   engine,
		logger:   logger.With(logging.String(logging.FieldComponent, "score-sweep")),
		interval: interval,
	}
}

func (s *sweeper) start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Run(ctx)
			}
		}
	}()
}

func (s *sweeper) stop() {
	s.wg.Wait()
}

// Run executes one full sweep. Failures for one client are logged and do not
// stop the walk.
func (s *sweeper) Run(ctx context.Context) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		s.logger.Error("list clients for sweep", logging.Error(err))
		return
	}
	for _, client := range clients {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.engine.HealthScore(ctx, client.ID); err != nil {
			s.logger.Warn("health sweep failed",
				logging.String(logging.FieldClientID, client.ID),
				logging.Error(err))
		}
		if _, err := s.engine.LaunchReadiness(ctx, client.ID); err != nil {
			s.logger.Warn("readiness sweep failed",
				logging.String(logging.FieldClientID, client.ID),
				logging.Error(err))
		}
	}
	s.logger.Info("score sweep finished", logging.Int("clients", len(clients)))
}
