package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cadence/internal/api"
	"cadence/internal/config"
	"cadence/internal/gate"
	"cadence/internal/generation"
	"cadence/internal/lifecycle"
	"cadence/internal/logging"
	"cadence/internal/readiness"
	"cadence/internal/services/llm"
	"cadence/internal/store"
	"cadence/internal/webhooks"
)

// Daemon owns the long-running cadence process: the store, the webhook
// dispatcher, the generation orchestrator, the scoring engine, the HTTP API,
// and the periodic score sweep. A file lock enforces a single instance per
// data directory.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	publisher webhooks.Publisher
	service   *api.ProgramService
	engine    *readiness.Engine
	sweep     *sweeper
	server    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	DBPath       string
	LockFilePath string
	BindAddress  string
	Provider     string
	Webhooks     bool
}

// New constructs a daemon with initialized dependencies. The LLM provider is
// built from configuration; missing credentials fail here, at startup.
func New(cfg *config.Config, s *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || s == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	provider, err := llm.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize llm provider: %w", err)
	}

	publisher := webhooks.NewPublisher(cfg, s, logger)
	controller := gate.NewController(s, publisher, logger)
	manager := lifecycle.NewManager(s, controller, publisher, logger)
	orchestrator := generation.NewOrchestrator(cfg, s, manager, controller, provider, publisher, logger)
	engine := readiness.NewEngine(cfg, s, publisher, logger)
	service := api.NewProgramService(s, controller, manager, orchestrator, engine)

	lockPath := filepath.Join(cfg.Paths.DataDir, "cadence.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     s,
		publisher: publisher,
		service:   service,
		engine:    engine,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.sweep = newSweeper(cfg, s, engine, logger)
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Service exposes the program façade to in-process callers (the CLI's serve
// command uses it for startup checks).
func (d *Daemon) Service() *api.ProgramService {
	return d.service
}

// Start acquires the instance lock and launches the API server and sweep.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cadence instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.server != nil {
		if err := d.server.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}
	d.sweep.start(d.ctx)

	d.running.Store(true)
	d.logger.Info("cadence daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background work, drains webhook deliveries, and releases the
// instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sweep.stop()
	if d.server != nil {
		d.server.stop()
	}
	d.publisher.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cadence daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the bound API address, empty until started.
func (d *Daemon) Addr() string {
	if d.server == nil {
		return ""
	}
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		DBPath:       filepath.Join(d.cfg.Paths.DataDir, "cadence.db"),
		LockFilePath: d.lockPath,
		BindAddress:  d.Addr(),
		Provider:     d.cfg.LLM.Provider,
		Webhooks:     d.cfg.Webhooks.Enabled,
	}
}
