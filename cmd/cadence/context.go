package main

import (
	"context"
	"strings"
	"sync"

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

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

// programEnv bundles the wired service stack for one CLI invocation. Provider
// construction failures are deferred into providerErr so commands that never
// generate content keep working.
type programEnv struct {
	cfg          *config.Config
	store        *store.Store
	publisher    webhooks.Publisher
	service      *api.ProgramService
	orchestrator *generation.Orchestrator
	providerErr  error
}

func (c *commandContext) withProgram(fn func(context.Context, *programEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	logger := logging.NewNop()
	publisher := webhooks.NewPublisher(cfg, s, logger)
	defer publisher.Close()

	provider, providerErr := llm.New(cfg)

	controller := gate.NewController(s, publisher, logger)
	manager := lifecycle.NewManager(s, controller, publisher, logger)
	orchestrator := generation.NewOrchestrator(cfg, s, manager, controller, provider, publisher, logger)
	engine := readiness.NewEngine(cfg, s, publisher, logger)

	env := &programEnv{
		cfg:          cfg,
		store:        s,
		publisher:    publisher,
		service:      api.NewProgramService(s, controller, manager, orchestrator, engine),
		orchestrator: orchestrator,
		providerErr:  providerErr,
	}
	return fn(context.Background(), env)
}
