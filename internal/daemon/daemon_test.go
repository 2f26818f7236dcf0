package daemon_test

import (
	"context"
	"testing"

	"cadence/internal/daemon"
	"cadence/internal/logging"
	"cadence/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, s, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if addr := d.Addr(); addr == "" {
		t.Error("api server has no bound address")
	}
	if !d.Status().Running {
		t.Error("status does not report running")
	}

	d.Stop()
	if d.Status().Running {
		t.Error("status still reports running after Stop")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, s, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, s, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New (second): %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestDaemonRequiresProviderCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.OpenAIAPIKey = ""
	s := testsupport.MustOpenStore(t, cfg)

	if _, err := daemon.New(cfg, s, logging.NewNop()); err == nil {
		t.Fatal("expected startup failure with missing credentials")
	}
}
