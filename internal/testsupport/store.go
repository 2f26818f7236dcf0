package testsupport

import (
	"context"
	"testing"

	"cadence/internal/config"
	"cadence/internal/program"
	"cadence/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// NewClient creates a client row for tests using the provided store.
func NewClient(t testing.TB, s *store.Store, name string) *program.Client {
	t.Helper()

	client := &program.Client{
		Name:     name,
		Email:    name + "@example.com",
		Niche:    "fitness coaching",
		Audience: "busy professionals",
		Goals:    "launch a flagship course",
	}
	if err := s.CreateClient(context.Background(), client); err != nil {
		t.Fatalf("store.CreateClient: %v", err)
	}
	return client
}
