package testsupport

import (
	"context"
	"testing"

	"clipmorph/internal/config"
	"clipmorph/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewClip creates a new clip item for tests using the provided store.
func NewClip(t testing.TB, store *queue.Store, sourcePath, fingerprint string) *queue.Item {
	t.Helper()

	item, err := store.NewClip(context.Background(), sourcePath, fingerprint)
	if err != nil {
		t.Fatalf("store.NewClip: %v", err)
	}
	return item
}
