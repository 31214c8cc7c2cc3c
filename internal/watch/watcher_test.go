package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipmorph/internal/queue"
	"clipmorph/internal/testsupport"
)

func newTestMonitor(t *testing.T) (*Monitor, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchSettleSeconds = 0
	if err := os.MkdirAll(cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	monitor := NewMonitor(cfg, store, nil, nil)
	if monitor == nil {
		t.Fatal("expected monitor")
	}
	return monitor, store
}

func writeRecording(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, size)
	return path
}

func TestNewMonitorDisabledWithoutPolling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchPollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)
	if m := NewMonitor(cfg, store, nil, nil); m != nil {
		t.Fatal("expected nil monitor when polling disabled")
	}
}

func TestPollEnqueuesNewRecordings(t *testing.T) {
	monitor, store := newTestMonitor(t)
	path := writeRecording(t, monitor.dir, "Ranked Match.mp4", 2048)
	writeRecording(t, monitor.dir, "notes.txt", 64)

	monitor.poll(context.Background())

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(items))
	}
	if items[0].SourcePath != path {
		t.Fatalf("SourcePath = %q, want %q", items[0].SourcePath, path)
	}
	if items[0].Status != queue.StatusPending {
		t.Fatalf("Status = %q", items[0].Status)
	}
}

func TestPollSkipsAlreadyQueuedContent(t *testing.T) {
	monitor, store := newTestMonitor(t)
	writeRecording(t, monitor.dir, "match.mkv", 2048)

	monitor.poll(context.Background())
	monitor.poll(context.Background())

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued item after repolling, got %d", len(items))
	}
}

func TestPollWaitsForSettleWindow(t *testing.T) {
	monitor, store := newTestMonitor(t)
	monitor.settle = time.Hour
	writeRecording(t, monitor.dir, "fresh.mp4", 1024)

	monitor.poll(context.Background())

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items while file settles, got %d", len(items))
	}
}

func TestPollHandlesGrowingFile(t *testing.T) {
	monitor, store := newTestMonitor(t)
	path := writeRecording(t, monitor.dir, "grows.mp4", 1024)

	monitor.poll(context.Background())
	testsupport.WriteFile(t, path, 8192)
	monitor.poll(context.Background())

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected both content versions queued, got %d", len(items))
	}
}

func TestStartStop(t *testing.T) {
	monitor, _ := newTestMonitor(t)
	monitor.pollInterval = time.Hour

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := monitor.Start(context.Background()); err == nil {
		t.Fatal("expected error on double start")
	}
	monitor.Stop()
	monitor.Stop()
}
