package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clipmorph/internal/queue"
	"clipmorph/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewClip(ctx, "/videos/ranked-match.mkv", "fingerprint-1")
	if err != nil {
		t.Fatalf("NewClip failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.Title != "ranked-match" {
		t.Fatalf("unexpected inferred title: %q", item.Title)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourcePath != "/videos/ranked-match.mkv" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	found, err := store.FindByFingerprint(ctx, "fingerprint-1")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestUpdateRoundTripsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewClip(t, store, "/videos/clutch.mkv", "fp-update")

	item.Status = queue.StatusConverted
	item.Width = 1920
	item.Height = 1080
	item.DurationMS = 61417
	item.AudioPath = "/staging/clutch.wav"
	item.ArtifactPath = "/output/clutch_vertical.mp4"
	item.SubtitlePath = "/output/clutch.srt"
	if err := item.SetUploadResults([]queue.UploadResult{{
		Platform:   "youtube",
		MediaID:    "abc123",
		UploadedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}); err != nil {
		t.Fatalf("SetUploadResults failed: %v", err)
	}
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Width != 1920 || fetched.Height != 1080 || fetched.DurationMS != 61417 {
		t.Fatalf("geometry not persisted: %#v", fetched)
	}
	if fetched.ArtifactPath != "/output/clutch_vertical.mp4" {
		t.Fatalf("unexpected artifact path: %q", fetched.ArtifactPath)
	}
	results, err := fetched.UploadResults()
	if err != nil {
		t.Fatalf("UploadResults failed: %v", err)
	}
	if len(results) != 1 || results[0].Platform != "youtube" || results[0].MediaID != "abc123" {
		t.Fatalf("unexpected upload results: %#v", results)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []queue.Status{queue.StatusConverting, queue.StatusUploading}
	var ids []int64
	for i, status := range statuses {
		item := testsupport.NewClip(t, store, fmt.Sprintf("/videos/clip-%d.mkv", i), fmt.Sprintf("fp-reset-%d", i))
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(statuses) {
		t.Fatalf("expected %d items reset, got %d", len(statuses), count)
	}

	for _, id := range ids {
		updated, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != queue.StatusPending {
			t.Fatalf("expected pending, got %s", updated.Status)
		}
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewClip(t, store, "/videos/first.mkv", "fp-next-1")
	testsupport.NewClip(t, store, "/videos/second.mkv", "fp-next-2")

	item, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if item == nil || item.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %#v", item)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusUploading)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no uploading items, got %#v", none)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.NewClip(t, store, "/videos/stale.mkv", "fp-stale")
	stale.Status = queue.StatusConverting
	old := time.Now().UTC().Add(-time.Hour)
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := testsupport.NewClip(t, store, "/videos/fresh.mkv", "fp-fresh")
	fresh.Status = queue.StatusConverting
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reclaimed.Status != queue.StatusPending || reclaimed.LastHeartbeat != nil {
		t.Fatalf("expected reclaimed pending item, got %#v", reclaimed)
	}

	kept, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept.Status != queue.StatusConverting {
		t.Fatalf("fresh item must stay converting, got %s", kept.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	failed := testsupport.NewClip(t, store, "/videos/broken.mkv", "fp-retry")
	failed.SetFailed("transcription timed out")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, failed.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried item, got %d", count)
	}

	updated, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending || updated.ErrorMessage != "" {
		t.Fatalf("expected clean pending item, got %#v", updated)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.NewClip(t, store, "/videos/a.mkv", "fp-a")
	_ = pending

	converting := testsupport.NewClip(t, store, "/videos/b.mkv", "fp-b")
	converting.Status = queue.StatusConverting
	if err := store.Update(ctx, converting); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	done := testsupport.NewClip(t, store, "/videos/c.mkv", "fp-c")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusConverting] != 1 || stats[queue.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Completed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.TableExists || !dbHealth.IntegrityCheck {
		t.Fatalf("unexpected database health: %#v", dbHealth)
	}
	if len(dbHealth.MissingColumns) != 0 {
		t.Fatalf("missing columns: %v", dbHealth.MissingColumns)
	}
}

func TestClearOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done := testsupport.NewClip(t, store, "/videos/done.mkv", "fp-done")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewClip(t, store, "/videos/waiting.mkv", "fp-waiting")

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared item, got %d", cleared)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].Status != queue.StatusPending {
		t.Fatalf("unexpected remaining items: %#v", items)
	}

	removed, err := store.Remove(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected item to be removed")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Converting "); !ok || status != queue.StatusConverting {
		t.Fatalf("ParseStatus = %q, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
