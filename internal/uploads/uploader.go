package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"clipmorph/internal/config"
	"clipmorph/internal/logging"
	"clipmorph/internal/queue"
	"clipmorph/internal/services"
	"clipmorph/internal/stage"
)

// Uploader publishes a converted clip to every configured platform. Platforms
// that already have a recorded result are skipped so a retried item does not
// double-post.
type Uploader struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	platforms []Platform
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewUploader builds platform clients from the configured platform list.
func NewUploader(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Uploader, error) {
	client := &http.Client{Timeout: time.Duration(cfg.Upload.TimeoutSeconds) * time.Second}
	platforms := make([]Platform, 0, len(cfg.Upload.Platforms))
	for _, name := range cfg.Upload.Platforms {
		switch name {
		case "youtube":
			platforms = append(platforms, NewYouTubePlatform(cfg.Upload.YouTube, client))
		case "tiktok":
			platforms = append(platforms, NewTikTokPlatform(cfg.Upload.TikTok, client))
		case "instagram":
			platforms = append(platforms, NewInstagramPlatform(cfg.Upload.Instagram, client))
		case "twitter":
			platforms = append(platforms, NewTwitterPlatform(cfg.Upload.Twitter, client))
		default:
			return nil, services.Wrap(services.ErrConfiguration, "uploader", "build platforms",
				fmt.Sprintf("unknown platform %q", name), nil)
		}
	}
	return NewUploaderWith(cfg, store, logger, platforms), nil
}

// NewUploaderWith accepts explicit platform clients (used in tests).
func NewUploaderWith(cfg *config.Config, store *queue.Store, logger *slog.Logger, platforms []Platform) *Uploader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Uploader{
		store:     store,
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "uploader")),
		platforms: platforms,
		sleep:     sleepContext,
	}
}

// Prepare verifies the rendered artifact still exists before any network work.
func (u *Uploader) Prepare(ctx context.Context, item *queue.Item) error {
	if len(u.platforms) == 0 {
		return services.Wrap(services.ErrConfiguration, "uploader", "prepare", "no platforms configured", nil)
	}
	if strings.TrimSpace(item.ArtifactPath) == "" {
		return services.Wrap(services.ErrConfiguration, "uploader", "prepare", "item has no rendered artifact", nil)
	}
	if _, err := os.Stat(item.ArtifactPath); err != nil {
		return services.Wrap(services.ErrConfiguration, "uploader", "prepare", "rendered artifact is missing", err)
	}
	item.SetProgress("Uploading", "Preparing upload", 0)
	return nil
}

// Execute uploads to each platform in the configured order, retrying
// transient failures with a fixed backoff.
func (u *Uploader) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, u.logger)

	results, err := item.UploadResults()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "uploader", "decode prior results", "", err)
	}
	done := make(map[string]struct{}, len(results))
	for _, result := range results {
		done[result.Platform] = struct{}{}
	}

	clip := Clip{
		Title:        item.Title,
		Description:  fmt.Sprintf("Converted from %s", item.SourcePath),
		ArtifactPath: item.ArtifactPath,
	}

	for i, platform := range u.platforms {
		if _, ok := done[platform.Name()]; ok {
			logger.Info("skipping platform with recorded result",
				logging.String("platform", platform.Name()))
			continue
		}

		percent := float64(i) / float64(len(u.platforms)) * 100
		item.SetProgress("Uploading", fmt.Sprintf("Uploading to %s", platform.Name()), percent)
		if err := u.store.Update(ctx, item); err != nil {
			logger.Warn("failed to persist upload progress", logging.Error(err))
		}

		result, err := u.uploadWithRetry(ctx, logger, platform, clip)
		if err != nil {
			return err
		}
		results = append(results, result)
		if err := item.SetUploadResults(results); err != nil {
			return err
		}
		if err := u.store.Update(ctx, item); err != nil {
			logger.Warn("failed to persist upload result", logging.Error(err))
		}
		logger.Info("platform upload finished",
			logging.String("platform", platform.Name()),
			logging.String("media_id", result.MediaID),
			logging.String("url", result.URL))
	}

	item.SetProgressComplete("Uploading", "All platforms uploaded")
	return nil
}

func (u *Uploader) uploadWithRetry(ctx context.Context, logger *slog.Logger, platform Platform, clip Clip) (queue.UploadResult, error) {
	var zero queue.UploadResult
	maxAttempts := u.cfg.Upload.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	backoff := time.Duration(u.cfg.Upload.RetryBackoffSeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := platform.Upload(ctx, clip)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !services.Retryable(err) || attempt == maxAttempts {
			break
		}
		logger.Warn("upload attempt failed, retrying",
			logging.String("platform", platform.Name()),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if err := u.sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// HealthCheck reports the configured platform list.
func (u *Uploader) HealthCheck(ctx context.Context) stage.Health {
	const name = "uploader"
	if len(u.platforms) == 0 {
		return stage.Unhealthy(name, "no platforms configured")
	}
	names := make([]string, 0, len(u.platforms))
	for _, platform := range u.platforms {
		names = append(names, platform.Name())
	}
	health := stage.Healthy(name)
	health.Detail = strings.Join(names, ", ")
	return health
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
