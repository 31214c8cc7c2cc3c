package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipmorph/internal/config"
)

const userAgent = "ClipMorph-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyClipQueued(ctx context.Context, title string) error
	NotifyConversionStarted(ctx context.Context, title string) error
	NotifyConversionCompleted(ctx context.Context, title, artifactPath string) error
	NotifyUploadCompleted(ctx context.Context, title, platform, url string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:      topic,
		client:        client,
		sendCompleted: cfg.Notifications.Completed,
		sendUploads:   cfg.Notifications.Uploads,
		sendErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	sendCompleted bool
	sendUploads   bool
	sendErrors    bool
}

func (n *ntfyService) NotifyClipQueued(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "ClipMorph - Queued",
		message: fmt.Sprintf("Queued for conversion: %s", title),
		tags:    []string{"clipmorph", "queue", "added"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionStarted(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "ClipMorph - Converting",
		message: fmt.Sprintf("Started converting: %s", title),
		tags:    []string{"clipmorph", "convert", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, title, artifactPath string) error {
	if !n.sendCompleted {
		return nil
	}
	title = strings.TrimSpace(title)
	artifactPath = strings.TrimSpace(artifactPath)
	message := fmt.Sprintf("Vertical clip ready: %s", title)
	if artifactPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, artifactPath)
	}
	data := payload{
		title:    "ClipMorph - Clip Ready",
		message:  message,
		tags:     []string{"clipmorph", "convert", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadCompleted(ctx context.Context, title, platform, url string) error {
	if !n.sendUploads {
		return nil
	}
	title = strings.TrimSpace(title)
	platform = strings.TrimSpace(platform)
	message := fmt.Sprintf("Published to %s: %s", platform, title)
	if url = strings.TrimSpace(url); url != "" {
		message = fmt.Sprintf("%s\n%s", message, url)
	}
	data := payload{
		title:   "ClipMorph - Uploaded",
		message: message,
		tags:    []string{"clipmorph", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	data := payload{
		title:   "ClipMorph - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d items", count),
		tags:    []string{"clipmorph", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "ClipMorph - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, durationText)
	} else {
		title = "ClipMorph - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"clipmorph", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.sendErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "ClipMorph - Error",
		message:  builder.String(),
		tags:     []string{"clipmorph", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ClipMorph - Test",
		message:  "Notification system test",
		tags:     []string{"clipmorph", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyClipQueued(context.Context, string) error                      { return nil }
func (noopService) NotifyConversionStarted(context.Context, string) error               { return nil }
func (noopService) NotifyConversionCompleted(context.Context, string, string) error     { return nil }
func (noopService) NotifyUploadCompleted(context.Context, string, string, string) error { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
