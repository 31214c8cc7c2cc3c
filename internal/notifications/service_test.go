package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipmorph/internal/config"
	"clipmorph/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyConversionCompleted(context.Background(), "Example", "/out/example.mp4"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "clip queued",
			notify: func(svc notifications.Service) error {
				return svc.NotifyClipQueued(context.Background(), "Ranked Match")
			},
			expectTitle:   "ClipMorph - Queued",
			expectMessage: "Queued for conversion: Ranked Match",
			expectTags:    "clipmorph,queue,added",
		},
		{
			name: "conversion completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyConversionCompleted(context.Background(), "Ranked Match", "/clips/ranked_vertical.mp4")
			},
			expectTitle:    "ClipMorph - Clip Ready",
			expectMessage:  "Vertical clip ready: Ranked Match\nFile: /clips/ranked_vertical.mp4",
			expectTags:     "clipmorph,convert,completed",
			expectPriority: "high",
		},
		{
			name: "upload completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyUploadCompleted(context.Background(), "Ranked Match", "youtube", "https://youtu.be/abc123")
			},
			expectTitle:   "ClipMorph - Uploaded",
			expectMessage: "Published to youtube: Ranked Match\nhttps://youtu.be/abc123",
			expectTags:    "clipmorph,upload,completed",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("transcription timed out"), "conversion")
			},
			expectTitle:    "ClipMorph - Error",
			expectMessage:  "Error with conversion: transcription timed out",
			expectTags:     "clipmorph,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsSuppressionToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed notification: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = false
	cfg.Notifications.Uploads = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyConversionCompleted(ctx, "Title", "/out.mp4"); err != nil {
		t.Fatalf("suppressed completion returned error: %v", err)
	}
	if err := svc.NotifyUploadCompleted(ctx, "Title", "tiktok", ""); err != nil {
		t.Fatalf("suppressed upload returned error: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "upload"); err != nil {
		t.Fatalf("suppressed error returned error: %v", err)
	}
}
