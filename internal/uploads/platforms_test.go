package uploads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipmorph/internal/config"
	"clipmorph/internal/services"
)

func writeArtifact(t *testing.T) Clip {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip_vertical.mp4")
	if err := os.WriteFile(path, []byte("fake mp4 bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return Clip{Title: "Ranked Match", Description: "test clip", ArtifactPath: path}
}

func TestYouTubeUploadFlow(t *testing.T) {
	var sawToken, sawInit, sawPut bool
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		sawToken = true
		if got := r.FormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-123"})
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			sawInit = true
			if got := r.Header.Get("Authorization"); got != "Bearer at-123" {
				t.Errorf("Authorization = %q", got)
			}
			var body struct {
				Snippet struct {
					Title string `json:"title"`
				} `json:"snippet"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Snippet.Title != "Ranked Match" {
				t.Errorf("title = %q", body.Snippet.Title)
			}
			w.Header().Set("Location", server.URL+"/upload?session=1")
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			sawPut = true
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "vid-42"})
		}
	})

	platform := NewYouTubePlatform(config.YouTube{
		ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh",
		CategoryID: "20", Privacy: "public",
	}, server.Client())
	platform.tokenURL = server.URL + "/token"
	platform.uploadURL = server.URL + "/upload"

	result, err := platform.Upload(context.Background(), writeArtifact(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !sawToken || !sawInit || !sawPut {
		t.Fatalf("flow incomplete: token=%v init=%v put=%v", sawToken, sawInit, sawPut)
	}
	if result.MediaID != "vid-42" {
		t.Fatalf("MediaID = %q", result.MediaID)
	}
	if result.URL != "https://youtube.com/shorts/vid-42" {
		t.Fatalf("URL = %q", result.URL)
	}
}

func TestYouTubeUploadClassifiesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	platform := NewYouTubePlatform(config.YouTube{ClientID: "id"}, server.Client())
	platform.tokenURL = server.URL

	_, err := platform.Upload(context.Background(), writeArtifact(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.Retryable(err) {
		t.Fatalf("5xx should be retryable, got %v", err)
	}
}

func TestTikTokUploadFlow(t *testing.T) {
	var sawUpload bool
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/init", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tk-token" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{
				"publish_id": "pub-7",
				"upload_url": server.URL + "/put",
			},
		})
	})
	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {
		sawUpload = true
		if r.Header.Get("Content-Range") == "" {
			t.Error("missing Content-Range")
		}
		w.WriteHeader(http.StatusCreated)
	})

	platform := NewTikTokPlatform(config.TikTok{AccessToken: "tk-token"}, server.Client())
	platform.initURL = server.URL + "/init"

	result, err := platform.Upload(context.Background(), writeArtifact(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !sawUpload {
		t.Fatal("video bytes never sent")
	}
	if result.MediaID != "pub-7" {
		t.Fatalf("MediaID = %q", result.MediaID)
	}
}

func TestInstagramUploadFlow(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/graph/user-1/media", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-9"})
	})
	mux.HandleFunc("/rupload/container-9", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth ig-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/graph/container-9", func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := "IN_PROGRESS"
		if polls >= 2 {
			status = "FINISHED"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status_code": status})
	})
	mux.HandleFunc("/graph/user-1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-11"})
	})

	platform := NewInstagramPlatform(config.Instagram{AccessToken: "ig-token", UserID: "user-1"}, server.Client())
	platform.graphURL = server.URL + "/graph"
	platform.ruploadURL = server.URL + "/rupload"
	platform.pollInterval = time.Millisecond

	result, err := platform.Upload(context.Background(), writeArtifact(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if polls < 2 {
		t.Fatalf("polls = %d, want at least 2", polls)
	}
	if result.MediaID != "media-11" {
		t.Fatalf("MediaID = %q", result.MediaID)
	}
}

func TestTwitterUploadFlow(t *testing.T) {
	var commands []string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			commands = append(commands, "STATUS")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"media_id_string": "m-5",
				"processing_info": map[string]any{"state": "succeeded"},
			})
			return
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("request not OAuth1 signed")
		}
		_ = r.ParseMultipartForm(8 << 20)
		command := r.FormValue("command")
		commands = append(commands, command)
		_ = json.NewEncoder(w).Encode(map[string]any{"media_id_string": "m-5"})
	})
	mux.HandleFunc("/tweets", func(w http.ResponseWriter, r *http.Request) {
		commands = append(commands, "TWEET")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "tweet-99"}})
	})

	platform := NewTwitterPlatform(config.Twitter{
		APIKey: "key", APISecret: "secret", AccessToken: "token", AccessSecret: "token-secret",
	}, server.Client())
	platform.uploadURL = server.URL + "/media"
	platform.tweetURL = server.URL + "/tweets"
	platform.pollInterval = time.Millisecond

	result, err := platform.Upload(context.Background(), writeArtifact(t))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	want := []string{"INIT", "APPEND", "FINALIZE", "STATUS", "TWEET"}
	if len(commands) != len(want) {
		t.Fatalf("commands = %v, want %v", commands, want)
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Fatalf("commands = %v, want %v", commands, want)
		}
	}
	if result.URL != "https://x.com/i/status/tweet-99" {
		t.Fatalf("URL = %q", result.URL)
	}
}
