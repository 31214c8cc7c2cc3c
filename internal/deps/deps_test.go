package deps

import (
	"os"
	"path/filepath"
	"testing"

	"clipmorph/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available {
		t.Fatal("expected unset command to be unavailable")
	}
}

func TestDefaultsResolveConfiguredPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Render.FFmpegPath = "/opt/ffmpeg/bin/ffmpeg"
	cfg.Render.FFprobePath = "/opt/ffmpeg/bin/ffprobe"

	reqs := Defaults(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != cfg.Render.FFmpegPath {
		t.Fatalf("ffmpeg command = %q", reqs[0].Command)
	}
	if reqs[1].Command != cfg.Render.FFprobePath {
		t.Fatalf("ffprobe command = %q", reqs[1].Command)
	}
	if reqs[2].Command != "uvx" {
		t.Fatalf("uvx command = %q", reqs[2].Command)
	}
}
