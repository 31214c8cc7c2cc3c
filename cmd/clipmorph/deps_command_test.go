package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stubBinaries(t *testing.T, names ...string) {
	t.Helper()
	binDir := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir)
}

func TestDepsAllPresent(t *testing.T) {
	cfgPath := writeTestConfig(t)
	stubBinaries(t, "ffmpeg", "ffprobe", "uvx")

	out, err := runCommand(t, "--config", cfgPath, "deps")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	if !strings.Contains(out, "FFmpeg") || !strings.Contains(out, "uvx") {
		t.Fatalf("output = %q", out)
	}
}

func TestDepsReportsMissing(t *testing.T) {
	cfgPath := writeTestConfig(t)
	stubBinaries(t, "ffmpeg", "ffprobe")

	_, err := runCommand(t, "--config", cfgPath, "deps")
	if err == nil {
		t.Fatal("expected error when uvx is missing")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("err = %v", err)
	}
}
