package logging

import (
	"log/slog"
	"path/filepath"

	"clipmorph/internal/config"
)

// NewFromConfig builds the daemon logger: console output plus an append-only
// log file under the configured log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	opts := Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stdout",
			DaemonLogPath(cfg),
		},
	}
	return New(opts)
}

// DaemonLogPath returns the daemon's log file location under the configured
// log directory.
func DaemonLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "clipmorphd.log")
}
