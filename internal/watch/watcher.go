package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipmorph/internal/config"
	"clipmorph/internal/converting"
	"clipmorph/internal/logging"
	"clipmorph/internal/notifications"
	"clipmorph/internal/queue"
)

// videoExtensions lists the container formats recording software commonly
// produces. Anything else in the watch directory is ignored.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
	".avi":  {},
	".ts":   {},
	".flv":  {},
	".webm": {},
}

type fileState struct {
	size    int64
	modTime time.Time
}

// Monitor scans the watch directory on an interval and enqueues recordings
// once their contents stop changing.
type Monitor struct {
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service

	dir          string
	pollInterval time.Duration
	settle       time.Duration

	fingerprint func(path string) (string, error)

	mu      sync.Mutex
	running bool
	handled map[string]fileState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a watch directory monitor. It returns nil when the watch
// directory is unset or polling is disabled via watch_poll_interval = 0.
func NewMonitor(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Monitor {
	if cfg == nil || store == nil {
		return nil
	}

	dir := strings.TrimSpace(cfg.Paths.WatchDir)
	if dir == "" || cfg.Workflow.WatchPollInterval <= 0 {
		return nil
	}

	settle := time.Duration(cfg.Workflow.WatchSettleSeconds) * time.Second
	if settle < 0 {
		settle = 0
	}

	if logger == nil {
		logger = logging.NewNop()
	}

	return &Monitor{
		store:        store,
		logger:       logging.NewComponentLogger(logger, "watch"),
		notifier:     notifier,
		dir:          dir,
		pollInterval: time.Duration(cfg.Workflow.WatchPollInterval) * time.Second,
		settle:       settle,
		fingerprint:  converting.FingerprintFile,
		handled:      make(map[string]fileState),
	}
}

// Start launches the polling loop. It returns an error when the monitor is
// already running.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("watch monitor unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("watch monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop()
	return nil
}

// Stop cancels the polling loop and waits for it to exit. Safe to call on a
// nil or stopped monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	m.poll(m.ctx)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.poll(m.ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.logger.Warn("watch directory scan failed; will retry",
			logging.String("dir", m.dir),
			logging.Error(err),
		)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		m.handleRecording(ctx, filepath.Join(m.dir, name), info)
	}
}

// handleRecording enqueues a recording once it has stopped growing. Files
// already enqueued keep their size and mtime recorded so later polls skip
// them without re-hashing.
func (m *Monitor) handleRecording(ctx context.Context, path string, info os.FileInfo) {
	state := fileState{size: info.Size(), modTime: info.ModTime()}

	m.mu.Lock()
	if prev, ok := m.handled[path]; ok && prev == state {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.settle > 0 && time.Since(state.modTime) < m.settle {
		return
	}

	logger := m.logger.With(logging.String("source", path))

	fingerprint, err := m.fingerprint(path)
	if err != nil {
		logger.Warn("fingerprint failed; recording not queued", logging.Error(err))
		return
	}

	existing, err := m.store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		logger.Warn("queue lookup failed; recording not queued", logging.Error(err))
		return
	}
	if existing != nil {
		logger.Debug("recording already queued",
			logging.Int64("item_id", existing.ID),
			logging.String("status", string(existing.Status)),
		)
		m.markHandled(path, state)
		return
	}

	item, err := m.store.NewClip(ctx, path, fingerprint)
	if err != nil {
		logger.Error("enqueue recording failed", logging.Error(err))
		return
	}
	m.markHandled(path, state)

	logger.Info("recording queued for conversion",
		logging.Int64("item_id", item.ID),
		logging.String("title", item.Title),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyClipQueued(ctx, item.Title); err != nil {
			logger.Debug("queue notification failed", logging.Error(err))
		}
	}
}

func (m *Monitor) markHandled(path string, state fileState) {
	m.mu.Lock()
	m.handled[path] = state
	m.mu.Unlock()
}
