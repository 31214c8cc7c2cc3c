package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"

	"clipmorph/internal/config"
	"clipmorph/internal/logging"
	"clipmorph/internal/notifications"
	"clipmorph/internal/queue"
	"clipmorph/internal/watch"
	"clipmorph/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	lock := flock.New(cfg.LockFilePath())
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("acquire daemon lock: %v", err)
	}
	if !locked {
		log.Fatalf("another clipmorph daemon already holds %s", cfg.LockFilePath())
	}
	defer lock.Unlock() //nolint:errcheck

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{logging.DaemonLogPath(cfg)},
	})

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	if err := configureStages(manager, cfg, store, logger); err != nil {
		logger.Error("configure stages", logging.Error(err))
		return
	}

	if err := manager.Start(ctx); err != nil {
		logger.Error("start workflow manager", logging.Error(err))
		return
	}

	monitor := watch.NewMonitor(cfg, store, logger, notifier)
	if monitor != nil {
		if err := monitor.Start(ctx); err != nil {
			logger.Error("start watch monitor", logging.Error(err))
			manager.Stop()
			return
		}
	}

	<-ctx.Done()
	monitor.Stop()
	manager.Stop()
	logger.Info("clipmorphd shutting down")
}
