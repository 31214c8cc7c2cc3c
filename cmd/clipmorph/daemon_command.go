package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"clipmorph/internal/config"
	"clipmorph/internal/converting"
	"clipmorph/internal/logging"
	"clipmorph/internal/notifications"
	"clipmorph/internal/queue"
	"clipmorph/internal/uploads"
	"clipmorph/internal/watch"
	"clipmorph/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon operations",
	}
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process the queue in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDaemon(cmd, cfg)
		},
	}
}

// runDaemon holds the single-instance lock and drives the workflow manager
// until the context is cancelled.
func runDaemon(cmd *cobra.Command, cfg *config.Config) error {
	lock := flock.New(cfg.LockFilePath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another clipmorph daemon already holds %s", cfg.LockFilePath())
	}
	defer lock.Unlock() //nolint:errcheck

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{logging.DaemonLogPath(cfg)},
	})

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)

	converter, err := converting.NewConverter(cfg, store, logger)
	if err != nil {
		return err
	}
	stages := workflow.StageSet{Converter: converter}
	if cfg.Upload.Enabled {
		uploader, err := uploads.NewUploader(cfg, store, logger)
		if err != nil {
			return err
		}
		stages.Uploader = uploader
	}
	manager.ConfigureStages(stages)

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(runCtx); err != nil {
		return err
	}

	monitor := watch.NewMonitor(cfg, store, logger, notifier)
	if monitor != nil {
		if err := monitor.Start(runCtx); err != nil {
			manager.Stop()
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "clipmorph daemon running; press Ctrl-C to stop")

	<-runCtx.Done()
	monitor.Stop()
	manager.Stop()
	fmt.Fprintln(cmd.OutOrStdout(), "clipmorph daemon stopped")
	return nil
}
