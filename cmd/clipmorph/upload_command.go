package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipmorph/internal/config"
	"clipmorph/internal/logging"
	"clipmorph/internal/queue"
	"clipmorph/internal/uploads"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <item-id>",
		Short: "Upload a converted clip to the configured platforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if !cfg.Upload.Enabled {
					return errors.New("uploads are disabled; set upload.enabled in the configuration")
				}

				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item %d not found", id)
				}

				logger, err := logging.New(logging.Options{
					Level:  cfg.Logging.Level,
					Format: cfg.Logging.Format,
				})
				if err != nil {
					return err
				}
				uploader, err := uploads.NewUploader(cfg, store, logger)
				if err != nil {
					return err
				}

				if err := uploader.Prepare(cmd.Context(), item); err != nil {
					return err
				}
				item.Status = queue.StatusUploading
				if err := store.Update(cmd.Context(), item); err != nil {
					return err
				}
				if err := uploader.Execute(cmd.Context(), item); err != nil {
					item.SetFailed(err.Error())
					_ = store.Update(cmd.Context(), item)
					return err
				}

				item.Status = queue.StatusCompleted
				if err := store.Update(cmd.Context(), item); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				results, err := item.UploadResults()
				if err != nil {
					return err
				}
				for _, result := range results {
					if result.URL != "" {
						fmt.Fprintf(out, "%s: %s\n", result.Platform, result.URL)
					} else {
						fmt.Fprintf(out, "%s: media %s\n", result.Platform, result.MediaID)
					}
				}
				return nil
			})
		},
	}
}
