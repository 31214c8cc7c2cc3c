package main

import (
	"log/slog"

	"clipmorph/internal/config"
	"clipmorph/internal/converting"
	"clipmorph/internal/queue"
	"clipmorph/internal/uploads"
	"clipmorph/internal/workflow"
)

// configureStages wires the conversion stage and, when uploads are enabled,
// the upload stage into the workflow manager.
func configureStages(manager *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger) error {
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
	return nil
}
