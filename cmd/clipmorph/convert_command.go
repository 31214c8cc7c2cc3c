package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipmorph/internal/config"
	"clipmorph/internal/converting"
	"clipmorph/internal/logging"
	"clipmorph/internal/queue"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var title string
	var enqueueOnly bool

	cmd := &cobra.Command{
		Use:   "convert <video>...",
		Short: "Convert recordings into vertical clips",
		Long: "Convert one or more gameplay recordings into 9:16 vertical clips with " +
			"censored audio and speaker-colored subtitles. With --enqueue the items " +
			"are queued for the daemon instead of converting immediately.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title != "" && len(args) > 1 {
				return fmt.Errorf("--title applies to a single video, got %d", len(args))
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()

				var converter *converting.Converter
				if !enqueueOnly {
					logger, err := logging.New(logging.Options{
						Level:  cfg.Logging.Level,
						Format: cfg.Logging.Format,
					})
					if err != nil {
						return err
					}
					converter, err = converting.NewConverter(cfg, store, logger)
					if err != nil {
						return err
					}
				}

				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}

					item, created, err := enqueueClip(cmd, store, path)
					if err != nil {
						return err
					}
					if !created {
						fmt.Fprintf(out, "Skipping %s: already queued as item %d (%s)\n",
							path, item.ID, item.Status)
						continue
					}
					if title != "" {
						item.Title = title
						if err := store.Update(cmd.Context(), item); err != nil {
							return err
						}
					}

					if enqueueOnly {
						fmt.Fprintf(out, "Queued item %d: %s\n", item.ID, path)
						continue
					}

					fmt.Fprintf(out, "Converting %s...\n", path)
					if err := runConversion(cmd, store, converter, item); err != nil {
						return err
					}
					fmt.Fprintf(out, "Wrote %s\n", item.ArtifactPath)
					fmt.Fprintf(out, "Subtitles: %s\n", item.SubtitlePath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Clip title (single video only)")
	cmd.Flags().BoolVar(&enqueueOnly, "enqueue", false, "Queue for the daemon instead of converting now")
	return cmd
}

// enqueueClip fingerprints the source and creates a queue item unless the
// same content is already queued.
func enqueueClip(cmd *cobra.Command, store *queue.Store, path string) (*queue.Item, bool, error) {
	fingerprint, err := converting.FingerprintFile(path)
	if err != nil {
		return nil, false, err
	}
	if existing, err := store.FindByFingerprint(cmd.Context(), fingerprint); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	item, err := store.NewClip(cmd.Context(), path, fingerprint)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func runConversion(cmd *cobra.Command, store *queue.Store, converter *converting.Converter, item *queue.Item) error {
	item.Status = queue.StatusConverting
	if err := store.Update(cmd.Context(), item); err != nil {
		return err
	}

	fail := func(err error) error {
		item.SetFailed(err.Error())
		_ = store.Update(cmd.Context(), item)
		return err
	}
	if err := converter.Prepare(cmd.Context(), item); err != nil {
		return fail(err)
	}
	if err := store.Update(cmd.Context(), item); err != nil {
		return err
	}
	if err := converter.Execute(cmd.Context(), item); err != nil {
		return fail(err)
	}

	item.Status = queue.StatusConverted
	if strings.TrimSpace(item.ErrorMessage) != "" {
		item.ErrorMessage = ""
	}
	return store.Update(cmd.Context(), item)
}
