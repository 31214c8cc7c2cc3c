package converting

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"lukechampine.com/blake3"

	"clipmorph/internal/config"
	"clipmorph/internal/fileutil"
	"clipmorph/internal/layout"
	"clipmorph/internal/logging"
	"clipmorph/internal/pipeline"
	"clipmorph/internal/policy"
	"clipmorph/internal/queue"
	"clipmorph/internal/render"
	"clipmorph/internal/services"
	"clipmorph/internal/services/diarize"
	"clipmorph/internal/services/ffmpeg"
	"clipmorph/internal/services/whisperx"
	"clipmorph/internal/stage"
	"clipmorph/internal/subtitles"
	"clipmorph/internal/textutil"
	"clipmorph/internal/timeline"
)

// MediaEngine is the ffmpeg surface the converter needs. The production
// implementation is *ffmpeg.Executor.
type MediaEngine interface {
	Probe(ctx context.Context, filePath string) (ffmpeg.VideoInfo, error)
	ExtractAudio(ctx context.Context, sourcePath, destPath string) error
	Render(ctx context.Context, sourcePath, outputPath string, ops []render.Operation) error
}

// Converter turns a queued gameplay recording into a vertical clip with
// censored audio and speaker-colored subtitles.
type Converter struct {
	store        *queue.Store
	cfg          *config.Config
	logger       *slog.Logger
	engine       MediaEngine
	orchestrator *pipeline.Orchestrator
}

// NewConverter wires the production speech and media engines.
func NewConverter(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Converter, error) {
	engine := ffmpeg.NewExecutor(ffmpeg.Options{
		FFmpegPath:   cfg.Render.FFmpegPath,
		FFprobePath:  cfg.Render.FFprobePath,
		OutputWidth:  cfg.Render.OutputWidth,
		OutputHeight: cfg.Render.OutputHeight,
		VideoCRF:     cfg.Render.VideoCRF,
	}, logger)

	transcriber := whisperx.NewService(whisperx.Config{
		Model:       cfg.Transcription.Model,
		Language:    cfg.Transcription.Language,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
		WorkDir:     filepath.Join(cfg.Paths.StagingDir, "whisperx"),
	})
	diarizer := diarize.NewService(diarize.Config{
		Model:       cfg.Diarization.Model,
		HFToken:     cfg.Diarization.HFToken,
		MinSpeakers: cfg.Diarization.MinSpeakers,
		MaxSpeakers: cfg.Diarization.MaxSpeakers,
		WorkDir:     filepath.Join(cfg.Paths.StagingDir, "diarize"),
	})

	return NewConverterWith(cfg, store, logger, engine, transcriber, diarizer)
}

// NewConverterWith accepts explicit engine implementations (used in tests).
func NewConverterWith(cfg *config.Config, store *queue.Store, logger *slog.Logger, engine MediaEngine, transcriber pipeline.Transcriber, diarizer pipeline.Diarizer) (*Converter, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	pipelineCfg, err := pipelineConfig(cfg)
	if err != nil {
		return nil, err
	}
	orchestrator, err := pipeline.NewOrchestrator(pipelineCfg, transcriber, diarizer, engine, logger)
	if err != nil {
		return nil, err
	}
	return &Converter{
		store:        store,
		cfg:          cfg,
		logger:       logger.With(logging.String(logging.FieldComponent, "converter")),
		engine:       engine,
		orchestrator: orchestrator,
	}, nil
}

// pipelineConfig translates user configuration into the orchestrator's
// component options.
func pipelineConfig(cfg *config.Config) (pipeline.Config, error) {
	mode, ok := policy.ParseRedactionMode(cfg.Pipeline.RedactionMode)
	if !ok {
		return pipeline.Config{}, services.Wrap(services.ErrConfiguration, "converter", "parse redaction mode",
			fmt.Sprintf("unknown redaction mode %q", cfg.Pipeline.RedactionMode), nil)
	}
	lexicon, err := policy.LoadLexicon(cfg.Pipeline.LexiconPath, cfg.Pipeline.ExtraProfanity)
	if err != nil {
		return pipeline.Config{}, services.Wrap(services.ErrConfiguration, "converter", "load lexicon", "", err)
	}

	return pipeline.Config{
		TargetAspect: layout.AspectRatio{W: cfg.Pipeline.TargetAspectW, H: cfg.Pipeline.TargetAspectH},
		Fusion: timeline.Options{
			SilenceGap: cfg.Pipeline.SilenceGapMS,
		},
		Policy: policy.Options{
			Mode:           mode,
			Lexicon:        lexicon,
			Palette:        cfg.Pipeline.Palette,
			CensorPad:      cfg.Pipeline.CensorPadMS,
			CensorMergeGap: cfg.Pipeline.CensorMergeGapMS,
			MaxCueChars:    cfg.Pipeline.MaxCueChars,
			MaxCueDuration: cfg.Pipeline.MaxCueDurationMS,
		},
		Layout: layout.Options{
			FillPreference:   layout.FillMode(cfg.Pipeline.FillPreference),
			CameraHeightFrac: cfg.Pipeline.CameraHeightFrac,
			TiePreference:    layout.CameraPlacement(cfg.Pipeline.CameraPlacement),
		},
		Render: render.Options{
			SolidFillColor: cfg.Pipeline.SolidFillColor,
		},
		TranscribeTimeout: secondsDuration(cfg.Transcription.TimeoutSeconds),
		DiarizeTimeout:    secondsDuration(cfg.Diarization.TimeoutSeconds),
		RenderTimeout:     secondsDuration(cfg.Render.TimeoutSeconds),
	}, nil
}

// Prepare probes the source geometry and fingerprints the file so duplicate
// submissions can be detected.
func (c *Converter) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)

	if _, err := os.Stat(item.SourcePath); err != nil {
		return services.Wrap(services.ErrConfiguration, "converter", "stat source",
			"source recording is missing", err)
	}

	if item.Fingerprint == "" {
		fingerprint, err := FingerprintFile(item.SourcePath)
		if err != nil {
			return services.Wrap(services.ErrTransient, "converter", "fingerprint source", "", err)
		}
		item.Fingerprint = fingerprint
	}

	info, err := c.engine.Probe(ctx, item.SourcePath)
	if err != nil {
		return err
	}
	item.Width = info.Width
	item.Height = info.Height
	item.DurationMS = info.DurationMS
	item.SetProgress("Converting", "Source probed", 5)

	logger.Info("source probed",
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Int64("duration_ms", info.DurationMS),
		logging.Bool("has_audio", info.HasAudio),
	)
	return nil
}

// Execute runs the conversion pipeline and writes the clip plus subtitle
// sidecar files.
func (c *Converter) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)

	workDir := filepath.Join(c.cfg.Paths.StagingDir, fmt.Sprintf("item-%d", item.ID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "converter", "create work dir", "", err)
	}
	if err := os.MkdirAll(c.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "converter", "create output dir", "", err)
	}

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := c.engine.ExtractAudio(ctx, item.SourcePath, audioPath); err != nil {
		return err
	}
	item.AudioPath = audioPath
	item.SetProgress("Converting", "Audio extracted", 15)
	if err := c.store.Update(ctx, item); err != nil {
		logger.Warn("failed to persist audio extraction progress", logging.Error(err))
	}

	base := outputBasename(item)
	renderPath := filepath.Join(workDir, base+"_vertical.mp4")

	req := pipeline.Request{
		ItemID:     item.ID,
		SourcePath: item.SourcePath,
		AudioPath:  audioPath,
		OutputPath: renderPath,
		Source: pipeline.SourceInfo{
			Width:        item.Width,
			Height:       item.Height,
			DurationMS:   item.DurationMS,
			CameraRegion: cameraRegion(c.cfg.Pipeline.CameraRegion),
		},
	}

	result, err := c.orchestrator.Run(ctx, req)
	if err != nil {
		return err
	}

	// Render lands in staging so a crashed run never leaves a partial clip
	// in the output directory.
	outputPath := filepath.Join(c.cfg.Paths.OutputDir, base+"_vertical.mp4")
	if err := fileutil.MoveFile(renderPath, outputPath); err != nil {
		return services.Wrap(services.ErrTransient, "converter", "publish clip", "", err)
	}

	srtPath := filepath.Join(c.cfg.Paths.OutputDir, base+".srt")
	assPath := filepath.Join(c.cfg.Paths.OutputDir, base+".ass")
	cues := subtitles.SortCues(result.Cues)
	if err := subtitles.WriteSRTFile(srtPath, cues); err != nil {
		return err
	}
	if err := subtitles.WriteASSFile(assPath, cues); err != nil {
		return err
	}

	item.ArtifactPath = outputPath
	item.SubtitlePath = srtPath
	item.SetProgressComplete("Converting", "Vertical clip rendered")

	logger.Info("conversion finished",
		logging.String("artifact", outputPath),
		logging.String("subtitles", srtPath),
		logging.Int("utterances", len(result.Utterances)),
		logging.Int("censor_intervals", len(result.Censors)),
		logging.Int("subtitle_cues", len(result.Cues)),
	)
	return nil
}

// HealthCheck verifies the media binaries and staging directory are usable.
func (c *Converter) HealthCheck(ctx context.Context) stage.Health {
	const name = "converter"
	if _, err := exec.LookPath(c.cfg.Render.FFmpegPath); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg not found at %q", c.cfg.Render.FFmpegPath))
	}
	if _, err := exec.LookPath(c.cfg.Render.FFprobePath); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffprobe not found at %q", c.cfg.Render.FFprobePath))
	}
	if err := os.MkdirAll(c.cfg.Paths.StagingDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("staging dir unusable: %v", err))
	}
	return stage.Healthy(name)
}

// FingerprintFile hashes the file contents with BLAKE3 and returns a hex
// digest.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for fingerprint: %w", err)
	}
	defer f.Close()

	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash source: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func secondsDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func cameraRegion(region []int) *layout.Rect {
	if len(region) != 4 {
		return nil
	}
	return &layout.Rect{X: region[0], Y: region[1], W: region[2], H: region[3]}
}

func outputBasename(item *queue.Item) string {
	base := strings.TrimSpace(item.Title)
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(item.SourcePath), filepath.Ext(item.SourcePath))
	}
	base = textutil.SanitizeBaseName(base)
	if base == "" {
		base = fmt.Sprintf("clip-%d", item.ID)
	}
	return base
}
