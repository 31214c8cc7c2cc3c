// Package ffmpeg wraps the ffmpeg and ffprobe binaries: probing source
// geometry, extracting audio for the transcription engines, and executing a
// composed render operation sequence as a single filtergraph pass.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"clipmorph/internal/logging"
	"clipmorph/internal/render"
)

// Default binary names, resolved through PATH at invocation time.
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
)

// Default output canvas for vertical shorts.
const (
	DefaultOutputWidth  = 1080
	DefaultOutputHeight = 1920
)

// Options configure the executor.
type Options struct {
	FFmpegPath   string
	FFprobePath  string
	OutputWidth  int
	OutputHeight int
	// VideoCRF selects x264 quality; zero uses the default.
	VideoCRF int
}

func (o Options) withDefaults() Options {
	if o.FFmpegPath == "" {
		o.FFmpegPath = FFmpegCommand
	}
	if o.FFprobePath == "" {
		o.FFprobePath = FFprobeCommand
	}
	if o.OutputWidth <= 0 {
		o.OutputWidth = DefaultOutputWidth
	}
	if o.OutputHeight <= 0 {
		o.OutputHeight = DefaultOutputHeight
	}
	if o.VideoCRF <= 0 {
		o.VideoCRF = 20
	}
	return o
}

// Executor runs ffmpeg operations. It satisfies the pipeline's Renderer
// contract.
type Executor struct {
	opts          Options
	log           *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExecutor creates an executor. Binaries are resolved lazily so probing a
// misconfigured host fails at call time with a useful error.
func NewExecutor(opts Options, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{opts: opts.withDefaults(), log: logger}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Executor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	e.commandRunner = runner
}

func (e *Executor) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return output, ctx.Err()
		}
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// VideoInfo is the probed metadata the pipeline needs from a source file.
type VideoInfo struct {
	Width      int
	Height     int
	DurationMS int64
	FPS        string
	VideoCodec string
	HasAudio   bool
}

// probeResult matches the ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe extracts geometry and duration from a media file.
func (e *Executor) Probe(ctx context.Context, filePath string) (VideoInfo, error) {
	var info VideoInfo
	if strings.TrimSpace(filePath) == "" {
		return info, fmt.Errorf("probe: file path required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}
	output, err := e.run(ctx, e.opts.FFprobePath, args...)
	if err != nil {
		return info, fmt.Errorf("ffprobe: %w", err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return info, fmt.Errorf("parse ffprobe output: %w", err)
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.DurationMS = decimal.NewFromFloat(dur).Mul(decimal.NewFromInt(1000)).Round(0).IntPart()
	}
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
			info.FPS = stream.RFrameRate
		case "audio":
			info.HasAudio = true
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("probe: no video stream in %s", filePath)
	}
	return info, nil
}

// ExtractAudio writes the source's audio as a mono 16kHz WAV suitable for the
// transcription engines.
func (e *Executor) ExtractAudio(ctx context.Context, sourcePath, destPath string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", sourcePath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		destPath,
	}
	e.log.DebugContext(ctx, "extracting audio",
		logging.String("source", sourcePath),
		logging.String("dest", destPath))
	if _, err := e.run(ctx, e.opts.FFmpegPath, args...); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	return nil
}

// Render executes a composed operation sequence in one encoding pass.
func (e *Executor) Render(ctx context.Context, sourcePath, outputPath string, ops []render.Operation) error {
	graph, err := BuildFilterGraph(ops, e.opts.OutputWidth, e.opts.OutputHeight)
	if err != nil {
		return err
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", sourcePath,
		"-filter_complex", graph.Graph,
		"-map", graph.VideoLabel,
	}
	if graph.AudioLabel != "" {
		args = append(args, "-map", graph.AudioLabel)
	} else {
		args = append(args, "-map", "0:a?")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", strconv.Itoa(e.opts.VideoCRF),
		"-c:a", "aac",
		"-movflags", "+faststart",
		outputPath,
	)

	e.log.InfoContext(ctx, "rendering clip",
		logging.String("source", sourcePath),
		logging.String("output", outputPath),
		logging.Int("operations", len(ops)))
	if _, err := e.run(ctx, e.opts.FFmpegPath, args...); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
