// Package diarize wraps the WhisperX diarization pass (run through uvx) to
// produce speaker segments for the fusion stage.
package diarize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"clipmorph/internal/timeline"
)

// Command and argument defaults for the uvx invocation.
const (
	UVXCommand   = "uvx"
	DefaultModel = "small"
	PypiIndexURL = "https://pypi.org/simple"
)

// Config controls the diarization invocation. Diarization requires a Hugging
// Face token for the pyannote speaker models.
type Config struct {
	Model       string
	HFToken     string
	MinSpeakers int
	MaxSpeakers int
	WorkDir     string
}

// Service runs speaker diarization. It satisfies the pipeline's Diarizer
// contract.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a diarization service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Diarize runs the diarization pass on the source media and returns speaker
// segments in milliseconds.
func (s *Service) Diarize(ctx context.Context, sourcePath string) ([]timeline.SpeakerSegment, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, fmt.Errorf("diarize: source path required")
	}
	if s.cfg.HFToken == "" {
		return nil, fmt.Errorf("diarize: hugging face token required for speaker models")
	}
	workDir := s.cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "clipmorph-diarize")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("diarize: ensure work dir: %w", err)
	}

	if err := s.run(ctx, UVXCommand, s.buildArgs(sourcePath, workDir)...); err != nil {
		return nil, fmt.Errorf("diarize: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	jsonPath := filepath.Join(workDir, baseName+".json")
	return LoadSpeakerSegments(jsonPath)
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs constructs the uvx command arguments for the diarization pass.
func (s *Service) buildArgs(source, outputDir string) []string {
	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}
	args := []string{
		"--index-url", PypiIndexURL,
		"whisperx",
		source,
		"--model", model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--diarize",
		"--hf_token", s.cfg.HFToken,
	}
	if s.cfg.MinSpeakers > 0 {
		args = append(args, "--min_speakers", fmt.Sprintf("%d", s.cfg.MinSpeakers))
	}
	if s.cfg.MaxSpeakers > 0 {
		args = append(args, "--max_speakers", fmt.Sprintf("%d", s.cfg.MaxSpeakers))
	}
	return args
}

type diarizedSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type payload struct {
	Segments []diarizedSegment `json:"segments"`
}

// LoadSpeakerSegments parses a diarized WhisperX JSON file into millisecond
// speaker segments. Segments without a speaker label are dropped.
func LoadSpeakerSegments(jsonPath string) ([]timeline.SpeakerSegment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var doc payload
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse diarization json: %w", err)
	}

	var segments []timeline.SpeakerSegment
	for _, seg := range doc.Segments {
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			continue
		}
		segments = append(segments, timeline.SpeakerSegment{
			SpeakerID: speaker,
			Start:     secondsToMillis(seg.Start),
			End:       secondsToMillis(seg.End),
		})
	}
	return segments, nil
}

var thousand = decimal.NewFromInt(1000)

func secondsToMillis(seconds float64) int64 {
	return decimal.NewFromFloat(seconds).Mul(thousand).Round(0).IntPart()
}
