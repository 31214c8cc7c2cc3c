// Package whisperx wraps the WhisperX CLI (run through uvx) to produce
// word-level transcript events for the fusion stage.
package whisperx

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
	UVXCommand    = "uvx"
	DefaultModel  = "small"
	OutputFormat  = "json"
	BatchSize     = "8"
	PypiIndexURL  = "https://pypi.org/simple"
	CUDAIndexURL  = "https://download.pytorch.org/whl/cu128"
	CPUDevice     = "cpu"
	CUDADevice    = "cuda"
	CPUComputeTyp = "int8"
)

// Config controls the WhisperX invocation.
type Config struct {
	Model       string
	Language    string
	CUDAEnabled bool
	WorkDir     string
}

// Service runs WhisperX transcriptions. It satisfies the pipeline's
// Transcriber contract.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe runs WhisperX on the source media and returns its word events in
// milliseconds, sorted as emitted.
func (s *Service) Transcribe(ctx context.Context, sourcePath string) ([]timeline.WordEvent, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, fmt.Errorf("transcribe: source path required")
	}
	workDir := s.cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "clipmorph-whisperx")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure work dir: %w", err)
	}

	if err := s.run(ctx, UVXCommand, s.buildArgs(sourcePath, workDir)...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	jsonPath := filepath.Join(workDir, baseName+".json")
	return LoadWordEvents(jsonPath)
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// WhisperX checkpoint loading. Force legacy behavior.
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

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	)

	if s.cfg.Language != "" {
		args = append(args, "--language", s.cfg.Language)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeTyp)
	}
	return args
}

// Word represents a single word with timing from WhisperX output, in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type payload struct {
	Segments []Segment `json:"segments"`
}

// LoadWordEvents parses a WhisperX JSON file into millisecond word events.
// Words WhisperX emits without timing (digits, symbols) are dropped.
func LoadWordEvents(jsonPath string) ([]timeline.WordEvent, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var doc payload
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}

	var events []timeline.WordEvent
	for _, seg := range doc.Segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			if w.Start == 0 && w.End == 0 && seg.Start > 0 {
				continue
			}
			events = append(events, timeline.WordEvent{
				Text:       text,
				Start:      secondsToMillis(w.Start),
				End:        secondsToMillis(w.End),
				Confidence: w.Score,
			})
		}
	}
	return events, nil
}

var thousand = decimal.NewFromInt(1000)

// secondsToMillis converts WhisperX float seconds without binary float drift.
func secondsToMillis(seconds float64) int64 {
	return decimal.NewFromFloat(seconds).Mul(thousand).Round(0).IntPart()
}
