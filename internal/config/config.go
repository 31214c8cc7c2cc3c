package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir   string `toml:"watch_dir"`
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
}

// Pipeline contains the conversion knobs: target geometry, fill strategy,
// censoring policy, and subtitle budgets.
type Pipeline struct {
	TargetAspectW    int      `toml:"target_aspect_w"`
	TargetAspectH    int      `toml:"target_aspect_h"`
	FillPreference   string   `toml:"fill_preference"`
	SolidFillColor   string   `toml:"solid_fill_color"`
	CameraPlacement  string   `toml:"camera_placement_preference"`
	CameraHeightFrac float64  `toml:"camera_height_fraction"`
	CameraRegion     []int    `toml:"camera_region"`
	SilenceGapMS     int64    `toml:"silence_gap_ms"`
	RedactionMode    string   `toml:"redaction_mode"`
	LexiconPath      string   `toml:"lexicon_path"`
	ExtraProfanity   []string `toml:"extra_profanity"`
	Palette          []string `toml:"palette"`
	CensorPadMS      int64    `toml:"censor_pad_ms"`
	CensorMergeGapMS int64    `toml:"censor_merge_gap_ms"`
	MaxCueChars      int      `toml:"max_cue_chars"`
	MaxCueDurationMS int64    `toml:"max_cue_duration_ms"`
}

// Transcription contains WhisperX settings.
type Transcription struct {
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	CUDAEnabled    bool   `toml:"cuda_enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Diarization contains speaker diarization settings. Diarization needs a
// Hugging Face token for the pyannote speaker models.
type Diarization struct {
	Model          string `toml:"model"`
	HFToken        string `toml:"hf_token"`
	MinSpeakers    int    `toml:"min_speakers"`
	MaxSpeakers    int    `toml:"max_speakers"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Render contains media engine settings.
type Render struct {
	FFmpegPath     string `toml:"ffmpeg_path"`
	FFprobePath    string `toml:"ffprobe_path"`
	OutputWidth    int    `toml:"output_width"`
	OutputHeight   int    `toml:"output_height"`
	VideoCRF       int    `toml:"video_crf"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// YouTube contains YouTube Data API upload credentials.
type YouTube struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	CategoryID   string `toml:"category_id"`
	Privacy      string `toml:"privacy"`
}

// TikTok contains TikTok content posting credentials.
type TikTok struct {
	AccessToken string `toml:"access_token"`
}

// Instagram contains Instagram Graph API credentials.
type Instagram struct {
	AccessToken string `toml:"access_token"`
	UserID      string `toml:"user_id"`
}

// Twitter contains X/Twitter API credentials.
type Twitter struct {
	APIKey       string `toml:"api_key"`
	APISecret    string `toml:"api_secret"`
	AccessToken  string `toml:"access_token"`
	AccessSecret string `toml:"access_secret"`
}

// Upload contains destination platform configuration.
type Upload struct {
	Enabled             bool      `toml:"enabled"`
	Platforms           []string  `toml:"platforms"`
	MaxAttempts         int       `toml:"max_attempts"`
	RetryBackoffSeconds int       `toml:"retry_backoff_seconds"`
	TimeoutSeconds      int       `toml:"timeout_seconds"`
	YouTube             YouTube   `toml:"youtube"`
	TikTok              TikTok    `toml:"tiktok"`
	Instagram           Instagram `toml:"instagram"`
	Twitter             Twitter   `toml:"twitter"`
}

// Workflow contains daemon timing and intervals, in seconds.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	WatchPollInterval  int `toml:"watch_poll_interval"`
	WatchSettleSeconds int `toml:"watch_settle_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Uploads        bool   `toml:"uploads"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ClipMorph.
//
// Configuration sections by subsystem:
//   - Paths: intake, staging, output, log, and state directories
//   - Pipeline: target aspect, layout, censoring, and subtitle knobs
//   - Transcription: WhisperX invocation settings
//   - Diarization: speaker diarization invocation settings
//   - Render: ffmpeg/ffprobe binaries and output encoding
//   - Upload: destination platforms and their credentials
//   - Workflow: daemon polling intervals and heartbeats
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Transcription Transcription `toml:"transcription"`
	Diarization   Diarization   `toml:"diarization"`
	Render        Render        `toml:"render"`
	Upload        Upload        `toml:"upload"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipmorph/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipmorph.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// output directory is created best-effort so the daemon can start while
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	if strings.TrimSpace(c.Paths.WatchDir) != "" {
		_ = os.MkdirAll(c.Paths.WatchDir, 0o755)
	}
	return nil
}

// QueueDatabasePath returns the SQLite database location.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockFilePath returns the daemon lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.StateDir, "clipmorphd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
