package config

const (
	defaultWatchDir          = "~/.local/share/clipmorph/watch"
	defaultStagingDir        = "~/.local/share/clipmorph/staging"
	defaultOutputDir         = "~/clips"
	defaultLogDir            = "~/.local/share/clipmorph/logs"
	defaultStateDir          = "~/.local/share/clipmorph/state"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultFillPreference    = "blur"
	defaultSolidFillColor    = "#000000"
	defaultCameraPlacement   = "top"
	defaultRedactionMode     = "mute_and_asterisk"
	defaultWhisperModel      = "small"
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120
	defaultUploadAttempts    = 3
	defaultUploadBackoff     = 30
	defaultUploadTimeout     = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:   defaultWatchDir,
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Pipeline: Pipeline{
			TargetAspectW:    9,
			TargetAspectH:    16,
			FillPreference:   defaultFillPreference,
			SolidFillColor:   defaultSolidFillColor,
			CameraPlacement:  defaultCameraPlacement,
			CameraHeightFrac: 0.30,
			SilenceGapMS:     1000,
			RedactionMode:    defaultRedactionMode,
			CensorPadMS:      60,
			CensorMergeGapMS: 150,
			MaxCueChars:      42,
			MaxCueDurationMS: 5000,
		},
		Transcription: Transcription{
			Model:          defaultWhisperModel,
			Language:       "en",
			TimeoutSeconds: 900,
		},
		Diarization: Diarization{
			Model:          defaultWhisperModel,
			MaxSpeakers:    6,
			TimeoutSeconds: 900,
		},
		Render: Render{
			FFmpegPath:     "ffmpeg",
			FFprobePath:    "ffprobe",
			OutputWidth:    1080,
			OutputHeight:   1920,
			VideoCRF:       20,
			TimeoutSeconds: 2700,
		},
		Upload: Upload{
			Platforms:           []string{"youtube"},
			MaxAttempts:         defaultUploadAttempts,
			RetryBackoffSeconds: defaultUploadBackoff,
			TimeoutSeconds:      defaultUploadTimeout,
			YouTube: YouTube{
				CategoryID: "20", // gaming
				Privacy:    "public",
			},
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			WatchPollInterval:  10,
			WatchSettleSeconds: 10,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Completed:      true,
			Uploads:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
