package deps

import "clipmorph/internal/config"

// Defaults lists the external binaries ClipMorph invokes, resolved from the
// active configuration.
func Defaults(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Render.FFmpegPath,
			Description: "Renders the vertical clip and extracts audio",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Render.FFprobePath,
			Description: "Probes source recording geometry",
		},
		{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Runs WhisperX transcription and pyannote diarization",
		},
	}
}
