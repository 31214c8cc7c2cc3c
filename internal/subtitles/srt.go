package subtitles

import (
	"fmt"
	"io"
	"os"
	"strings"

	"clipmorph/internal/policy"
	"clipmorph/internal/services"
)

// WriteSRT renders cues as a SubRip file. Cues are written in input order,
// which callers keep sorted by start time.
func WriteSRT(w io.Writer, cues []policy.SubtitleCue) error {
	for i, cue := range cues {
		block := fmt.Sprintf("%d\n%s --> %s\n%s\n\n",
			i+1,
			formatSRTTimestamp(cue.Start),
			formatSRTTimestamp(cue.End),
			strings.TrimSpace(cue.Text))
		if _, err := io.WriteString(w, block); err != nil {
			return fmt.Errorf("write srt cue %d: %w", i+1, err)
		}
	}
	return nil
}

// WriteSRTFile writes cues to path.
func WriteSRTFile(path string, cues []policy.SubtitleCue) error {
	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "subtitles", "write srt",
			fmt.Sprintf("create %s", path), err)
	}
	defer file.Close()

	if err := WriteSRT(file, cues); err != nil {
		return services.Wrap(services.ErrTransient, "subtitles", "write srt", path, err)
	}
	return file.Close()
}

// formatSRTTimestamp renders milliseconds as HH:MM:SS,mmm.
func formatSRTTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	millis := ms - seconds*1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
