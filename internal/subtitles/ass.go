package subtitles

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"clipmorph/internal/policy"
	"clipmorph/internal/services"
)

// assHeader is the fixed script preamble. PlayRes matches the vertical short
// output so font sizing stays predictable.
const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
WrapStyle: 0
ScaledBorderAndShadow: yes

`

const assEvents = `[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Text
`

// WriteASS renders cues as an Advanced SubStation script with one style per
// speaker so each keeps its assigned color.
func WriteASS(w io.Writer, cues []policy.SubtitleCue) error {
	if _, err := io.WriteString(w, assHeader); err != nil {
		return fmt.Errorf("write ass header: %w", err)
	}

	styles, order := speakerStyles(cues)
	var sb strings.Builder
	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, Outline, Shadow, Alignment, MarginV\n")
	for _, speaker := range order {
		color, err := assColor(styles[speaker])
		if err != nil {
			return err
		}
		sb.WriteString(fmt.Sprintf("Style: %s,Arial,72,%s,&H00000000,&H7F000000,-1,3,1,2,220\n",
			styleName(speaker), color))
	}
	sb.WriteString("\n")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write ass styles: %w", err)
	}

	if _, err := io.WriteString(w, assEvents); err != nil {
		return fmt.Errorf("write ass events header: %w", err)
	}
	for _, cue := range cues {
		line := fmt.Sprintf("Dialogue: 0,%s,%s,%s,,0,0,0,%s\n",
			formatASSTimestamp(cue.Start),
			formatASSTimestamp(cue.End),
			styleName(cue.SpeakerID),
			escapeASSText(cue.Text))
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("write ass dialogue: %w", err)
		}
	}
	return nil
}

// WriteASSFile writes the styled script to path.
func WriteASSFile(path string, cues []policy.SubtitleCue) error {
	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "subtitles", "write ass",
			fmt.Sprintf("create %s", path), err)
	}
	defer file.Close()

	if err := WriteASS(file, cues); err != nil {
		return services.Wrap(services.ErrTransient, "subtitles", "write ass", path, err)
	}
	return file.Close()
}

// speakerStyles collects each speaker's color in first-seen order.
func speakerStyles(cues []policy.SubtitleCue) (map[string]string, []string) {
	styles := make(map[string]string)
	var order []string
	for _, cue := range cues {
		if _, ok := styles[cue.SpeakerID]; ok {
			continue
		}
		styles[cue.SpeakerID] = cue.Color
		order = append(order, cue.SpeakerID)
	}
	if len(order) == 0 {
		styles["Default"] = "#FFFFFF"
		order = []string{"Default"}
	}
	return styles, order
}

func styleName(speaker string) string {
	if speaker == "" {
		return "Default"
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, speaker)
	return "Spk_" + cleaned
}

// assColor converts "#RRGGBB" to the &H00BBGGRR form ASS expects.
func assColor(hex string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(trimmed) != 6 {
		return "", services.Wrap(services.ErrConfiguration, "subtitles", "ass color",
			fmt.Sprintf("invalid color %q", hex), nil)
	}
	value, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "subtitles", "ass color",
			fmt.Sprintf("invalid color %q", hex), err)
	}
	r := (value >> 16) & 0xFF
	g := (value >> 8) & 0xFF
	b := value & 0xFF
	return fmt.Sprintf("&H00%02X%02X%02X", b, g, r), nil
}

// formatASSTimestamp renders milliseconds as H:MM:SS.cc (centiseconds).
func formatASSTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	centis := (ms - seconds*1000) / 10
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "\n", "\\N")
	return strings.TrimSpace(text)
}

// SortCues orders cues by start time, stable, for writers that require
// monotonic output.
func SortCues(cues []policy.SubtitleCue) []policy.SubtitleCue {
	sorted := make([]policy.SubtitleCue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return sorted
}
