package policy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"clipmorph/internal/services"
	"clipmorph/internal/timeline"
)

// RedactionMode selects how censored words appear in subtitle text. The audio
// mute interval is emitted in every mode.
type RedactionMode string

const (
	// RedactMuteOnly mutes audio but leaves subtitle text untouched.
	RedactMuteOnly RedactionMode = "mute_only"
	// RedactMuteAndBlank mutes audio and removes the word from subtitle text.
	RedactMuteAndBlank RedactionMode = "mute_and_blank"
	// RedactMuteAndAsterisk mutes audio and masks the word with asterisks,
	// preserving its length and position.
	RedactMuteAndAsterisk RedactionMode = "mute_and_asterisk"
)

// ParseRedactionMode converts a config string into a known mode.
func ParseRedactionMode(value string) (RedactionMode, bool) {
	mode := RedactionMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case RedactMuteOnly, RedactMuteAndBlank, RedactMuteAndAsterisk:
		return mode, true
	default:
		return "", false
	}
}

// CensorReason tags why an interval must be censored.
type CensorReason string

// ReasonProfanity marks intervals derived from lexicon matches.
const ReasonProfanity CensorReason = "profanity"

// CensorInterval is a time span over which audio is muted. Intervals are
// non-overlapping by construction after padding and merging.
type CensorInterval struct {
	Start  int64
	End    int64
	Reason CensorReason
}

// SubtitleCue is one on-screen caption with its speaker color.
type SubtitleCue struct {
	Text      string
	SpeakerID string
	Color     string
	Start     int64
	End       int64
}

// Defaults for the tunable policy knobs.
const (
	DefaultCensorPad      = 60   // ms of padding each side of a profane word
	DefaultCensorMergeGap = 150  // ms; padded intervals closer than this merge
	DefaultMaxCueChars    = 42   // characters per cue before splitting
	DefaultMaxCueDuration = 5000 // ms per cue before splitting
)

// Options configure policy derivation. The lexicon and palette are read-only
// shared configuration; everything else is per-job.
type Options struct {
	Mode           RedactionMode
	Lexicon        *Lexicon
	Palette        []string
	CensorPad      int64
	CensorMergeGap int64
	MaxCueChars    int
	MaxCueDuration int64

	// MediaDurationMS caps padded censor intervals so a hit on the final
	// word never extends past the end of the clip. Zero means the duration
	// is unknown and no cap applies.
	MediaDurationMS int64
}

func (o Options) withDefaults() (Options, error) {
	if o.Mode == "" {
		o.Mode = RedactMuteAndAsterisk
	}
	switch o.Mode {
	case RedactMuteOnly, RedactMuteAndBlank, RedactMuteAndAsterisk:
	default:
		return o, services.Wrap(services.ErrConfiguration, "policy", "validate options",
			fmt.Sprintf("unknown redaction mode %q", o.Mode), nil)
	}
	if o.CensorPad < 0 {
		return o, services.Wrap(services.ErrConfiguration, "policy", "validate options",
			"censor pad must not be negative", nil)
	}
	if o.CensorPad == 0 {
		o.CensorPad = DefaultCensorPad
	}
	if o.CensorMergeGap <= 0 {
		o.CensorMergeGap = DefaultCensorMergeGap
	}
	if o.MaxCueChars <= 0 {
		o.MaxCueChars = DefaultMaxCueChars
	}
	if o.MaxCueDuration <= 0 {
		o.MaxCueDuration = DefaultMaxCueDuration
	}
	return o, nil
}

// Derive walks the fused timeline and produces the censoring intervals and
// subtitle cues for one job. The input is read-only; calling Derive twice on
// the same timeline yields identical output.
func Derive(utterances []timeline.Utterance, opts Options) ([]CensorInterval, []SubtitleCue, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, nil, err
	}

	colors := newColorAssigner(opts.Palette)

	var (
		censors []CensorInterval
		cues    []SubtitleCue
	)
	for _, utt := range utterances {
		color := colors.colorFor(utt.SpeakerID)

		display := make([]displayWord, 0, len(utt.Words))
		for _, word := range utt.Words {
			if opts.Lexicon.Contains(word.Text) {
				start := word.Start - opts.CensorPad
				if start < 0 {
					start = 0
				}
				end := word.End + opts.CensorPad
				if opts.MediaDurationMS > 0 && end > opts.MediaDurationMS {
					end = opts.MediaDurationMS
				}
				censors = append(censors, CensorInterval{
					Start:  start,
					End:    end,
					Reason: ReasonProfanity,
				})
				switch opts.Mode {
				case RedactMuteOnly:
					display = append(display, displayWord{word.Text, word.Start, word.End})
				case RedactMuteAndBlank:
					// word dropped from display; cue window is unchanged
				case RedactMuteAndAsterisk:
					display = append(display, displayWord{maskWord(word.Text), word.Start, word.End})
				}
				continue
			}
			display = append(display, displayWord{word.Text, word.Start, word.End})
		}

		cues = append(cues, splitCues(utt, display, color, opts)...)
	}

	return mergeCensors(censors, opts.CensorMergeGap), cues, nil
}

// maskWord replaces every rune with an asterisk, preserving word length.
func maskWord(word string) string {
	return strings.Repeat("*", utf8.RuneCountInString(word))
}

// mergeCensors merges padded intervals that overlap or sit within the merge
// gap. Input arrives in word order, which is non-decreasing in start time.
func mergeCensors(intervals []CensorInterval, mergeGap int64) []CensorInterval {
	if len(intervals) == 0 {
		return nil
	}
	merged := make([]CensorInterval, 0, len(intervals))
	current := intervals[0]
	for _, next := range intervals[1:] {
		if next.Start <= current.End+mergeGap {
			if next.End > current.End {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// displayWord is a subtitle word after redaction, keeping its original timing
// so cue splitting can honor the duration budget.
type displayWord struct {
	text  string
	start int64
	end   int64
}

// splitCues turns one utterance into one or more cues, splitting at word
// boundaries when the rendered text would exceed the character budget or the
// span would exceed the duration budget. Cue windows tile the utterance
// contiguously, divided proportionally to character count.
func splitCues(utt timeline.Utterance, display []displayWord, color string, opts Options) []SubtitleCue {
	if len(display) == 0 {
		return nil
	}
	chunks := packWords(display, opts.MaxCueChars, opts.MaxCueDuration)

	if len(chunks) == 1 {
		return []SubtitleCue{{
			Text:      joinWords(chunks[0]),
			SpeakerID: utt.SpeakerID,
			Color:     color,
			Start:     utt.Start,
			End:       utt.End,
		}}
	}

	totalChars := 0
	for _, chunk := range chunks {
		totalChars += joinedLength(chunk)
	}
	duration := utt.Duration()

	cues := make([]SubtitleCue, 0, len(chunks))
	consumed := 0
	start := utt.Start
	for i, chunk := range chunks {
		consumed += joinedLength(chunk)
		end := utt.End
		if i < len(chunks)-1 {
			if totalChars > 0 {
				end = utt.Start + duration*int64(consumed)/int64(totalChars)
			} else {
				end = utt.Start + duration*int64(i+1)/int64(len(chunks))
			}
		}
		cues = append(cues, SubtitleCue{
			Text:      joinWords(chunk),
			SpeakerID: utt.SpeakerID,
			Color:     color,
			Start:     start,
			End:       end,
		})
		start = end
	}
	return cues
}

// packWords greedily fills chunks, starting a new one when the next word would
// push the chunk past the character budget or stretch its span past the
// duration budget. A single oversized word still gets its own chunk.
func packWords(words []displayWord, maxChars int, maxDuration int64) [][]displayWord {
	var (
		chunks     [][]displayWord
		current    []displayWord
		chars      int
		chunkStart int64
	)
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word.text)
		if len(current) > 0 &&
			(chars+1+wordLen > maxChars || word.end-chunkStart > maxDuration) {
			chunks = append(chunks, current)
			current = nil
			chars = 0
		}
		if len(current) == 0 {
			chunkStart = word.start
		} else {
			chars++
		}
		current = append(current, word)
		chars += wordLen
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

func joinWords(words []displayWord) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.text
	}
	return strings.Join(parts, " ")
}

func joinedLength(words []displayWord) int {
	if len(words) == 0 {
		return 0
	}
	chars := len(words) - 1
	for _, w := range words {
		chars += utf8.RuneCountInString(w.text)
	}
	return chars
}
