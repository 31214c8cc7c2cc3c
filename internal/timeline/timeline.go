package timeline

import (
	"fmt"

	"clipmorph/internal/services"
)

// SpeakerUnknown attributes words not covered by any diarization segment.
// Unknown attribution is the documented degradation path when diarization is
// missing or sparse; it is never an error.
const SpeakerUnknown = "UNKNOWN"

// WordEvent is one transcribed word with millisecond timestamps. Produced by
// the external transcription engine; immutable after ingestion.
type WordEvent struct {
	Text       string
	Start      int64
	End        int64
	Confidence float64
}

// SpeakerSegment is one diarization span. Segments for the same speaker may
// be non-contiguous, and segments from different speakers may overlap when
// people talk over each other; overlap is expected input, not an error.
type SpeakerSegment struct {
	SpeakerID string
	Start     int64
	End       int64
}

// Utterance is a maximal run of consecutive words attributed to one speaker.
// Start and End always equal the first word's start and the last word's end.
type Utterance struct {
	SpeakerID string
	Words     []WordEvent
	Start     int64
	End       int64
}

// Duration returns the utterance span in milliseconds.
func (u Utterance) Duration() int64 {
	return u.End - u.Start
}

// Text joins the utterance words with single spaces.
func (u Utterance) Text() string {
	n := 0
	for _, w := range u.Words {
		n += len(w.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, w := range u.Words {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, w.Text...)
	}
	return string(buf)
}

// ValidateWords rejects word events with negative timestamps or inverted
// spans. Zero-duration words are valid degenerate intervals.
func ValidateWords(words []WordEvent) error {
	for i, w := range words {
		if w.Start < 0 || w.End < 0 {
			return services.Wrap(services.ErrMalformedSignal, "fusion", "validate words",
				fmt.Sprintf("word %d %q has negative timestamp", i, w.Text), nil)
		}
		if w.Start > w.End {
			return services.Wrap(services.ErrMalformedSignal, "fusion", "validate words",
				fmt.Sprintf("word %d %q starts after it ends (%d > %d)", i, w.Text, w.Start, w.End), nil)
		}
	}
	return nil
}

// ValidateSegments rejects diarization segments with negative timestamps or
// inverted spans.
func ValidateSegments(segments []SpeakerSegment) error {
	for i, s := range segments {
		if s.Start < 0 || s.End < 0 {
			return services.Wrap(services.ErrMalformedSignal, "fusion", "validate segments",
				fmt.Sprintf("segment %d (%s) has negative timestamp", i, s.SpeakerID), nil)
		}
		if s.Start > s.End {
			return services.Wrap(services.ErrMalformedSignal, "fusion", "validate segments",
				fmt.Sprintf("segment %d (%s) starts after it ends (%d > %d)", i, s.SpeakerID, s.Start, s.End), nil)
		}
	}
	return nil
}
