package timeline

import "sort"

// DefaultSilenceGap is the silence threshold, in milliseconds, that starts a
// new utterance when no explicit value is configured.
const DefaultSilenceGap = 1000

// Options control utterance grouping during fusion.
type Options struct {
	// SilenceGap is the maximum silence, in milliseconds, tolerated between
	// consecutive words of one utterance. A larger gap starts a new
	// utterance even when the speaker is unchanged.
	SilenceGap int64
}

func (o Options) silenceGap() int64 {
	if o.SilenceGap <= 0 {
		return DefaultSilenceGap
	}
	return o.SilenceGap
}

// Fuse merges word events and diarization segments into a single ordered,
// speaker-attributed timeline.
//
// Each word is attributed to the segment covering its midpoint. When several
// segments cover the midpoint (overlapping speech) the segment with the
// larger temporal overlap against the word's full span wins; remaining ties
// go to the lexicographically smaller speaker ID so attribution never depends
// on input iteration order. Words covered by no segment become SpeakerUnknown.
//
// Consecutive words with the same resolved speaker are grouped into one
// utterance; a speaker change or a silence gap beyond Options.SilenceGap
// starts a new one. Utterances never overlap: when speech overlaps across a
// speaker change, the earlier utterance is truncated at the start of the
// later one. An empty word sequence yields an empty timeline.
func Fuse(words []WordEvent, segments []SpeakerSegment, opts Options) ([]Utterance, error) {
	if err := ValidateWords(words); err != nil {
		return nil, err
	}
	if err := ValidateSegments(segments); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, nil
	}

	sorted := make([]WordEvent, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	index := newSegmentIndex(segments)
	gap := opts.silenceGap()

	var (
		utterances []Utterance
		current    *Utterance
	)
	for _, word := range sorted {
		speaker := index.resolve(word)
		startNew := current == nil ||
			current.SpeakerID != speaker ||
			word.Start-current.End > gap
		if startNew {
			if current != nil && current.End > word.Start {
				current.End = word.Start
			}
			utterances = append(utterances, Utterance{
				SpeakerID: speaker,
				Start:     word.Start,
				End:       word.End,
				Words:     []WordEvent{word},
			})
			current = &utterances[len(utterances)-1]
			continue
		}
		current.Words = append(current.Words, word)
		if word.End > current.End {
			current.End = word.End
		}
	}
	return utterances, nil
}

// segmentIndex answers midpoint-coverage queries in O(log S + k) where k is
// the number of segments overlapping the query point. Segments are sorted by
// start; maxEnd[i] holds the running maximum end over segments[0..i] so the
// leftward scan can stop as soon as no earlier segment can still cover the
// midpoint.
type segmentIndex struct {
	segments []SpeakerSegment
	maxEnd   []int64
}

func newSegmentIndex(segments []SpeakerSegment) *segmentIndex {
	sorted := make([]SpeakerSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	maxEnd := make([]int64, len(sorted))
	for i, seg := range sorted {
		maxEnd[i] = seg.End
		if i > 0 && maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}
	return &segmentIndex{segments: sorted, maxEnd: maxEnd}
}

// resolve attributes a word to a speaker using midpoint coverage with the
// deterministic tie-break policy.
func (x *segmentIndex) resolve(word WordEvent) string {
	if len(x.segments) == 0 {
		return SpeakerUnknown
	}
	mid := word.Start + (word.End-word.Start)/2

	// Rightmost segment starting at or before the midpoint.
	last := sort.Search(len(x.segments), func(i int) bool { return x.segments[i].Start > mid }) - 1
	if last < 0 {
		return SpeakerUnknown
	}

	best := ""
	bestOverlap := int64(-1)
	for i := last; i >= 0; i-- {
		if x.maxEnd[i] < mid {
			break
		}
		seg := x.segments[i]
		if seg.End < mid {
			continue
		}
		overlap := overlapLen(seg, word)
		if overlap > bestOverlap || (overlap == bestOverlap && seg.SpeakerID < best) {
			best = seg.SpeakerID
			bestOverlap = overlap
		}
	}
	if bestOverlap < 0 {
		return SpeakerUnknown
	}
	return best
}

func overlapLen(seg SpeakerSegment, word WordEvent) int64 {
	start := seg.Start
	if word.Start > start {
		start = word.Start
	}
	end := seg.End
	if word.End < end {
		end = word.End
	}
	if end < start {
		return 0
	}
	return end - start
}
