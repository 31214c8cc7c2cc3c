// Package timeline fuses word-level transcripts with speaker diarization into
// a single ordered timeline of utterances.
//
// The fusion engine is a pure transformation: it performs no I/O, holds no
// shared state, and resolves diarization overlaps with a deterministic
// tie-break (overlap magnitude, then lexicographic speaker ID) so identical
// inputs always produce identical timelines.
package timeline
