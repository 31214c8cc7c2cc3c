// Package policy derives censoring intervals and subtitle cues from a fused
// timeline.
//
// Profanity matching runs against a read-only lexicon loaded once per
// process. Derivation is pure: identical timelines and options always yield
// identical intervals, cues, and speaker-to-color assignments.
package policy
