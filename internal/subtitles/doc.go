// Package subtitles serializes derived subtitle cues to SubRip and Advanced
// SubStation formats. The ASS writer emits one style per speaker so speaker
// colors survive into the rendered clip.
package subtitles
