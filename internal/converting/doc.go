// Package converting implements the conversion stage: it probes and
// fingerprints the source recording, extracts audio for the speech engines,
// runs the conversion pipeline, and writes the vertical clip plus subtitle
// sidecar files.
package converting
