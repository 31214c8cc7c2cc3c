// Package services defines shared utilities consumed by the workflow stage
// handlers and external engine integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - The pipeline error taxonomy (malformed signal, invalid layout, out of
//     bounds, upstream timeout) plus the Wrap helper that tags failures for
//     classification without string matching.
//   - Retryability classification for the upload layer and for callers that
//     wrap the pipeline.
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
