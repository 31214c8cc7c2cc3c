// Package pipeline drives one conversion job through its state machine:
// ingest, fuse, derive policy, lay out, compose, render. The transcript and
// layout branches run concurrently and join before composition; external
// engine calls are cancelable and timeout-bound, with a timeout surfacing as
// a retryable upstream error rather than blocking the job.
package pipeline
