// Package queue persists clip conversion state in SQLite.
//
// Each source recording becomes a queue item that moves through pending,
// converting, converted, uploading, and completed states (or failed). The
// store exposes the primitives the daemon needs: oldest-first polling,
// heartbeats for in-flight items, stale item reclamation, retry of failures,
// and aggregate health reporting.
package queue
