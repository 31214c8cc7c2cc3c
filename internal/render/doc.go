// Package render composes a layout plan and the derived censoring and
// subtitle instructions into the ordered operation sequence consumed by the
// media engine. The ordering is part of the engine contract: spatial
// operations first, then temporal operations by start time with audio muting
// ahead of subtitle drawing on ties.
package render
