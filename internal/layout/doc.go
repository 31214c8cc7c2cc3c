// Package layout computes the spatial transform plan for converting a
// widescreen gameplay recording into a vertical short: the content crop, the
// optional camera-feed hosting band, and the fill strategy for any residual
// letterbox area.
package layout
