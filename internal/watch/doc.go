// Package watch polls the configured watch directory for finished gameplay
// recordings and enqueues them for conversion.
package watch
