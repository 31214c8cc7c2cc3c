// Package textutil provides filename sanitization helpers for clip artifacts.
package textutil
