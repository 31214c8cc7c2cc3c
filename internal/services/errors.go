package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the pipeline error taxonomy. Stage code wraps failures
// with one of these so callers can classify without string matching.
var (
	// ErrMalformedSignal marks transcript or diarization input rejected at
	// ingestion (start > end, negative timestamps). Not retryable.
	ErrMalformedSignal = errors.New("malformed signal")
	// ErrInvalidLayout marks a layout request with degenerate geometry.
	// The caller must correct the input before retrying.
	ErrInvalidLayout = errors.New("invalid layout request")
	// ErrOutOfBounds marks a composed operation whose time window exceeds the
	// media duration. Indicates upstream timestamp corruption; not retryable.
	ErrOutOfBounds = errors.New("operation out of bounds")
	// ErrUpstreamTimeout marks an external engine call that did not respond
	// within its configured bound. Retryable by the caller of the pipeline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrExternalTool marks a subprocess or remote service failure.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks unusable configuration detected at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the caller may retry the failed operation without
// changing its input. Only timeouts and transient failures qualify; the rest
// of the taxonomy indicates corrupted or invalid input.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

// ClassifyUpstream converts context deadline errors from an external engine
// call into ErrUpstreamTimeout, leaving other errors tagged as external tool
// failures.
func ClassifyUpstream(stage, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrUpstreamTimeout, stage, operation, "external engine did not respond within bound", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return Wrap(ErrExternalTool, stage, operation, "", err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
