package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying every failure the intake pipeline can record.
// Per-file failures are wrapped with one of these markers so callers can use
// errors.Is for classification while the queue record keeps the full message.
var (
	ErrSourceNotFound       = errors.New("source not found")
	ErrUnsupportedExtension = errors.New("unsupported extension")
	ErrTooManyConflicts     = errors.New("too many destination conflicts")
	ErrInvalidStateForRetry = errors.New("invalid state for retry")
	ErrFileNotFound         = errors.New("queued file not found")
	ErrWatcher              = errors.New("watcher error")
	ErrUnknownProcessing    = errors.New("processing error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnknownProcessing
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
