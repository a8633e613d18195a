package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrDownload          = errors.New("download failed")
	ErrAuthRequired      = errors.New("authentication required")
	ErrNoOutput          = errors.New("post-processing produced no output")
	ErrUpload            = errors.New("upload failed")
	ErrInvalidResponse   = errors.New("invalid service response")
	ErrConnection        = errors.New("service connection error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsMediaFailure reports whether err carries one of the markers raised while
// turning a video URL into a local audio file.
func IsMediaFailure(err error) bool {
	switch {
	case errors.Is(err, ErrMissingDependency),
		errors.Is(err, ErrDownload),
		errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrNoOutput):
		return true
	default:
		return false
	}
}

// StatusError is a non-2xx answer from a remote inference service. Provider
// clients return it so retry policy can be decided without knowing the
// provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(" request: ")
	}
	fmt.Fprintf(&b, "http %d", e.StatusCode)
	if e.Status != "" {
		b.WriteString(" ")
		b.WriteString(e.Status)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
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
