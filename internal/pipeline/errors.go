package pipeline

import (
	"errors"
	"fmt"

	"vidinsight/internal/services"
)

var (
	// ErrVideoProcessing marks failures to turn the URL into local audio.
	ErrVideoProcessing = errors.New("video processing error")
	// ErrConnection marks failures to obtain an answer from the inference service.
	ErrConnection = services.ErrConnection
	// ErrUnexpected marks every other failure, including timeouts.
	ErrUnexpected = errors.New("unexpected error")
)

// Kind is the outward classification of a pipeline failure.
type Kind int

const (
	KindNone Kind = iota
	KindVideoProcessing
	KindConnection
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindVideoProcessing:
		return "video_processing"
	case KindConnection:
		return "connection"
	default:
		return "unexpected"
	}
}

// KindOf classifies err. Errors that were not produced by Process are
// reported as KindUnexpected.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrVideoProcessing):
		return KindVideoProcessing
	case errors.Is(err, ErrConnection):
		return KindConnection
	default:
		return KindUnexpected
	}
}

// classify performs the single translation from stage markers to the three
// outward kinds. The original error stays in the chain.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case services.IsMediaFailure(err):
		return fmt.Errorf("%w: %w", ErrVideoProcessing, err)
	case errors.Is(err, services.ErrConnection):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
}
