package main

import (
	"errors"
	"fmt"

	"vidinsight/internal/pipeline"
)

// Process exit codes. Usage and configuration errors exit 1.
const (
	exitFailure         = 1
	exitVideoProcessing = 2
	exitConnection      = 3
	exitUnexpected      = 4
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pipeline.ErrVideoProcessing):
		return exitVideoProcessing
	case errors.Is(err, pipeline.ErrConnection):
		return exitConnection
	case errors.Is(err, pipeline.ErrUnexpected):
		return exitUnexpected
	default:
		return exitFailure
	}
}

// describeError renders err with a hint for the pipeline error kinds.
func describeError(err error) string {
	var label, hint string
	switch exitCode(err) {
	case exitVideoProcessing:
		label = "Video processing error"
		hint = "The video URL may be invalid, private, or restricted, or ffmpeg/yt-dlp may not be installed and on PATH."
	case exitConnection:
		label = "API error"
		hint = "The analysis service is unavailable, rejected the request, or kept failing. Wait a moment and try again."
	case exitUnexpected:
		label = "Unexpected error"
		hint = "Re-run with --log-level debug for details."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("%s: %v\n%s", label, err, hint)
}
