package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vidinsight/internal/analysis"
	"vidinsight/internal/logging"
	"vidinsight/internal/services"
)

// DefaultTimeout bounds one run when no timeout is configured.
const DefaultTimeout = 900 * time.Second

// AudioSource scopes a local audio file for a video URL.
type AudioSource interface {
	WithAudio(ctx context.Context, videoURL string, fn func(audioPath string) error) error
}

// AudioAnalyzer turns a local audio file into a Result.
type AudioAnalyzer interface {
	Analyze(ctx context.Context, audioPath string, svc analysis.Service) (analysis.Result, error)
}

// Pipeline wires extraction to analysis.
type Pipeline struct {
	source   AudioSource
	analyzer AudioAnalyzer
	timeout  time.Duration
	logger   *slog.Logger
}

// New constructs a Pipeline. A non-positive timeout selects DefaultTimeout.
func New(source AudioSource, analyzer AudioAnalyzer, timeout time.Duration, logger *slog.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pipeline{
		source:   source,
		analyzer: analyzer,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Process extracts audio from videoURL, analyzes it with svc, and returns the
// validated result. Errors match exactly one of ErrVideoProcessing,
// ErrConnection, or ErrUnexpected. No partial result is returned on failure.
func (p *Pipeline) Process(ctx context.Context, videoURL string, svc analysis.Service) (analysis.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	videoURL = strings.TrimSpace(videoURL)
	ctx = services.WithVideoURL(ctx, videoURL)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	logger := logging.WithContext(ctx, p.logger)

	if p.source == nil || p.analyzer == nil {
		return analysis.Result{}, classify(services.Wrap(services.ErrConfiguration, "pipeline", "process", "pipeline is not fully configured", nil))
	}

	started := time.Now()
	logger.Info("processing video")

	var result analysis.Result
	err := p.source.WithAudio(ctx, videoURL, func(audioPath string) error {
		logger.Info("audio extracted", logging.String("path", audioPath))
		var analyzeErr error
		result, analyzeErr = p.analyzer.Analyze(ctx, audioPath, svc)
		return analyzeErr
	})
	if err != nil {
		var classified error
		if ctx.Err() == context.DeadlineExceeded {
			// A timeout is always unexpected, whatever the interrupted stage reported.
			classified = fmt.Errorf("%w: timed out after %s: %v", ErrUnexpected, p.timeout, err)
		} else {
			classified = classify(err)
		}
		logging.ErrorWithContext(logger, "video processing failed", "pipeline_failed",
			logging.String("error_kind", KindOf(classified).String()),
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
		)
		return analysis.Result{}, classified
	}

	logger.Info("video processed",
		logging.Int("clarity_score", result.ClarityScore),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
