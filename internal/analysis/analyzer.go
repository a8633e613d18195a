package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vidinsight/internal/logging"
	"vidinsight/internal/services"
)

const (
	stageName = "analysis"

	defaultMaxAttempts    = 8
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 64 * time.Second
	cleanupTimeout        = 30 * time.Second

	jsonMIMEType = "application/json"
)

// Config captures the retry policy and prompt options of an Analyzer.
type Config struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps a single backoff delay. Zero disables the cap.
	RetryMaxDelay        time.Duration
	TransientStatusCodes []int
	TransientStatuses    []string
	LanguageHint         string
}

// DefaultConfig returns the standard retry policy: eight attempts, 1s base
// delay doubling up to 64s, with HTTP 429/503 and the RESOURCE_EXHAUSTED and
// UNAVAILABLE statuses treated as transient.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:          defaultMaxAttempts,
		RetryBaseDelay:       defaultRetryBaseDelay,
		RetryMaxDelay:        defaultRetryMaxDelay,
		TransientStatusCodes: []int{429, 503},
		TransientStatuses:    []string{"RESOURCE_EXHAUSTED", "UNAVAILABLE"},
	}
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(a *Analyzer) {
		a.sleeper = sleeper
	}
}

// Analyzer runs the upload, generate, validate, delete sequence.
type Analyzer struct {
	cfg       Config
	logger    *slog.Logger
	sleeper   func(time.Duration)
	codes     map[int]struct{}
	statuses  map[string]struct{}
	schema    []byte
	userInput string
}

// New constructs an Analyzer.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, stageName),
		codes:     make(map[int]struct{}, len(cfg.TransientStatusCodes)),
		statuses:  make(map[string]struct{}, len(cfg.TransientStatuses)),
		schema:    ResultSchema(),
		userInput: buildPrompt(cfg.LanguageHint),
	}
	for _, code := range cfg.TransientStatusCodes {
		a.codes[code] = struct{}{}
	}
	for _, status := range cfg.TransientStatuses {
		if status = strings.ToUpper(strings.TrimSpace(status)); status != "" {
			a.statuses[status] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze uploads audioPath through svc, requests a structured analysis, and
// returns the validated Result. The uploaded file is deleted exactly once on
// every path once the provider has created it, including a failed wait for
// processing; deletion failures are only logged.
func (a *Analyzer) Analyze(ctx context.Context, audioPath string, svc Service) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if svc == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "analyze", "no analysis service configured", nil)
	}
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, a.logger)

	logger.Info("uploading audio", logging.String("path", audioPath))
	file, err := svc.Upload(ctx, audioPath)
	if file.Name != "" {
		// Upload may report a created file alongside an error.
		defer a.deleteRemote(ctx, logger, svc, file)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("analysis: upload interrupted: %w", ctxErr)
		}
		return Result{}, services.Wrap(services.ErrUpload, stageName, "upload", "", err)
	}
	logger.Info("audio uploaded",
		logging.String("remote_name", file.Name),
		logging.String("mime_type", file.MIMEType),
	)

	req := GenerateRequest{
		SystemInstruction: SystemInstruction,
		Prompt:            a.userInput,
		File:              file,
		ResponseMIMEType:  jsonMIMEType,
		ResponseSchema:    append([]byte(nil), a.schema...),
		Temperature:       0,
	}
	text, err := a.generateWithRetry(ctx, logger, svc, req)
	if err != nil {
		return Result{}, err
	}

	result, err := ParseResult(text)
	if err != nil {
		logging.ErrorWithContext(logger, "model answer rejected", "invalid_response",
			logging.Error(err),
			logging.String("response_snippet", summarizePayloadSnippet(text)),
		)
		return Result{}, err
	}
	logger.Info("analysis complete",
		logging.Int("clarity_score", result.ClarityScore),
		logging.Int("transcript_chars", len(result.Transcript)),
	)
	return result, nil
}

func (a *Analyzer) deleteRemote(ctx context.Context, logger *slog.Logger, svc Service, file RemoteFile) {
	if strings.TrimSpace(file.Name) == "" {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	logger.Info("deleting uploaded file", logging.String("remote_name", file.Name))
	if err := svc.Delete(cleanupCtx, file.Name); err != nil {
		logging.WarnWithContext(logger, "remote file cleanup failed", "cleanup_failed",
			logging.String("remote_name", file.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the provider expires uploads automatically; delete it manually to free quota sooner"),
			logging.String(logging.FieldImpact, "uploaded audio remains on the provider"),
		)
	}
}

// IsInvalidResponse reports whether err came from result parsing or validation.
func IsInvalidResponse(err error) bool {
	return errors.Is(err, services.ErrInvalidResponse)
}
