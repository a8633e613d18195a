package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vidinsight/internal/deps"
	"vidinsight/internal/logging"
	"vidinsight/internal/media/ffprobe"
	"vidinsight/internal/services"
)

const (
	stageName    = "extract"
	tempPattern  = "vidinsight-*"
	outputPrefix = "audio"
)

// CommandRunner executes an external program and returns its stdout. A
// failing command returns an error whose text includes the program's stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober reports whether each named binary is usable.
type Prober func(ctx context.Context, names ...string) map[string]bool

// Config describes the extraction tools and options.
type Config struct {
	YtDlpBinary          string
	FFmpegBinary         string
	FFprobeBinary        string
	ScratchDir           string
	AudioFormat          string
	AudioQuality         string
	SkipCertificateCheck bool
	// Timeout bounds the yt-dlp run. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner CommandRunner) Option {
	return func(e *Extractor) {
		if runner != nil {
			e.run = runner
		}
	}
}

// WithProber overrides binary pre-flight checks (for testing).
func WithProber(prober Prober) Option {
	return func(e *Extractor) {
		if prober != nil {
			e.probe = prober
		}
	}
}

// Extractor downloads audio for a single video into a scoped temporary directory.
type Extractor struct {
	cfg       Config
	logger    *slog.Logger
	run       CommandRunner
	probe     Prober
	removeAll func(string) error
}

// New constructs an Extractor. Empty binary names fall back to PATH lookups of
// the conventional names.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	cfg.YtDlpBinary = fallback(cfg.YtDlpBinary, "yt-dlp")
	cfg.FFmpegBinary = fallback(cfg.FFmpegBinary, "ffmpeg")
	cfg.FFprobeBinary = fallback(cfg.FFprobeBinary, "ffprobe")
	cfg.AudioFormat = fallback(cfg.AudioFormat, "mp3")
	cfg.AudioQuality = fallback(cfg.AudioQuality, "192K")
	e := &Extractor{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, stageName),
		run:       runCommand,
		probe:     deps.ProbeBinaries,
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithAudio downloads the audio track of videoURL and calls fn with the path
// of the extracted file. The file and its directory are deleted after fn
// returns, whatever the outcome. The error returned by fn is passed through
// unchanged.
func (e *Extractor) WithAudio(ctx context.Context, videoURL string, fn func(audioPath string) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, e.logger)

	if err := e.preflight(ctx); err != nil {
		return err
	}

	dir, err := os.MkdirTemp(e.cfg.ScratchDir, tempPattern)
	if err != nil {
		return fmt.Errorf("extract: create temp dir: %w", err)
	}
	defer func() {
		if rmErr := e.removeAll(dir); rmErr != nil {
			logging.WarnWithContext(logger, "temporary directory cleanup failed", "cleanup_failed",
				logging.String("dir", dir),
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "extracted audio left on disk"),
			)
		}
	}()

	logger.Info("downloading audio", logging.String("dir", dir))
	audioPath, err := e.download(ctx, dir, videoURL)
	if err != nil {
		return err
	}
	if err := e.verify(ctx, logger, audioPath); err != nil {
		return err
	}

	return fn(audioPath)
}

func (e *Extractor) preflight(ctx context.Context) error {
	results := e.probe(ctx, e.cfg.FFmpegBinary, e.cfg.FFprobeBinary)
	missing := deps.Missing(results)
	for _, status := range deps.CheckBinaries([]deps.Requirement{{Name: "yt-dlp", Command: e.cfg.YtDlpBinary}}) {
		if !status.Available {
			missing = append(missing, status.Command)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	message := fmt.Sprintf("required programs unavailable: %s (install ffmpeg and yt-dlp and make sure they are on PATH)", strings.Join(missing, ", "))
	return services.Wrap(services.ErrMissingDependency, stageName, "preflight", message, nil)
}

func (e *Extractor) download(ctx context.Context, dir, videoURL string) (string, error) {
	downloadCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		downloadCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	args := e.downloadArgs(dir, videoURL)
	if _, err := e.run(downloadCtx, e.cfg.YtDlpBinary, args...); err != nil {
		if ctxErr := downloadCtx.Err(); ctxErr != nil {
			return "", fmt.Errorf("extract: download interrupted: %w", ctxErr)
		}
		return "", classifyDownloadFailure(err)
	}

	audioPath := filepath.Join(dir, outputPrefix+"."+e.cfg.AudioFormat)
	info, err := os.Stat(audioPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNoOutput, stageName, "download", "yt-dlp finished but no audio file was produced", nil)
		}
		return "", fmt.Errorf("extract: stat audio: %w", err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrNoOutput, stageName, "download", "yt-dlp produced an empty audio file", nil)
	}
	return audioPath, nil
}

func (e *Extractor) downloadArgs(dir, videoURL string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
	}
	if e.cfg.SkipCertificateCheck {
		args = append(args, "--no-check-certificates")
	}
	args = append(args,
		"-x",
		"--audio-format", e.cfg.AudioFormat,
		"--audio-quality", e.cfg.AudioQuality,
	)
	if location := resolveBinary(e.cfg.FFmpegBinary); location != "" {
		args = append(args, "--ffmpeg-location", location)
	}
	args = append(args,
		"-o", filepath.Join(dir, outputPrefix+".%(ext)s"),
		"--", videoURL,
	)
	return args
}

// verify confirms the file carries an audio stream. A failing probe only
// warns; an explicit report of zero audio streams is fatal.
func (e *Extractor) verify(ctx context.Context, logger *slog.Logger, audioPath string) error {
	probe, err := ffprobe.Inspect(ctx, ffprobe.Runner(e.run), e.cfg.FFprobeBinary, audioPath)
	if err == nil {
		if probe.AudioStreamCount() == 0 {
			return services.Wrap(services.ErrNoOutput, stageName, "verify", "downloaded file has no audio stream", nil)
		}
		logger.Info("audio ready",
			logging.String("path", audioPath),
			logging.String("codec", probe.AudioCodec()),
			logging.Duration("duration", probe.Duration()),
		)
		return nil
	}
	logging.WarnWithContext(logger, "audio verification skipped", "ffprobe_failed",
		logging.String("path", audioPath),
		logging.Error(err),
		logging.String(logging.FieldImpact, "audio stream not verified before upload"),
	)
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

func resolveBinary(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

func fallback(value, def string) string {
	if value = strings.TrimSpace(value); value == "" {
		return def
	}
	return value
}
