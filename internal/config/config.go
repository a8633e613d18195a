package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Provider names accepted by analysis.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Paths contains directory configuration.
type Paths struct {
	// ScratchDir is the parent of the per-invocation temporary directories.
	// Empty means the system temporary directory.
	ScratchDir string `toml:"scratch_dir"`
}

// Download contains configuration for the audio extraction stage.
type Download struct {
	YtDlpBinary          string `toml:"ytdlp_binary"`
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	FFprobeBinary        string `toml:"ffprobe_binary"`
	AudioFormat          string `toml:"audio_format"`
	AudioQuality         string `toml:"audio_quality"`
	SkipCertificateCheck bool   `toml:"skip_certificate_check"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
}

// Analysis contains the remote analysis policy shared by every provider.
type Analysis struct {
	Provider              string   `toml:"provider"`
	MaxAttempts           int      `toml:"max_attempts"`
	RetryBaseDelaySeconds int      `toml:"retry_base_delay_seconds"`
	RetryMaxDelaySeconds  int      `toml:"retry_max_delay_seconds"`
	TransientStatusCodes  []int    `toml:"transient_status_codes"`
	TransientStatuses     []string `toml:"transient_statuses"`
	// LanguageHint is an optional BCP 47 tag describing the spoken language.
	LanguageHint string `toml:"language_hint"`
}

// Gemini contains connection settings for the Gemini API.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OpenAI contains connection settings for an OpenAI-compatible API.
type OpenAI struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	TranscriptionModel string `toml:"transcription_model"`
	Model              string `toml:"model"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Pipeline contains settings for the orchestrator.
type Pipeline struct {
	// TimeoutSeconds bounds one whole URL-to-result run.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// File, when set, receives a JSON copy of every record.
	File string `toml:"file"`
}

// Config encapsulates all configuration values for vidinsight.
//
// Configuration sections by subsystem:
//   - Paths: scratch directory for temporary audio
//   - Download: yt-dlp/ffmpeg/ffprobe binaries and extraction options
//   - Analysis: provider selection and retry policy
//   - Gemini: Gemini API connection
//   - OpenAI: OpenAI-compatible API connection
//   - Pipeline: end-to-end time budget
//   - Logging: log format, level, and optional log file
type Config struct {
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
	Analysis Analysis `toml:"analysis"`
	Gemini   Gemini   `toml:"gemini"`
	OpenAI   OpenAI   `toml:"openai"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidinsight/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// applied to the environment first without overriding variables that are already set.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidinsight.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ScratchDir returns the directory that receives per-invocation temporary
// directories.
func (c *Config) ScratchDir() string {
	if dir := strings.TrimSpace(c.Paths.ScratchDir); dir != "" {
		return dir
	}
	return os.TempDir()
}

// EnsureDirectories creates the scratch directory when one is configured.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.ScratchDir, err)
	}
	return nil
}

// DownloadTimeout returns the per-download time limit, or zero when unbounded.
func (c *Config) DownloadTimeout() time.Duration {
	return seconds(c.Download.TimeoutSeconds)
}

// PipelineTimeout returns the end-to-end time budget for one run.
func (c *Config) PipelineTimeout() time.Duration {
	return seconds(c.Pipeline.TimeoutSeconds)
}

// RetryBaseDelay returns the first backoff delay of the analysis retry loop.
func (c *Config) RetryBaseDelay() time.Duration {
	return seconds(c.Analysis.RetryBaseDelaySeconds)
}

// RetryMaxDelay returns the backoff cap, or zero when uncapped.
func (c *Config) RetryMaxDelay() time.Duration {
	return seconds(c.Analysis.RetryMaxDelaySeconds)
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	switch c.Analysis.Provider {
	case ProviderOpenAI:
		return strings.TrimSpace(c.OpenAI.APIKey)
	default:
		return strings.TrimSpace(c.Gemini.APIKey)
	}
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
