package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeAnalysis()
	c.normalizeProviders()
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = ""
		return nil
	}
	expanded, err := expandPath(c.Paths.ScratchDir)
	if err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	c.Paths.ScratchDir = expanded
	return nil
}

func (c *Config) normalizeDownload() {
	defaults := Default().Download
	c.Download.YtDlpBinary = fallback(c.Download.YtDlpBinary, defaults.YtDlpBinary)
	c.Download.FFmpegBinary = fallback(c.Download.FFmpegBinary, defaults.FFmpegBinary)
	c.Download.FFprobeBinary = fallback(c.Download.FFprobeBinary, defaults.FFprobeBinary)
	c.Download.AudioFormat = strings.ToLower(fallback(c.Download.AudioFormat, defaults.AudioFormat))
	c.Download.AudioQuality = fallback(c.Download.AudioQuality, defaults.AudioQuality)
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.Provider = strings.ToLower(strings.TrimSpace(c.Analysis.Provider))
	if c.Analysis.Provider == "" {
		c.Analysis.Provider = ProviderGemini
	}
	statuses := make([]string, 0, len(c.Analysis.TransientStatuses))
	for _, status := range c.Analysis.TransientStatuses {
		status = strings.ToUpper(strings.TrimSpace(status))
		if status != "" {
			statuses = append(statuses, status)
		}
	}
	c.Analysis.TransientStatuses = statuses
	c.Analysis.LanguageHint = strings.TrimSpace(c.Analysis.LanguageHint)
}

func (c *Config) normalizeProviders() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	c.Gemini.BaseURL = strings.TrimRight(fallback(c.Gemini.BaseURL, Default().Gemini.BaseURL), "/")
	c.Gemini.Model = fallback(c.Gemini.Model, Default().Gemini.Model)

	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = firstEnv("OPENAI_API_KEY")
	}
	c.OpenAI.BaseURL = strings.TrimRight(fallback(c.OpenAI.BaseURL, Default().OpenAI.BaseURL), "/")
	c.OpenAI.TranscriptionModel = fallback(c.OpenAI.TranscriptionModel, Default().OpenAI.TranscriptionModel)
	c.OpenAI.Model = fallback(c.OpenAI.Model, Default().OpenAI.Model)
}

func (c *Config) normalizeLogging() error {
	if value, ok := os.LookupEnv("VIDINSIGHT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(fallback(c.Logging.Format, "console"))
	c.Logging.Level = strings.ToLower(fallback(c.Logging.Level, "info"))
	if strings.TrimSpace(c.Logging.File) == "" {
		c.Logging.File = ""
		return nil
	}
	expanded, err := expandPath(c.Logging.File)
	if err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	c.Logging.File = expanded
	return nil
}

func fallback(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
