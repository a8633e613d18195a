package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateCredentials ensures the selected provider has an API key. It is
// separate from Validate so commands that never contact a provider can run
// without one.
func (c *Config) ValidateCredentials() error {
	if c.APIKey() != "" {
		return nil
	}
	switch c.Analysis.Provider {
	case ProviderOpenAI:
		return errors.New("openai.api_key is required. Set OPENAI_API_KEY env var or edit the config file (create with 'vidinsight config init')")
	default:
		return errors.New("gemini.api_key is required. Set GEMINI_API_KEY env var or edit the config file (create with 'vidinsight config init')")
	}
}

func (c *Config) validateDownload() error {
	if c.Download.AudioFormat != "mp3" {
		return fmt.Errorf("download.audio_format: unsupported format %q (only mp3)", c.Download.AudioFormat)
	}
	if c.Download.TimeoutSeconds < 0 {
		return errors.New("download.timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	switch c.Analysis.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("analysis.provider: unsupported provider %q (use %s or %s)", c.Analysis.Provider, ProviderGemini, ProviderOpenAI)
	}
	if c.Analysis.MaxAttempts <= 0 {
		return errors.New("analysis.max_attempts must be positive")
	}
	if c.Analysis.RetryBaseDelaySeconds < 0 {
		return errors.New("analysis.retry_base_delay_seconds must be zero or positive")
	}
	if c.Analysis.RetryMaxDelaySeconds < 0 {
		return errors.New("analysis.retry_max_delay_seconds must be zero or positive")
	}
	for _, code := range c.Analysis.TransientStatusCodes {
		if code < 100 || code > 599 {
			return fmt.Errorf("analysis.transient_status_codes: invalid HTTP status %d", code)
		}
	}
	if c.Analysis.LanguageHint != "" {
		if _, err := language.Parse(c.Analysis.LanguageHint); err != nil {
			return fmt.Errorf("analysis.language_hint: %q is not a BCP 47 tag: %w", c.Analysis.LanguageHint, err)
		}
	}
	return nil
}

func (c *Config) validateProviders() error {
	if !strings.HasPrefix(c.Gemini.BaseURL, "http://") && !strings.HasPrefix(c.Gemini.BaseURL, "https://") {
		return fmt.Errorf("gemini.base_url must be an http(s) URL, got %q", c.Gemini.BaseURL)
	}
	if c.Gemini.TimeoutSeconds < 0 {
		return errors.New("gemini.timeout_seconds must be zero or positive")
	}
	if !strings.HasPrefix(c.OpenAI.BaseURL, "http://") && !strings.HasPrefix(c.OpenAI.BaseURL, "https://") {
		return fmt.Errorf("openai.base_url must be an http(s) URL, got %q", c.OpenAI.BaseURL)
	}
	if c.OpenAI.TimeoutSeconds < 0 {
		return errors.New("openai.timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.TimeoutSeconds <= 0 {
		return errors.New("pipeline.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
