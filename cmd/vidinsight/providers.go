package main

import (
	"fmt"
	"log/slog"

	"vidinsight/internal/analysis"
	"vidinsight/internal/config"
	"vidinsight/internal/extract"
	"vidinsight/internal/language"
	"vidinsight/internal/pipeline"
	"vidinsight/internal/services/gemini"
	"vidinsight/internal/services/openaicompat"
)

func newAnalysisService(cfg *config.Config) (analysis.Service, error) {
	switch cfg.Analysis.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:         cfg.Gemini.APIKey,
			BaseURL:        cfg.Gemini.BaseURL,
			Model:          cfg.Gemini.Model,
			TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
		}), nil
	case config.ProviderOpenAI:
		return openaicompat.NewClient(openaicompat.Config{
			APIKey:             cfg.OpenAI.APIKey,
			BaseURL:            cfg.OpenAI.BaseURL,
			TranscriptionModel: cfg.OpenAI.TranscriptionModel,
			Model:              cfg.OpenAI.Model,
			Language:           language.ToISO2(cfg.Analysis.LanguageHint),
			TimeoutSeconds:     cfg.OpenAI.TimeoutSeconds,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported analysis provider %q", cfg.Analysis.Provider)
	}
}

func newPipeline(cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	source := extract.New(extract.Config{
		YtDlpBinary:          cfg.Download.YtDlpBinary,
		FFmpegBinary:         cfg.Download.FFmpegBinary,
		FFprobeBinary:        cfg.Download.FFprobeBinary,
		ScratchDir:           cfg.ScratchDir(),
		AudioFormat:          cfg.Download.AudioFormat,
		AudioQuality:         cfg.Download.AudioQuality,
		SkipCertificateCheck: cfg.Download.SkipCertificateCheck,
		Timeout:              cfg.DownloadTimeout(),
	}, logger)
	analyzer := analysis.New(analysis.Config{
		MaxAttempts:          cfg.Analysis.MaxAttempts,
		RetryBaseDelay:       cfg.RetryBaseDelay(),
		RetryMaxDelay:        cfg.RetryMaxDelay(),
		TransientStatusCodes: cfg.Analysis.TransientStatusCodes,
		TransientStatuses:    cfg.Analysis.TransientStatuses,
		LanguageHint:         cfg.Analysis.LanguageHint,
	}, logger)
	return pipeline.New(source, analyzer, cfg.PipelineTimeout(), logger)
}
