package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vidinsight/internal/logging"
	"vidinsight/internal/services"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Transcribe a public video and score its communication clarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			videoURL, err := validateVideoURL(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}

			svc, err := newAnalysisService(cfg)
			if err != nil {
				return err
			}

			requestID := uuid.NewString()
			runCtx := services.WithRequestID(cmd.Context(), requestID)
			logging.WithContext(runCtx, logger).Info("analysis requested",
				logging.String("provider", cfg.Analysis.Provider),
				logging.String("config", ctx.configPath),
			)

			result, err := newPipeline(cfg, logger).Process(runCtx, videoURL, svc)
			if err != nil {
				return err
			}
			return writeReport(cmd, format, buildReport(videoURL, requestID, result))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(outputText), "Output format: text, json, or yaml")
	return cmd
}

func parseOutputFormat(value string) (outputFormat, error) {
	switch format := outputFormat(strings.ToLower(strings.TrimSpace(value))); format {
	case outputText, outputJSON, outputYAML:
		return format, nil
	case "":
		return outputText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text, json, or yaml)", value)
	}
}

// validateVideoURL accepts absolute http(s) URLs only.
func validateVideoURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "", errors.New("please enter a valid URL starting with http:// or https://")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid video URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("invalid video URL %q: missing host", raw)
	}
	return raw, nil
}
