package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"vidinsight/internal/analysis"
	"vidinsight/internal/language"
)

// analysisReport is the rendered view of one successful run.
type analysisReport struct {
	VideoURL           string  `json:"video_url" yaml:"video_url"`
	RequestID          string  `json:"request_id" yaml:"request_id"`
	ClarityScore       int     `json:"clarity_score" yaml:"clarity_score"`
	CommunicationFocus string  `json:"communication_focus" yaml:"communication_focus"`
	Transcript         string  `json:"transcript" yaml:"transcript"`
	Language           string  `json:"language,omitempty" yaml:"language,omitempty"`
	LanguageCode       string  `json:"language_code,omitempty" yaml:"language_code,omitempty"`
	LanguageConfidence float64 `json:"language_confidence,omitempty" yaml:"language_confidence,omitempty"`
	WordCount          int     `json:"word_count" yaml:"word_count"`
}

func buildReport(videoURL, requestID string, result analysis.Result) analysisReport {
	report := analysisReport{
		VideoURL:           videoURL,
		RequestID:          requestID,
		ClarityScore:       result.ClarityScore,
		CommunicationFocus: result.CommunicationFocus,
		Transcript:         result.Transcript,
		WordCount:          language.WordCount(result.Transcript),
	}
	if detected, ok := language.Detect(result.Transcript); ok {
		report.Language = detected.Name
		report.LanguageCode = detected.Code
		report.LanguageConfidence = detected.Confidence
	}
	return report
}

func writeReport(cmd *cobra.Command, format outputFormat, report analysisReport) error {
	switch format {
	case outputJSON:
		return writeJSON(cmd, report)
	case outputYAML:
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderReportText(report, shouldColorize(out)))
		return nil
	}
}

func renderReportText(report analysisReport, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Communication Insights", colorize) {
		b.WriteString(line + "\n")
	}
	b.WriteString(renderStatusLine("Clarity score", scoreKind(report.ClarityScore),
		fmt.Sprintf("%d/100", report.ClarityScore), colorize) + "\n")
	b.WriteString(renderFieldLine("Main focus", report.CommunicationFocus) + "\n")
	languageText := "undetermined"
	if report.Language != "" {
		languageText = fmt.Sprintf("%s (%s)", report.Language, report.LanguageCode)
	}
	b.WriteString(renderFieldLine("Language", languageText) + "\n")
	b.WriteString(renderFieldLine("Words", fmt.Sprintf("%d", report.WordCount)) + "\n")
	b.WriteString(renderFieldLine("Video", report.VideoURL) + "\n")
	b.WriteString(renderFieldLine("Request", report.RequestID) + "\n")
	b.WriteString("\n")
	for _, line := range renderSectionHeader("Transcript", colorize) {
		b.WriteString(line + "\n")
	}
	transcript := report.Transcript
	if strings.TrimSpace(transcript) == "" {
		transcript = "(no speech detected)"
	}
	b.WriteString(transcript + "\n")
	return b.String()
}

func scoreKind(score int) statusKind {
	switch {
	case score >= 75:
		return statusOK
	case score >= 50:
		return statusWarn
	default:
		return statusError
	}
}
