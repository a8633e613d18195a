package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidinsight/internal/services"
)

// Score bounds for Result.ClarityScore.
const (
	MinClarityScore = 0
	MaxClarityScore = 100
)

// Result is the validated output of one analysis run.
type Result struct {
	ClarityScore       int    `json:"clarity_score" yaml:"clarity_score"`
	CommunicationFocus string `json:"communication_focus" yaml:"communication_focus"`
	Transcript         string `json:"transcript" yaml:"transcript"`
}

// Validate checks the field constraints of a Result.
func (r Result) Validate() error {
	if r.ClarityScore < MinClarityScore || r.ClarityScore > MaxClarityScore {
		return fmt.Errorf("clarity_score %d outside [%d, %d]", r.ClarityScore, MinClarityScore, MaxClarityScore)
	}
	if strings.TrimSpace(r.CommunicationFocus) == "" {
		return fmt.Errorf("communication_focus is empty")
	}
	return nil
}

type rawResult struct {
	ClarityScore       json.RawMessage `json:"clarity_score"`
	CommunicationFocus *string         `json:"communication_focus"`
	Transcript         *string         `json:"transcript"`
}

// ParseResult decodes a model answer and validates it. Failures are marked
// with services.ErrInvalidResponse.
func ParseResult(text string) (Result, error) {
	var raw rawResult
	if err := decodeJSON(text, &raw); err != nil {
		return Result{}, invalid("decode", err)
	}

	var missing []string
	if len(raw.ClarityScore) == 0 || string(raw.ClarityScore) == "null" {
		missing = append(missing, "clarity_score")
	}
	if raw.CommunicationFocus == nil {
		missing = append(missing, "communication_focus")
	}
	if raw.Transcript == nil {
		missing = append(missing, "transcript")
	}
	if len(missing) > 0 {
		return Result{}, invalid("validate", fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}

	score, err := parseScore(raw.ClarityScore)
	if err != nil {
		return Result{}, invalid("validate", err)
	}
	result := Result{
		ClarityScore:       score,
		CommunicationFocus: *raw.CommunicationFocus,
		Transcript:         *raw.Transcript,
	}
	if err := result.Validate(); err != nil {
		return Result{}, invalid("validate", err)
	}
	return result, nil
}

// parseScore accepts JSON integers and integral floats such as 85.0.
func parseScore(data json.RawMessage) (int, error) {
	text := strings.TrimSpace(string(data))
	if text == "" || text[0] == '"' {
		return 0, fmt.Errorf("clarity_score must be an integer, got %s", summarizePayloadSnippet(text))
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("clarity_score must be an integer, got %s", summarizePayloadSnippet(text))
	}
	if value != math.Trunc(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("clarity_score must be an integer, got %s", text)
	}
	if value < MinClarityScore || value > MaxClarityScore {
		return 0, fmt.Errorf("clarity_score %s outside [%d, %d]", text, MinClarityScore, MaxClarityScore)
	}
	return int(value), nil
}

func invalid(operation string, err error) error {
	return services.Wrap(services.ErrInvalidResponse, stageName, operation, "model answer does not match the result schema", err)
}
