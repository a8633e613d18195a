package gemini

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vidinsight/internal/services"
)

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

func statusError(resp *http.Response, body []byte) *services.StatusError {
	statusErr := &services.StatusError{
		Provider:   providerName,
		StatusCode: resp.StatusCode,
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && (envelope.Error.Message != "" || envelope.Error.Status != "") {
		statusErr.Status = envelope.Error.Status
		statusErr.Message = envelope.Error.Message
		for _, detail := range envelope.Error.Details {
			if detail.Type != retryInfoType {
				continue
			}
			if delay, err := time.ParseDuration(detail.RetryDelay); err == nil && delay > 0 {
				statusErr.RetryAfter = delay
			}
		}
	} else {
		statusErr.Message = snippet(string(body))
	}
	if delay, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok && delay > statusErr.RetryAfter {
		statusErr.RetryAfter = delay
	}
	return statusErr
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func snippet(body string) string {
	clean := strings.Join(strings.Fields(body), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
