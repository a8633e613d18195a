package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"vidinsight/internal/analysis"
	"vidinsight/internal/services"
	"vidinsight/internal/testsupport"
)

type fakeAPI struct {
	transcriptions atomic.Int32
	chats          atomic.Int32
	lastChat       map[string]any
	chatStatus     int
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		f.transcriptions.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("unexpected transcription model %q", r.FormValue("model"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"text": " Hello and welcome. "})
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.chats.Add(1)
		if err := json.NewDecoder(r.Body).Decode(&f.lastChat); err != nil {
			t.Errorf("decode chat body: %v", err)
		}
		if f.chatStatus != 0 {
			writeJSON(w, f.chatStatus, map[string]any{"error": map[string]any{
				"message": "Rate limit reached",
				"type":    "requests",
				"code":    "rate_limit_exceeded",
			}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": `{"clarity_score": 77, "communication_focus": "A welcome message.", "transcript": "Hello and welcome."}`},
				"finish_reason": "stop",
			}},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T, fake *fakeAPI) *Client {
	server := fake.server(t)
	return NewClient(Config{
		APIKey:             "sk-test",
		BaseURL:            server.URL + "/v1",
		TranscriptionModel: "whisper-1",
		Model:              "gpt-test",
	}, WithHTTPClient(server.Client()))
}

func writeAudio(t *testing.T) string {
	t.Helper()
	return testsupport.WriteAudio(t, t.TempDir(), 2048)
}

func TestAnalyzeThroughTranscriptionAndChat(t *testing.T) {
	fake := &fakeAPI{}
	client := newTestClient(t, fake)
	analyzer := analysis.New(analysis.DefaultConfig(), nil)

	result, err := analyzer.Analyze(context.Background(), writeAudio(t), client)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.ClarityScore != 77 || result.Transcript != "Hello and welcome." {
		t.Fatalf("unexpected result: %+v", result)
	}
	if fake.transcriptions.Load() != 1 || fake.chats.Load() != 1 {
		t.Fatalf("expected one call each, got %d transcriptions and %d chats", fake.transcriptions.Load(), fake.chats.Load())
	}

	format, _ := fake.lastChat["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", format)
	}
	schema, _ := format["json_schema"].(map[string]any)
	if schema["strict"] != true || schema["name"] != schemaName {
		t.Fatalf("unexpected json_schema block: %v", schema)
	}
	if _, ok := fake.lastChat["temperature"]; !ok {
		t.Fatal("expected temperature to be sent")
	}
	if len(client.transcripts) != 0 {
		t.Fatalf("expected transcript cache cleared by Delete, got %v", client.transcripts)
	}
}

func TestGenerateCachesTranscriptAcrossAttempts(t *testing.T) {
	fake := &fakeAPI{}
	client := newTestClient(t, fake)
	file, err := client.Upload(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	for range 3 {
		if _, err := client.Generate(context.Background(), analysis.GenerateRequest{Prompt: "analyze", File: file, ResponseSchema: analysis.ResultSchema()}); err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
	}
	if fake.transcriptions.Load() != 1 || fake.chats.Load() != 3 {
		t.Fatalf("expected 1 transcription and 3 chats, got %d and %d", fake.transcriptions.Load(), fake.chats.Load())
	}
}

func TestGenerateMapsAPIErrors(t *testing.T) {
	fake := &fakeAPI{chatStatus: http.StatusTooManyRequests}
	client := newTestClient(t, fake)
	file, err := client.Upload(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	_, err = client.Generate(context.Background(), analysis.GenerateRequest{Prompt: "analyze", File: file})
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *services.StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Provider != "openai" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestUploadValidatesInput(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-test"})
	if _, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatal("expected missing file error")
	}
	if _, err := client.Upload(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected directory error")
	}
	if _, err := NewClient(Config{}).Upload(context.Background(), writeAudio(t)); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestTemperatureNeverZero(t *testing.T) {
	if temperature(0) <= 0 {
		t.Fatal("expected positive temperature for zero request")
	}
	if temperature(0.5) != 0.5 {
		t.Fatalf("unexpected temperature: %v", temperature(0.5))
	}
}
