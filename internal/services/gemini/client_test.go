package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vidinsight/internal/analysis"
	"vidinsight/internal/services"
)

type fakeGemini struct {
	t            *testing.T
	mu           sync.Mutex
	uploaded     []byte
	polls        int
	pollsUntil   int
	deleted      []string
	generateBody map[string]any
	generateFn   func(w http.ResponseWriter)
}

func (f *fakeGemini) handler(serverURL *string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			f.t.Errorf("missing api key header")
		}
		if r.Header.Get("X-Goog-Upload-Protocol") != "resumable" || r.Header.Get("X-Goog-Upload-Command") != "start" {
			f.t.Errorf("unexpected start headers: %v", r.Header)
		}
		if r.Header.Get("X-Goog-Upload-Header-Content-Type") != "audio/mpeg" {
			f.t.Errorf("unexpected content type header: %q", r.Header.Get("X-Goog-Upload-Header-Content-Type"))
		}
		var payload map[string]map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload["file"]["display_name"] != "audio.mp3" {
			f.t.Errorf("unexpected start payload: %v (%v)", payload, err)
		}
		w.Header().Set("X-Goog-Upload-URL", *serverURL+"/resumable/session-1")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /resumable/session-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Upload-Command") != "upload, finalize" || r.Header.Get("X-Goog-Upload-Offset") != "0" {
			f.t.Errorf("unexpected upload headers: %v", r.Header)
		}
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploaded = data
		f.mu.Unlock()
		state := "ACTIVE"
		if f.pollsUntil > 0 {
			state = "PROCESSING"
		}
		writeJSON(w, map[string]any{"file": map[string]any{
			"name": "files/abc123", "mimeType": "audio/mpeg", "uri": *serverURL + "/v1beta/files/abc123", "state": state,
		}})
	})
	mux.HandleFunc("GET /v1beta/files/abc123", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.polls++
		state := "PROCESSING"
		if f.polls >= f.pollsUntil {
			state = "ACTIVE"
		}
		f.mu.Unlock()
		writeJSON(w, map[string]any{"name": "files/abc123", "mimeType": "audio/mpeg", "uri": *serverURL + "/v1beta/files/abc123", "state": state})
	})
	mux.HandleFunc("DELETE /v1beta/files/abc123", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, "files/abc123")
		f.mu.Unlock()
		writeJSON(w, map[string]any{})
	})
	mux.HandleFunc("POST /v1beta/models/gemini-test:generateContent", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&f.generateBody); err != nil {
			f.t.Errorf("decode generate body: %v", err)
		}
		if f.generateFn != nil {
			f.generateFn(w)
			return
		}
		writeJSON(w, map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": `{"clarity_score": 80,`}, {"text": ` "communication_focus": "x", "transcript": "y"}`}}},
				"finishReason": "STOP",
			}},
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T, fake *fakeGemini) *Client {
	t.Helper()
	fake.t = t
	var serverURL string
	server := httptest.NewServer(fake.handler(&serverURL))
	t.Cleanup(server.Close)
	serverURL = server.URL
	return NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gemini-test"},
		WithHTTPClient(server.Client()),
		WithPollInterval(time.Millisecond),
	)
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("ID3 fake audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestUploadResumableAndWaitActive(t *testing.T) {
	fake := &fakeGemini{pollsUntil: 2}
	client := newTestClient(t, fake)

	file, err := client.Upload(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if file.Name != "files/abc123" || file.MIMEType != "audio/mpeg" || !strings.HasSuffix(file.URI, "/v1beta/files/abc123") {
		t.Fatalf("unexpected remote file: %+v", file)
	}
	if string(fake.uploaded) != "ID3 fake audio" {
		t.Fatalf("unexpected uploaded bytes: %q", fake.uploaded)
	}
	if fake.polls != 2 {
		t.Fatalf("expected 2 polls, got %d", fake.polls)
	}
}

func TestGenerateSendsSchemaAndJoinsParts(t *testing.T) {
	fake := &fakeGemini{}
	client := newTestClient(t, fake)

	text, err := client.Generate(context.Background(), analysis.GenerateRequest{
		SystemInstruction: "persona",
		Prompt:            "analyze",
		File:              analysis.RemoteFile{Name: "files/abc123", URI: "https://example.test/files/abc123", MIMEType: "audio/mpeg"},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysis.ResultSchema(),
		Temperature:       0,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := analysis.ParseResult(text); err != nil {
		t.Fatalf("expected joined parts to parse, got %v (%q)", err, text)
	}

	body := fake.generateBody
	cfg, _ := body["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" {
		t.Fatalf("unexpected response mime: %v", cfg)
	}
	if temp, ok := cfg["temperature"]; !ok || temp != float64(0) {
		t.Fatalf("expected explicit zero temperature, got %v", cfg)
	}
	schema, _ := cfg["responseJsonSchema"].(map[string]any)
	props, _ := schema["properties"].(map[string]any)
	score, _ := props["clarity_score"].(map[string]any)
	if score["maximum"] != float64(100) {
		t.Fatalf("expected schema with range, got %v", schema)
	}
	sys, _ := body["systemInstruction"].(map[string]any)
	if sys == nil {
		t.Fatal("expected system instruction")
	}
	contents, _ := body["contents"].([]any)
	first, _ := contents[0].(map[string]any)
	parts, _ := first["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected prompt and file parts, got %v", parts)
	}
	filePart, _ := parts[1].(map[string]any)
	data, _ := filePart["fileData"].(map[string]any)
	if data["fileUri"] != "https://example.test/files/abc123" || data["mimeType"] != "audio/mpeg" {
		t.Fatalf("unexpected file part: %v", filePart)
	}
}

func TestGenerateMapsErrorEnvelope(t *testing.T) {
	fake := &fakeGemini{generateFn: func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
			"code":    429,
			"message": "Resource has been exhausted (e.g. check quota).",
			"status":  "RESOURCE_EXHAUSTED",
			"details": []map[string]any{{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "7s"}},
		}})
	}}
	client := newTestClient(t, fake)

	_, err := client.Generate(context.Background(), analysis.GenerateRequest{Prompt: "analyze"})
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *services.StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Status != "RESOURCE_EXHAUSTED" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if statusErr.RetryAfter != 7*time.Second {
		t.Fatalf("expected retry hint, got %s", statusErr.RetryAfter)
	}
	if statusErr.Provider != "gemini" {
		t.Fatalf("unexpected provider: %q", statusErr.Provider)
	}
}

func TestGenerateNonJSONErrorBody(t *testing.T) {
	fake := &fakeGemini{generateFn: func(w http.ResponseWriter) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream overloaded"))
	}}
	client := newTestClient(t, fake)

	_, err := client.Generate(context.Background(), analysis.GenerateRequest{Prompt: "analyze"})
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *services.StatusError, got %v", err)
	}
	if statusErr.Message != "upstream overloaded" || statusErr.RetryAfter != 3*time.Second {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestGenerateEmptyCandidate(t *testing.T) {
	fake := &fakeGemini{generateFn: func(w http.ResponseWriter) {
		writeJSON(w, map[string]any{
			"candidates":     []map[string]any{{"content": map[string]any{"parts": []any{}}, "finishReason": "SAFETY"}},
			"promptFeedback": map[string]any{"blockReason": "OTHER"},
		})
	}}
	client := newTestClient(t, fake)

	_, err := client.Generate(context.Background(), analysis.GenerateRequest{Prompt: "analyze"})
	if !errors.Is(err, services.ErrInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
	if !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected finish reason in error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	fake := &fakeGemini{}
	client := newTestClient(t, fake)

	if err := client.Delete(context.Background(), "files/abc123"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(fake.deleted) != 1 {
		t.Fatalf("expected one delete, got %v", fake.deleted)
	}
	if err := client.Delete(context.Background(), "files/missing"); err == nil {
		t.Fatal("expected 404 for unknown file")
	}
}

func TestRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Upload(context.Background(), "audio.mp3"); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := client.Generate(context.Background(), analysis.GenerateRequest{}); err == nil {
		t.Fatal("expected missing key error")
	}
	if client.cfg.BaseURL != defaultBaseURL || client.cfg.Model != defaultModel {
		t.Fatalf("expected defaults, got %+v", client.cfg)
	}
}

func TestAnalyzerEndToEndAgainstFakeGemini(t *testing.T) {
	fake := &fakeGemini{}
	client := newTestClient(t, fake)
	analyzer := analysis.New(analysis.DefaultConfig(), nil)

	result, err := analyzer.Analyze(context.Background(), writeAudio(t), client)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.ClarityScore != 80 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(fake.deleted) != 1 {
		t.Fatalf("expected remote file deleted once, got %v", fake.deleted)
	}
}

func TestAnalyzerDeletesFileStuckInProcessing(t *testing.T) {
	fake := &fakeGemini{pollsUntil: 1 << 30}
	client := newTestClient(t, fake)
	analyzer := analysis.New(analysis.DefaultConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := analyzer.Analyze(ctx, writeAudio(t), client)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.uploaded) == 0 {
		t.Fatal("expected the audio to reach the server")
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "files/abc123" {
		t.Fatalf("expected files/abc123 deleted once, got %v", fake.deleted)
	}
}
