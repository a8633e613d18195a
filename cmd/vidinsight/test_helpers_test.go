package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidinsight/internal/config"
	"vidinsight/internal/testsupport"
)

const englishTranscript = "Good morning everyone, thank you for joining the quarterly planning meeting. " +
	"Today we will review the roadmap and agree on the next steps for the team."

const (
	downloaderOK = `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
printf 'ID3-fake-audio' > "$(dirname "$out")/audio.mp3"`
	downloaderSignIn = `echo "ERROR: [youtube] abc123: Sign in to confirm your age" >&2
exit 1`
	probeOK = `echo '{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3"}],"format":{"duration":"12.5"}}'`
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	api        *fakeAPI
}

// fakeAPI serves the OpenAI-compatible transcription and chat endpoints.
type fakeAPI struct {
	chatStatus     int
	transcriptions atomic.Int32
	chats          atomic.Int32
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		f.transcriptions.Add(1)
		writeTestJSON(w, http.StatusOK, map[string]any{"text": englishTranscript})
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.chats.Add(1)
		if f.chatStatus != 0 {
			writeTestJSON(w, f.chatStatus, map[string]any{"error": map[string]any{
				"message": "Incorrect API key provided",
				"type":    "invalid_request_error",
				"code":    "invalid_api_key",
			}})
			return
		}
		content, err := json.Marshal(map[string]any{
			"clarity_score":       82,
			"communication_focus": "Planning the next quarter.",
			"transcript":          englishTranscript,
		})
		if err != nil {
			t.Errorf("marshal content: %v", err)
		}
		writeTestJSON(w, http.StatusOK, map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": string(content)},
				"finish_reason": "stop",
			}},
		})
	})
	return mux
}

func writeTestJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// setupCLITestEnv writes a config that runs the real pipeline against stub
// tools and a fake OpenAI-compatible server.
func setupCLITestEnv(t *testing.T, downloader string) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VIDINSIGHT_LOG_LEVEL", "")
	t.Chdir(t.TempDir())

	api := &fakeAPI{}
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithProvider(config.ProviderOpenAI, server.URL+"/v1"))
	bin := filepath.Join(testsupport.BaseDir(cfg), "bin")
	cfg.Download.YtDlpBinary = testsupport.WriteScript(t, bin, "yt-dlp", downloader)
	cfg.Download.FFmpegBinary = testsupport.WriteScript(t, bin, "ffmpeg", "exit 0")
	cfg.Download.FFprobeBinary = testsupport.WriteScript(t, bin, "ffprobe", probeOK)
	cfg.OpenAI.Model = "gpt-test"
	cfg.Logging.Level = "error"

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, api: api}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func scratchEntries(t *testing.T, cfg *config.Config) int {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	return len(entries)
}
