package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vidinsight/internal/media/ffprobe"
	"vidinsight/internal/services"
)

const audioProbe = `{"streams":[{"index":0,"codec_name":"mp3","codec_type":"audio"}],"format":{"duration":"12.5"}}`

type fakeTools struct {
	calls      []string
	downloadFn func(outputTemplate string) error
	probeOut   string
	probeErr   error
	probeArgs  []string
}

func (f *fakeTools) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, filepath.Base(name))
	switch filepath.Base(name) {
	case "yt-dlp":
		var template string
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				template = args[i+1]
			}
		}
		if f.downloadFn != nil {
			return nil, f.downloadFn(template)
		}
		return nil, writeAudio(template)
	case "ffprobe":
		f.probeArgs = args
		if f.probeErr != nil {
			return nil, f.probeErr
		}
		out := f.probeOut
		if out == "" {
			out = audioProbe
		}
		return []byte(out), nil
	}
	return nil, errors.New("unexpected command " + name)
}

func writeAudio(template string) error {
	path := strings.Replace(template, "%(ext)s", "mp3", 1)
	return os.WriteFile(path, []byte("ID3 fake mp3"), 0o644)
}

func allPresent(_ context.Context, names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = true
	}
	return out
}

func newTestExtractor(t *testing.T, tools *fakeTools, opts ...Option) (*Extractor, string) {
	t.Helper()
	scratch := t.TempDir()
	binDir := t.TempDir()
	cfg := Config{
		YtDlpBinary:          stub(t, binDir, "yt-dlp"),
		FFmpegBinary:         stub(t, binDir, "ffmpeg"),
		FFprobeBinary:        stub(t, binDir, "ffprobe"),
		ScratchDir:           scratch,
		SkipCertificateCheck: true,
	}
	opts = append([]Option{WithCommandRunner(tools.run), WithProber(allPresent)}, opts...)
	return New(cfg, nil, opts...), scratch
}

func stub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp directory to be removed, found %d entries", len(entries))
	}
}

func TestWithAudioProvidesFileAndRemovesDirectory(t *testing.T) {
	tools := &fakeTools{}
	extractor, scratch := newTestExtractor(t, tools)

	var seen string
	err := extractor.WithAudio(context.Background(), "https://example.com/watch?v=1", func(path string) error {
		seen = path
		if filepath.Base(path) != "audio.mp3" {
			t.Fatalf("unexpected audio name %q", path)
		}
		if !strings.HasPrefix(path, scratch) {
			t.Fatalf("expected audio under scratch dir, got %q", path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected audio to exist inside callback: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithAudio returned error: %v", err)
	}
	if seen == "" {
		t.Fatal("callback was not invoked")
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Fatalf("expected audio to be deleted, stat err=%v", err)
	}
	assertEmptyDir(t, scratch)
	if diff := cmp.Diff([]string{"yt-dlp", "ffprobe"}, tools.calls); diff != "" {
		t.Fatalf("command sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestWithAudioRemovesDirectoryWhenCallbackFails(t *testing.T) {
	extractor, scratch := newTestExtractor(t, &fakeTools{})
	boom := errors.New("analysis failed")

	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error to pass through, got %v", err)
	}
	assertEmptyDir(t, scratch)
}

func TestWithAudioMissingDependency(t *testing.T) {
	tools := &fakeTools{}
	prober := func(_ context.Context, names ...string) map[string]bool {
		out := allPresent(context.Background(), names...)
		for _, name := range names {
			if filepath.Base(name) == "ffprobe" {
				out[name] = false
			}
		}
		return out
	}
	extractor, scratch := newTestExtractor(t, tools, WithProber(prober))

	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error {
		t.Fatal("callback must not run")
		return nil
	})
	if !errors.Is(err, services.ErrMissingDependency) {
		t.Fatalf("expected missing dependency, got %v", err)
	}
	if !strings.Contains(err.Error(), "ffprobe") {
		t.Fatalf("expected error to name ffprobe, got %v", err)
	}
	if len(tools.calls) != 0 {
		t.Fatalf("expected no commands, got %v", tools.calls)
	}
	assertEmptyDir(t, scratch)
}

func TestWithAudioMissingDownloader(t *testing.T) {
	extractor, _ := newTestExtractor(t, &fakeTools{})
	extractor.cfg.YtDlpBinary = filepath.Join(t.TempDir(), "yt-dlp")

	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error { return nil })
	if !errors.Is(err, services.ErrMissingDependency) {
		t.Fatalf("expected missing dependency, got %v", err)
	}
}

func TestWithAudioClassifiesDownloadFailures(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"sign in", "ERROR: [youtube] abc: Sign in to confirm you're not a bot", services.ErrAuthRequired},
		{"age", "WARNING: x\nERROR: [youtube] abc: Sign in to confirm your age. This video may be inappropriate for some users.", services.ErrAuthRequired},
		{"private", "ERROR: [youtube] abc: Private video. Sign in if you've been granted access", services.ErrAuthRequired},
		{"members", "ERROR: [youtube] abc: Join this channel to get access to members-only content", services.ErrAuthRequired},
		{"cookies", "ERROR: [vimeo] 123: This video is only available for registered users. Use --cookies-from-browser or --cookies for the authentication.", services.ErrAuthRequired},
		{"unavailable", "ERROR: [youtube] abc: Video unavailable", services.ErrDownload},
		{"login page mention", "ERROR: [generic] Unable to extract title; the page redirected to a login page", services.ErrDownload},
		{"log in link", "ERROR: [generic] example: Unsupported URL: https://example.com/log in", services.ErrDownload},
		{"network", "yt-dlp: exit status 1: unable to download webpage: HTTP Error 404", services.ErrDownload},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tools := &fakeTools{downloadFn: func(string) error { return errors.New(tc.stderr) }}
			extractor, scratch := newTestExtractor(t, tools)

			err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error {
				t.Fatal("callback must not run")
				return nil
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want == services.ErrAuthRequired && !strings.Contains(err.Error(), "must be public") {
				t.Fatalf("expected public-video guidance, got %v", err)
			}
			if tc.want == services.ErrDownload && errors.Is(err, services.ErrAuthRequired) {
				t.Fatalf("unexpected auth classification: %v", err)
			}
			assertEmptyDir(t, scratch)
		})
	}
}

func TestWithAudioNoOutputWhenFileMissing(t *testing.T) {
	tools := &fakeTools{downloadFn: func(string) error { return nil }}
	extractor, scratch := newTestExtractor(t, tools)

	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error {
		t.Fatal("callback must not run")
		return nil
	})
	if !errors.Is(err, services.ErrNoOutput) {
		t.Fatalf("expected no output, got %v", err)
	}
	assertEmptyDir(t, scratch)
}

func TestWithAudioNoOutputWhenProbeFindsNoAudio(t *testing.T) {
	tools := &fakeTools{probeOut: `{"streams":[{"codec_type":"video"}],"format":{}}`}
	extractor, _ := newTestExtractor(t, tools)

	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error { return nil })
	if !errors.Is(err, services.ErrNoOutput) {
		t.Fatalf("expected no output, got %v", err)
	}
}

func TestWithAudioProbesDownloadedFile(t *testing.T) {
	tools := &fakeTools{}
	extractor, _ := newTestExtractor(t, tools)

	var audioPath string
	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(path string) error {
		audioPath = path
		return nil
	})
	if err != nil {
		t.Fatalf("WithAudio returned error: %v", err)
	}
	if diff := cmp.Diff(ffprobe.Args(audioPath), tools.probeArgs); diff != "" {
		t.Fatalf("ffprobe args mismatch (-want +got):\n%s", diff)
	}
}

func TestWithAudioProbeFailureOnlyWarns(t *testing.T) {
	tools := &fakeTools{probeErr: errors.New("ffprobe: exit status 1")}
	extractor, _ := newTestExtractor(t, tools)

	called := false
	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected probe failure to be tolerated, err=%v called=%v", err, called)
	}
}

func TestWithAudioCleanupFailureKeepsPrimaryError(t *testing.T) {
	extractor, _ := newTestExtractor(t, &fakeTools{})
	removals := 0
	extractor.removeAll = func(path string) error {
		removals++
		_ = os.RemoveAll(path)
		return errors.New("device busy")
	}
	boom := errors.New("upload failed")

	err := extractor.WithAudio(context.Background(), "https://example.com/v", func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected primary error, got %v", err)
	}
	if removals != 1 {
		t.Fatalf("expected exactly one removal, got %d", removals)
	}
}

func TestDownloadArgs(t *testing.T) {
	extractor, _ := newTestExtractor(t, &fakeTools{})
	args := extractor.downloadArgs("/tmp/work", "https://example.com/v")

	want := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-check-certificates",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--ffmpeg-location", extractor.cfg.FFmpegBinary,
		"-o", "/tmp/work/audio.%(ext)s",
		"--", "https://example.com/v",
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	extractor.cfg.SkipCertificateCheck = false
	for _, arg := range extractor.downloadArgs("/tmp/work", "https://example.com/v") {
		if arg == "--no-check-certificates" {
			t.Fatal("expected certificate checks to stay enabled")
		}
	}
}

func TestErrorLine(t *testing.T) {
	tests := map[string]string{
		"WARNING: slow\nERROR: [generic] boom\n": "[generic] boom",
		"first\nsecond\n":                        "second",
		"":                                       "yt-dlp failed without output",
	}
	for input, want := range tests {
		if got := errorLine(input); got != want {
			t.Fatalf("errorLine(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRunCommandIncludesStderr(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "failing")
	body := "#!/bin/sh\necho 'ERROR: [youtube] x: Private video' >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	_, err := runCommand(context.Background(), script)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(classifyDownloadFailure(err), services.ErrAuthRequired) {
		t.Fatalf("expected stderr to reach classification, got %v", err)
	}
}
