package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteAudio writes a fake mp3 of roughly size bytes to dir/audio.mp3 and
// returns its path. The content starts with an ID3 tag marker followed by a
// repeating pattern; it is not decodable audio.
func WriteAudio(t testing.TB, dir string, size int64) string {
	t.Helper()

	if size <= 3 {
		size = 4
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	data := make([]byte, size)
	copy(data, "ID3")
	for i := 3; i < len(data); i++ {
		data[i] = 0x42
	}
	path := filepath.Join(dir, "audio.mp3")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteScript writes an executable shell script into dir and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}
