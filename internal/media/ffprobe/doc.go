// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The extraction stage uses it to confirm that a downloaded file actually
// carries an audio stream before the file is handed to a provider. Inspect
// runs the binary through a caller-supplied Runner so tests can substitute
// canned output.
package ffprobe
