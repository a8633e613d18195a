// Package extract turns a video URL into a local MP3 file.
//
// Extractor.WithAudio pre-flights the external tools (yt-dlp, ffmpeg,
// ffprobe), downloads the best audio track with yt-dlp into a private
// temporary directory, verifies the result with ffprobe, and hands the path to
// a callback. The directory is removed exactly once when the callback returns
// or when any step fails, so the audio file never outlives the scope.
//
// Failures carry the markers from internal/services: ErrMissingDependency,
// ErrDownload, ErrAuthRequired, and ErrNoOutput.
package extract
