// Package analysis turns a local audio file into a validated Result using a
// remote multimodal model.
//
// Analyzer.Analyze uploads the file through a provider-neutral Service,
// requests structured output constrained by ResultSchema, retries transient
// service failures with exponential backoff, validates the payload, and
// deletes the remote file on every exit path. Provider clients live under
// internal/services and report HTTP failures as *services.StatusError so the
// retry policy here stays provider-agnostic.
//
// Key types:
//   - Service: upload, generate, and delete operations of a provider
//   - Result: the typed analysis output
//   - ConnectionError: terminal service failure, matches services.ErrConnection
package analysis
