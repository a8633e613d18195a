// Package openaicompat implements analysis.Service on an OpenAI-compatible
// API through github.com/sashabaranov/go-openai.
//
// Such APIs cannot take audio as chat input, so the audio stays local: Upload
// only records the path, Generate transcribes it with the transcription
// endpoint (once per file) and then asks a chat model for the structured
// analysis under a strict JSON Schema, and Delete forgets the cached
// transcript. API failures are mapped to *services.StatusError.
package openaicompat
