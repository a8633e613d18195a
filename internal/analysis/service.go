package analysis

import (
	"context"
	"encoding/json"
)

// RemoteFile is a provider-side handle for uploaded audio.
type RemoteFile struct {
	Name     string
	URI      string
	MIMEType string
}

// GenerateRequest carries one structured generation call.
type GenerateRequest struct {
	SystemInstruction string
	Prompt            string
	File              RemoteFile
	ResponseMIMEType  string
	ResponseSchema    json.RawMessage
	Temperature       float64
}

// Service is the remote inference surface the analyzer depends on.
//
// Generate returns the raw text of the model's answer. HTTP failures should be
// reported as *services.StatusError so they can be classified for retry.
type Service interface {
	Upload(ctx context.Context, path string) (RemoteFile, error)
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Delete(ctx context.Context, name string) error
}
