package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"vidinsight/internal/analysis"
	"vidinsight/internal/services"
)

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseJSONSchema json.RawMessage `json:"responseJsonSchema,omitempty"`
	Temperature        float64         `json:"temperature"`
}

type generateContentRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate issues one generateContent call and returns the text of the first
// candidate.
func (c *Client) Generate(ctx context.Context, req analysis.GenerateRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("gemini generate: api key required")
	}
	parts := []part{{Text: req.Prompt}}
	if req.File.URI != "" {
		parts = append(parts, part{FileData: &fileData{MIMEType: req.File.MIMEType, FileURI: req.File.URI}})
	}
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMIMEType:   req.ResponseMIMEType,
			ResponseJSONSchema: req.ResponseSchema,
			Temperature:        req.Temperature,
		},
	}
	if strings.TrimSpace(req.SystemInstruction) != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1beta", "models", c.cfg.Model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini generate: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini generate: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gemini generate: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp generateContentResponse
	if _, err := c.do(httpReq, &resp); err != nil {
		return "", err
	}
	return extractText(resp)
}

func extractText(resp generateContentResponse) (string, error) {
	var finishReason string
	for _, candidate := range resp.Candidates {
		if finishReason == "" {
			finishReason = candidate.FinishReason
		}
		var b strings.Builder
		for _, p := range candidate.Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, nil
		}
	}
	var blockReason string
	if resp.PromptFeedback != nil {
		blockReason = resp.PromptFeedback.BlockReason
	}
	message := fmt.Sprintf("empty content (finish_reason=%q, block_reason=%q)", finishReason, blockReason)
	return "", services.Wrap(services.ErrInvalidResponse, providerName, "generate", message, nil)
}
