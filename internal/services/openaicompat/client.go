package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"vidinsight/internal/analysis"
	"vidinsight/internal/services"
)

const (
	providerName       = "openai"
	defaultHTTPTimeout = 300 * time.Second
	schemaName         = "communication_analysis"
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	Model              string
	// Language is an optional ISO 639-1 code passed to transcription.
	Language       string
	TimeoutSeconds int
}

// Client adapts go-openai to analysis.Service.
type Client struct {
	cfg    Config
	client *openai.Client

	mu          sync.Mutex
	transcripts map[string]string
}

// Option customizes the client.
type Option func(*openai.ClientConfig)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *openai.ClientConfig) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.TranscriptionModel = strings.TrimSpace(cfg.TranscriptionModel)
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = openai.Whisper1
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	for _, opt := range opts {
		opt(&clientCfg)
	}
	return &Client{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientCfg),
		transcripts: make(map[string]string),
	}
}

var _ analysis.Service = (*Client)(nil)

// Upload checks that the audio is readable and returns a local handle.
func (c *Client) Upload(_ context.Context, path string) (analysis.RemoteFile, error) {
	if c.cfg.APIKey == "" {
		return analysis.RemoteFile{}, errors.New("openai upload: api key required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return analysis.RemoteFile{}, fmt.Errorf("openai upload: stat audio: %w", err)
	}
	if info.IsDir() {
		return analysis.RemoteFile{}, fmt.Errorf("openai upload: %s is a directory", path)
	}
	return analysis.RemoteFile{Name: path, URI: "file://" + path, MIMEType: "audio/mpeg"}, nil
}

// Generate transcribes the referenced audio (cached across attempts) and asks
// the chat model for a structured answer.
func (c *Client) Generate(ctx context.Context, req analysis.GenerateRequest) (string, error) {
	transcript, err := c.transcribe(ctx, req.File.Name)
	if err != nil {
		return "", err
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(req.SystemInstruction) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt + "\n\nThe audio has already been transcribed. Use this text as the transcript:\n\n" + transcript,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature(req.Temperature),
	}
	if len(req.ResponseSchema) > 0 {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: req.ResponseSchema,
				Strict: true,
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", mapError("chat completion", err)
	}
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	message := "empty content"
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		message = fmt.Sprintf("empty content (finish_reason=%q, refusal=%q)", choice.FinishReason, choice.Message.Refusal)
	}
	return "", services.Wrap(services.ErrInvalidResponse, providerName, "generate", message, nil)
}

// Delete forgets the cached transcript. Nothing is stored remotely.
func (c *Client) Delete(_ context.Context, name string) error {
	c.mu.Lock()
	delete(c.transcripts, name)
	c.mu.Unlock()
	return nil
}

func (c *Client) transcribe(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", errors.New("openai transcribe: audio reference required")
	}
	c.mu.Lock()
	cached, ok := c.transcripts[path]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: path,
		Language: c.cfg.Language,
	})
	if err != nil {
		return "", mapError("transcription", err)
	}
	text := strings.TrimSpace(resp.Text)

	c.mu.Lock()
	c.transcripts[path] = text
	c.mu.Unlock()
	return text, nil
}

// temperature maps a requested zero to the smallest positive float32 because
// go-openai omits a zero temperature from the request body.
func temperature(value float64) float32 {
	if value <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(value)
}

func mapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &services.StatusError{
			Provider:   providerName,
			StatusCode: apiErr.HTTPStatusCode,
			Status:     strings.ToUpper(apiErr.Type),
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		statusErr := &services.StatusError{Provider: providerName, StatusCode: reqErr.HTTPStatusCode}
		if reqErr.Err != nil {
			statusErr.Message = reqErr.Err.Error()
		}
		return statusErr
	}
	return fmt.Errorf("openai %s: %w", operation, err)
}
