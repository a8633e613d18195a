package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidinsight/internal/analysis"
)

const (
	providerName        = "gemini"
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultModel        = "gemini-2.5-flash"
	defaultHTTPTimeout  = 300 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultAudioMIME    = "audio/mpeg"

	stateProcessing = "PROCESSING"
	stateActive     = "ACTIVE"
	stateFailed     = "FAILED"
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client talks to the Gemini Files and generateContent endpoints.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides how often upload state is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

var _ analysis.Service = (*Client)(nil)

type fileResource struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	URI      string `json:"uri"`
	State    string `json:"state"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sends the file at path with the resumable upload protocol and waits
// until the service has finished processing it.
func (c *Client) Upload(ctx context.Context, path string) (analysis.RemoteFile, error) {
	var empty analysis.RemoteFile
	if c.cfg.APIKey == "" {
		return empty, errors.New("gemini upload: api key required")
	}
	file, err := os.Open(path)
	if err != nil {
		return empty, fmt.Errorf("gemini upload: open audio: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return empty, fmt.Errorf("gemini upload: stat audio: %w", err)
	}
	mimeType := audioMIMEType(path)

	uploadURL, err := c.startUpload(ctx, filepath.Base(path), info.Size(), mimeType)
	if err != nil {
		return empty, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, file)
	if err != nil {
		return empty, fmt.Errorf("gemini upload: new request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
	var uploaded struct {
		File fileResource `json:"file"`
	}
	if _, err := c.do(req, &uploaded); err != nil {
		return empty, err
	}
	if uploaded.File.Name == "" {
		return empty, errors.New("gemini upload: response missing file name")
	}

	resource, err := c.waitActive(ctx, uploaded.File)
	if err != nil {
		return analysis.RemoteFile{Name: uploaded.File.Name}, err
	}
	if resource.MIMEType == "" {
		resource.MIMEType = mimeType
	}
	return analysis.RemoteFile{Name: resource.Name, URI: resource.URI, MIMEType: resource.MIMEType}, nil
}

func (c *Client) startUpload(ctx context.Context, displayName string, size int64, mimeType string) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "upload", "v1beta", "files")
	if err != nil {
		return "", fmt.Errorf("gemini upload: build url: %w", err)
	}
	payload := map[string]any{"file": map[string]string{"display_name": displayName}}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini upload: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gemini upload: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	header, err := c.do(req, nil)
	if err != nil {
		return "", err
	}
	uploadURL := strings.TrimSpace(header.Get("X-Goog-Upload-URL"))
	if uploadURL == "" {
		return "", errors.New("gemini upload: response missing upload url")
	}
	return uploadURL, nil
}

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
}

func audioMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType, ok := audioMIMETypes[ext]; ok {
		return mimeType
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return defaultAudioMIME
}

// waitActive polls a freshly uploaded file until it leaves PROCESSING.
func (c *Client) waitActive(ctx context.Context, file fileResource) (fileResource, error) {
	for {
		switch strings.ToUpper(file.State) {
		case "", stateActive:
			return file, nil
		case stateFailed:
			detail := "processing failed"
			if file.Error != nil && file.Error.Message != "" {
				detail = file.Error.Message
			}
			return file, fmt.Errorf("gemini upload: file %s: %s", file.Name, detail)
		case stateProcessing:
		default:
			return file, fmt.Errorf("gemini upload: file %s in unexpected state %q", file.Name, file.State)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return file, ctx.Err()
		case <-timer.C:
		}

		next, err := c.getFile(ctx, file.Name)
		if err != nil {
			return file, err
		}
		file = next
	}
}

func (c *Client) getFile(ctx context.Context, name string) (fileResource, error) {
	var file fileResource
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1beta", name)
	if err != nil {
		return file, fmt.Errorf("gemini file: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return file, fmt.Errorf("gemini file: new request: %w", err)
	}
	_, err = c.do(req, &file)
	return file, err
}

// Delete removes an uploaded file.
func (c *Client) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("gemini delete: file name required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1beta", name)
	if err != nil {
		return fmt.Errorf("gemini delete: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gemini delete: new request: %w", err)
	}
	_, err = c.do(req, nil)
	return err
}

// do sends req with the API key and decodes a 2xx JSON body into target when
// target is non-nil. Non-2xx answers become *services.StatusError.
func (c *Client) do(req *http.Request, target any) (http.Header, error) {
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, fmt.Errorf("gemini request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return resp.Header, statusError(resp, body)
	}
	if target != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, target); err != nil {
			return resp.Header, fmt.Errorf("gemini request: decode response: %w", err)
		}
	}
	return resp.Header, nil
}
