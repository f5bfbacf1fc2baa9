// Package complete fetches text continuations from an OpenAI-compatible
// chat completions service.
package complete

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	inkling "github.com/Paranoid-AF/inkling"
)

const (
	// Placeholder is returned when the service answers with a malformed or
	// empty body. It is a suggestion, not an error.
	Placeholder = "..."
	// DebugResponse is returned instead of calling the service when the
	// debug flag is set.
	DebugResponse = "DUMMY RESPONSE"
	// DefaultDebugDelay is how long the debug response takes to arrive.
	DefaultDebugDelay = time.Second
)

// Completer produces a continuation for a request.
type Completer interface {
	Complete(ctx context.Context, req *inkling.Request) (string, error)
}

// APIError is returned when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if msg := gjson.Get(e.Body, "error.message"); msg.Exists() && msg.String() != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, msg.String())
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	// Redact scrubs variable references and assignments from the prompt
	// before it leaves the machine.
	Redact bool
	// Debug is consulted on every request; when it returns true the Client
	// answers DebugResponse after DebugDelay without any network I/O.
	Debug      func() bool
	DebugDelay time.Duration
	// HTTPClient overrides the transport. Tests point it at httptest servers.
	HTTPClient *http.Client
}

// Client performs completions against the chat completions endpoint.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt string
	redact       bool
	debug        func() bool
	debugDelay   time.Duration
	client       *http.Client
}

// NewClient creates a client from opts.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		model:        opts.Model,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
		systemPrompt: opts.SystemPrompt,
		redact:       opts.Redact,
		debug:        opts.Debug,
		debugDelay:   opts.DebugDelay,
		client:       hc,
	}
}

// NewClientFromConfig creates a client from the loaded config, reading the
// API key and debug flag through values.
func NewClientFromConfig(cfg *inkling.Config, values inkling.Values) *Client {
	return NewClient(Options{
		BaseURL:      inkling.ResolveBaseURL(cfg),
		APIKey:       inkling.ResolveAPIKey(values),
		Model:        inkling.ResolveModel(cfg),
		Temperature:  cfg.Generation.Temperature,
		MaxTokens:    cfg.Generation.MaxTokens,
		SystemPrompt: LoadSystemPrompt(),
		Timeout:      time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
		Redact:       cfg.Generation.RedactPrompt,
		Debug:        func() bool { return inkling.DebugEnabled(values) },
		DebugDelay:   time.Duration(cfg.Debug.DelayMillis) * time.Millisecond,
	})
}

// Configured reports whether the client holds an API key.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends req.Prompt as the user turn and returns the continuation.
func (c *Client) Complete(ctx context.Context, req *inkling.Request) (string, error) {
	if c.debug != nil && c.debug() {
		return c.debugResponse(ctx)
	}

	prompt := req.Prompt
	if c.redact {
		prompt = RedactPrompt(prompt)
	}

	data, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Stream:      false,
		MaxTokens:   c.maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	slog.Debug("completion request", "request_id", req.RequestID, "body", string(data))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	slog.Debug("completion response",
		"request_id", req.RequestID,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return extractContent(body), nil
}

// extractContent reads choices[0].message.content, falling back to
// Placeholder when the body is malformed or the content is missing or empty.
func extractContent(body []byte) string {
	if !gjson.ValidBytes(body) {
		slog.Warn("malformed completion response", "body", string(body))
		return Placeholder
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Type != gjson.String || content.String() == "" {
		slog.Warn("completion response has no content", "body", string(body))
		return Placeholder
	}
	return content.String()
}

func (c *Client) debugResponse(ctx context.Context) (string, error) {
	slog.Debug("debug flag set, skipping completion service")
	t := time.NewTimer(c.debugDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return DebugResponse, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// setHeaders sets common headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
