// Package ai is the adapter for the external AI gateway. The orchestrator
// treats its failures as an empty signal set: a gateway problem surfaces in
// Response.Error, never as a Go error, so analysis always completes.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Request is one prompt sent to the gateway.
type Request struct {
	Prompt      string  `json:"prompt"`
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Stream      bool    `json:"stream,omitempty"`
}

// Usage reports gateway token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the gateway reply. A non-empty Error means the call failed
// upstream; Raw and Parsed are then empty.
type Response struct {
	Raw    string                 `json:"raw"`
	Parsed map[string]interface{} `json:"parsed,omitempty"`
	Usage  *Usage                 `json:"usage,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Client talks to the AI gateway over HTTP.
type Client struct {
	baseURL   string
	provider  string
	model     string
	maxTokens int
	client    *http.Client
	log       zerolog.Logger
}

// Config carries the gateway connection settings.
type Config struct {
	BaseURL   string
	Provider  string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewClient creates an AI gateway client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		provider:  cfg.Provider,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: timeout},
		log:       log.With().Str("client", "ai").Logger(),
	}
}

// Call sends one prompt. Transport and upstream failures are reported in
// Response.Error; the returned error is non-nil only for programming
// mistakes (an unencodable request).
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	if req.Provider == "" {
		req.Provider = c.provider
	}
	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Msg("AI gateway unreachable")
		return &Response{Error: fmt.Sprintf("gateway unreachable: %v", err)}, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Response{Error: fmt.Sprintf("read response: %v", err)}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Msg("AI gateway returned non-2xx")
		return &Response{Error: fmt.Sprintf("gateway status %d", resp.StatusCode)}, nil
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		// Gateways that return bare text are still usable as a raw signal.
		out = Response{Raw: string(data)}
	}
	return &out, nil
}
