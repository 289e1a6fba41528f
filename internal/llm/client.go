// Package llm is a minimal client for OpenAI-compatible chat-completion
// endpoints: model discovery at startup, synchronous completions after.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallError is a failed completion or model-discovery call. Timeout is set
// when the transport or context deadline expired, so callers can tell a slow
// backend from a broken one.
type CallError struct {
	Status  int
	Timeout bool
	Message string
}

func (e *CallError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("backend timed out: %s", e.Message)
	case e.Status != 0:
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend call failed: %s", e.Message)
}

// Client calls an OpenAI-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stats      *Stats
}

func NewClient(baseURL, apiKey string, timeout time.Duration, stats *Stats) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stats: stats,
	}
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels queries the backend's model catalog.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &CallError{Status: resp.StatusCode, Message: truncate(string(body), 200)}
	}

	var mr modelsResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}
	models := make([]string, 0, len(mr.Data))
	for _, m := range mr.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one chat-completion request and returns the first choice's
// content. Failures of any shape come back as *CallError.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, maxTokens int, temperature float64) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, model, messages, maxTokens, temperature)
	if c.stats != nil {
		c.stats.Record(time.Since(start).Milliseconds(), err == nil)
	}
	return text, err
}

func (c *Client) complete(ctx context.Context, model string, messages []Message, maxTokens int, temperature float64) (string, error) {
	reqBody := completionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransportErr(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &CallError{Message: "read response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &CallError{Status: resp.StatusCode, Message: truncate(string(respBody), 200)}
	}

	var cr completionResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", &CallError{Message: "malformed response: " + err.Error()}
	}
	if cr.Error != nil {
		return "", &CallError{Message: fmt.Sprintf("%s: %s", cr.Error.Type, cr.Error.Message)}
	}
	if len(cr.Choices) == 0 {
		return "", &CallError{Message: "response contained no choices"}
	}
	return cr.Choices[0].Message.Content, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func wrapTransportErr(err error) error {
	ce := &CallError{Message: err.Error()}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		ce.Timeout = true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		ce.Timeout = true
	}
	return ce
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
