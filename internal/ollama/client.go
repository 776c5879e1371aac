// Package ollama talks to an Ollama-compatible chat endpoint. One call
// translates one piece of protected subtitle text; a sibling endpoint
// lists the models the server has available.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	// DefaultChatURL is the stock local Ollama chat endpoint.
	DefaultChatURL = "http://localhost:11434/api/chat"

	// DefaultTemperature keeps translations deterministic.
	DefaultTemperature = 0.2

	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 2
	DefaultRetryDelay = 5 * time.Second
)

// Request carries one translation call: the system instruction, the
// protected user text, and the model to run it on.
type Request struct {
	SystemPrompt string
	UserText     string
	Model        string
}

// Message is one chat message in the wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  chatOptions `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Client is a synchronous chat-endpoint client with bounded retries.
// Only one request is ever in flight per batch run.
type Client struct {
	chatURL     string
	httpClient  *http.Client
	retries     int
	retryDelay  time.Duration
	temperature float64
	logf        func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry sets the retry budget (attempts beyond the first) and the
// fixed delay between attempts.
func WithRetry(retries int, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.retryDelay = delay
	}
}

// WithLogf routes per-attempt observations to logf. Every attempt,
// success or failure, produces one line.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Client) {
		c.logf = logf
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given chat URL. An empty URL falls
// back to DefaultChatURL.
func NewClient(chatURL string, opts ...Option) *Client {
	if chatURL == "" {
		chatURL = DefaultChatURL
	}
	c := &Client{
		chatURL:     chatURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		retries:     DefaultRetries,
		retryDelay:  DefaultRetryDelay,
		temperature: DefaultTemperature,
		logf:        func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate sends one system/user message pair and returns the model's
// reply text. Any non-200 status or network failure is retried up to the
// configured budget with a fixed delay between attempts; the last
// attempt's error is returned once the budget is exhausted.
func (c *Client) Translate(ctx context.Context, req Request) (string, error) {
	attempts := c.retries + 1
	attempt := 0

	policy := retrypolicy.NewBuilder[string]().
		WithMaxRetries(c.retries).
		WithDelay(c.retryDelay).
		ReturnLastFailure().
		Build()

	return failsafe.With[string](policy).WithContext(ctx).Get(func() (string, error) {
		attempt++
		reply, err := c.chat(ctx, req)
		if err != nil {
			c.logf("Chat request failed (attempt %d/%d): %v", attempt, attempts, err)
			return "", err
		}
		c.logf("Chat request succeeded (attempt %d/%d)", attempt, attempts)
		return reply, nil
	})
}

func (c *Client) chat(ctx context.Context, req Request) (string, error) {
	payload := chatRequest{
		Model: req.Model,
		Messages: []Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserText},
		},
		Stream:  false,
		Options: chatOptions{Temperature: c.temperature},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: %d - %s", resp.StatusCode, excerpt(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}

	return chatResp.Message.Content, nil
}

// ListModels fetches the model names the server advertises on the tags
// endpoint next to the chat URL.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tagsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create models request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("models request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %d - %s", resp.StatusCode, excerpt(body))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// tagsURL derives the models-listing URL from the chat URL:
// ".../api/chat" becomes ".../api/tags".
func (c *Client) tagsURL() string {
	return strings.ReplaceAll(c.chatURL, "/chat", "") + "/tags"
}

func excerpt(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
