// Package orchestrate calls watsonx Orchestrate agents through the chat
// completions API.
package orchestrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultAPIHost is the us-south Orchestrate API host.
const DefaultAPIHost = "api.us-south.watson-orchestrate.cloud.ibm.com"

// Client sends single-turn chat requests to Orchestrate agents.
type Client struct {
	tokens     *TokenSource
	baseURL    string
	httpClient *http.Client
	stats      *Stats
}

type Options struct {
	APIHost    string
	InstanceID string
	// BaseURL overrides https://{APIHost}/instances/{InstanceID}.
	BaseURL string
	Timeout time.Duration
	Stats   *Stats
}

func NewClient(tokens *TokenSource, opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		host := opts.APIHost
		if host == "" {
			host = DefaultAPIHost
		}
		base = "https://" + host + "/instances/" + url.PathEscape(opts.InstanceID)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	stats := opts.Stats
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	return &Client{
		tokens:  tokens,
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stats: stats,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Ask sends question to the agent and returns its reply. When the reply has
// no choices the raw response body is returned as the answer.
func (c *Client) Ask(ctx context.Context, agentID, question string) (string, error) {
	answer, err := c.timedAsk(ctx, agentID, question)
	if isUnauthorized(err) {
		// The cached token was revoked or expired early.
		c.tokens.Invalidate()
		answer, err = c.timedAsk(ctx, agentID, question)
	}
	return answer, err
}

func (c *Client) timedAsk(ctx context.Context, agentID, question string) (string, error) {
	start := time.Now()
	answer, err := c.ask(ctx, agentID, question)
	c.stats.Record(time.Since(start).Milliseconds(), err == nil)
	return answer, err
}

func (c *Client) ask(ctx context.Context, agentID, question string) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{{Role: "user", Content: question}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/orchestrate/" + url.PathEscape(agentID) + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("orchestrate api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil || len(chat.Choices) == 0 {
		return string(respBody), nil
	}
	return chat.Choices[0].Message.Content, nil
}

// Stats returns the latency tracker shared by this client.
func (c *Client) Stats() *Stats {
	return c.stats
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	c.tokens.httpClient.CloseIdleConnections()
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// StatusError is a non-retryable HTTP failure from the chat API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("orchestrate api status %d: %s", e.StatusCode, e.Body)
}

func isUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
