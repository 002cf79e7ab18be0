package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/chatrelay/internal/csvtext"
	"github.com/dgallion1/chatrelay/internal/evaluate"
	"github.com/dgallion1/chatrelay/internal/feedback"
)

// Client communicates with a running relay's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a client for the relay at baseURL. apiKey may be empty
// when the relay runs without auth.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// /api/evaluate answers only after every question is asked.
			Timeout: 15 * time.Minute,
		},
	}
}

// StatusError is returned for unexpected response codes. Message holds the
// relay's JSON error when it sent one.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

type questionPayload struct {
	Question    string   `json:"question"`
	ModelAnswer string   `json:"model_answer,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

type evaluateRequest struct {
	AgentID   string            `json:"agent_id,omitempty"`
	Questions []questionPayload `json:"questions"`
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, "health", http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ExportLogs downloads the feedback log CSV.
func (c *Client) ExportLogs(ctx context.Context) (csvtext.Document, error) {
	resp, err := c.do(ctx, "export logs", http.MethodGet, "/api/logs", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("export logs: read body: %w", err)
	}
	return csvtext.Parse(string(body)), nil
}

// SendFeedback posts one feedback record.
func (c *Client) SendFeedback(ctx context.Context, rec feedback.Record) (feedback.InsertResult, error) {
	resp, err := c.do(ctx, "send feedback", http.MethodPost, "/api/feedback", rec)
	if err != nil {
		return feedback.InsertResult{}, err
	}
	defer resp.Body.Close()
	var out struct {
		Timestamp string `json:"timestamp"`
		JobID     string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return feedback.InsertResult{}, fmt.Errorf("send feedback: decode response: %w", err)
	}
	return feedback.InsertResult{JobID: out.JobID, Timestamp: out.Timestamp}, nil
}

// Evaluate runs questions through the relay's synchronous evaluation
// endpoint. An empty agentID lets the relay use its default agent. When the
// relay returns one row per question, the local model answers and keywords
// are carried onto the results.
func (c *Client) Evaluate(ctx context.Context, agentID string, questions []evaluate.Question) ([]evaluate.Result, error) {
	req := evaluateRequest{AgentID: agentID, Questions: make([]questionPayload, len(questions))}
	for i, q := range questions {
		req.Questions[i] = questionPayload{Question: q.Text, ModelAnswer: q.ModelAnswer, Keywords: q.Keywords[:]}
	}

	resp, err := c.do(ctx, "evaluate", http.MethodPost, "/api/evaluate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("evaluate: read body: %w", err)
	}

	results := evaluate.ResultsFromDocument(csvtext.Parse(string(body)))
	if len(results) == len(questions) {
		for i := range results {
			results[i].Question = questions[i]
		}
	}
	return results, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) (*http.Response, error) {
	var reqBody io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return resp, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
