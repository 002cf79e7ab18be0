package db2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dgallion1/chatrelay/internal/sqljob"
)

var _ sqljob.Runner = (*Client)(nil)

// Client talks to the Db2 on Cloud REST API (dbapi/v4).
type Client struct {
	baseURL      string
	userID       string
	password     string
	deploymentID string
	pollInterval time.Duration
	httpClient   *http.Client
}

// Options configures a Client. BaseURL overrides the URL derived from Hostname.
type Options struct {
	Hostname     string
	BaseURL      string
	UserID       string
	Password     string
	DeploymentID string
	PollInterval time.Duration
}

func NewClient(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = "https://" + opts.Hostname + "/dbapi/v4"
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		baseURL:      base,
		userID:       opts.UserID,
		password:     opts.Password,
		deploymentID: opts.DeploymentID,
		pollInterval: interval,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Job is the body for POST /sql_jobs.
type Job struct {
	Commands    string `json:"commands"`
	Limit       int    `json:"limit"`
	Separator   string `json:"separator"`
	StopOnError string `json:"stop_on_error"`
}

// JobStatus is the response from GET /sql_jobs/{id}.
type JobStatus struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Results []JobResult `json:"results"`
}

// JobResult is one command's partial result. Rows arrive incrementally
// across polls.
type JobResult struct {
	Command     string   `json:"command"`
	Columns     []string `json:"columns"`
	ColumnNames []string `json:"columnNames"`
	Rows        [][]any  `json:"rows"`
	RowsCount   int      `json:"rows_count"`
	Error       string   `json:"error"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Authenticate exchanges the user ID and password for a bearer token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"userid": c.userID, "password": c.password}
	if err := c.do(ctx, "auth", http.MethodPost, "/auth/tokens", "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("auth: empty token in response")
	}
	return out.Token, nil
}

// SubmitJob queues a SQL job and returns its ID.
func (c *Client) SubmitJob(ctx context.Context, token string, job Job) (string, error) {
	if job.Separator == "" {
		job.Separator = ";"
	}
	if job.StopOnError == "" {
		job.StopOnError = "yes"
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "submit job", http.MethodPost, "/sql_jobs", token, job, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("submit job: empty job id in response")
	}
	return out.ID, nil
}

// GetJob fetches the current state of a SQL job.
func (c *Client) GetJob(ctx context.Context, token, id string) (*JobStatus, error) {
	var status JobStatus
	if err := c.do(ctx, "get job", http.MethodGet, "/sql_jobs/"+url.PathEscape(id), token, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Run authenticates, submits command and polls until the job completes or
// polls runs out. Rows from every poll are accumulated in order.
func (c *Client) Run(ctx context.Context, command string, limit, polls int) (*sqljob.Result, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	id, err := c.SubmitJob(ctx, token, Job{Commands: command, Limit: limit})
	if err != nil {
		return nil, err
	}

	res := &sqljob.Result{JobID: id}
	for range polls {
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return res, ctx.Err()
		}

		status, err := c.GetJob(ctx, token, id)
		if err != nil {
			return res, err
		}
		for _, r := range status.Results {
			cols := r.Columns
			if len(cols) == 0 {
				cols = r.ColumnNames
			}
			if len(res.Columns) == 0 && len(cols) > 0 {
				res.Columns = cols
			}
			for _, row := range r.Rows {
				rec := make([]string, len(row))
				for i, v := range row {
					rec[i] = sqljob.FormatValue(v)
				}
				res.Rows = append(res.Rows, rec)
			}
			if res.Error == "" && r.Error != "" {
				res.Error = r.Error
			}
		}
		if status.Status == "completed" {
			res.Completed = true
			break
		}
		if status.Status == "failed" {
			break
		}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.deploymentID != "" {
		httpReq.Header.Set("x-deployment-id", c.deploymentID)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
