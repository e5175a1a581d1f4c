// Package client provides an HTTP client for the StudyForge server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to the StudyForge status and creation API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. An empty baseURL falls back to STUDYFORGE_SERVER_URL
// or localhost:8585; an empty token falls back to STUDYFORGE_API_TOKEN.
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("STUDYFORGE_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8585"
	}
	if token == "" {
		token = os.Getenv("STUDYFORGE_API_TOKEN")
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("STUDYFORGE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Job is the client-side view of a job record. Data and Result stay raw so
// every job family renders through the same type.
type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Progress  int             `json:"progress"`
	Data      json.RawMessage `json:"data,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Terminal reports whether the job reached a final state.
func (j Job) Terminal() bool {
	switch j.Status {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// CreatedJob acknowledges an accepted job.
type CreatedJob struct {
	JobID         string  `json:"jobId"`
	EstimatedTime float64 `json:"estimatedTime"`
}

// BatchEntry is one id of a batch lookup.
type BatchEntry struct {
	ID    string `json:"id"`
	Found bool   `json:"found"`
	Job   *Job   `json:"job,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, result)
}

func (c *Client) send(req *http.Request, result any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var body struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
			message = body.Error
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// UploadFile submits a document file and returns the accepted job.
func (c *Client) UploadFile(ctx context.Context, path string) (*CreatedJob, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var created CreatedJob
	if err := c.send(req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UploadText submits pasted text as a document.
func (c *Client) UploadText(ctx context.Context, text, fileName string) (*CreatedJob, error) {
	var created CreatedJob
	err := c.do(ctx, http.MethodPost, "/api/documents/text", map[string]string{
		"text":     text,
		"fileName": fileName,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// SummaryRequest configures a summary job.
type SummaryRequest struct {
	SourceJobID string `json:"sourceJobId,omitempty"`
	Text        string `json:"text,omitempty"`
	Length      string `json:"length,omitempty"`
	Language    string `json:"language,omitempty"`
}

// CreateSummary starts a summary job.
func (c *Client) CreateSummary(ctx context.Context, req SummaryRequest) (*CreatedJob, error) {
	var created CreatedJob
	if err := c.do(ctx, http.MethodPost, "/api/summaries", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ExamRequest configures an exam job.
type ExamRequest struct {
	SourceJobID   string `json:"sourceJobId,omitempty"`
	Text          string `json:"text,omitempty"`
	QuestionCount int    `json:"questionCount,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

// CreateExam starts an exam generation job.
func (c *Client) CreateExam(ctx context.Context, req ExamRequest) (*CreatedJob, error) {
	var created CreatedJob
	if err := c.do(ctx, http.MethodPost, "/api/exams", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetJob retrieves a job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// BatchJobs looks up many jobs in one round trip. Unknown ids come back
// flagged, never omitted.
func (c *Client) BatchJobs(ctx context.Context, ids []string) ([]BatchEntry, error) {
	var result struct {
		Jobs []BatchEntry `json:"jobs"`
	}
	err := c.do(ctx, http.MethodPost, "/api/jobs/batch", map[string][]string{"ids": ids}, &result)
	if err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// ListJobsOptions filters the job list.
type ListJobsOptions struct {
	Type   string
	Status string
	Limit  int
}

// ListJobs returns the caller's jobs, newest first.
func (c *Client) ListJobs(ctx context.Context, opts ListJobsOptions) ([]Job, error) {
	q := url.Values{}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// CancelJob requests cooperative cancellation of a pending or processing job.
func (c *Client) CancelJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Cleanup removes terminal jobs older than the given age and returns how many
// records were dropped.
func (c *Client) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	var result struct {
		Removed int `json:"removed"`
	}
	err := c.do(ctx, http.MethodPost, "/api/jobs/cleanup", map[string]string{
		"olderThan": olderThan.String(),
	}, &result)
	if err != nil {
		return 0, err
	}
	return result.Removed, nil
}

// Stats returns the server's job table and runtime statistics as raw JSON.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Event is a push notification received over the WebSocket.
type Event struct {
	Event string `json:"event"`
	Data  struct {
		Type       string `json:"type"`
		TargetID   string `json:"targetId"`
		Name       string `json:"name"`
		Error      string `json:"error"`
		ActionURL  string `json:"actionUrl"`
		ActionText string `json:"actionText"`
	} `json:"data"`
}

// Watch connects to the push WebSocket and invokes onEvent for every received
// notification until the context is cancelled or onEvent returns an error.
func (c *Client) Watch(ctx context.Context, onEvent func(Event) error) error {
	wsURL := c.baseURL + "/ws"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	if c.token != "" {
		wsURL += "?token=" + url.QueryEscape(c.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := onEvent(event); err != nil {
			return err
		}
	}
}
