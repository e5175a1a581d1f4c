package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/studyforge/internal/config"
	"github.com/raphaelgruber/studyforge/internal/hub"
	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/llm"
	"github.com/raphaelgruber/studyforge/internal/models"
	"github.com/raphaelgruber/studyforge/internal/pipeline"
)

type fastGenerator struct{}

func (fastGenerator) Summarize(ctx context.Context, text string, opts llm.SummaryOptions) (string, models.Usage, error) {
	return "a summary", models.Usage{InputTokens: 10, OutputTokens: 5}, nil
}

func (fastGenerator) Analyze(ctx context.Context, text string) (models.ContentAnalysis, models.Usage, error) {
	return models.ContentAnalysis{Language: "English"}, models.Usage{InputTokens: 2, OutputTokens: 1}, nil
}

func (fastGenerator) GenerateExam(ctx context.Context, text string, opts llm.ExamOptions) (models.Exam, models.Usage, error) {
	return models.Exam{
		Title:      "Exam",
		Difficulty: "medium",
		Questions:  []models.ExamQuestion{{Type: models.QuestionOpen, Question: "q", Answer: "a"}},
	}, models.Usage{InputTokens: 20, OutputTokens: 10}, nil
}

func (fastGenerator) GenerateQuestions(ctx context.Context, text string, opts llm.QuestionOptions) (map[models.QuestionType][]models.ExamQuestion, models.Usage, error) {
	sets := make(map[models.QuestionType][]models.ExamQuestion, len(opts.Types))
	for _, qt := range opts.Types {
		sets[qt] = []models.ExamQuestion{{Type: qt, Question: "q", Answer: "a"}}
	}
	return sets, models.Usage{InputTokens: 20, OutputTokens: 10}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *jobs.Store) {
	t.Helper()

	cfg := config.Config{
		APITokens:     map[string]string{"alice-token": "alice", "bob-token": "bob"},
		UploadDir:     t.TempDir(),
		MaxUploadSize: 1 << 20,
	}
	store := jobs.NewStore()
	h := hub.New()
	pl := pipeline.New(store, fastGenerator{}, pipeline.Options{Notifier: h})
	srv := New(cfg, store, pl, h, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(h.Shutdown)
	return ts, store
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func createTextJob(t *testing.T, ts *httptest.Server, token, text string) string {
	t.Helper()

	resp, raw := doJSON(t, ts, http.MethodPost, "/api/documents/text", token, map[string]string{"text": text})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	var created struct {
		JobID         string  `json:"jobId"`
		EstimatedTime float64 `json:"estimatedTime"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	require.NotEmpty(t, created.JobID)
	require.Greater(t, created.EstimatedTime, 0.0)
	return created.JobID
}

func waitForStatus(t *testing.T, ts *httptest.Server, token, jobID string, want jobs.Status) map[string]any {
	t.Helper()

	var job map[string]any
	require.Eventually(t, func() bool {
		resp, raw := doJSON(t, ts, http.MethodGet, "/api/jobs/"+jobID, token, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		job = map[string]any{}
		if err := json.Unmarshal(raw, &job); err != nil {
			return false
		}
		return job["status"] == string(want)
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, raw := doJSON(t, ts, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestAPIRejectsMissingOrUnknownToken(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/jobs", "wrong-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTextUploadRunsToCompletion(t *testing.T) {
	ts, _ := newTestServer(t)

	jobID := createTextJob(t, ts, "alice-token", "photosynthesis converts light into chemical energy")
	job := waitForStatus(t, ts, "alice-token", jobID, jobs.StatusCompleted)

	assert.Equal(t, float64(100), job["progress"])
	result, ok := job["result"].(map[string]any)
	require.True(t, ok)
	metadata, ok := result["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(6), metadata["wordsCount"])

	// Server-side fields must not leak into the projection.
	raw, err := json.Marshal(job)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "TempPath")
	assert.NotContains(t, string(raw), "alice")
}

func TestMultipartUploadRunsToCompletion(t *testing.T) {
	ts, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("the cell membrane is selectively permeable"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/documents/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	var created struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	waitForStatus(t, ts, "alice-token", created.JobID, jobs.StatusCompleted)
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	ts, store := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "slides.pptx")
	require.NoError(t, err)
	_, err = part.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/documents/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, store.Stats().Total)
}

func TestSummaryWithUnknownSourceCreatesNoJob(t *testing.T) {
	ts, store := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/summaries", "alice-token",
		map[string]string{"sourceJobId": "no-such-job"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, store.Stats().Total)
}

func TestSummaryWithUnfinishedSourceConflicts(t *testing.T) {
	ts, store := newTestServer(t)

	// Created directly so it stays pending.
	pending, err := store.Create("alice", jobs.TypeFileUpload, jobs.UploadData{RawText: "text"})
	require.NoError(t, err)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/summaries", "alice-token",
		map[string]string{"sourceJobId": pending.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, store.Stats().Total)
}

func TestSummaryFromCompletedSource(t *testing.T) {
	ts, _ := newTestServer(t)

	srcID := createTextJob(t, ts, "alice-token", "glycolysis splits glucose into pyruvate")
	waitForStatus(t, ts, "alice-token", srcID, jobs.StatusCompleted)

	resp, raw := doJSON(t, ts, http.MethodPost, "/api/summaries", "alice-token",
		map[string]string{"sourceJobId": srcID, "length": "short"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	var created struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))

	job := waitForStatus(t, ts, "alice-token", created.JobID, jobs.StatusCompleted)
	result, ok := job["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a summary", result["summary"])
}

func TestExamQuestionCountBounds(t *testing.T) {
	ts, _ := newTestServer(t)

	srcID := createTextJob(t, ts, "alice-token", "geography of the alps")
	waitForStatus(t, ts, "alice-token", srcID, jobs.StatusCompleted)

	for _, bad := range []int{-1, 101} {
		resp, raw := doJSON(t, ts, http.MethodPost, "/api/exams", "alice-token",
			map[string]any{"sourceJobId": srcID, "questionCount": bad})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "questionCount=%d", bad)
		assert.Contains(t, string(raw), "questionCount must be between 1 and 100")
	}

	// Omitted (or zero) falls back to the default count.
	resp, raw := doJSON(t, ts, http.MethodPost, "/api/exams", "alice-token",
		map[string]any{"sourceJobId": srcID})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	resp, raw = doJSON(t, ts, http.MethodPost, "/api/questions", "alice-token",
		map[string]any{"sourceJobId": srcID, "types": []string{"mcq"}, "countPerType": 51})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), "countPerType must be between 1 and 50")
}

func TestJobsAreScopedToTheirOwner(t *testing.T) {
	ts, _ := newTestServer(t)

	jobID := createTextJob(t, ts, "alice-token", "some text")
	waitForStatus(t, ts, "alice-token", jobID, jobs.StatusCompleted)

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/jobs/"+jobID, "bob-token", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw := doJSON(t, ts, http.MethodGet, "/api/jobs", "bob-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Jobs []json.RawMessage `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Empty(t, list.Jobs)
}

func TestBatchFlagsMissingJobs(t *testing.T) {
	ts, _ := newTestServer(t)

	jobID := createTextJob(t, ts, "alice-token", "some text")
	waitForStatus(t, ts, "alice-token", jobID, jobs.StatusCompleted)

	resp, raw := doJSON(t, ts, http.MethodPost, "/api/jobs/batch", "alice-token",
		map[string][]string{"ids": {jobID, "missing-1", "missing-2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var batch struct {
		Jobs []struct {
			ID    string          `json:"id"`
			Found bool            `json:"found"`
			Job   json.RawMessage `json:"job"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(raw, &batch))
	require.Len(t, batch.Jobs, 3)
	assert.True(t, batch.Jobs[0].Found)
	assert.NotNil(t, batch.Jobs[0].Job)
	assert.False(t, batch.Jobs[1].Found)
	assert.False(t, batch.Jobs[2].Found)
}

func TestListFilters(t *testing.T) {
	ts, _ := newTestServer(t)

	first := createTextJob(t, ts, "alice-token", "first document")
	waitForStatus(t, ts, "alice-token", first, jobs.StatusCompleted)
	second := createTextJob(t, ts, "alice-token", "second document")
	waitForStatus(t, ts, "alice-token", second, jobs.StatusCompleted)

	resp, raw := doJSON(t, ts, http.MethodGet, "/api/jobs?type=file_upload&status=completed", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Jobs []struct {
			ID string `json:"id"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list.Jobs, 2)

	resp, raw = doJSON(t, ts, http.MethodGet, "/api/jobs?limit=1", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, second, list.Jobs[0].ID, "newest first")

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/jobs?status=bogus", "alice-token", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelCompletedJobConflicts(t *testing.T) {
	ts, _ := newTestServer(t)

	jobID := createTextJob(t, ts, "alice-token", "some text")
	waitForStatus(t, ts, "alice-token", jobID, jobs.StatusCompleted)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/jobs/"+jobID+"/cancel", "alice-token", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCleanupRemovesTerminalJobs(t *testing.T) {
	ts, store := newTestServer(t)

	jobID := createTextJob(t, ts, "alice-token", "some text")
	waitForStatus(t, ts, "alice-token", jobID, jobs.StatusCompleted)

	time.Sleep(20 * time.Millisecond)
	resp, raw := doJSON(t, ts, http.MethodPost, "/api/jobs/cleanup", "alice-token",
		map[string]string{"olderThan": "10ms"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"removed":1}`, string(raw))
	assert.Equal(t, 0, store.Stats().Total)
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	jobID := createTextJob(t, ts, "alice-token", "some text")
	waitForStatus(t, ts, "alice-token", jobID, jobs.StatusCompleted)

	resp, raw := doJSON(t, ts, http.MethodGet, "/api/stats", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		Jobs struct {
			Total    int            `json:"total"`
			ByStatus map[string]int `json:"byStatus"`
		} `json:"jobs"`
		Runtime map[string]any `json:"runtime"`
	}
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, 1, stats.Jobs.Total)
	assert.Equal(t, 1, stats.Jobs.ByStatus["completed"])
	assert.Contains(t, stats.Runtime, "uptimeSeconds")
}

func TestWebSocketReceivesCompletionEvent(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=alice-token"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	jobID := createTextJob(t, ts, "alice-token", "some text")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var envelope struct {
		Event string `json:"event"`
		Data  struct {
			TargetID string `json:"targetId"`
		} `json:"data"`
	}
	require.NoError(t, ws.ReadJSON(&envelope))
	assert.Equal(t, hub.EventDocumentReady, envelope.Event)
	assert.Equal(t, jobID, envelope.Data.TargetID)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
