package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/metrics"
)

// maxListLimit bounds the job list page size.
const maxListLimit = 200

// ownedJob fetches a job and hides other users' jobs behind not-found.
func (s *Server) ownedJob(user, id string) (jobs.Job, error) {
	job, err := s.store.Get(id)
	if err != nil {
		return jobs.Job{}, err
	}
	if job.UserID != user {
		return jobs.Job{}, fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	return job, nil
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.ownedJob(userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

// batchEntry reports one requested id. Unknown ids are flagged, never omitted,
// so clients can reconcile a stale local list in one round trip.
type batchEntry struct {
	ID    string    `json:"id"`
	Found bool      `json:"found"`
	Job   *jobs.Job `json:"job,omitempty"`
}

func (s *Server) handleBatchJobs(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, validationf("ids is required"))
		return
	}

	user := userID(r)
	entries := make([]batchEntry, 0, len(req.IDs))
	for _, id := range req.IDs {
		job, err := s.ownedJob(user, id)
		if err != nil {
			entries = append(entries, batchEntry{ID: id})
			continue
		}
		entries = append(entries, batchEntry{ID: id, Found: true, Job: &job})
	}
	writeJSON(w, http.StatusOK, map[string][]batchEntry{"jobs": entries})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var typeFilter jobs.Type
	if v := q.Get("type"); v != "" {
		typeFilter = jobs.Type(v)
		if !jobs.ValidType(typeFilter) {
			writeError(w, validationf("unknown job type: %s", v))
			return
		}
	}
	var statusFilter jobs.Status
	if v := q.Get("status"); v != "" {
		statusFilter = jobs.Status(v)
		switch statusFilter {
		case jobs.StatusPending, jobs.StatusProcessing, jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusCancelled:
		default:
			writeError(w, validationf("unknown job status: %s", v))
			return
		}
	}
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, validationf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	var all []jobs.Job
	if typeFilter != "" {
		all = s.store.ByType(typeFilter)
	} else {
		all = s.store.All()
	}

	user := userID(r)
	out := make([]jobs.Job, 0, limit)
	for _, job := range all {
		if job.UserID != user {
			continue
		}
		if statusFilter != "" && job.Status != statusFilter {
			continue
		}
		out = append(out, job)
		if len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string][]jobs.Job{"jobs": out})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	job, err := s.ownedJob(user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Cancel(job.ID); err != nil {
		writeError(w, err)
		return
	}
	job, err = s.store.Get(job.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type cleanupRequest struct {
	OlderThan string `json:"olderThan"`
}

// handleCleanup removes terminal jobs older than the given age. There is no
// automatic sweep; this endpoint is the only way job records leave memory.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.OlderThan == "" {
		writeError(w, validationf("olderThan is required"))
		return
	}
	age, err := time.ParseDuration(req.OlderThan)
	if err != nil || age < 0 {
		writeError(w, validationf("invalid olderThan duration: %s", req.OlderThan))
		return
	}

	removed := s.store.CleanupOlderThan(age)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type statsResponse struct {
	Jobs    jobs.Stats       `json:"jobs"`
	Runtime metrics.Snapshot `json:"runtime"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Jobs:    s.store.Stats(),
		Runtime: s.pipeline.Metrics().Snapshot(),
	})
}
