package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxErrorLen bounds the error text stored on a failed job.
const maxErrorLen = 300

// Store is the canonical in-memory table of jobs. All mutations on a single
// job id are atomic with respect to concurrent callers; reads return copies.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Create allocates a fresh pending job for the given user.
//
// If data references a source job, that job must exist and be completed at
// creation time; the dependent relationship is a snapshot, not a live link.
func (s *Store) Create(userID string, t Type, data Data) (Job, error) {
	if !ValidType(t) {
		return Job{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data != nil {
		if srcID := data.SourceJob(); srcID != "" {
			src, ok := s.jobs[srcID]
			if !ok {
				return Job{}, fmt.Errorf("source job %s: %w", srcID, ErrNotFound)
			}
			if src.Status != StatusCompleted {
				return Job{}, fmt.Errorf("source job %s is %s, not completed: %w", srcID, src.Status, ErrConflict)
			}
		}
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Type:      t,
		UserID:    userID,
		Status:    StatusPending,
		Progress:  0,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job

	slog.Info("job created", "job_id", job.ID, "type", t, "user_id", userID)
	return *job, nil
}

// Get retrieves a copy of a job by ID.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return *job, nil
}

// SetStatus performs the mid-pipeline partial update: it may only move a job
// between the non-terminal states and never lowers progress. Terminal
// transitions go through SetResult, Fail or Cancel.
func (s *Store) SetStatus(id string, status Status, progress int) error {
	if status.Terminal() {
		return fmt.Errorf("set status %s: %w", status, ErrConflict)
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range: %w", progress, ErrConflict)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrConflict)
	}
	if progress < job.Progress {
		return fmt.Errorf("progress %d < %d on job %s: %w", progress, job.Progress, id, ErrConflict)
	}

	job.Status = status
	job.Progress = progress
	job.UpdatedAt = time.Now()
	return nil
}

// SetResult finalizes a job as completed with its result payload.
// Progress is forced to 100.
func (s *Store) SetResult(id string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrConflict)
	}

	job.Status = StatusCompleted
	job.Progress = 100
	job.Result = result
	job.Error = ""
	job.UpdatedAt = time.Now()

	slog.Info("job completed", "job_id", id, "type", job.Type)
	return nil
}

// Fail finalizes a job as failed, preserving its last known progress.
// The message is sanitized before it is stored.
func (s *Store) Fail(id string, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrConflict)
	}

	job.Status = StatusFailed
	job.Error = sanitizeError(msg)
	job.Result = nil
	job.UpdatedAt = time.Now()

	slog.Error("job failed", "job_id", id, "type", job.Type, "error", job.Error)
	return nil
}

// Patch describes a generic partial update applied through Update.
type Patch struct {
	// Status may only move a job into processing or cancelled. Completed
	// and failed require SetResult / Fail so result and error stay coupled
	// to their statuses.
	Status   *Status
	Progress *int
	Data     Data
}

// Update applies a generic merge to a non-terminal job.
func (s *Store) Update(id string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrConflict)
	}

	if patch.Status != nil {
		switch *patch.Status {
		case StatusProcessing, StatusCancelled:
		default:
			return fmt.Errorf("patch status %s: %w", *patch.Status, ErrConflict)
		}
	}
	if patch.Progress != nil {
		if *patch.Progress < job.Progress || *patch.Progress > 100 {
			return fmt.Errorf("progress %d on job %s: %w", *patch.Progress, id, ErrConflict)
		}
	}

	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.Data != nil {
		job.Data = patch.Data
	}
	job.UpdatedAt = time.Now()
	return nil
}

// Cancel marks a pending or processing job cancelled and signals its worker
// context, if one is bound. Cancellation is cooperative: a worker mid-call is
// interrupted at its next context check, not forcibly stopped.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if job.Status.Terminal() {
		s.mu.Unlock()
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrConflict)
	}
	job.Status = StatusCancelled
	job.UpdatedAt = time.Now()
	cancel := s.cancels[id]
	delete(s.cancels, id)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	slog.Info("job cancelled", "job_id", id)
	return nil
}

// BindCancel stores the cancel function of a running worker so Cancel can
// interrupt it. The worker must call ReleaseCancel when it finishes.
func (s *Store) BindCancel(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()
}

// ReleaseCancel drops the bound cancel function for a finished worker.
func (s *Store) ReleaseCancel(id string) {
	s.mu.Lock()
	delete(s.cancels, id)
	s.mu.Unlock()
}

// Delete removes a job from the table.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	delete(s.jobs, id)
	delete(s.cancels, id)
	return nil
}

// ByType returns copies of all jobs of the given type, most recent first.
func (s *Store) ByType(t Type) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0)
	for _, job := range s.jobs {
		if job.Type == t {
			out = append(out, *job)
		}
	}
	sortNewestFirst(out)
	return out
}

// All returns copies of every job, most recent first.
func (s *Store) All() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sortNewestFirst(out)
	return out
}

// Stats summarizes the job table.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"byStatus"`
	ByType   map[Type]int   `json:"byType"`
}

// Stats returns counts by status and by type.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Total:    len(s.jobs),
		ByStatus: make(map[Status]int),
		ByType:   make(map[Type]int),
	}
	for _, job := range s.jobs {
		stats.ByStatus[job.Status]++
		stats.ByType[job.Type]++
	}
	return stats
}

// CleanupOlderThan removes terminal jobs whose last update is older than age.
// This is an on-demand administrative operation; there is no automatic sweep.
func (s *Store) CleanupOlderThan(age time.Duration) int {
	cutoff := time.Now().Add(-age)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			delete(s.cancels, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("job cleanup", "removed", removed, "older_than", age)
	}
	return removed
}

func sortNewestFirst(out []Job) {
	slices.SortFunc(out, func(a, b Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// sanitizeError reduces an error message to a single bounded line so that no
// internal paths or stack traces leak into client-visible job state.
func sanitizeError(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorLen {
		cut := maxErrorLen - 3
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	if msg == "" {
		msg = "internal error"
	}
	return msg
}
