package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/raphaelgruber/studyforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSetsInitialState(t *testing.T) {
	s := NewStore()

	job, err := s.Create("user-1", TypeFileUpload, UploadData{FileName: "notes.pdf", SizeBytes: 1024})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, "user-1", job.UserID)
	assert.Nil(t, job.Result)
	assert.Empty(t, job.Error)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestCreateRejectsUnknownType(t *testing.T) {
	s := NewStore()

	_, err := s.Create("user-1", Type("mystery"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Empty(t, s.All())
}

func TestCreateSourceJobMustExist(t *testing.T) {
	s := NewStore()

	_, err := s.Create("user-1", TypeSummary, SummaryData{SourceJobID: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.All(), "no job may be created when the source check fails")
}

func TestCreateSourceJobMustBeCompleted(t *testing.T) {
	s := NewStore()
	src, err := s.Create("user-1", TypeFileUpload, UploadData{FileName: "a.txt"})
	require.NoError(t, err)

	_, err = s.Create("user-1", TypeSummary, SummaryData{SourceJobID: src.ID})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.SetResult(src.ID, UploadResult{Text: "hello"}))

	dep, err := s.Create("user-1", TypeSummary, SummaryData{SourceJobID: src.ID})
	require.NoError(t, err)

	// Snapshot, not live link: deleting the source does not invalidate the dependent.
	require.NoError(t, s.Delete(src.ID))
	got, err := s.Get(dep.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestProgressIsMonotone(t *testing.T) {
	s := NewStore()
	job, err := s.Create("user-1", TypeExam, ExamData{QuestionCount: 5})
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(job.ID, StatusProcessing, 10))
	require.NoError(t, s.SetStatus(job.ID, StatusProcessing, 40))

	err = s.SetStatus(job.ID, StatusProcessing, 30)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress, "rejected update must leave the record unchanged")
}

func TestSetStatusRejectsTerminalTargets(t *testing.T) {
	s := NewStore()
	job, err := s.Create("user-1", TypeSummary, SummaryData{Text: "abc"})
	require.NoError(t, err)

	for _, status := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		err := s.SetStatus(job.ID, status, 50)
		assert.ErrorIs(t, err, ErrConflict, "terminal status %s must go through its dedicated operation", status)
	}
}

func TestResultAndErrorAreMutuallyExclusive(t *testing.T) {
	s := NewStore()

	completed, err := s.Create("user-1", TypeSummary, SummaryData{Text: "abc"})
	require.NoError(t, err)
	require.NoError(t, s.SetResult(completed.ID, SummaryResult{Summary: "short"}))

	got, err := s.Get(completed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.NotNil(t, got.Result)
	assert.Empty(t, got.Error)

	failed, err := s.Create("user-1", TypeSummary, SummaryData{Text: "abc"})
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(failed.ID, StatusProcessing, 60))
	require.NoError(t, s.Fail(failed.ID, "provider exploded"))

	got, err = s.Get(failed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, 60, got.Progress, "failure preserves last known progress")
	assert.Nil(t, got.Result)
	assert.Equal(t, "provider exploded", got.Error)
}

func TestDoubleFinalizeIsRejected(t *testing.T) {
	s := NewStore()
	job, err := s.Create("user-1", TypeExam, ExamData{QuestionCount: 3})
	require.NoError(t, err)
	require.NoError(t, s.SetResult(job.ID, ExamResult{}))

	assert.ErrorIs(t, s.SetResult(job.ID, ExamResult{}), ErrConflict)
	assert.ErrorIs(t, s.Fail(job.ID, "too late"), ErrConflict)
	assert.ErrorIs(t, s.SetStatus(job.ID, StatusProcessing, 100), ErrConflict)
}

func TestCancelOnlyNonTerminal(t *testing.T) {
	s := NewStore()

	pending, err := s.Create("user-1", TypeSummary, SummaryData{Text: "x"})
	require.NoError(t, err)
	require.NoError(t, s.Cancel(pending.ID))

	got, err := s.Get(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	// Cancelling again, or cancelling completed/failed jobs, is a conflict
	// and leaves the record unchanged.
	assert.ErrorIs(t, s.Cancel(pending.ID), ErrConflict)

	done, err := s.Create("user-1", TypeSummary, SummaryData{Text: "x"})
	require.NoError(t, err)
	require.NoError(t, s.SetResult(done.ID, SummaryResult{Summary: "s"}))
	assert.ErrorIs(t, s.Cancel(done.ID), ErrConflict)

	after, err := s.Get(done.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, after.Status)
	assert.NotNil(t, after.Result)
}

func TestCancelSignalsBoundContext(t *testing.T) {
	s := NewStore()
	job, err := s.Create("user-1", TypeSummary, SummaryData{Text: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.BindCancel(job.ID, cancel)

	require.NoError(t, s.Cancel(job.ID))

	select {
	case <-ctx.Done():
		assert.True(t, errors.Is(ctx.Err(), context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("worker context was not cancelled")
	}
}

func TestUpdatePatchesNonTerminalJobs(t *testing.T) {
	s := NewStore()
	job, err := s.Create("user-1", TypeSummary, SummaryData{Text: "x", ContentLength: 1})
	require.NoError(t, err)

	processing := StatusProcessing
	progress := 25
	require.NoError(t, s.Update(job.ID, Patch{Status: &processing, Progress: &progress}))

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 25, got.Progress)

	completed := StatusCompleted
	assert.ErrorIs(t, s.Update(job.ID, Patch{Status: &completed}), ErrConflict)

	require.NoError(t, s.SetResult(job.ID, SummaryResult{Summary: "s"}))
	assert.ErrorIs(t, s.Update(job.ID, Patch{Progress: &progress}), ErrConflict)
}

func TestConcurrentJobsEvolveIndependently(t *testing.T) {
	s := NewStore()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := s.Create("user-1", TypeExam, ExamData{QuestionCount: i + 1})
			require.NoError(t, err)
			ids[i] = job.ID
			for p := 10; p <= 90; p += 10 {
				require.NoError(t, s.SetStatus(job.ID, StatusProcessing, p))
			}
			require.NoError(t, s.SetResult(job.ID, ExamResult{}))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, id := range ids {
		require.False(t, seen[id], "duplicate job id")
		seen[id] = true

		job, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, job.Status)
		assert.Equal(t, 100, job.Progress)
		data, ok := job.Data.(ExamData)
		require.True(t, ok)
		assert.Equal(t, i+1, data.QuestionCount, "no cross-contamination between jobs")
	}
}

func TestByTypeAndStats(t *testing.T) {
	s := NewStore()

	up, err := s.Create("user-1", TypeFileUpload, UploadData{FileName: "a.pdf"})
	require.NoError(t, err)
	_, err = s.Create("user-1", TypeSummary, SummaryData{Text: "x"})
	require.NoError(t, err)
	require.NoError(t, s.SetResult(up.ID, UploadResult{Text: "t"}))

	uploads := s.ByType(TypeFileUpload)
	require.Len(t, uploads, 1)
	assert.Equal(t, up.ID, uploads[0].ID)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[StatusPending])
	assert.Equal(t, 1, stats.ByType[TypeFileUpload])
	assert.Equal(t, 1, stats.ByType[TypeSummary])
}

func TestCleanupRemovesOnlyOldTerminalJobs(t *testing.T) {
	s := NewStore()

	old, err := s.Create("user-1", TypeSummary, SummaryData{Text: "x"})
	require.NoError(t, err)
	require.NoError(t, s.SetResult(old.ID, SummaryResult{Summary: "s"}))

	running, err := s.Create("user-1", TypeSummary, SummaryData{Text: "y"})
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(running.ID, StatusProcessing, 10))

	// Backdate the completed job past the cutoff.
	s.mu.Lock()
	s.jobs[old.ID].UpdatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	removed := s.CleanupOlderThan(time.Hour)
	assert.Equal(t, 1, removed)

	_, err = s.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(running.ID)
	assert.NoError(t, err, "non-terminal jobs survive cleanup regardless of age")
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "provider timeout", "provider timeout"},
		{"multiline keeps first line", "boom\ngoroutine 12 [running]:\nmain.go:42", "boom"},
		{"empty becomes generic", "   ", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeError(tt.in))
		})
	}
}

func TestSanitizeErrorTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ü", maxErrorLen) // 2 bytes per rune, lands mid-rune at the cap

	got := sanitizeError(long)
	assert.LessOrEqual(t, len(got), maxErrorLen)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
}

func TestEstimateDurationScalesWithInput(t *testing.T) {
	small := EstimateDuration(TypeExam, 1024, 5)
	large := EstimateDuration(TypeExam, 200*1024, 30)
	assert.Less(t, small, large)
	assert.LessOrEqual(t, large, 5*time.Minute)
	assert.GreaterOrEqual(t, EstimateDuration(TypeFileUpload, 0, 0), time.Second)
}

func TestSummaryLengthModelRoundTrip(t *testing.T) {
	// Result payloads carry model types; spot-check the variant wiring.
	var r Result = MultiSummaryResult{
		Summaries: map[models.SummaryLength]string{models.SummaryShort: "s"},
	}
	mr, ok := r.(MultiSummaryResult)
	require.True(t, ok)
	assert.Equal(t, "s", mr.Summaries[models.SummaryShort])
}
