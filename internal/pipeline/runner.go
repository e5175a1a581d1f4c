package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/studyforge/internal/hub"
	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/models"
)

// Start launches the worker for a freshly created job and returns immediately.
// The worker context is bound to the store so a cancel request interrupts
// in-flight collaborator calls.
func (p *Pipeline) Start(job jobs.Job) {
	ctx, cancel := context.WithCancel(context.Background())
	p.store.BindCancel(job.ID, cancel)

	go func() {
		defer cancel()
		defer p.store.ReleaseCancel(job.ID)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("worker panicked", "job_id", job.ID, "type", job.Type, "panic", r)
				if err := p.store.Fail(job.ID, fmt.Sprintf("internal error: %v", r)); err == nil {
					p.pushFailure(job)
				}
			}
		}()

		err := p.run(ctx, job)
		if err == nil {
			return
		}
		if fresh, gerr := p.store.Get(job.ID); gerr == nil && fresh.Status.Terminal() {
			// Cancelled (or otherwise finalized) while the worker was
			// running. Nothing left to record.
			slog.Info("worker stopped", "job_id", job.ID, "type", job.Type, "reason", err)
			return
		}
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "generation timed out"
		}
		slog.Error("job failed", "job_id", job.ID, "type", job.Type, "error", err)
		if ferr := p.store.Fail(job.ID, msg); ferr == nil {
			p.pushFailure(job)
		}
	}()
}

func (p *Pipeline) run(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobs.TypeFileUpload:
		return p.runUpload(ctx, job)
	case jobs.TypeSummary:
		return p.runSummary(ctx, job)
	case jobs.TypeMultiSummary:
		return p.runMultiSummary(ctx, job)
	case jobs.TypeExam:
		return p.runExam(ctx, job)
	case jobs.TypeQuestions:
		return p.runQuestions(ctx, job)
	default:
		return fmt.Errorf("%w: %s", jobs.ErrInvalidType, job.Type)
	}
}

// checkpoint advances progress while the job is still live. A cancelled job
// surfaces as a store conflict, which aborts the worker.
func (p *Pipeline) checkpoint(ctx context.Context, jobID string, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.store.SetStatus(jobID, jobs.StatusProcessing, progress)
}

// complete finalizes the job and pushes the success event.
func (p *Pipeline) complete(job jobs.Job, result jobs.Result, usage models.Usage) error {
	if err := p.store.SetResult(job.ID, result); err != nil {
		return err
	}
	readyEvent, _ := jobEvents(job.Type)
	p.push(job, readyEvent, hub.Payload{
		Type:       readyEvent,
		TargetID:   job.ID,
		Name:       displayName(job),
		Usage:      usageRef(usage),
		ActionURL:  "/jobs/" + job.ID,
		ActionText: actionText(job.Type),
	})
	return nil
}

func (p *Pipeline) pushFailure(job jobs.Job) {
	_, failedEvent := jobEvents(job.Type)
	errText := ""
	if fresh, err := p.store.Get(job.ID); err == nil {
		errText = fresh.Error
	}
	p.push(job, failedEvent, hub.Payload{
		Type:     failedEvent,
		TargetID: job.ID,
		Name:     displayName(job),
		Error:    errText,
	})
}

func (p *Pipeline) push(job jobs.Job, event string, payload hub.Payload) {
	if p.notifier == nil || job.UserID == "" {
		return
	}
	p.notifier.SendToUser(job.UserID, event, payload)
}

func jobEvents(t jobs.Type) (ready, failed string) {
	switch t {
	case jobs.TypeFileUpload:
		return hub.EventDocumentReady, hub.EventDocumentFailed
	case jobs.TypeSummary, jobs.TypeMultiSummary:
		return hub.EventSummaryReady, hub.EventSummaryFailed
	case jobs.TypeExam:
		return hub.EventExamReady, hub.EventExamFailed
	default:
		return hub.EventQuestionsReady, hub.EventQuestionsFailed
	}
}

func displayName(job jobs.Job) string {
	switch data := job.Data.(type) {
	case jobs.UploadData:
		if data.FileName != "" {
			return data.FileName
		}
		return "Pasted text"
	case jobs.SummaryData:
		return "Summary"
	case jobs.MultiSummaryData:
		return "Summaries"
	case jobs.ExamData:
		return "Exam"
	case jobs.QuestionsData:
		return "Practice questions"
	default:
		return string(job.Type)
	}
}

func actionText(t jobs.Type) string {
	switch t {
	case jobs.TypeFileUpload:
		return "Open document"
	case jobs.TypeSummary, jobs.TypeMultiSummary:
		return "View summary"
	case jobs.TypeExam:
		return "Take exam"
	default:
		return "View questions"
	}
}

func usageRef(u models.Usage) *models.Usage {
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return nil
	}
	return &u
}
