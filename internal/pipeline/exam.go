package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/llm"
	"github.com/raphaelgruber/studyforge/internal/metrics"
)

func (p *Pipeline) runExam(ctx context.Context, job jobs.Job) error {
	data, ok := job.Data.(jobs.ExamData)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s job", job.Data, job.Type)
	}

	if err := p.checkpoint(ctx, job.ID, 10); err != nil {
		return err
	}

	start := time.Now()
	ectx, cancel := context.WithTimeout(ctx, p.llmTimeout)
	exam, usage, err := p.gen.GenerateExam(ectx, data.Text, llm.ExamOptions{
		QuestionCount: data.QuestionCount,
		Difficulty:    data.Difficulty,
	})
	cancel()
	if err != nil {
		return err
	}
	p.metrics.RecordLLMUsage(metrics.OpExamGen, time.Since(start), usage.InputTokens, usage.OutputTokens)

	if err := p.checkpoint(ctx, job.ID, 85); err != nil {
		return err
	}

	return p.complete(job, jobs.ExamResult{
		Exam:  exam,
		Usage: usage,
	}, usage)
}

func (p *Pipeline) runQuestions(ctx context.Context, job jobs.Job) error {
	data, ok := job.Data.(jobs.QuestionsData)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s job", job.Data, job.Type)
	}

	if err := p.checkpoint(ctx, job.ID, 10); err != nil {
		return err
	}

	// One model call per requested type, so scale the deadline with the mix.
	budget := p.llmTimeout * time.Duration(max(1, len(data.Types)))
	start := time.Now()
	qctx, cancel := context.WithTimeout(ctx, budget)
	sets, usage, err := p.gen.GenerateQuestions(qctx, data.Text, llm.QuestionOptions{
		Types:        data.Types,
		CountPerType: data.CountPerType,
	})
	cancel()
	if err != nil {
		return err
	}
	p.metrics.RecordLLMUsage(metrics.OpQuestionGen, time.Since(start), usage.InputTokens, usage.OutputTokens)

	if err := p.checkpoint(ctx, job.ID, 85); err != nil {
		return err
	}

	return p.complete(job, jobs.QuestionsResult{
		Sets:  sets,
		Usage: usage,
	}, usage)
}
