package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/llm"
	"github.com/raphaelgruber/studyforge/internal/metrics"
	"github.com/raphaelgruber/studyforge/internal/models"
)

func (p *Pipeline) runSummary(ctx context.Context, job jobs.Job) error {
	data, ok := job.Data.(jobs.SummaryData)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s job", job.Data, job.Type)
	}

	if err := p.checkpoint(ctx, job.ID, 10); err != nil {
		return err
	}

	length := data.Length
	if length == "" {
		length = models.SummaryMedium
	}

	summary, usage, err := p.summarize(ctx, data.Text, llm.SummaryOptions{
		Length:   length,
		Language: data.Language,
	})
	if err != nil {
		return err
	}

	if err := p.checkpoint(ctx, job.ID, 85); err != nil {
		return err
	}

	return p.complete(job, jobs.SummaryResult{
		Summary: summary,
		Length:  length,
		Usage:   usage,
	}, usage)
}

func (p *Pipeline) runMultiSummary(ctx context.Context, job jobs.Job) error {
	data, ok := job.Data.(jobs.MultiSummaryData)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s job", job.Data, job.Type)
	}

	if err := p.checkpoint(ctx, job.ID, 10); err != nil {
		return err
	}

	var total models.Usage
	summaries := make(map[models.SummaryLength]string, len(data.Lengths))
	for i, length := range data.Lengths {
		summary, usage, err := p.summarize(ctx, data.Text, llm.SummaryOptions{Length: length})
		total.Add(usage)
		if err != nil {
			return fmt.Errorf("%s summary: %w", length, err)
		}
		summaries[length] = summary

		progress := 10 + (i+1)*80/len(data.Lengths)
		if err := p.checkpoint(ctx, job.ID, progress); err != nil {
			return err
		}
	}

	return p.complete(job, jobs.MultiSummaryResult{
		Summaries: summaries,
		Usage:     total,
	}, total)
}

// summarize runs one generation call under the LLM deadline and records it.
func (p *Pipeline) summarize(ctx context.Context, text string, opts llm.SummaryOptions) (string, models.Usage, error) {
	start := time.Now()
	sctx, cancel := context.WithTimeout(ctx, p.llmTimeout)
	defer cancel()

	summary, usage, err := p.gen.Summarize(sctx, text, opts)
	if err != nil {
		return "", usage, err
	}
	p.metrics.RecordLLMUsage(metrics.OpSummarize, time.Since(start), usage.InputTokens, usage.OutputTokens)
	return summary, usage, nil
}
