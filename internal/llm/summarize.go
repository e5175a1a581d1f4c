package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/studyforge/internal/models"
)

// SummaryOptions configures summary generation.
type SummaryOptions struct {
	Length   models.SummaryLength
	Language string
}

// summaryLengthHint maps target lengths to prompt constraints.
func summaryLengthHint(length models.SummaryLength) string {
	switch length {
	case models.SummaryShort:
		return "Write at most 3 sentences."
	case models.SummaryLong:
		return "Write a thorough summary of 4-6 paragraphs covering every major topic."
	default:
		return "Write 1-2 concise paragraphs."
	}
}

// Summarize generates a summary of the given study material.
func (m *Model) Summarize(ctx context.Context, text string, opts SummaryOptions) (string, models.Usage, error) {
	systemPrompt := `You are a study assistant. Summarize the provided course material faithfully.
Do not invent facts that are not in the material. Keep terminology from the source.`

	language := ""
	if opts.Language != "" {
		language = fmt.Sprintf("\nAnswer in %s.", opts.Language)
	}

	userPrompt := fmt.Sprintf(`Material:
%s

%s%s

Summary:`, text, summaryLengthHint(opts.Length), language)

	summary, usage, err := m.generateWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", usage, fmt.Errorf("summarize: %w", err)
	}
	return summary, usage, nil
}

// Analyze detects the language and subject of study material. The analysis
// feeds later generation prompts; failures here are not fatal to a pipeline.
func (m *Model) Analyze(ctx context.Context, text string) (models.ContentAnalysis, models.Usage, error) {
	systemPrompt := `You identify the language and academic subject of course material.
Reply with exactly two lines:
LANGUAGE: <ISO language name>
SUBJECT: <short subject, e.g. "organic chemistry">`

	sample := text
	if len(sample) > 2000 {
		sample = sample[:2000]
	}

	reply, usage, err := m.generateWithSystem(ctx, systemPrompt, sample)
	if err != nil {
		return models.ContentAnalysis{}, usage, fmt.Errorf("analyze: %w", err)
	}
	return parseAnalysis(reply), usage, nil
}
