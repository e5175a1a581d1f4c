// Package pipeline runs the detached background workers that advance jobs
// from pending to a terminal state.
package pipeline

import (
	"context"
	"time"

	"github.com/raphaelgruber/studyforge/internal/hub"
	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/llm"
	"github.com/raphaelgruber/studyforge/internal/metrics"
	"github.com/raphaelgruber/studyforge/internal/models"
)

// Generator is the generation provider boundary consumed by workers.
// *llm.Model implements it; tests substitute a fake.
type Generator interface {
	Summarize(ctx context.Context, text string, opts llm.SummaryOptions) (string, models.Usage, error)
	Analyze(ctx context.Context, text string) (models.ContentAnalysis, models.Usage, error)
	GenerateExam(ctx context.Context, text string, opts llm.ExamOptions) (models.Exam, models.Usage, error)
	GenerateQuestions(ctx context.Context, text string, opts llm.QuestionOptions) (map[models.QuestionType][]models.ExamQuestion, models.Usage, error)
}

// DocumentStore persists completed upload artifacts.
// *db.Client implements it; a nil store disables persistence.
type DocumentStore interface {
	CreateDocument(ctx context.Context, input models.DocumentInput) (*models.Document, error)
}

// Options configures optional pipeline collaborators.
type Options struct {
	Docs     DocumentStore
	Notifier hub.Notifier
	Metrics  *metrics.Collector

	// Deadlines for external collaborator calls. A call that exceeds its
	// deadline fails the job instead of leaving it stuck in processing.
	LLMTimeout     time.Duration
	ExtractTimeout time.Duration
}

// Pipeline dispatches background workers over the job store.
type Pipeline struct {
	store          *jobs.Store
	gen            Generator
	docs           DocumentStore
	notifier       hub.Notifier
	metrics        *metrics.Collector
	llmTimeout     time.Duration
	extractTimeout time.Duration
}

// New creates a pipeline over the given store and generator.
func New(store *jobs.Store, gen Generator, opts Options) *Pipeline {
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = 120 * time.Second
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}
	return &Pipeline{
		store:          store,
		gen:            gen,
		docs:           opts.Docs,
		notifier:       opts.Notifier,
		metrics:        opts.Metrics,
		llmTimeout:     opts.LLMTimeout,
		extractTimeout: opts.ExtractTimeout,
	}
}

// Metrics exposes the collector for the stats endpoint.
func (p *Pipeline) Metrics() *metrics.Collector {
	return p.metrics
}
