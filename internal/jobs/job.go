// Package jobs provides the in-memory registry for background processing jobs.
//
// Jobs live only in process memory: a restart loses all job state. Clients
// are expected to reconcile through the status API after a gap.
package jobs

import (
	"time"

	"github.com/raphaelgruber/studyforge/internal/models"
)

// Type discriminates the job families the pipeline can run.
type Type string

const (
	TypeFileUpload   Type = "file_upload"
	TypeSummary      Type = "summary_generation"
	TypeMultiSummary Type = "multiple_summaries"
	TypeExam         Type = "exam_generation"
	TypeQuestions    Type = "question_type_generation"
)

// ValidType reports whether t is a known job type.
func ValidType(t Type) bool {
	switch t {
	case TypeFileUpload, TypeSummary, TypeMultiSummary, TypeExam, TypeQuestions:
		return true
	}
	return false
}

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Data is the type-specific input snapshot captured at job creation.
type Data interface {
	// SourceJob returns the upstream job id whose completed result this
	// job consumes, or "" for standalone jobs.
	SourceJob() string
}

// Result is the type-specific output payload of a completed job.
type Result interface {
	isJobResult()
}

// Job is a trackable unit of asynchronous background work.
type Job struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	UserID    string    `json:"-"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Data      Data      `json:"data,omitempty"`
	Result    Result    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UploadData is the input snapshot for a file_upload job.
type UploadData struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes"`
	// TempPath is the server-local spool file; never exposed to clients.
	TempPath string `json:"-"`
	// RawText is set instead of TempPath for pasted-text submissions.
	RawText string `json:"-"`
}

func (UploadData) SourceJob() string { return "" }

// SummaryData is the input snapshot for a summary_generation job.
type SummaryData struct {
	Text          string               `json:"-"`
	SourceJobID   string               `json:"sourceJobId,omitempty"`
	ContentLength int                  `json:"contentLength"`
	Length        models.SummaryLength `json:"length,omitempty"`
	Language      string               `json:"language,omitempty"`
}

func (d SummaryData) SourceJob() string { return d.SourceJobID }

// MultiSummaryData is the input snapshot for a multiple_summaries job.
type MultiSummaryData struct {
	Text          string                 `json:"-"`
	SourceJobID   string                 `json:"sourceJobId,omitempty"`
	ContentLength int                    `json:"contentLength"`
	Lengths       []models.SummaryLength `json:"lengths"`
}

func (d MultiSummaryData) SourceJob() string { return d.SourceJobID }

// ExamData is the input snapshot for an exam_generation job.
type ExamData struct {
	Text          string `json:"-"`
	SourceJobID   string `json:"sourceJobId,omitempty"`
	ContentLength int    `json:"contentLength"`
	QuestionCount int    `json:"questionCount"`
	Difficulty    string `json:"difficulty,omitempty"`
}

func (d ExamData) SourceJob() string { return d.SourceJobID }

// QuestionsData is the input snapshot for a question_type_generation job.
type QuestionsData struct {
	Text          string                `json:"-"`
	SourceJobID   string                `json:"sourceJobId,omitempty"`
	ContentLength int                   `json:"contentLength"`
	Types         []models.QuestionType `json:"types"`
	CountPerType  int                   `json:"countPerType"`
}

func (d QuestionsData) SourceJob() string { return d.SourceJobID }

// UploadResult is the output of a completed file_upload job.
type UploadResult struct {
	DocumentID string                  `json:"documentId,omitempty"`
	Text       string                  `json:"text"`
	Metadata   models.DocumentMetadata `json:"metadata"`
	Analysis   *models.ContentAnalysis `json:"analysis,omitempty"`
}

func (UploadResult) isJobResult() {}

// SummaryResult is the output of a completed summary_generation job.
type SummaryResult struct {
	Summary string               `json:"summary"`
	Length  models.SummaryLength `json:"length"`
	Usage   models.Usage         `json:"usage"`
}

func (SummaryResult) isJobResult() {}

// MultiSummaryResult is the output of a completed multiple_summaries job.
type MultiSummaryResult struct {
	Summaries map[models.SummaryLength]string `json:"summaries"`
	Usage     models.Usage                    `json:"usage"`
}

func (MultiSummaryResult) isJobResult() {}

// ExamResult is the output of a completed exam_generation job.
type ExamResult struct {
	Exam  models.Exam  `json:"exam"`
	Usage models.Usage `json:"usage"`
}

func (ExamResult) isJobResult() {}

// QuestionsResult is the output of a completed question_type_generation job.
type QuestionsResult struct {
	Sets  map[models.QuestionType][]models.ExamQuestion `json:"sets"`
	Usage models.Usage                                  `json:"usage"`
}

func (QuestionsResult) isJobResult() {}
