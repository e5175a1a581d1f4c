package models

// SummaryLength selects the target size of a generated summary.
type SummaryLength string

const (
	SummaryShort  SummaryLength = "short"
	SummaryMedium SummaryLength = "medium"
	SummaryLong   SummaryLength = "long"
)

// QuestionType identifies the style of a generated question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "mcq"
	QuestionOpen           QuestionType = "open"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionFillBlank      QuestionType = "fill_blank"
)

// ValidQuestionType reports whether t is a supported question type.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionMultipleChoice, QuestionOpen, QuestionTrueFalse, QuestionFillBlank:
		return true
	}
	return false
}

// ExamQuestion is a single generated question with its answer.
type ExamQuestion struct {
	Type        QuestionType `json:"type"`
	Question    string       `json:"question"`
	Options     []string     `json:"options,omitempty"` // mcq/true_false only
	Answer      string       `json:"answer"`
	Explanation string       `json:"explanation,omitempty"`
}

// Exam is a generated exam.
type Exam struct {
	Title      string         `json:"title"`
	Difficulty string         `json:"difficulty"`
	Questions  []ExamQuestion `json:"questions"`
}

// ContentAnalysis holds the result of the language/subject analysis stage.
type ContentAnalysis struct {
	Language string `json:"language"`
	Subject  string `json:"subject,omitempty"`
}

// Usage counts tokens consumed by LLM calls, for cost reporting.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add accumulates another usage into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
