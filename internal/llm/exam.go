package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/studyforge/internal/models"
)

// ExamOptions configures exam generation.
type ExamOptions struct {
	QuestionCount int
	Difficulty    string
	Language      string
	// OnlyType restricts the exam to a single question type.
	OnlyType models.QuestionType
}

// GenerateExam generates a structured exam for the given study material.
func (m *Model) GenerateExam(ctx context.Context, text string, opts ExamOptions) (models.Exam, models.Usage, error) {
	count := opts.QuestionCount
	if count <= 0 {
		count = 10
	}
	difficulty := opts.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	systemPrompt := `You are an exam author. Create exam questions strictly from the provided material.
Output a single JSON object, no prose and no code fences, with this shape:
{"title": string, "difficulty": string, "questions": [
  {"type": "mcq"|"open"|"true_false"|"fill_blank", "question": string,
   "options": [string] (mcq/true_false only), "answer": string, "explanation": string}
]}
For fill_blank questions, mark the blank in the question text with ____.`

	language := ""
	if opts.Language != "" {
		language = fmt.Sprintf(" Write the exam in %s.", opts.Language)
	}

	mix := "Mix question types."
	if opts.OnlyType != "" {
		mix = fmt.Sprintf("Every question must have type %q.", opts.OnlyType)
	}

	userPrompt := fmt.Sprintf(`Material:
%s

Create %d questions at %s difficulty. %s%s`, text, count, difficulty, mix, language)

	reply, usage, err := m.generateWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return models.Exam{}, usage, fmt.Errorf("generate exam: %w", err)
	}

	exam, err := parseExam(reply)
	if err != nil {
		return models.Exam{}, usage, fmt.Errorf("generate exam: %w", err)
	}
	if exam.Difficulty == "" {
		exam.Difficulty = difficulty
	}
	return exam, usage, nil
}

// QuestionOptions configures typed question generation.
type QuestionOptions struct {
	Types        []models.QuestionType
	CountPerType int
	Language     string
}

// GenerateQuestions generates question sets grouped by requested type.
func (m *Model) GenerateQuestions(ctx context.Context, text string, opts QuestionOptions) (map[models.QuestionType][]models.ExamQuestion, models.Usage, error) {
	count := opts.CountPerType
	if count <= 0 {
		count = 5
	}

	var total models.Usage
	sets := make(map[models.QuestionType][]models.ExamQuestion, len(opts.Types))

	for _, qt := range opts.Types {
		if !models.ValidQuestionType(qt) {
			return nil, total, fmt.Errorf("unsupported question type: %s", qt)
		}

		exam, usage, err := m.GenerateExam(ctx, text, ExamOptions{
			QuestionCount: count,
			Language:      opts.Language,
			OnlyType:      qt,
		})
		total.Add(usage)
		if err != nil {
			return nil, total, fmt.Errorf("questions of type %s: %w", qt, err)
		}

		questions := exam.Questions
		for i := range questions {
			questions[i].Type = qt
		}
		sets[qt] = questions
	}

	return sets, total, nil
}
