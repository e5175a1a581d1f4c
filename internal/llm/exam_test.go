package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/raphaelgruber/studyforge/internal/models"
)

// scriptedModel replays canned replies and records the prompts it was given.
type scriptedModel struct {
	replies []string
	calls   int
	systems []string
	humans  []string
}

func (s *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		var text strings.Builder
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				text.WriteString(tc.Text)
			}
		}
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			s.systems = append(s.systems, text.String())
		case llms.ChatMessageTypeHuman:
			s.humans = append(s.humans, text.String())
		}
	}

	reply := s.replies[s.calls%len(s.replies)]
	s.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (s *scriptedModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	reply := s.replies[s.calls%len(s.replies)]
	s.calls++
	return reply, nil
}

func TestGenerateExamPromptCoversAllQuestionTypes(t *testing.T) {
	scripted := &scriptedModel{replies: []string{
		`{"title": "Quiz", "difficulty": "medium", "questions": [
		  {"type": "fill_blank", "question": "The ____ produces ATP.", "answer": "mitochondria"}
		]}`,
	}}
	m := &Model{llm: scripted, modelName: "scripted"}

	exam, _, err := m.GenerateExam(context.Background(), "cell biology notes", ExamOptions{QuestionCount: 1})
	require.NoError(t, err)
	require.Len(t, exam.Questions, 1)
	assert.Equal(t, models.QuestionFillBlank, exam.Questions[0].Type)

	require.Len(t, scripted.systems, 1)
	for _, qt := range []string{"mcq", "open", "true_false", "fill_blank"} {
		assert.Contains(t, scripted.systems[0], qt)
	}
}

func TestGenerateQuestionsGroupsByType(t *testing.T) {
	scripted := &scriptedModel{replies: []string{
		`{"title": "Quiz", "questions": [
		  {"type": "open", "question": "first", "answer": "a"},
		  {"type": "open", "question": "second", "answer": "b"}
		]}`,
	}}
	m := &Model{llm: scripted, modelName: "scripted"}

	types := []models.QuestionType{models.QuestionMultipleChoice, models.QuestionFillBlank}
	sets, usage, err := m.GenerateQuestions(context.Background(), "notes", QuestionOptions{
		Types:        types,
		CountPerType: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, len(types), scripted.calls)
	assert.Positive(t, usage.InputTokens)

	require.Len(t, sets, len(types))
	for _, qt := range types {
		require.Len(t, sets[qt], 2, "questions for %s", qt)
		for _, q := range sets[qt] {
			assert.Equal(t, qt, q.Type)
		}
	}

	// Each call restricts the exam to the requested type.
	require.Len(t, scripted.humans, 2)
	assert.Contains(t, scripted.humans[0], `"mcq"`)
	assert.Contains(t, scripted.humans[1], `"fill_blank"`)
}

func TestGenerateQuestionsRejectsUnknownType(t *testing.T) {
	m := &Model{llm: &scriptedModel{replies: []string{"{}"}}, modelName: "scripted"}

	_, _, err := m.GenerateQuestions(context.Background(), "notes", QuestionOptions{
		Types: []models.QuestionType{"essay"},
	})
	assert.Error(t, err)
}
