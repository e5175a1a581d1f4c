package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raphaelgruber/studyforge/internal/models"
)

// parseExam decodes a model reply into an Exam. Models occasionally wrap JSON
// in code fences or surrounding prose despite instructions, so the first JSON
// object in the reply is located before decoding.
func parseExam(reply string) (models.Exam, error) {
	raw := extractJSONObject(reply)
	if raw == "" {
		return models.Exam{}, fmt.Errorf("no JSON object in model reply")
	}

	var exam models.Exam
	if err := json.Unmarshal([]byte(raw), &exam); err != nil {
		return models.Exam{}, fmt.Errorf("decode exam: %w", err)
	}
	if len(exam.Questions) == 0 {
		return models.Exam{}, fmt.Errorf("exam contains no questions")
	}
	return exam, nil
}

// extractJSONObject returns the first balanced top-level JSON object in s.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// parseAnalysis reads the LANGUAGE/SUBJECT reply of the analysis prompt.
// Unparseable replies yield an empty analysis rather than an error.
func parseAnalysis(reply string) models.ContentAnalysis {
	var analysis models.ContentAnalysis
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "LANGUAGE:"); ok {
			analysis.Language = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "SUBJECT:"); ok {
			analysis.Subject = strings.TrimSpace(v)
		}
	}
	return analysis
}
