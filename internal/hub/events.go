package hub

import "github.com/raphaelgruber/studyforge/internal/models"

// Event names pushed to clients on job and document lifecycle changes.
const (
	EventDocumentReady   = "document_ready"
	EventDocumentFailed  = "document_failed"
	EventSummaryReady    = "summary_ready"
	EventSummaryFailed   = "summary_failed"
	EventExamReady       = "exam_ready"
	EventExamFailed      = "exam_failed"
	EventQuestionsReady  = "questions_ready"
	EventQuestionsFailed = "questions_failed"
)

// Payload is the JSON body delivered with every push event.
type Payload struct {
	Type       string        `json:"type"`
	TargetID   string        `json:"targetId"`
	Name       string        `json:"name"`
	Error      string        `json:"error,omitempty"`
	Usage      *models.Usage `json:"usage,omitempty"`
	ActionURL  string        `json:"actionUrl,omitempty"`
	ActionText string        `json:"actionText,omitempty"`
}

// Notifier delivers best-effort push events to a user's live connections.
// Events are never queued or replayed: a user with no open connections
// receives nothing, and reconciles through the status API.
type Notifier interface {
	SendToUser(userID, event string, payload Payload)
}
