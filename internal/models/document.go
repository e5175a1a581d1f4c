// Package models defines data structures shared across the studyforge services.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Document represents a persisted document with its extracted text and
// any generated artifacts.
type Document struct {
	ID         surrealmodels.RecordID `json:"id"`
	UserID     string                 `json:"user_id"`
	Title      string                 `json:"title"`
	FileName   string                 `json:"file_name,omitempty"`
	SourceType string                 `json:"source_type"` // "upload" or "text"
	Text       string                 `json:"text"`
	Metadata   DocumentMetadata       `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// DocumentInput is the payload for creating a document.
type DocumentInput struct {
	UserID     string           `json:"user_id"`
	Title      string           `json:"title"`
	FileName   string           `json:"file_name,omitempty"`
	SourceType string           `json:"source_type"`
	Text       string           `json:"text"`
	Metadata   DocumentMetadata `json:"metadata"`
}

// DocumentMetadata describes extracted content.
type DocumentMetadata struct {
	WordsCount int    `json:"wordsCount"`
	Pages      int    `json:"pages,omitempty"`
	Title      string `json:"title,omitempty"`
	Format     string `json:"format"` // "pdf", "markdown", "text"
	Language   string `json:"language,omitempty"`
	Subject    string `json:"subject,omitempty"`
}
