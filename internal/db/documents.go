package db

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/studyforge/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateDocument persists a document and returns the stored record.
func (c *Client) CreateDocument(ctx context.Context, input models.DocumentInput) (*models.Document, error) {
	now := time.Now()
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		CREATE document CONTENT {
			user_id: $user_id,
			title: $title,
			file_name: $file_name,
			source_type: $source_type,
			text: $text,
			metadata: $metadata,
			created_at: $now,
			updated_at: $now
		}
	`, map[string]any{
		"user_id":     input.UserID,
		"title":       input.Title,
		"file_name":   input.FileName,
		"source_type": input.SourceType,
		"text":        input.Text,
		"metadata":    input.Metadata,
		"now":         now,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create document: empty result")
	}
	doc := (*results)[0].Result[0]
	return &doc, nil
}

// GetDocument retrieves a document by id, scoped to its owning user.
func (c *Client) GetDocument(ctx context.Context, userID, id string) (*models.Document, error) {
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT * FROM type::record("document", $id) WHERE user_id = $user_id
	`, map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	doc := (*results)[0].Result[0]
	return &doc, nil
}

// ListDocuments returns a user's documents, newest first, without text bodies.
func (c *Client) ListDocuments(ctx context.Context, userID string, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT id, user_id, title, file_name, source_type, metadata, created_at, updated_at
		FROM document WHERE user_id = $user_id
		ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Document{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteDocument removes a document owned by the user.
func (c *Client) DeleteDocument(ctx context.Context, userID, id string) error {
	// Ownership check first so a foreign id reports not-found, not success.
	if _, err := c.GetDocument(ctx, userID, id); err != nil {
		return err
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("document", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete document: %w", wrapQueryError(err))
	}
	return nil
}
