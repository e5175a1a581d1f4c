// Package extract turns uploaded content into plain text plus metadata.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/studyforge/internal/models"
)

// ErrUnsupportedFormat indicates the uploaded content cannot be extracted.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format identifies a supported input format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Result holds extracted text with its metadata.
type Result struct {
	Text     string
	Metadata models.DocumentMetadata
}

// DetectFormat resolves the input format from filename and declared type.
func DetectFormat(fileName, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".txt", "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}

	switch {
	case strings.Contains(contentType, "pdf"):
		return FormatPDF, nil
	case strings.Contains(contentType, "markdown"):
		return FormatMarkdown, nil
	case contentType == "" || strings.HasPrefix(contentType, "text/"):
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
}

// File extracts text and metadata from an uploaded file on disk.
func File(ctx context.Context, path, fileName, contentType string) (*Result, error) {
	format, err := DetectFormat(fileName, contentType)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatPDF:
		return fromPDF(ctx, path)
	case FormatMarkdown:
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return FromMarkdown(string(content)), nil
	default:
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return FromText(string(content)), nil
	}
}

// FromText wraps pasted plain text in an extraction result.
func FromText(content string) *Result {
	text := strings.TrimSpace(content)
	return &Result{
		Text: text,
		Metadata: models.DocumentMetadata{
			WordsCount: wordCount(text),
			Format:     string(FormatText),
		},
	}
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
