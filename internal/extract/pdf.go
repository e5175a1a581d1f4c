package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/raphaelgruber/studyforge/internal/models"
)

// fromPDF extracts plain text from a PDF file page by page. The context is
// checked between pages so a cancelled job stops without finishing the file.
func fromPDF(ctx context.Context, path string) (*Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	var sb strings.Builder

	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", pageIndex, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("%w: pdf contains no extractable text", ErrUnsupportedFormat)
	}

	return &Result{
		Text: text,
		Metadata: models.DocumentMetadata{
			WordsCount: wordCount(text),
			Pages:      totalPages,
			Format:     string(FormatPDF),
		},
	}, nil
}
