package extract

import (
	"regexp"
	"strings"

	"github.com/raphaelgruber/studyforge/internal/models"
	"gopkg.in/yaml.v3"
)

var h1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// FromMarkdown extracts content from a Markdown document. YAML frontmatter is
// stripped from the body; a title is taken from frontmatter or the first h1.
func FromMarkdown(content string) *Result {
	frontmatter := make(map[string]any)

	body := content
	if strings.HasPrefix(content, "---\n") {
		endIdx := strings.Index(content[4:], "\n---")
		if endIdx > 0 {
			frontmatterYAML := content[4 : 4+endIdx]
			body = strings.TrimPrefix(content[4+endIdx+4:], "\n")

			if err := yaml.Unmarshal([]byte(frontmatterYAML), &frontmatter); err != nil {
				// Malformed frontmatter is treated as absent.
				frontmatter = make(map[string]any)
			}
		}
	}

	body = strings.TrimSpace(body)
	return &Result{
		Text: body,
		Metadata: models.DocumentMetadata{
			WordsCount: wordCount(body),
			Title:      extractTitle(frontmatter, body),
			Format:     string(FormatMarkdown),
		},
	}
}

// extractTitle gets the title from frontmatter or the first h1.
func extractTitle(fm map[string]any, content string) string {
	if title, ok := fm["title"].(string); ok && title != "" {
		return title
	}
	if name, ok := fm["name"].(string); ok && name != "" {
		return name
	}

	if match := h1Regex.FindStringSubmatch(content); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}
