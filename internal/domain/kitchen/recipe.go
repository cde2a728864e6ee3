// Package kitchen contains the domain model of the smart kitchen page:
// the recipe value object, image data URIs, and the per-session state
// record together with the pure transitions that drive it.
package kitchen

import "strings"

// Recipe is a generated recipe suggestion. It is immutable once created
// and replaced wholesale on the next successful request.
type Recipe struct {
	Title   string `json:"title"`
	Content string `json:"content"` // markdown
}

// IsEmpty reports whether the provider returned neither a title nor content.
func (r Recipe) IsEmpty() bool {
	return strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Content) == ""
}

// DefaultExportName is used as the download name when no recipe title exists.
const DefaultExportName = "ai-recipe"

// ExportName returns the file name (without extension) used when saving
// the recipe's image.
func ExportName(r *Recipe) string {
	if r == nil {
		return DefaultExportName
	}
	name := sanitizeFileName(r.Title)
	if name == "" {
		return DefaultExportName
	}
	return name
}

func sanitizeFileName(s string) string {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(s) {
		switch {
		case ch == '/' || ch == '\\' || ch == ':' || ch == '*' || ch == '?' ||
			ch == '"' || ch == '<' || ch == '>' || ch == '|':
			b.WriteRune('-')
		case ch < 0x20 || ch == 0x7f:
			// drop control characters
		default:
			b.WriteRune(ch)
		}
	}
	name := strings.Trim(b.String(), ". ")
	if len([]rune(name)) > 120 {
		name = string([]rune(name)[:120])
	}
	return name
}
