package mime

import (
	"html"
	"regexp"
	"strings"
)

var (
	// Tags whose content is dropped entirely.
	droppedContentRe = regexp.MustCompile(`(?is)<(script|style|head)[^>]*>.*?</(script|style|head)>`)
	// Block-level tags become line breaks so stripped text stays readable.
	blockTagRe = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|ul|ol)[^>]*>`)
	anyTagRe   = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML converts an HTML body to readable plain text: scripts, styles
// and tags are removed, block elements become line breaks, entities are
// decoded, and whitespace is normalized. Used for previews only; exact
// formatting inside <pre> blocks is not preserved.
func StripHTML(rawHTML string) string {
	text := droppedContentRe.ReplaceAllString(rawHTML, "")
	text = blockTagRe.ReplaceAllString(text, "\n")
	text = anyTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")

	// Collapse runs of spaces per line, then runs of blank lines.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}

// Preview returns the best available plain-text rendering of the message
// body, preferring Text and falling back to stripped HTML.
func (m *Message) Preview() string {
	if m.Text != "" {
		return m.Text
	}
	if m.HTML != "" {
		return StripHTML(m.HTML)
	}
	return ""
}
