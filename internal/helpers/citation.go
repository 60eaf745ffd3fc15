package helpers

import "strings"

// Citation is one rendered recommendation line.
type Citation struct {
	Label   string
	Title   string
	Snippet string
	Meta    string
	URL     string
}

// FormatCitation renders a citation in a single line:
// [label] Title — "Snippet" (meta) <URL>
func FormatCitation(c Citation) string {
	var parts []string
	if label := strings.TrimSpace(c.Label); label != "" {
		parts = append(parts, "["+label+"]")
	}
	if title := strings.TrimSpace(c.Title); title != "" {
		parts = append(parts, title)
	}
	if snippet := strings.TrimSpace(c.Snippet); snippet != "" {
		parts = append(parts, `— "`+snippet+`"`)
	}
	meta := strings.TrimSpace(c.Meta)
	if meta == "" {
		meta = SiteLabel(c.URL)
	}
	if meta != "" {
		parts = append(parts, "("+meta+")")
	}
	if link := strings.TrimSpace(c.URL); link != "" {
		parts = append(parts, "<"+link+">")
	}
	return strings.Join(parts, " ")
}
