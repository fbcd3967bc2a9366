package collector

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	paragraphRe  = regexp.MustCompile(`(?i)</p>|<br\s*/?>`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)
)

// stripHTML removes markup from status content and unescapes entities.
// Paragraph and line breaks become spaces so adjacent words do not merge.
func stripHTML(s string) string {
	s = paragraphRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
