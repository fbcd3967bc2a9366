package engine

import (
	"regexp"
	"strings"
)

var (
	urlRe     = regexp.MustCompile(`http\S+`)
	mentionRe = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

	// spaceRe matches Unicode separators such as U+00A0 and U+202F, which
	// RE2's \s does not cover.
	spaceRe = regexp.MustCompile(`\p{Z}`)

	// punctRe keeps letters, digits, underscore, whitespace and the two
	// sentence marks that carry signal ("!" and "?").
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s!?]`)
)

// Normalize strips URLs, @mentions, #hashtags and punctuation from raw post
// text and trims surrounding whitespace. Case is preserved.
//
// The URL pass runs again after punctuation removal so that fragments such as
// "ht.tp…" cannot surface as a new URL; this keeps Normalize idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := urlRe.ReplaceAllString(raw, "")
	s = mentionRe.ReplaceAllString(s, "")
	s = hashtagRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, "")
	s = urlRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
