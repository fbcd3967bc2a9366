package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/taxonomy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Classifier scores text against the keyword taxonomy of its language.
// It is stateless after construction and safe for concurrent use.
type Classifier struct {
	categories map[domain.Language][]compiledCategory
	urgency    map[domain.Language][]string
}

type compiledCategory struct {
	taxonomy.Category
	lowered []string
}

// NewClassifier prepares a classifier over tax. Keywords are normalized and
// lower-cased once, so they compare against text in the same form Classify
// receives from Normalize.
func NewClassifier(tax taxonomy.Taxonomy) *Classifier {
	c := &Classifier{
		categories: make(map[domain.Language][]compiledCategory, len(tax)),
		urgency:    make(map[domain.Language][]string, len(tax)),
	}
	for lang, lt := range tax {
		cats := make([]compiledCategory, len(lt.Categories))
		for i, cat := range lt.Categories {
			lowered := make([]string, len(cat.Keywords))
			for j, kw := range cat.Keywords {
				lowered[j] = lower(lang, Normalize(kw))
			}
			cats[i] = compiledCategory{Category: cat, lowered: lowered}
		}
		c.categories[lang] = cats

		urgency := make([]string, len(lt.UrgencyIndicators))
		for i, u := range lt.UrgencyIndicators {
			urgency[i] = lower(lang, u)
		}
		c.urgency[lang] = urgency
	}
	return c
}

// Classify matches text against every category of lang. It never fails:
// empty text or an unsupported language yields the unknown classification.
func (c *Classifier) Classify(text string, lang domain.Language) domain.Classification {
	lowered := lower(lang, text)
	result := domain.Classification{
		PrimaryThreat:      domain.UnknownThreat,
		RiskLevel:          domain.RiskLow,
		ResponseNeeded:     "monitoring",
		UrgencyDetected:    c.hasUrgency(lowered, lang),
		AllDetectedThreats: []string{},
		KeywordsFound:      []string{},
		Details:            []domain.CategoryDetail{},
	}

	var best *domain.CategoryDetail
	for _, cat := range c.categories[lang] {
		var matched []string
		for i, kw := range cat.lowered {
			if containsWord(lowered, kw) {
				matched = append(matched, cat.Keywords[i])
			}
		}
		if len(matched) == 0 {
			continue
		}

		detail := domain.CategoryDetail{
			Category:        cat.Name,
			RiskLevel:       cat.RiskLevel,
			Response:        cat.Response,
			MatchedKeywords: matched,
			Confidence:      min(1.0, float64(len(matched))/float64(len(cat.Keywords))*2),
		}
		result.Details = append(result.Details, detail)
		result.AllDetectedThreats = append(result.AllDetectedThreats, cat.Name)
		result.KeywordsFound = append(result.KeywordsFound, matched...)

		if best == nil || outranks(detail, *best) {
			d := detail
			best = &d
		}
	}

	if best != nil {
		result.PrimaryThreat = best.Category
		result.RiskLevel = best.RiskLevel
		result.ResponseNeeded = best.Response
		result.ConfidenceScore = best.Confidence
	}
	return result
}

// outranks orders details by confidence, then risk weight. Equal details keep
// the earlier category.
func outranks(a, b domain.CategoryDetail) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.RiskLevel.Weight() > b.RiskLevel.Weight()
}

func (c *Classifier) hasUrgency(lowered string, lang domain.Language) bool {
	for _, u := range c.urgency[lang] {
		if strings.Contains(lowered, u) {
			return true
		}
	}
	return false
}

// lower applies the language's case-mapping rules. A Caser holds state, so a
// fresh one is built per call.
func lower(lang domain.Language, s string) string {
	tag := language.Und
	switch lang {
	case domain.LanguageFrench:
		tag = language.French
	case domain.LanguageGerman:
		tag = language.German
	}
	return cases.Lower(tag).String(s)
}

// containsWord reports whether kw occurs in s delimited by word boundaries.
// Letters and digits of any script count as word runes, so "bombe" does not
// match inside "bombé" or "bombes".
func containsWord(s, kw string) bool {
	if kw == "" {
		return false
	}
	for offset := 0; offset <= len(s)-len(kw); {
		i := strings.Index(s[offset:], kw)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(kw)
		if isBoundary(s, start) && isBoundary(s, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return false
}

// isBoundary reports whether a word boundary sits at byte offset i of s.
func isBoundary(s string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		before = isWordRune(r)
	}
	if i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
