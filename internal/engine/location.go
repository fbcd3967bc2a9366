package engine

import (
	"regexp"
	"strings"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/taxonomy"
)

var (
	wordRe = regexp.MustCompile(`[\p{L}\p{N}_-]+`)

	// candidateRe matches capitalized words that look like proper nouns.
	candidateRe = regexp.MustCompile(`^[A-ZÉÈÎÄÖÜ][a-zéèêàäöüß-]{3,}$`)
)

// LocationExtractor finds gazetteer places and watched countries in post text.
// It is read-only after construction and safe for concurrent use.
type LocationExtractor struct {
	entries   map[domain.Language][]loweredEntry
	countries map[domain.Language][]loweredCountry
}

type loweredEntry struct {
	taxonomy.Entry
	lowered string
}

type loweredCountry struct {
	name      string
	code      string
	spellings []string
}

// NewLocationExtractor prepares an extractor over gaz.
func NewLocationExtractor(gaz taxonomy.Gazetteer) *LocationExtractor {
	x := &LocationExtractor{
		entries:   make(map[domain.Language][]loweredEntry, len(gaz)),
		countries: make(map[domain.Language][]loweredCountry, len(gaz)),
	}
	for lang, lg := range gaz {
		entries := make([]loweredEntry, len(lg.Locations))
		for i, e := range lg.Locations {
			entries[i] = loweredEntry{Entry: e, lowered: lower(lang, e.Name)}
		}
		x.entries[lang] = entries

		countries := make([]loweredCountry, len(lg.Countries))
		for i, c := range lg.Countries {
			spellings := c.Spellings()
			for j, s := range spellings {
				spellings[j] = lower(lang, s)
			}
			countries[i] = loweredCountry{name: c.Name, code: c.ISOCode(), spellings: spellings}
		}
		x.countries[lang] = countries
	}
	return x
}

// Extract returns every gazetteer entry whose name occurs in text
// (case-insensitive substring, duplicates kept, gazetteer order), followed by
// one synthesized country location per watched country that is mentioned by
// name or alias, or implied by a matched entry.
func (x *LocationExtractor) Extract(text string, lang domain.Language) []domain.Location {
	lowered := lower(lang, text)
	var found []domain.Location
	implied := make(map[string]bool)

	for _, e := range x.entries[lang] {
		if e.lowered != "" && strings.Contains(lowered, e.lowered) {
			found = append(found, e.Location())
			implied[e.Country] = true
		}
	}

	for _, c := range x.countries[lang] {
		if implied[c.name] || mentionsAny(lowered, c.spellings) {
			found = append(found, countryLocation(c))
		}
	}
	return found
}

// Hits returns the distinct gazetteer entry names found in text, in gazetteer order.
func (x *LocationExtractor) Hits(text string, lang domain.Language) []string {
	lowered := lower(lang, text)
	var names []string
	seen := make(map[string]bool)
	for _, e := range x.entries[lang] {
		if e.lowered != "" && !seen[e.Name] && strings.Contains(lowered, e.lowered) {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}

func mentionsAny(lowered string, spellings []string) bool {
	for _, s := range spellings {
		if s != "" && strings.Contains(lowered, s) {
			return true
		}
	}
	return false
}

func countryLocation(c loweredCountry) domain.Location {
	return domain.Location{
		Name:        c.name,
		Type:        "country",
		City:        "multiple",
		Country:     c.name,
		RiskLevel:   domain.RiskMedium,
		CountryCode: c.code,
	}
}

// CountryRisk is one location's contribution to a country's risk profile.
type CountryRisk struct {
	Location string           `json:"location"`
	Risk     domain.RiskLevel `json:"risk"`
	Type     string           `json:"type"`
}

// CountryRiskProfile groups locations by country, preserving input order.
func CountryRiskProfile(locations []domain.Location) map[string][]CountryRisk {
	profile := make(map[string][]CountryRisk)
	for _, loc := range locations {
		profile[loc.Country] = append(profile[loc.Country], CountryRisk{
			Location: loc.Name,
			Risk:     loc.RiskLevel,
			Type:     loc.Type,
		})
	}
	return profile
}

// CandidateTokens returns capitalized words of text that could name a place,
// in order of appearance, without duplicates. A hyphenated word that does not
// qualify as a whole contributes its qualifying parts, so "Saint-Denis"
// yields "Saint" and "Denis".
func CandidateTokens(text string) []string {
	var tokens []string
	seen := make(map[string]bool)
	add := func(w string) {
		if !candidateRe.MatchString(w) || seen[w] {
			return
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	for _, w := range wordRe.FindAllString(text, -1) {
		if candidateRe.MatchString(w) || !strings.Contains(w, "-") {
			add(w)
			continue
		}
		for _, part := range strings.Split(w, "-") {
			add(part)
		}
	}
	return tokens
}
