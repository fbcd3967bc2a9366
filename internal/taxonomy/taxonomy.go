// Package taxonomy loads the per-language threat keyword taxonomy and the
// high-risk location gazetteer.
//
// Both ship as embedded YAML and can be replaced at startup with a file of
// the same shape (see [LoadTaxonomy], [LoadGazetteer]). Loaded values are
// read-only and safe to share between goroutines.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/taxonomy.yaml
var defaultTaxonomyYAML []byte

// Category is one named threat class with its trigger keywords.
type Category struct {
	Name      string           `yaml:"name"`
	RiskLevel domain.RiskLevel `yaml:"risk_level"`
	Response  string           `yaml:"response"`
	Keywords  []string         `yaml:"keywords"`
}

// LanguageTaxonomy holds the ordered categories and urgency words of one language.
type LanguageTaxonomy struct {
	UrgencyIndicators []string   `yaml:"urgency_indicators"`
	Categories        []Category `yaml:"categories"`
}

// Taxonomy maps each supported language to its keyword taxonomy.
type Taxonomy map[domain.Language]LanguageTaxonomy

// Categories returns the categories for lang in taxonomy order, or nil.
func (t Taxonomy) Categories(lang domain.Language) []Category {
	return t[lang].Categories
}

// UrgencyIndicators returns the urgency words for lang, or nil.
func (t Taxonomy) UrgencyIndicators(lang domain.Language) []string {
	return t[lang].UrgencyIndicators
}

// DefaultTaxonomy returns the built-in French/German taxonomy.
func DefaultTaxonomy() Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy: %v", err))
	}
	return t
}

// LoadTaxonomy reads a taxonomy YAML file.
func LoadTaxonomy(path string) (Taxonomy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return ParseTaxonomy(b)
}

// ParseTaxonomy decodes and validates taxonomy YAML.
func ParseTaxonomy(data []byte) (Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t Taxonomy) validate() error {
	if len(t) == 0 {
		return errors.New("taxonomy: no languages defined")
	}
	for lang, lt := range t {
		if !lang.Valid() {
			return fmt.Errorf("taxonomy: unsupported language %q", lang)
		}
		seen := make(map[string]bool, len(lt.Categories))
		for i, c := range lt.Categories {
			if c.Name == "" {
				return fmt.Errorf("taxonomy %s: category %d has no name", lang, i)
			}
			if seen[c.Name] {
				return fmt.Errorf("taxonomy %s: duplicate category %q", lang, c.Name)
			}
			seen[c.Name] = true
			if !c.RiskLevel.Valid() {
				return fmt.Errorf("taxonomy %s/%s: invalid risk level %q", lang, c.Name, c.RiskLevel)
			}
			if len(c.Keywords) == 0 {
				return fmt.Errorf("taxonomy %s/%s: no keywords", lang, c.Name)
			}
		}
	}
	return nil
}
