package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/biter777/countries"
	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/gazetteer.yaml
var defaultGazetteerYAML []byte

// Entry is one named high-risk place.
type Entry struct {
	Name      string           `yaml:"name"`
	Type      string           `yaml:"type"`
	City      string           `yaml:"city"`
	Country   string           `yaml:"country"`
	RiskLevel domain.RiskLevel `yaml:"risk_level"`
}

// Location converts the entry to its domain form, verbatim.
func (e Entry) Location() domain.Location {
	return domain.Location{
		Name:      e.Name,
		Type:      e.Type,
		City:      e.City,
		Country:   e.Country,
		RiskLevel: e.RiskLevel,
	}
}

// Country is a watched country with the local spellings that also count as a mention.
type Country struct {
	Name    string   `yaml:"name"`
	Code    string   `yaml:"code"`
	Aliases []string `yaml:"aliases"`
}

// Spellings returns the canonical name followed by its aliases.
func (c Country) Spellings() []string {
	return append([]string{c.Name}, c.Aliases...)
}

// ISOCode resolves the ISO 3166-1 alpha-2 code, preferring the explicit code.
// Returns "" when neither the code nor the name is recognized.
func (c Country) ISOCode() string {
	for _, s := range []string{c.Code, c.Name} {
		if s == "" {
			continue
		}
		if cc := countries.ByName(s); cc != countries.Unknown {
			return cc.Alpha2()
		}
	}
	return ""
}

// LanguageGazetteer holds the watched countries and named places for one language.
type LanguageGazetteer struct {
	Countries []Country `yaml:"countries"`
	Locations []Entry   `yaml:"locations"`
}

// Gazetteer maps each supported language to its gazetteer.
type Gazetteer map[domain.Language]LanguageGazetteer

// Locations returns the named places for lang in file order.
func (g Gazetteer) Locations(lang domain.Language) []Entry {
	return g[lang].Locations
}

// Countries returns the watched countries for lang in file order.
func (g Gazetteer) Countries(lang domain.Language) []Country {
	return g[lang].Countries
}

// DefaultGazetteer returns the built-in French/German gazetteer.
func DefaultGazetteer() Gazetteer {
	g, err := ParseGazetteer(defaultGazetteerYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded gazetteer: %v", err))
	}
	return g
}

// LoadGazetteer reads a gazetteer YAML file.
func LoadGazetteer(path string) (Gazetteer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	return ParseGazetteer(b)
}

// ParseGazetteer decodes and validates gazetteer YAML.
func ParseGazetteer(data []byte) (Gazetteer, error) {
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g Gazetteer) validate() error {
	if len(g) == 0 {
		return errors.New("gazetteer: no languages defined")
	}
	for lang, lg := range g {
		if !lang.Valid() {
			return fmt.Errorf("gazetteer: unsupported language %q", lang)
		}
		for i, e := range lg.Locations {
			if e.Name == "" {
				return fmt.Errorf("gazetteer %s: location %d has no name", lang, i)
			}
			if !e.RiskLevel.Valid() {
				return fmt.Errorf("gazetteer %s/%s: invalid risk level %q", lang, e.Name, e.RiskLevel)
			}
		}
		for i, c := range lg.Countries {
			if c.Name == "" {
				return fmt.Errorf("gazetteer %s: country %d has no name", lang, i)
			}
		}
	}
	return nil
}
