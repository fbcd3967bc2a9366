package domain

import (
	"context"
	"time"
)

// Language is an ISO 639-1 code for a supported post language.
type Language string

const (
	LanguageFrench Language = "fr"
	LanguageGerman Language = "de"
)

// SupportedLanguages lists the languages the taxonomy and gazetteer cover.
var SupportedLanguages = []Language{LanguageFrench, LanguageGerman}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == LanguageFrench || l == LanguageGerman
}

// Post is a single short social message as delivered by a collector.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Language  Language  `json:"language"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// RawEvent represents an unprocessed message from the source.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a gazetteer entry or a synthesized country mention found in a post.
type Location struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	RiskLevel   RiskLevel `json:"risk_level"`
	CountryCode string    `json:"country_code,omitempty"`

	// Geocoding enrichment fields.
	Geo              *Geo   `json:"geo,omitempty"`
	FormattedAddress string `json:"formatted_address,omitempty"`
	GeoSource        string `json:"geo_source,omitempty"` // "forward", "none", "failed"
}

// CategoryDetail describes one detected threat category.
type CategoryDetail struct {
	Category        string    `json:"category"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Response        string    `json:"response"`
	MatchedKeywords []string  `json:"matched_keywords"`
	Confidence      float64   `json:"confidence"`
}

// UnknownThreat is the primary threat reported when no category matched.
const UnknownThreat = "unknown"

// Classification is the keyword-scoring verdict for a single text.
type Classification struct {
	PrimaryThreat      string           `json:"primary_threat"`
	RiskLevel          RiskLevel        `json:"risk_level"`
	ResponseNeeded     string           `json:"response_needed"`
	UrgencyDetected    bool             `json:"urgency_detected"`
	AllDetectedThreats []string         `json:"all_detected_threats"`
	KeywordsFound      []string         `json:"keywords_found"`
	ConfidenceScore    float64          `json:"confidence_score"`
	Details            []CategoryDetail `json:"details"`
}

// IsThreat reports whether at least one category was detected.
func (c Classification) IsThreat() bool {
	return c.PrimaryThreat != UnknownThreat && c.PrimaryThreat != ""
}

// RankedThreat is a post that survived weak-signal filtering, with its score.
type RankedThreat struct {
	Post           Post           `json:"post"`
	CleanText      string         `json:"clean_text"`
	Classification Classification `json:"classification"`
	Locations      []Location     `json:"locations"`
	SignalScore    float64        `json:"signal_score"`
	Burst          bool           `json:"burst"`
	PriorityScore  int            `json:"priority_score"`
	ObservedAt     time.Time      `json:"observed_at"`
}

// ThreatSummary aggregates classifications over a set of threats.
type ThreatSummary struct {
	ThreatBreakdown      map[string]int `json:"threat_breakdown"`
	HighRiskCount        int            `json:"high_risk_count"`
	TotalThreatsDetected int            `json:"total_threats_detected"`
	HighRiskPosts        []RankedThreat `json:"high_risk_posts"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
