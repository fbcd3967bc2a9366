// Command validate runs a labelled post fixture through the threat engine and
// checks classification, location extraction, weak-signal filtering and
// ranking against the expected labels.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/fixtures/labelled_posts.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/engine"
	"github.com/couchcryptid/threat-signal-etl/internal/taxonomy"
	"github.com/jonboulle/clockwork"
)

var baseTime = time.Date(2024, time.July, 14, 22, 0, 0, 0, time.UTC)

// labelledPost is one fixture case.
type labelledPost struct {
	Post   domain.Post `json:"post"`
	Expect expectation `json:"expect"`
}

type expectation struct {
	PrimaryThreat string           `json:"primary_threat"`
	RiskLevel     domain.RiskLevel `json:"risk_level"`
	Urgent        bool             `json:"urgent"`
	Kept          bool             `json:"kept"`
	// Locations is only checked when present in the fixture.
	Locations []string `json:"locations"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "data/fixtures/labelled_posts.json", "path to the labelled post fixture")
	taxonomyFile := flag.String("taxonomy", "", "optional taxonomy YAML replacing the built-in one")
	gazetteerFile := flag.String("gazetteer", "", "optional gazetteer YAML replacing the built-in one")
	flag.Parse()

	if code := run(*fixture, *taxonomyFile, *gazetteerFile); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath, taxonomyFile, gazetteerFile string) int {
	fmt.Println("=== Threat Signal Validation ===")
	fmt.Println()

	cases, err := loadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	tax := taxonomy.DefaultTaxonomy()
	if taxonomyFile != "" {
		if tax, err = taxonomy.LoadTaxonomy(taxonomyFile); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
	}
	gaz := taxonomy.DefaultGazetteer()
	if gazetteerFile != "" {
		if gaz, err = taxonomy.LoadGazetteer(gazetteerFile); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
	}

	phases := []*phase{
		validateClassification(cases, engine.NewClassifier(tax)),
		validateLocations(cases, engine.NewLocationExtractor(gaz)),
		validateFiltering(cases, engine.NewClassifier(tax)),
		validateRanking(cases, tax, gaz),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Cases: %d labelled posts\n", len(cases))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadFixture(path string) ([]labelledPost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []labelledPost
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%s has no cases", path)
	}
	// Space posts a minute apart, newest first, so ranking ties are stable.
	for i := range cases {
		if cases[i].Post.Timestamp.IsZero() {
			cases[i].Post.Timestamp = baseTime.Add(-time.Duration(i) * time.Minute)
		}
	}
	return cases, nil
}

// ── Phase 1: classification ──

func validateClassification(cases []labelledPost, c *engine.Classifier) *phase {
	p := &phase{name: "Classification"}
	for _, tc := range cases {
		got := c.Classify(engine.Normalize(tc.Post.Text), tc.Post.Language)
		if got.PrimaryThreat != tc.Expect.PrimaryThreat {
			p.errorf("%s: primary threat %q, want %q", tc.Post.ID, got.PrimaryThreat, tc.Expect.PrimaryThreat)
		}
		if got.RiskLevel != tc.Expect.RiskLevel {
			p.errorf("%s: risk level %q, want %q", tc.Post.ID, got.RiskLevel, tc.Expect.RiskLevel)
		}
		if got.UrgencyDetected != tc.Expect.Urgent {
			p.errorf("%s: urgency %t, want %t", tc.Post.ID, got.UrgencyDetected, tc.Expect.Urgent)
		}
		if got.IsThreat() && (got.ConfidenceScore <= 0 || got.ConfidenceScore > 1) {
			p.errorf("%s: confidence %.3f outside (0, 1]", tc.Post.ID, got.ConfidenceScore)
		}
	}
	return p
}

// ── Phase 2: location extraction ──

func validateLocations(cases []labelledPost, x *engine.LocationExtractor) *phase {
	p := &phase{name: "Location extraction"}
	for _, tc := range cases {
		if tc.Expect.Locations == nil {
			continue
		}
		var names []string
		for _, loc := range x.Extract(tc.Post.Text, tc.Post.Language) {
			names = append(names, loc.Name)
		}
		if !slices.Equal(names, tc.Expect.Locations) {
			p.errorf("%s: locations %v, want %v", tc.Post.ID, names, tc.Expect.Locations)
		}
	}
	return p
}

// ── Phase 3: weak-signal filtering ──

func validateFiltering(cases []labelledPost, c *engine.Classifier) *phase {
	p := &phase{name: "Weak-signal filtering"}
	for _, tc := range cases {
		classification := c.Classify(engine.Normalize(tc.Post.Text), tc.Post.Language)
		score := engine.SignalScore(classification, tc.Post.Text)
		kept := score >= engine.DefaultSignalThreshold
		if kept != tc.Expect.Kept {
			p.errorf("%s: signal score %.1f kept=%t, want kept=%t", tc.Post.ID, score, kept, tc.Expect.Kept)
		}
	}
	return p
}

// ── Phase 4: end-to-end ranking ──

func validateRanking(cases []labelledPost, tax taxonomy.Taxonomy, gaz taxonomy.Gazetteer) *phase {
	p := &phase{name: "Engine ranking"}

	eng := engine.New(engine.DefaultConfig(), tax, gaz, nil, engine.WithClock(clockwork.NewFakeClockAt(baseTime)))
	posts := make([]domain.Post, len(cases))
	var wantKept []string
	for i, tc := range cases {
		posts[i] = tc.Post
		if tc.Expect.Kept {
			wantKept = append(wantKept, tc.Post.ID)
		}
	}

	ranked := eng.Process(context.Background(), posts)

	var gotKept []string
	for i, t := range ranked {
		gotKept = append(gotKept, t.Post.ID)
		if i > 0 && t.PriorityScore > ranked[i-1].PriorityScore {
			p.errorf("%s: priority %d ranked below %s with %d", t.Post.ID, t.PriorityScore, ranked[i-1].Post.ID, ranked[i-1].PriorityScore)
		}
		if t.ObservedAt != baseTime {
			p.errorf("%s: observed_at %s, want %s", t.Post.ID, t.ObservedAt, baseTime)
		}
	}
	slices.Sort(gotKept)
	slices.Sort(wantKept)
	if !slices.Equal(gotKept, wantKept) {
		p.errorf("kept posts %v, want %v", gotKept, wantKept)
	}

	summary := eng.Summary()
	high := 0
	for _, t := range ranked {
		if t.Classification.IsThreat() && t.Classification.RiskLevel.IsHigh() {
			high++
		}
	}
	if summary.HighRiskCount != high {
		p.errorf("summary high-risk count %d, want %d", summary.HighRiskCount, high)
	}
	if len(eng.History()) != len(ranked) {
		p.errorf("history holds %d threats, want %d", len(eng.History()), len(ranked))
	}
	return p
}
