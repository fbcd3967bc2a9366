// Command genmock generates reproducible post fixtures from the mock and
// simulation collectors, and the ranked threats the engine produces for them.
// It runs the real collector and engine packages so the fixtures match
// pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -kind simulation -count 40 -seed 7 \
//	  -posts-out data/mock/simulation_posts.json \
//	  -threats-out data/mock/simulation_threats.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/collector"
	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/engine"
	"github.com/couchcryptid/threat-signal-etl/internal/taxonomy"
	"github.com/jonboulle/clockwork"
)

var baseTime = time.Date(2024, time.July, 14, 22, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	kind := flag.String("kind", collector.KindSimulation, "generator to use: mock or simulation")
	langs := flag.String("languages", "fr,de", "comma-separated languages to generate")
	count := flag.Int("count", 40, "posts per language")
	seed := flag.Uint64("seed", 7, "generator seed")
	postsOut := flag.String("posts-out", "", "output path for the post fixture")
	threatsOut := flag.String("threats-out", "", "output path for the ranked threat fixture")
	flag.Parse()

	if *postsOut == "" || *threatsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -posts-out, -threats-out")
	}
	if *kind != collector.KindMock && *kind != collector.KindSimulation {
		return fmt.Errorf("unsupported -kind %q: must be mock or simulation", *kind)
	}

	languages, err := parseLanguages(*langs)
	if err != nil {
		return err
	}

	// A fixed clock keeps timestamps and burst windows reproducible.
	clock := clockwork.NewFakeClockAt(baseTime)

	c, err := collector.New(*kind, collector.Options{Seed: *seed, Clock: clock}, slog.Default())
	if err != nil {
		return err
	}

	var posts []domain.Post //nolint:prealloc // size depends on generator output
	for _, lang := range languages {
		batch, err := c.Collect(context.Background(), lang, *count)
		if err != nil {
			return fmt.Errorf("collect %s: %w", lang, err)
		}
		posts = append(posts, batch...)
		log.Printf("%s: %d posts", lang, len(batch))
	}

	eng := engine.New(engine.DefaultConfig(), taxonomy.DefaultTaxonomy(), taxonomy.DefaultGazetteer(), nil,
		engine.WithClock(clock))
	threats := eng.Process(context.Background(), posts)

	if err := writeJSON(*postsOut, posts); err != nil {
		return fmt.Errorf("writing post fixture: %w", err)
	}
	log.Printf("wrote post fixture: %s", *postsOut)

	if err := writeJSON(*threatsOut, threats); err != nil {
		return fmt.Errorf("writing threat fixture: %w", err)
	}
	log.Printf("wrote threat fixture: %s", *threatsOut)

	printStats(posts, threats)
	return nil
}

func parseLanguages(s string) ([]domain.Language, error) {
	var out []domain.Language
	for _, part := range strings.Split(s, ",") {
		lang := domain.Language(strings.ToLower(strings.TrimSpace(part)))
		if !lang.Valid() {
			return nil, fmt.Errorf("unsupported language %q", part)
		}
		out = append(out, lang)
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(posts []domain.Post, threats []domain.RankedThreat) {
	categories := map[string]int{}
	risks := map[string]int{}
	bursts := 0
	for _, t := range threats {
		categories[t.Classification.PrimaryThreat]++
		risks[string(t.Classification.RiskLevel)]++
		if t.Burst {
			bursts++
		}
	}

	fmt.Println()
	fmt.Printf("Posts: %d, threats kept: %d, burst-flagged: %d\n", len(posts), len(threats), bursts)
	printCounts("By category", categories)
	printCounts("By risk level", risks)
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, counts[k])
	}
}
