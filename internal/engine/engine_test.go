package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/observability"
	"github.com/couchcryptid/threat-signal-etl/internal/taxonomy"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, threshold float64, opts ...Option) (*Engine, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	cfg := DefaultConfig()
	cfg.SignalThreshold = threshold
	opts = append([]Option{WithClock(clock)}, opts...)
	e := New(cfg, taxonomy.DefaultTaxonomy(), taxonomy.DefaultGazetteer(), NewBurstWindow(0, 0, 0), opts...)
	return e, clock
}

func post(id, text string, lang domain.Language, ts time.Time) domain.Post {
	return domain.Post{ID: id, Text: text, Language: lang, Platform: "test", Timestamp: ts}
}

func TestSignalScore(t *testing.T) {
	c := defaultClassifier()

	tests := []struct {
		name string
		text string
		lang domain.Language
		want float64
	}{
		{"neutral", "Schönes Wetter heute", domain.LanguageGerman, 0},
		{"neutral with emphasis", "Quel beau match!", domain.LanguageFrench, 2},
		{"single high urgent", "Fusillade en cours, coups de feu entendus URGENCE", domain.LanguageFrench, 4.5},
		{"high urgent emphasis", "Schießerei am Hauptbahnhof! Schüsse gehört SOFORT", domain.LanguageGerman, 6.5},
		{"two categories", "Messerangriff in der Schule", domain.LanguageGerman, 5},
		{"emoji", "Explosion im Kaufhaus 💥", domain.LanguageGerman, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := c.Classify(Normalize(tt.text), tt.lang)
			assert.InDelta(t, tt.want, SignalScore(cls, tt.text), 1e-9)
		})
	}
}

func TestProcess_WeakSignalsDropped(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	e, _ := newTestEngine(t, DefaultSignalThreshold, WithMetrics(metrics))

	got := e.Process(context.Background(), []domain.Post{
		post("weak", "Fusillade en cours près de la gare, coups de feu entendus URGENCE", domain.LanguageFrench, t0),
		post("neutral", "Schönes Wetter heute, perfekt für einen Spaziergang", domain.LanguageGerman, t0),
		post("strong", "Schießerei am Hauptbahnhof! Schüsse gehört SOFORT", domain.LanguageGerman, t0),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "strong", got[0].Post.ID)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.WeakSignalsDropped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Classifications.WithLabelValues("unknown", "low")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Classifications.WithLabelValues("shooting", "high")), 0)
}

func TestProcess_ThresholdDisabledKeepsEverything(t *testing.T) {
	e, _ := newTestEngine(t, 0)

	got := e.Process(context.Background(), []domain.Post{
		post("fr", "Explosion près du Bataclan à Paris", domain.LanguageFrench, t0.Add(-time.Minute)),
		post("neutral", "Schönes Wetter heute", domain.LanguageGerman, t0.Add(-time.Minute)),
	})

	require.Len(t, got, 2)
	assert.Equal(t, "fr", got[0].Post.ID)
	assert.Equal(t, "explosion", got[0].Classification.PrimaryThreat)
	assert.Equal(t, 425, got[0].PriorityScore)
	assert.Equal(t, "Explosion près du Bataclan à Paris", got[0].CleanText)
	assert.Equal(t, []string{"Bataclan", "Bataclan", "France"}, names(got[0].Locations))
	assert.Equal(t, t0, got[0].ObservedAt)

	assert.Equal(t, "neutral", got[1].Post.ID)
	assert.Equal(t, 125, got[1].PriorityScore)
	assert.Empty(t, got[1].Locations)
}

func TestProcess_BurstRaisesScore(t *testing.T) {
	e, clock := newTestEngine(t, 0)
	text := "Explosion Breitscheidplatz, Panik!"

	var last []domain.RankedThreat
	for i := range 3 {
		last = e.Process(context.Background(), []domain.Post{
			post(fmt.Sprintf("p%d", i), text, domain.LanguageGerman, clock.Now()),
		})
		require.Len(t, last, 1)
		if i < 2 {
			assert.False(t, last[0].Burst, "post %d", i)
		}
		clock.Advance(10 * time.Second)
	}

	// explosion (4) * urgency 1.5 + emphasis 2 = 8, then * 1.5 for the burst.
	assert.True(t, last[0].Burst)
	assert.InDelta(t, 12, last[0].SignalScore, 1e-9)
	assert.Equal(t, []string{"Breitscheidplatz"}, e.burst.Bursting(clock.Now()))
}

func TestProcess_CandidateTokensFeedBurst(t *testing.T) {
	burst := NewBurstWindow(0, 0, 0)
	clock := clockwork.NewFakeClockAt(t0)
	cfg := DefaultConfig()
	cfg.SignalThreshold = 0
	e := New(cfg, taxonomy.DefaultTaxonomy(), taxonomy.DefaultGazetteer(), burst, WithClock(clock))

	for i := range 3 {
		e.Process(context.Background(), []domain.Post{
			post(fmt.Sprintf("p%d", i), "Schießerei am Hauptbahnhof! Schüsse gehört SOFORT", domain.LanguageGerman, t0),
		})
	}

	assert.Len(t, burst.Mentions("Hauptbahnhof"), 3)
	assert.Len(t, burst.Mentions("Schießerei"), 3)
}

func TestProcess_SharedBurstWindow(t *testing.T) {
	shared := NewBurstWindow(0, 0, 0)
	clock := clockwork.NewFakeClockAt(t0)
	cfg := DefaultConfig()
	cfg.SignalThreshold = 0
	fr := New(cfg, taxonomy.DefaultTaxonomy(), taxonomy.DefaultGazetteer(), shared, WithClock(clock))
	de := New(cfg, taxonomy.DefaultTaxonomy(), taxonomy.DefaultGazetteer(), shared, WithClock(clock))

	fr.Process(context.Background(), []domain.Post{post("a", "Bataclan évacué", domain.LanguageFrench, t0)})
	fr.Process(context.Background(), []domain.Post{post("b", "Bataclan encerclé", domain.LanguageFrench, t0)})
	got := de.Process(context.Background(), []domain.Post{post("c", "Alles ruhig", domain.LanguageGerman, t0)})

	require.Len(t, got, 1)
	assert.False(t, got[0].Burst)

	got = fr.Process(context.Background(), []domain.Post{post("d", "Bataclan bouclé", domain.LanguageFrench, t0)})
	assert.True(t, got[0].Burst)
}

func TestProcess_UnsupportedLanguageIsUnknown(t *testing.T) {
	e, _ := newTestEngine(t, 0)

	got := e.Process(context.Background(), []domain.Post{post("en", "Explosion downtown!", domain.Language("en"), t0)})

	require.Len(t, got, 1)
	assert.Equal(t, domain.UnknownThreat, got[0].Classification.PrimaryThreat)
	assert.Empty(t, got[0].Locations)
}

func TestProcess_EmptyBatch(t *testing.T) {
	e, _ := newTestEngine(t, DefaultSignalThreshold)

	assert.Empty(t, e.Process(context.Background(), nil))
	assert.Empty(t, e.History())
}

type stubEnricher struct {
	calls int
}

func (s *stubEnricher) EnrichLocations(_ context.Context, locs []domain.Location) []domain.Location {
	s.calls++
	out := make([]domain.Location, len(locs))
	for i, l := range locs {
		l.GeoSource = "forward"
		l.Geo = &domain.Geo{Lat: 1, Lon: 2}
		out[i] = l
	}
	return out
}

func TestProcess_Enricher(t *testing.T) {
	enricher := &stubEnricher{}
	e, _ := newTestEngine(t, 0, WithEnricher(enricher))

	got := e.Process(context.Background(), []domain.Post{
		post("loc", "Explosion Stephansplatz Wien", domain.LanguageGerman, t0),
		post("none", "Schönes Wetter", domain.LanguageGerman, t0),
	})

	require.Len(t, got, 2)
	assert.Equal(t, 1, enricher.calls, "posts without locations are not enriched")
	for _, th := range got {
		for _, l := range th.Locations {
			assert.Equal(t, "forward", l.GeoSource)
		}
	}
}

func TestEngine_HistoryAndSummary(t *testing.T) {
	e, _ := newTestEngine(t, 0)

	e.Process(context.Background(), []domain.Post{
		post("1", "Explosion im Kaufhaus, möglicher Sprengsatz", domain.LanguageGerman, t0),
		post("2", "Émeute en centre-ville, casseurs et projectiles", domain.LanguageFrench, t0),
		post("3", "Schönes Wetter heute", domain.LanguageGerman, t0),
	})
	e.Process(context.Background(), []domain.Post{
		post("4", "Geiselnahme im Supermarkt", domain.LanguageGerman, t0),
	})

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(e.History()))

	s := e.Summary()
	assert.Equal(t, 3, s.TotalThreatsDetected)
	assert.Equal(t, 2, s.HighRiskCount)
	assert.Equal(t, map[string]int{"explosion": 1, "riot": 1, "hostage": 1}, s.ThreatBreakdown)
	assert.Equal(t, []string{"1", "4"}, ids(s.HighRiskPosts))
}
