package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPostID = "post-123"

func TestParsePost(t *testing.T) {
	msgTime := time.Date(2024, 7, 14, 21, 0, 0, 0, time.UTC)

	t.Run("complete french post", func(t *testing.T) {
		data := []byte(`{"id":"post-123","text":"Fusillade en cours près de la gare","language":"fr","platform":"mastodon","timestamp":"2024-07-14T20:55:00Z","user":"alice","url":"https://example.social/@alice/1"}`)
		post, err := ParsePost(RawEvent{Value: data, Timestamp: msgTime})

		require.NoError(t, err)
		assert.Equal(t, testPostID, post.ID)
		assert.Equal(t, "Fusillade en cours près de la gare", post.Text)
		assert.Equal(t, LanguageFrench, post.Language)
		assert.Equal(t, "mastodon", post.Platform)
		assert.Equal(t, time.Date(2024, 7, 14, 20, 55, 0, 0, time.UTC), post.Timestamp)
		assert.Equal(t, "alice", post.User)
	})

	t.Run("language is normalized", func(t *testing.T) {
		data := []byte(`{"id":"p","text":"Explosion im Kaufhaus","language":" DE ","platform":"rss","timestamp":"2024-07-14T20:55:00Z"}`)
		post, err := ParsePost(RawEvent{Value: data})

		require.NoError(t, err)
		assert.Equal(t, LanguageGerman, post.Language)
	})

	t.Run("missing timestamp falls back to message timestamp", func(t *testing.T) {
		data := []byte(`{"id":"p","text":"x","language":"fr","platform":"rss"}`)
		post, err := ParsePost(RawEvent{Value: data, Timestamp: msgTime})

		require.NoError(t, err)
		assert.Equal(t, msgTime, post.Timestamp)
	})

	t.Run("missing timestamps fall back to clock", func(t *testing.T) {
		fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixed))
		t.Cleanup(func() { SetClock(nil) })

		data := []byte(`{"id":"p","text":"x","language":"fr","platform":"rss"}`)
		post, err := ParsePost(RawEvent{Value: data})

		require.NoError(t, err)
		assert.Equal(t, fixed, post.Timestamp)
	})

	t.Run("missing id is generated deterministically", func(t *testing.T) {
		data := []byte(`{"text":"Schüsse am Hauptbahnhof","language":"de","platform":"bluesky","timestamp":"2024-07-14T20:55:00Z"}`)
		a, err := ParsePost(RawEvent{Value: data})
		require.NoError(t, err)
		b, err := ParsePost(RawEvent{Value: data})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(a.ID, "bluesky-"))
		assert.Equal(t, a.ID, b.ID)
	})

	t.Run("missing platform", func(t *testing.T) {
		data := []byte(`{"text":"x","language":"fr","timestamp":"2024-07-14T20:55:00Z"}`)
		post, err := ParsePost(RawEvent{Value: data})

		require.NoError(t, err)
		assert.Equal(t, "unknown", post.Platform)
		assert.True(t, strings.HasPrefix(post.ID, "unknown-"))
	})

	t.Run("unsupported language", func(t *testing.T) {
		data := []byte(`{"id":"p","text":"Shooting downtown","language":"en","platform":"rss"}`)
		_, err := ParsePost(RawEvent{Value: data})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported language")
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParsePost(RawEvent{Value: []byte(`{not json`)})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse post")
	})
}

func TestGenerateID(t *testing.T) {
	ts := time.Date(2024, 7, 14, 20, 55, 0, 0, time.UTC)

	a := generateID("rss", LanguageFrench, ts, "Explosion à Lyon")
	b := generateID("rss", LanguageFrench, ts, "Explosion à Lyon")
	c := generateID("rss", LanguageGerman, ts, "Explosion à Lyon")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, strings.TrimPrefix(a, "rss-"), 16)
}

func TestSerializeRankedThreat(t *testing.T) {
	observed := time.Date(2024, 7, 14, 21, 0, 0, 0, time.UTC)
	threat := RankedThreat{
		Post: Post{ID: testPostID, Text: "Explosion!", Language: LanguageGerman, Platform: "rss"},
		Classification: Classification{
			PrimaryThreat: "explosion",
			RiskLevel:     RiskCritical,
		},
		Burst:         true,
		PriorityScore: 425,
		ObservedAt:    observed,
	}

	out, err := SerializeRankedThreat(threat)
	require.NoError(t, err)

	assert.Equal(t, []byte(testPostID), out.Key)
	assert.Equal(t, "explosion", out.Headers["primary_threat"])
	assert.Equal(t, "critical", out.Headers["risk_level"])
	assert.Equal(t, "de", out.Headers["language"])
	assert.Equal(t, "true", out.Headers["burst"])
	assert.Equal(t, "2024-07-14T21:00:00Z", out.Headers["processed_at"])

	var decoded RankedThreat
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, 425, decoded.PriorityScore)
	assert.Equal(t, RiskCritical, decoded.Classification.RiskLevel)
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		level    RiskLevel
		weight   int
		priority int
		high     bool
	}{
		{RiskCritical, 4, 400, true},
		{RiskHigh, 3, 300, true},
		{RiskMedium, 2, 200, false},
		{RiskLow, 1, 100, false},
		{RiskLevel("bogus"), 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.weight, tt.level.Weight())
			assert.Equal(t, tt.priority, tt.level.PriorityWeight())
			assert.Equal(t, tt.high, tt.level.IsHigh())
		})
	}
}

func TestParseRiskLevel(t *testing.T) {
	r, err := ParseRiskLevel(" High ")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, r)

	_, err = ParseRiskLevel("severe")
	require.Error(t, err)
}
