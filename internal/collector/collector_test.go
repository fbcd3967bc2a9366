package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCollector is a testify mock implementing Collector.
type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) Name() string {
	return m.Called().String(0)
}

func (m *mockCollector) Collect(ctx context.Context, lang domain.Language, limit int) ([]domain.Post, error) {
	args := m.Called(ctx, lang, limit)
	posts, _ := args.Get(0).([]domain.Post)
	return posts, args.Error(1)
}

func newMockCollector(name string) *mockCollector {
	m := &mockCollector{}
	m.On("Name").Return(name).Maybe()
	return m
}

func makePosts(prefix string, n int, lang domain.Language) []domain.Post {
	posts := make([]domain.Post, n)
	for i := range posts {
		posts[i] = domain.Post{
			ID:       fmt.Sprintf("%s-%d", prefix, i),
			Text:     "post " + prefix,
			Language: lang,
			Platform: prefix,
		}
	}
	return posts
}

func TestError(t *testing.T) {
	inner := errors.New("connection refused")
	err := fmt.Errorf("poll: %w", newError("mastodon", ReasonTransport, inner))

	assert.Equal(t, ReasonTransport, ReasonOf(err))
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "mastodon collector: transport: connection refused")

	var cerr *Error
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, "mastodon", cerr.Platform)
}

func TestReasonOf_PlainError(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(errors.New("boom")))
	assert.Equal(t, Reason(""), ReasonOf(nil))
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<p>Explosion près du <a href="x">#Bataclan</a></p>`, "Explosion près du #Bataclan"},
		{"<p>Première ligne</p><p>Deuxième</p>", "Première ligne Deuxième"},
		{"Schüsse<br/>Hauptbahnhof", "Schüsse Hauptbahnhof"},
		{"&quot;Alerte&quot; &amp; évacuation", `"Alerte" & évacuation`},
		{"  plain   text ", "plain text"},
		{"<p>Explosion&nbsp;im Kaufhaus</p>", "Explosion im Kaufhaus"},
		{"Fusillade\u202fen cours", "Fusillade en cours"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripHTML(tt.in), tt.in)
	}
}

func TestShareOf(t *testing.T) {
	assert.Equal(t, []int{4, 3, 3}, []int{shareOf(10, 3, 0), shareOf(10, 3, 1), shareOf(10, 3, 2)})
	assert.Equal(t, []int{1, 1, 0}, []int{shareOf(2, 3, 0), shareOf(2, 3, 1), shareOf(2, 3, 2)})
	assert.Equal(t, 0, shareOf(0, 3, 0))
}

func TestNew(t *testing.T) {
	for _, kind := range []string{KindMock, KindSimulation, KindMastodon, KindBluesky, KindRSS, KindAggregated} {
		t.Run(kind, func(t *testing.T) {
			c, err := New(kind, Options{}, discardLogger())
			assert.NoError(t, err)
			assert.Equal(t, kind, c.Name())
		})
	}

	_, err := New("reddit", Options{}, discardLogger())
	assert.Error(t, err)
}

func TestNew_AggregatedSources(t *testing.T) {
	c, err := New(KindAggregated, Options{
		BlueskyUsername: "watcher.bsky.social",
		BlueskyPassword: "app-pass",
		Feeds:           []Feed{{URL: "https://example.org/rss"}},
	}, discardLogger())
	assert.NoError(t, err)

	agg := c.(*Aggregated)
	var names []string
	for _, s := range agg.sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"mastodon", "bluesky", "rss"}, names)
	assert.Equal(t, "mock", agg.fallback.Name())
}
