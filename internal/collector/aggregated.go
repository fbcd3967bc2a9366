package collector

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
)

// Aggregated combines several collectors and falls back to another collector
// when none of them produce posts.
type Aggregated struct {
	sources  []Collector
	fallback Collector
	logger   *slog.Logger
}

// NewAggregated creates an aggregating collector. fallback may be nil.
func NewAggregated(sources []Collector, fallback Collector, logger *slog.Logger) *Aggregated {
	return &Aggregated{sources: sources, fallback: fallback, logger: logger}
}

func (a *Aggregated) Name() string { return "aggregated" }

// Collect splits limit across the sources, earlier sources taking the remainder.
// Source failures are logged; the fallback runs only when every source failed
// or all of them came back empty.
func (a *Aggregated) Collect(ctx context.Context, lang domain.Language, limit int) ([]domain.Post, error) {
	var (
		posts   []domain.Post
		lastErr error
	)

	for i, src := range a.sources {
		share := shareOf(limit, len(a.sources), i)
		if limit > 0 && share == 0 {
			continue
		}
		got, err := src.Collect(ctx, lang, share)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("collector failed",
				"collector", src.Name(),
				"reason", ReasonOf(err),
				"language", lang,
				"error", err,
			)
			lastErr = err
			continue
		}
		a.logger.Debug("collected posts", "collector", src.Name(), "language", lang, "count", len(got))
		posts = append(posts, got...)
	}

	if len(posts) > 0 {
		return truncate(posts, limit), nil
	}

	if a.fallback == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, nil
	}

	a.logger.Info("falling back to generated posts", "collector", a.fallback.Name(), "language", lang)
	return a.fallback.Collect(ctx, lang, limit)
}

// shareOf returns the i-th of n near-equal parts of limit.
func shareOf(limit, n, i int) int {
	if limit <= 0 || n == 0 {
		return limit
	}
	share := limit / n
	if i < limit%n {
		share++
	}
	return share
}
