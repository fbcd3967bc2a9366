package collector

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Kinds accepted by New.
const (
	KindMock       = "mock"
	KindSimulation = "simulation"
	KindMastodon   = "mastodon"
	KindBluesky    = "bluesky"
	KindRSS        = "rss"
	KindAggregated = "aggregated"
)

// Options configures the collectors built by New.
type Options struct {
	Seed  uint64
	Clock clockwork.Clock

	HTTPTimeout       time.Duration
	MastodonInstances []string
	MastodonToken     string
	BlueskyUsername   string
	BlueskyPassword   string
	Feeds             []Feed
}

// New builds the collector named by kind.
func New(kind string, opts Options, logger *slog.Logger) (Collector, error) {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}

	switch kind {
	case KindMock:
		return NewMock(opts.Seed, opts.Clock), nil
	case KindSimulation:
		return NewSimulation(opts.Seed, opts.Clock), nil
	case KindMastodon:
		return NewMastodon(opts.MastodonInstances, opts.MastodonToken, opts.HTTPTimeout, logger), nil
	case KindBluesky:
		return NewBluesky(opts.BlueskyUsername, opts.BlueskyPassword, opts.HTTPTimeout, logger), nil
	case KindRSS:
		return NewRSS(opts.Feeds, opts.HTTPTimeout, logger), nil
	case KindAggregated:
		sources := []Collector{
			NewMastodon(opts.MastodonInstances, opts.MastodonToken, opts.HTTPTimeout, logger),
		}
		if opts.BlueskyUsername != "" && opts.BlueskyPassword != "" {
			sources = append(sources, NewBluesky(opts.BlueskyUsername, opts.BlueskyPassword, opts.HTTPTimeout, logger))
		}
		if len(opts.Feeds) > 0 {
			sources = append(sources, NewRSS(opts.Feeds, opts.HTTPTimeout, logger))
		}
		return NewAggregated(sources, NewMock(opts.Seed, opts.Clock), logger), nil
	default:
		return nil, fmt.Errorf("unknown collector type %q", kind)
	}
}
