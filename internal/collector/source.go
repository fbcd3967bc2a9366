package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Source adapts a Collector to the pipeline's batch extractor by polling every
// language once per interval and handing out the buffered posts as raw events.
type Source struct {
	collector Collector
	languages []domain.Language
	limit     int
	interval  time.Duration
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger

	pending  []domain.RawEvent
	lastPoll time.Time
	offset   int64
}

// NewSource creates a polling source. The first poll happens immediately.
func NewSource(c Collector, languages []domain.Language, limit int, interval time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Source {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Source{
		collector: c,
		languages: languages,
		limit:     limit,
		interval:  interval,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// ExtractBatch returns up to batchSize buffered posts, polling the collector
// when the buffer is empty. It blocks until the next poll is due.
func (s *Source) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	if len(s.pending) == 0 {
		if err := s.waitForPoll(ctx); err != nil {
			return nil, err
		}
		if err := s.poll(ctx); err != nil {
			return nil, err
		}
	}

	n := min(batchSize, len(s.pending))
	if batchSize <= 0 {
		n = len(s.pending)
	}
	batch := s.pending[:n:n]
	s.pending = s.pending[n:]
	return batch, nil
}

// Close is a no-op; collectors hold no long-lived connections.
func (s *Source) Close() error { return nil }

func (s *Source) waitForPoll(ctx context.Context) error {
	if s.lastPoll.IsZero() {
		return nil
	}
	wait := s.interval - s.clock.Since(s.lastPoll)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(wait):
		return nil
	}
}

// poll collects every language. It fails only when every language failed.
func (s *Source) poll(ctx context.Context) error {
	s.lastPoll = s.clock.Now()
	name := s.collector.Name()

	var lastErr error
	failed := 0
	for _, lang := range s.languages {
		posts, err := s.collector.Collect(ctx, lang, s.limit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.metrics.CollectorRequests.WithLabelValues(name, "error").Inc()
			s.logger.Warn("collect failed",
				"collector", name,
				"language", lang,
				"reason", ReasonOf(err),
				"error", err,
			)
			lastErr = err
			failed++
			continue
		}
		if len(posts) == 0 {
			s.metrics.CollectorRequests.WithLabelValues(name, "empty").Inc()
			continue
		}
		s.metrics.CollectorRequests.WithLabelValues(name, "success").Inc()

		for _, p := range posts {
			raw, err := s.toRawEvent(p)
			if err != nil {
				s.logger.Warn("encode post failed", "post_id", p.ID, "error", err)
				continue
			}
			s.pending = append(s.pending, raw)
		}
	}

	if failed > 0 && failed == len(s.languages) {
		return fmt.Errorf("poll %s: %w", name, lastErr)
	}
	s.logger.Debug("poll complete", "collector", name, "buffered", len(s.pending))
	return nil
}

func (s *Source) toRawEvent(p domain.Post) (domain.RawEvent, error) {
	value, err := json.Marshal(p)
	if err != nil {
		return domain.RawEvent{}, err
	}
	s.offset++
	return domain.RawEvent{
		Key:   []byte(p.ID),
		Value: value,
		Headers: map[string]string{
			"platform": p.Platform,
			"language": string(p.Language),
		},
		Topic:     "collector:" + s.collector.Name(),
		Offset:    s.offset,
		Timestamp: p.Timestamp,
	}, nil
}
