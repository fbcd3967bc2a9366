// Package engine classifies short social posts for physical-danger signals,
// locates them, detects mention bursts and ranks the survivors by priority.
//
// The engine is synchronous: [Engine.Process] scores one batch at a time and
// owns no goroutines. Its burst window and ranked history are the only state
// and both are guarded, so a single Engine may serve concurrent callers.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/observability"
	"github.com/couchcryptid/threat-signal-etl/internal/taxonomy"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultSignalThreshold is the minimum signal score a post needs to be kept.
	DefaultSignalThreshold = 5.0

	urgencyMultiplier  = 1.5
	burstMultiplier    = 1.5
	emphasisBonus      = 2.0
	emphasisCharacters = "!💥🚨🔥😱💣"
)

// Config tunes burst detection, history size and weak-signal filtering.
type Config struct {
	BurstWindow     time.Duration
	BurstThreshold  int
	BurstCapacity   int
	HistoryCapacity int

	// SignalThreshold drops posts scoring below it. Zero disables filtering.
	SignalThreshold float64
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		BurstWindow:     DefaultBurstWindow,
		BurstThreshold:  DefaultBurstThreshold,
		BurstCapacity:   DefaultBurstCapacity,
		HistoryCapacity: DefaultHistoryCapacity,
		SignalThreshold: DefaultSignalThreshold,
	}
}

// Enricher augments extracted locations, e.g. with coordinates.
type Enricher interface {
	EnrichLocations(ctx context.Context, locations []domain.Location) []domain.Location
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock sets the time source used for burst and recency scoring.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithEnricher runs enricher over each post's extracted locations.
func WithEnricher(enricher Enricher) Option {
	return func(e *Engine) { e.enricher = enricher }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records classification, weak-signal and burst counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine runs the normalize, classify, filter, locate, burst and rank stages.
type Engine struct {
	classifier *Classifier
	locations  *LocationExtractor
	burst      *BurstWindow
	ranker     *Ranker
	threshold  float64

	enricher Enricher
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New builds an engine. A nil burst window is created from cfg; pass a shared
// one to let several engines see each other's mentions.
func New(cfg Config, tax taxonomy.Taxonomy, gaz taxonomy.Gazetteer, burst *BurstWindow, opts ...Option) *Engine {
	if burst == nil {
		burst = NewBurstWindow(cfg.BurstWindow, cfg.BurstThreshold, cfg.BurstCapacity)
	}
	e := &Engine{
		classifier: NewClassifier(tax),
		locations:  NewLocationExtractor(gaz),
		burst:      burst,
		ranker:     NewRanker(cfg.HistoryCapacity),
		threshold:  cfg.SignalThreshold,
		clock:      clockwork.NewRealClock(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process scores a batch of posts and returns the kept ones ranked by
// priority, highest first. Posts whose language is not covered by the
// taxonomy classify as unknown. The context is only handed to the enricher.
func (e *Engine) Process(ctx context.Context, posts []domain.Post) []domain.RankedThreat {
	now := e.clock.Now()
	kept := make([]domain.RankedThreat, 0, len(posts))

	for _, post := range posts {
		clean := Normalize(post.Text)
		classification := e.classifier.Classify(clean, post.Language)
		e.recordClassification(classification)

		score := SignalScore(classification, post.Text)
		if e.threshold > 0 && score < e.threshold {
			e.logger.Debug("weak signal dropped",
				"post_id", post.ID,
				"score", score,
				"threshold", e.threshold,
			)
			if e.metrics != nil {
				e.metrics.WeakSignalsDropped.Inc()
			}
			continue
		}

		locations := e.locations.Extract(post.Text, post.Language)
		if e.enricher != nil && len(locations) > 0 {
			locations = e.enricher.EnrichLocations(ctx, locations)
		}

		tokens := e.locations.Hits(post.Text, post.Language)
		if len(tokens) == 0 {
			tokens = CandidateTokens(post.Text)
		}
		burst := e.burst.RecordAndCheck(tokens, now)
		if burst {
			score *= burstMultiplier
			e.logger.Info("mention burst detected", "post_id", post.ID, "tokens", tokens)
			if e.metrics != nil {
				e.metrics.BurstsDetected.Inc()
			}
		}

		kept = append(kept, domain.RankedThreat{
			Post:           post,
			CleanText:      clean,
			Classification: classification,
			Locations:      locations,
			SignalScore:    score,
			Burst:          burst,
			ObservedAt:     now,
		})
	}

	return e.ranker.Rank(kept, now)
}

// History returns the retained ranked threats, oldest first.
func (e *Engine) History() []domain.RankedThreat {
	return e.ranker.History()
}

// Summary aggregates the retained history.
func (e *Engine) Summary() domain.ThreatSummary {
	return Summarize(e.ranker.History())
}

func (e *Engine) recordClassification(c domain.Classification) {
	if e.metrics == nil {
		return
	}
	e.metrics.Classifications.WithLabelValues(c.PrimaryThreat, string(c.RiskLevel)).Inc()
}

// SignalScore sums the risk weights of all detected categories, scales the sum
// by 1.5 when urgency was detected and adds 2 when the raw text carries an
// exclamation mark or an alarm emoji.
func SignalScore(c domain.Classification, raw string) float64 {
	score := 0.0
	for _, d := range c.Details {
		score += float64(d.RiskLevel.Weight())
	}
	if c.UrgencyDetected {
		score *= urgencyMultiplier
	}
	if strings.ContainsAny(raw, emphasisCharacters) {
		score += emphasisBonus
	}
	return score
}
