package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/threat-signal-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/threat-signal-etl/internal/adapter/kafka"
	"github.com/couchcryptid/threat-signal-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/threat-signal-etl/internal/collector"
	"github.com/couchcryptid/threat-signal-etl/internal/config"
	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/engine"
	"github.com/couchcryptid/threat-signal-etl/internal/observability"
	"github.com/couchcryptid/threat-signal-etl/internal/pipeline"
	"github.com/couchcryptid/threat-signal-etl/internal/taxonomy"
	"github.com/jonboulle/clockwork"
)

// postSource is where the pipeline reads posts from: Kafka or a platform collector.
type postSource interface {
	pipeline.BatchExtractor
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	tax, gaz, err := loadReferenceData(cfg)
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}

	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		opts = append(opts, engine.WithEnricher(domain.NewLocationGeocoder(geocoder, logger)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	eng := engine.New(engine.Config{
		BurstWindow:     cfg.BurstWindow,
		BurstThreshold:  cfg.BurstThreshold,
		BurstCapacity:   engine.DefaultBurstCapacity,
		HistoryCapacity: cfg.HistoryCapacity,
		SignalThreshold: cfg.SignalThreshold,
	}, tax, gaz, nil, opts...)

	source, err := newSource(cfg, clock, metrics, logger)
	if err != nil {
		logger.Error("failed to create post source", "error", err)
		os.Exit(1)
	}
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(source, eng, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start threat pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := source.Close(); err != nil {
		logger.Error("post source close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func loadReferenceData(cfg *config.Config) (taxonomy.Taxonomy, taxonomy.Gazetteer, error) {
	tax := taxonomy.DefaultTaxonomy()
	if cfg.TaxonomyFile != "" {
		t, err := taxonomy.LoadTaxonomy(cfg.TaxonomyFile)
		if err != nil {
			return nil, nil, err
		}
		tax = t
	}

	gaz := taxonomy.DefaultGazetteer()
	if cfg.GazetteerFile != "" {
		g, err := taxonomy.LoadGazetteer(cfg.GazetteerFile)
		if err != nil {
			return nil, nil, err
		}
		gaz = g
	}
	return tax, gaz, nil
}

func newSource(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) (postSource, error) {
	if cfg.Source == config.SourceKafka {
		logger.Info("consuming posts from kafka", "topic", cfg.KafkaSourceTopic)
		return kafkaadapter.NewReader(cfg, logger), nil
	}

	feeds, err := collector.ParseFeeds(cfg.RSSFeeds)
	if err != nil {
		return nil, fmt.Errorf("parse RSS_FEEDS: %w", err)
	}
	seed := cfg.CollectorSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	c, err := collector.New(cfg.CollectorType, collector.Options{
		Seed:              seed,
		Clock:             clock,
		MastodonInstances: cfg.MastodonInstances,
		MastodonToken:     cfg.MastodonAccessToken,
		BlueskyUsername:   cfg.BlueskyUsername,
		BlueskyPassword:   cfg.BlueskyAppPassword,
		Feeds:             feeds,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("polling posts from collector",
		"collector", c.Name(),
		"languages", cfg.Languages,
		"limit", cfg.CollectLimit,
		"interval", cfg.PollInterval,
	)
	return collector.NewSource(c, cfg.Languages, cfg.CollectLimit, cfg.PollInterval, clock, metrics, logger), nil
}
