package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/threat-signal-etl/internal/domain"
)

// Post sources selectable with SOURCE.
const (
	SourceKafka     = "kafka"
	SourceCollector = "collector"
)

var collectorTypes = []string{"mock", "simulation", "mastodon", "bluesky", "rss", "aggregated"}

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Post source. With SOURCE=collector posts are polled from a platform
	// collector instead of consumed from KAFKA_SOURCE_TOPIC.
	Source              string
	CollectorType       string
	Languages           []domain.Language
	CollectLimit        int
	PollInterval        time.Duration
	CollectorSeed       uint64
	MastodonInstances   []string
	MastodonAccessToken string
	BlueskyUsername     string
	BlueskyAppPassword  string
	RSSFeeds            string

	// Engine tuning.
	BurstWindow     time.Duration
	BurstThreshold  int
	HistoryCapacity int
	SignalThreshold float64
	TaxonomyFile    string
	GazetteerFile   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parseDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	burstWindow, err := parseDuration("BURST_WINDOW", "120s")
	if err != nil {
		return nil, err
	}
	collectLimit, err := parsePositiveInt("COLLECT_LIMIT", 20)
	if err != nil {
		return nil, err
	}
	burstThreshold, err := parsePositiveInt("BURST_THRESHOLD", 3)
	if err != nil {
		return nil, err
	}
	historyCapacity, err := parsePositiveInt("HISTORY_CAPACITY", 50)
	if err != nil {
		return nil, err
	}
	signalThreshold, err := parseSignalThreshold()
	if err != nil {
		return nil, err
	}
	languages, err := parseLanguages(sharedcfg.EnvOrDefault("LANGUAGES", "fr,de"))
	if err != nil {
		return nil, err
	}
	seed, err := parseSeed()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-social-posts"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "ranked-threats"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "threat-signal-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Source:              strings.ToLower(sharedcfg.EnvOrDefault("SOURCE", SourceKafka)),
		CollectorType:       strings.ToLower(sharedcfg.EnvOrDefault("COLLECTOR_TYPE", "mock")),
		Languages:           languages,
		CollectLimit:        collectLimit,
		PollInterval:        pollInterval,
		CollectorSeed:       seed,
		MastodonInstances:   splitList(os.Getenv("MASTODON_INSTANCES")),
		MastodonAccessToken: os.Getenv("MASTODON_ACCESS_TOKEN"),
		BlueskyUsername:     os.Getenv("BLUESKY_USERNAME"),
		BlueskyAppPassword:  os.Getenv("BLUESKY_APP_PASSWORD"),
		RSSFeeds:            os.Getenv("RSS_FEEDS"),

		BurstWindow:     burstWindow,
		BurstThreshold:  burstThreshold,
		HistoryCapacity: historyCapacity,
		SignalThreshold: signalThreshold,
		TaxonomyFile:    os.Getenv("TAXONOMY_FILE"),
		GazetteerFile:   os.Getenv("GAZETTEER_FILE"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	switch cfg.Source {
	case SourceKafka:
		if cfg.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required")
		}
	case SourceCollector:
		if !slices.Contains(collectorTypes, cfg.CollectorType) {
			return fmt.Errorf("invalid COLLECTOR_TYPE %q: must be one of %s", cfg.CollectorType, strings.Join(collectorTypes, ", "))
		}
		if cfg.CollectorType == "bluesky" && (cfg.BlueskyUsername == "" || cfg.BlueskyAppPassword == "") {
			return errors.New("COLLECTOR_TYPE=bluesky requires BLUESKY_USERNAME and BLUESKY_APP_PASSWORD")
		}
		if cfg.CollectorType == "rss" && cfg.RSSFeeds == "" {
			return errors.New("COLLECTOR_TYPE=rss requires RSS_FEEDS")
		}
	default:
		return fmt.Errorf("invalid SOURCE %q: must be kafka or collector", cfg.Source)
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

// parseSignalThreshold reads SIGNAL_THRESHOLD. Zero disables weak-signal filtering.
func parseSignalThreshold() (float64, error) {
	s := os.Getenv("SIGNAL_THRESHOLD")
	if s == "" {
		return 5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, errors.New("invalid SIGNAL_THRESHOLD: must be a non-negative number")
	}
	return v, nil
}

func parseSeed() (uint64, error) {
	s := os.Getenv("COLLECTOR_SEED")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid COLLECTOR_SEED")
	}
	return v, nil
}

func parseLanguages(s string) ([]domain.Language, error) {
	var langs []domain.Language
	for _, part := range splitList(s) {
		lang := domain.Language(strings.ToLower(part))
		if !lang.Valid() {
			return nil, fmt.Errorf("invalid LANGUAGES: unsupported language %q", part)
		}
		if !slices.Contains(langs, lang) {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return nil, errors.New("LANGUAGES is required")
	}
	return langs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
