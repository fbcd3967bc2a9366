package kafka

import (
	"context"
	"log/slog"
	"slices"

	"github.com/couchcryptid/threat-signal-etl/internal/config"
	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces ranked threats to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes a ranked batch in a single WriteMessages
// call. Message order follows rank order.
func (w *Writer) LoadBatch(ctx context.Context, threats []domain.RankedThreat) error {
	if len(threats) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(threats))
	for i := range threats {
		msg, err := serializeToMessage(threats[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RankedThreat into a Kafka message, keyed by post ID.
func serializeToMessage(t domain.RankedThreat) (kafkago.Message, error) {
	out, err := domain.SerializeRankedThreat(t)
	if err != nil {
		return kafkago.Message{}, err
	}

	keys := make([]string, 0, len(out.Headers))
	for k := range out.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	headers := make([]kafkago.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafkago.Header{Key: k, Value: []byte(out.Headers[k])}
	}
	return kafkago.Message{
		Key:     out.Key,
		Value:   out.Value,
		Headers: headers,
	}, nil
}
