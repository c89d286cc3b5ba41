package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/opendata-summary/internal/config"
	"github.com/couchcryptid/opendata-summary/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces summary results to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured summary topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes the JSON rendering of a result, keyed by its source file so
// successive summaries of one snapshot land on the same partition.
func (p *Publisher) Publish(ctx context.Context, a domain.Artifact) error {
	msg := serializeToMessage(a, domain.Now())
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish summary to %s: %w", p.writer.Topic, err)
	}
	p.logger.Debug("summary published", "topic", p.writer.Topic, "key", string(msg.Key), "run_id", a.RunID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage wraps a rendered artifact into a Kafka message.
func serializeToMessage(a domain.Artifact, generatedAt time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(a.Result.SourceFile),
		Value: a.JSON,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(a.RunID)},
			{Key: "encoding", Value: []byte(a.Encoding)},
			{Key: "generated_at", Value: []byte(generatedAt.UTC().Format(time.RFC3339))},
		},
	}
}
