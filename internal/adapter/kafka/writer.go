package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/asv-water-quality-service/internal/config"
	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes cleaned observations to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish serializes every observation of the batch and writes them in a
// single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, batch domain.CleanedBatch) error {
	if len(batch.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Rows))
	for i := range batch.Rows {
		msg, err := serializeToMessage(batch.Rows[i], batch.Report)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %s: %w", batch.Source.Name, err)
	}
	w.logger.Debug("cleaned batch published", "source", batch.Source.Name, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an observation into a Kafka message keyed by
// its identifier.
func serializeToMessage(obs domain.Observation, report domain.CleaningReport) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation %s: %w", obs.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(obs.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(report.Source)},
			{Key: "cleaned_at", Value: []byte(report.CleanedAt.Format(time.RFC3339))},
		},
	}, nil
}
