package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/tweet-mapper-etl/internal/config"
	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

// messageWriter is the subset of kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces tweet records to a Kafka topic.
// It implements pipeline.RecordLoader.
type Writer struct {
	writer    messageWriter
	batchSize int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, batchSize: cfg.BatchSize, metrics: metrics, logger: logger}
}

// LoadRecords publishes one message per record, keyed by post ID, in chunks
// of batchSize. Record order is kept within and across chunks.
func (w *Writer) LoadRecords(ctx context.Context, records []domain.TweetRecord) error {
	size := max(w.batchSize, 1)
	for start := 0; start < len(records); start += size {
		chunk := records[start:min(start+size, len(records))]

		msgs := make([]kafkago.Message, len(chunk))
		for i := range chunk {
			msg, err := serializeToMessage(chunk[i])
			if err != nil {
				return err
			}
			msgs[i] = msg
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write %d records at offset %d: %w", len(msgs), start, err)
		}
		w.metrics.RecordsProduced.Add(float64(len(msgs)))
	}
	w.logger.Info("records produced", "records", len(records))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage converts a TweetRecord into a Kafka message.
func serializeToMessage(r domain.TweetRecord) (kafkago.Message, error) {
	out, err := domain.SerializeTweetRecord(r)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   out.Key,
		Value: out.Value,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(out.Headers["status"])},
			{Key: "processed_at", Value: []byte(out.Headers["processed_at"])},
		},
	}, nil
}
