package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
)

// Writer produces published wide rows to a Kafka topic for downstream
// consumers. It implements pipeline.RowSink.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// PublishRows serializes and publishes the rows in a single WriteMessages
// call so a batch either lands together or fails together.
func (w *Writer) PublishRows(ctx context.Context, rows []domain.WideRow) error {
	if len(rows) == 0 {
		return nil
	}
	publishedAt := w.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d rows to %s: %w", len(rows), w.writer.Topic, err)
	}
	w.logger.Debug("published rows to kafka", "topic", w.writer.Topic, "rows", len(rows))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WideRow into a Kafka message keyed by date,
// so all revisions of one date land in the same partition.
func serializeToMessage(row domain.WideRow, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize wide row: %w", err)
	}
	source := row.Source
	if source == "" {
		source = "historical"
	}
	return kafkago.Message{
		Key:   []byte(row.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(source)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
