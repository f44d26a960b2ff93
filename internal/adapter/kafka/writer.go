package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/colocaviz/cropmap-service/internal/config"
	"github.com/colocaviz/cropmap-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes styled snapshots to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSnapshots serializes and publishes the snapshots in a single
// WriteMessages call. Snapshots of the same item and element hash to the
// same partition, so consumers see a selection's years in order.
func (w *Writer) PublishSnapshots(ctx context.Context, snaps []domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snaps))
	for i := range snaps {
		msg, err := serializeToMessage(snaps[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshots: %w", err)
	}
	w.logger.Info("snapshots published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey identifies a snapshot as item|element|year.
func MessageKey(snap domain.Snapshot) string {
	return fmt.Sprintf("%s|%s|%d", snap.Item, snap.Element, snap.Year)
}

// serializeToMessage marshals a Snapshot into a Kafka message.
func serializeToMessage(snap domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(snap)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "item", Value: []byte(snap.Item)},
			{Key: "element", Value: []byte(snap.Element)},
			{Key: "year", Value: []byte(strconv.Itoa(snap.Year))},
		},
	}, nil
}
