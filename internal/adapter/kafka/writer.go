package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/painel-obra/internal/config"
	"github.com/couchcryptid/painel-obra/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces board snapshots to a Kafka topic.
// It implements pipeline.BoardPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured board topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaBoardTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishBoard serializes board and writes it keyed by its snapshot id, so
// every board of one snapshot lands on the same partition.
func (p *Publisher) PublishBoard(ctx context.Context, board domain.Board) error {
	msg, err := serializeToMessage(board)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish board %s: %w", board.SnapshotID, err)
	}
	p.logger.Debug("board published", "snapshot_id", board.SnapshotID, "sites", len(board.Sites), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Board into a Kafka message.
func serializeToMessage(board domain.Board) (kafkago.Message, error) {
	data, err := json.Marshal(board)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize board: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(board.SnapshotID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "snapshot_id", Value: []byte(board.SnapshotID)},
			{Key: "fetched_at", Value: []byte(board.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
