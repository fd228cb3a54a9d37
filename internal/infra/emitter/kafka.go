package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/brazyl/brazyl/internal/core/domain"
)

// KafkaConfig holds the delivery event topic settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "brazyl.notifications.delivery"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes JSON delivery events keyed by notification id, so all
// events of one notification land on the same partition.
type KafkaEmitter struct {
	writer messageWriter
	log    *slog.Logger
}

// NewKafkaEmitter creates a synchronous producer for cfg.Topic.
func NewKafkaEmitter(cfg KafkaConfig) *KafkaEmitter {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaEmitter(w, topic)
}

func newKafkaEmitter(w messageWriter, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: w,
		log:    slog.Default().With("component", "kafka-emitter", "topic", topic),
	}
}

func (e *KafkaEmitter) Emit(ctx context.Context, event *domain.DeliveryEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling delivery event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.NotificationID),
		Value: value,
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		e.log.Error("Failed to publish delivery event",
			"notification_id", event.NotificationID,
			"error", err,
		)
		return fmt.Errorf("publishing to kafka: %w", err)
	}

	e.log.Debug("Delivery event published",
		"notification_id", event.NotificationID,
		"status", event.Status,
	)
	return nil
}

// Close flushes pending writes and closes the underlying writer.
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}
