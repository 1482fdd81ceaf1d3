package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const defaultKafkaTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the wire format written to the broker
type envelope struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       Event     `json:"data"`
}

// KafkaSink publishes events as JSON, keyed by user id so a user's events stay ordered
// within a partition. Topic is prefix + event topic.
type KafkaSink struct {
	writer  messageWriter
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafkaSink(brokers []string, topicPrefix string, logger *slog.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		prefix:  topicPrefix,
		timeout: defaultKafkaTimeout,
		logger:  logger,
	}, nil
}

func (k *KafkaSink) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(envelope{
		Type:       event.Topic(),
		UserID:     event.UserID(),
		OccurredAt: time.Now().UTC(),
		Data:       event,
	})
	if err != nil {
		k.logger.Error("failed to encode event", slog.String("topic", event.Topic()), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Topic: k.prefix + event.Topic(),
		Key:   []byte(event.UserID()),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		k.logger.Error("failed to publish event",
			slog.String("topic", k.prefix+event.Topic()),
			slog.String("user_id", event.UserID()),
			slog.Any("error", err),
		)
	}
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
