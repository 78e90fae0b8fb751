package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/samvad-hq/news-intelligence/internal/logger"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaPublisher produces events to a Kafka topic keyed by article.
type kafkaPublisher struct {
	id     string
	topic  string
	writer kafkaWriter
	log    logger.Logger
}

func newKafkaPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.Kafka == nil {
		return nil, fmt.Errorf("publisher %q missing kafka configuration", cfg.ID)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &kafkaPublisher{
		id:     cfg.ID,
		topic:  cfg.Kafka.Topic,
		writer: writer,
		log:    logger.Ensure(log),
	}, nil
}

func (k *kafkaPublisher) ID() string   { return k.id }
func (k *kafkaPublisher) Type() string { return TypeKafka }

// Publish writes the event synchronously; the article key pins ordering to one partition.
func (k *kafkaPublisher) Publish(ctx context.Context, evt ArticleEvent) error {
	data, err := marshalEvent(evt)
	if err != nil {
		return err
	}

	headers := make([]kafka.Header, 0, 2)
	for key, val := range eventAttributes(evt) {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(val)})
	}

	msg := kafka.Message{
		Key:     []byte(evt.ArticleKey),
		Value:   []byte(data),
		Headers: headers,
		Time:    time.Now(),
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.ErrorObj("kafka publisher send failed", "publisher_kafka_error", map[string]any{
			"publisher_id": k.id,
			"topic":        k.topic,
			"error":        err.Error(),
		})
		return fmt.Errorf("write message to kafka: %w", err)
	}
	k.log.DebugObj("kafka publisher delivered event", "publisher_kafka_delivery", map[string]any{
		"publisher_id": k.id,
		"topic":        k.topic,
	})
	return nil
}

// Close flushes and closes the writer.
func (k *kafkaPublisher) Close() error { return k.writer.Close() }
