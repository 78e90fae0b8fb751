package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/samvad-hq/news-intelligence/internal/logger"
)

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherKeysByArticle(t *testing.T) {
	w := &fakeKafkaWriter{}
	pub := &kafkaPublisher{id: "k", topic: "news-updates", writer: w, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "key-1" {
		t.Fatalf("message key = %q", w.msgs[0].Key)
	}
	if len(w.msgs[0].Headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(w.msgs[0].Headers))
	}

	if err := pub.Close(); err != nil || !w.closed {
		t.Fatalf("Close: err=%v closed=%v", err, w.closed)
	}
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	pub := &kafkaPublisher{id: "k", topic: "t", writer: &fakeKafkaWriter{err: boom}, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), testEvent()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestNewKafkaPublisherRequiresConfig(t *testing.T) {
	if _, err := newKafkaPublisher(context.Background(), PublisherConfig{ID: "k", Type: TypeKafka}, nil); err == nil {
		t.Fatalf("expected error for missing kafka block")
	}
}
