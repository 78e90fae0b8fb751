package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/news-intelligence/internal/logger"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, ArticleEvent) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "http"},
		nil,
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
	})
	if fanout.Size() != 2 {
		t.Fatalf("nil publishers should be dropped, size=%d", fanout.Size())
	}

	count, err := fanout.Publish(context.Background(), ArticleEvent{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
}

func TestFanoutStopsOnCancelledContext(t *testing.T) {
	stub := &stubPublisher{id: "ok", typ: "http"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := NewFanout([]Publisher{stub}).Publish(ctx, ArticleEvent{})
	if count != 0 || !errors.Is(err, context.Canceled) || stub.calls != 0 {
		t.Fatalf("expected no publish on cancelled context, count=%d err=%v calls=%d", count, err, stub.calls)
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	stub := &stubPublisher{id: "ok", typ: "kafka"}
	if err := NewFanout([]Publisher{stub}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stub.closed {
		t.Fatalf("publisher not closed")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	pubs, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
		{ID: "kafka", Type: TypeKafka, Kafka: &KafkaPublisherConfig{Brokers: []string{"localhost:9092"}, Topic: "news"}},
	}, logger.NopLogger{})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 2 {
		t.Fatalf("expected 2 publishers, got %d", len(pubs))
	}
	_ = NewFanout(pubs).Close()
}

func TestBuildAllRejectsUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{
		{ID: "x", Type: "carrier-pigeon"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error for unknown publisher type")
	}
}

func TestRegistryTypesAndCustomBuilder(t *testing.T) {
	reg := DefaultRegistry()
	want := []string{TypeGCPPubSub, TypeHTTP, TypeKafka, TypeSNS, TypeSQS}
	got := reg.Types()
	if len(got) != len(want) {
		t.Fatalf("Types = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Types = %v, want %v", got, want)
		}
	}

	stub := &stubPublisher{id: "s", typ: "stub"}
	reg.Register(" STUB ", func(context.Context, PublisherConfig, logger.Logger) (Publisher, error) {
		return stub, nil
	})
	pub, err := reg.Build(context.Background(), PublisherConfig{ID: "s", Type: "stub"}, nil)
	if err != nil || pub != stub {
		t.Fatalf("Build custom: pub=%v err=%v", pub, err)
	}
}

func TestBuildAllClosesBuiltOnFailure(t *testing.T) {
	first := &stubPublisher{id: "first", typ: "stub"}
	reg := NewRegistry().
		Register("stub", func(context.Context, PublisherConfig, logger.Logger) (Publisher, error) { return first, nil }).
		Register("broken", func(context.Context, PublisherConfig, logger.Logger) (Publisher, error) {
			return nil, errors.New("no credentials")
		})

	_, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "first", Type: "stub"},
		{ID: "second", Type: "broken"},
	}, nil)
	if err == nil {
		t.Fatalf("expected build error")
	}
	if !first.closed {
		t.Fatalf("already built publisher should be closed on failure")
	}
}
