package publishers

import "context"

// Publisher sends article events to a downstream sink (SQS, SNS, Pub/Sub, Kafka, HTTP).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt ArticleEvent) error
}

// closer is implemented by publishers holding connections.
type closer interface {
	Close() error
}
