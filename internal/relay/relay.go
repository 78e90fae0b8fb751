// Package relay forwards loaded articles to downstream publishers.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/news-intelligence/internal/domain"
	"github.com/samvad-hq/news-intelligence/internal/logger"
	"github.com/samvad-hq/news-intelligence/pkg/publishers"
)

const defaultDeliveryTimeout = 15 * time.Second

// EventPublisher delivers one event to every configured sink.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.ArticleEvent) (int, error)
}

// Deduper remembers which article keys were already relayed.
type Deduper interface {
	Published(key string) (bool, error)
	MarkPublished(key string) error
}

// Options tunes a Relay.
type Options struct {
	// Source is recorded on every event, normally the backend endpoint.
	Source  string
	Timeout time.Duration
	Log     logger.Logger
}

// Relay publishes each newly seen article once.
type Relay struct {
	pub     EventPublisher
	dedupe  Deduper
	source  string
	timeout time.Duration
	log     logger.Logger

	// mu serializes deliveries so lookup and mark happen together.
	mu sync.Mutex
}

// New builds a relay. dedupe may be nil, in which case every load is published.
func New(pub EventPublisher, dedupe Deduper, opts Options) (*Relay, error) {
	if pub == nil {
		return nil, fmt.Errorf("event publisher must not be nil")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultDeliveryTimeout
	}
	return &Relay{
		pub:     pub,
		dedupe:  dedupe,
		source:  opts.Source,
		timeout: opts.Timeout,
		log:     logger.Ensure(opts.Log),
	}, nil
}

// Deliver publishes resp unless the same article was relayed before.
// Failures are logged only.
func (r *Relay) Deliver(ctx context.Context, resp domain.ArticleResponse) {
	if _, err := r.Relay(ctx, resp); err != nil {
		r.log.ErrorObj("article relay failed", "relay_error", map[string]any{
			"headline": resp.News.Headline,
			"error":    err.Error(),
		})
	}
}

// Relay publishes resp and reports whether it was sent.
func (r *Relay) Relay(ctx context.Context, resp domain.ArticleResponse) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := publishers.ArticleKey(resp.News)
	if r.seen(key) {
		r.log.DebugObj("article already relayed", "relay_skip", key)
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	evt := publishers.NewArticleEvent(r.source, resp)
	delivered, err := r.pub.Publish(ctx, evt)
	if delivered == 0 {
		if err == nil {
			return false, nil
		}
		return false, fmt.Errorf("publish article %s: %w", key, err)
	}

	if r.dedupe != nil {
		if markErr := r.dedupe.MarkPublished(key); markErr != nil {
			r.log.WarnObj("failed to remember relayed article", "relay_dedupe_error", map[string]any{
				"article_key": key,
				"error":       markErr.Error(),
			})
		}
	}

	r.log.InfoObj("article relayed", "relay_result", map[string]any{
		"event_id":    evt.EventID,
		"article_key": key,
		"delivered":   delivered,
	})
	if err != nil {
		return true, fmt.Errorf("publish article %s partially: %w", key, err)
	}
	return true, nil
}

// seen fails open: a lookup error relays the article again.
func (r *Relay) seen(key string) bool {
	if r.dedupe == nil {
		return false
	}
	ok, err := r.dedupe.Published(key)
	if err != nil {
		r.log.WarnObj("dedupe lookup failed", "relay_dedupe_error", map[string]any{
			"article_key": key,
			"error":       err.Error(),
		})
		return false
	}
	return ok
}
