package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/news-intelligence/internal/domain"
	"github.com/samvad-hq/news-intelligence/internal/logger"
)

// ErrClosed is returned by Wait after the controller has been closed.
var ErrClosed = errors.New("view controller closed")

// Options tunes a Controller.
type Options struct {
	// Timeout bounds each fetch. Zero means the fetch is bounded only by Close.
	Timeout time.Duration
	// Sink receives every successfully loaded article. Optional.
	Sink ArticleSink
	Log  logger.Logger
}

// Controller owns one viewer's state and drives its fetch cycle.
// At most one fetch is in flight at any time.
type Controller struct {
	fetcher Fetcher
	sink    ArticleSink
	timeout time.Duration
	log     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	generation uint64
	done       chan struct{}
	closed     bool
	inflight   sync.WaitGroup
}

// NewController builds an idle controller around fetcher.
func NewController(fetcher Fetcher, opts Options) (*Controller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher must not be nil")
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	close(done)

	return &Controller{
		fetcher: fetcher,
		sink:    opts.Sink,
		timeout: opts.Timeout,
		log:     logger.Ensure(opts.Log),
		ctx:     ctx,
		cancel:  cancel,
		done:    done,
	}, nil
}

// Trigger starts a fetch unless one is already running.
// Loading is set before Trigger returns; the fetch itself runs in the background.
// It reports whether a new fetch was started.
func (c *Controller) Trigger() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if c.state.Loading {
		c.log.DebugObj("trigger ignored while loading", "view_state", c.state.Resolve())
		return false
	}

	c.state.Loading = true
	c.state.Error = ""
	c.done = make(chan struct{})
	c.inflight.Add(1)

	go c.run(c.done)
	return true
}

func (c *Controller) run(done chan struct{}) {
	defer c.inflight.Done()

	resp, err := c.fetch()
	loaded := c.settle(resp, err)
	close(done)

	// Delivery outlives Close so a loaded article is still relayed on shutdown.
	if loaded != nil && c.sink != nil {
		c.sink.Deliver(context.WithoutCancel(c.ctx), *loaded)
	}
}

// fetch calls the fetcher with the per-request deadline and turns panics into errors.
func (c *Controller) fetch() (resp *domain.ArticleResponse, err error) {
	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorObj("fetcher panicked", "panic", fmt.Sprint(r))
			resp, err = nil, errors.New("Unknown error")
		}
	}()

	return c.fetcher.Fetch(ctx)
}

// settle moves the controller out of Loading into exactly one of Loaded or Error.
func (c *Controller) settle(resp *domain.ArticleResponse, err error) *domain.ArticleResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Loading = false
	c.generation++

	switch {
	case err != nil:
		c.state.Error = "Error: " + err.Error()
		c.log.WarnObj("news fetch failed", "view_error", c.state.Error)
		return nil
	case resp == nil:
		c.state.Error = NoPayloadMessage
		c.log.WarnObj("news fetch returned no payload", "view_error", c.state.Error)
		return nil
	default:
		c.state.Response = resp
		c.log.InfoObj("news article loaded", "view_article", map[string]any{
			"headline":   resp.News.Headline,
			"timestamp":  resp.News.Timestamp,
			"generation": c.generation,
		})
		return resp
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.clone()
	return Snapshot{
		State:      st,
		Phase:      st.Resolve(),
		Generation: c.generation,
	}
}

// Wait blocks until no fetch is in flight, ctx is done, or the controller is closed.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		<-done
		return ErrClosed
	}
}

// Close cancels any in-flight fetch and waits for it to settle.
// Subsequent triggers are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.inflight.Wait()
}
