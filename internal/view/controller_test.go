package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/news-intelligence/internal/domain"
)

// gatedFetcher blocks each call until release is signalled, then returns the preset result.
type gatedFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	resp    *domain.ArticleResponse
	err     error
}

func newGatedFetcher(resp *domain.ArticleResponse, err error) *gatedFetcher {
	return &gatedFetcher{release: make(chan struct{}), resp: resp, err: err}
}

func (g *gatedFetcher) Fetch(ctx context.Context) (*domain.ArticleResponse, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
		return g.resp, g.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// funcFetcher adapts a function to Fetcher.
type funcFetcher func(ctx context.Context) (*domain.ArticleResponse, error)

func (f funcFetcher) Fetch(ctx context.Context) (*domain.ArticleResponse, error) { return f(ctx) }

// recordingSink captures delivered articles.
type recordingSink struct {
	mu        sync.Mutex
	delivered []domain.ArticleResponse
}

func (r *recordingSink) Deliver(_ context.Context, resp domain.ArticleResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, resp)
}

func article(headline string) *domain.ArticleResponse {
	return &domain.ArticleResponse{
		Success: true,
		News: domain.News{
			Headline:  headline,
			Content:   "<p>" + headline + "</p>",
			Timestamp: "2025-07-01T10:30:00",
		},
	}
}

func waitSettled(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestInitialSnapshotIsIdle(t *testing.T) {
	c, err := NewController(newGatedFetcher(nil, nil), Options{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	defer c.Close()

	snap := c.Snapshot()
	if snap.Phase != PhaseIdle || snap.Loading || snap.Error != "" || snap.Response != nil {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
}

func TestTriggerSetsLoadingBeforeFetchResolves(t *testing.T) {
	f := newGatedFetcher(article("first"), nil)
	c, _ := NewController(f, Options{})
	defer c.Close()

	if !c.Trigger() {
		t.Fatalf("expected trigger to start a fetch")
	}
	if snap := c.Snapshot(); !snap.Loading || snap.Phase != PhaseLoading {
		t.Fatalf("expected loading immediately after trigger, got %+v", snap)
	}

	close(f.release)
	waitSettled(t, c)

	snap := c.Snapshot()
	if snap.Loading || snap.Phase != PhaseLoaded {
		t.Fatalf("expected loaded after resolution, got %+v", snap)
	}
	if snap.Response.News.Headline != "first" {
		t.Fatalf("unexpected headline %q", snap.Response.News.Headline)
	}
}

func TestTriggerWhileLoadingIssuesNoSecondRequest(t *testing.T) {
	f := newGatedFetcher(article("only"), nil)
	c, _ := NewController(f, Options{})
	defer c.Close()

	if !c.Trigger() {
		t.Fatalf("first trigger should start")
	}
	if c.Trigger() {
		t.Fatalf("second trigger should be rejected while loading")
	}

	close(f.release)
	waitSettled(t, c)

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", got)
	}
}

func TestFetchErrorIsPrefixedAndClearsLoading(t *testing.T) {
	f := newGatedFetcher(nil, errors.New("rate limited"))
	c, _ := NewController(f, Options{})
	defer c.Close()

	c.Trigger()
	close(f.release)
	waitSettled(t, c)

	snap := c.Snapshot()
	if snap.Loading {
		t.Fatalf("loading should be false after failure")
	}
	if snap.Phase != PhaseError || snap.Error != "Error: rate limited" {
		t.Fatalf("unexpected error snapshot %+v", snap)
	}
}

func TestNilPayloadBecomesError(t *testing.T) {
	f := newGatedFetcher(nil, nil)
	c, _ := NewController(f, Options{})
	defer c.Close()

	c.Trigger()
	close(f.release)
	waitSettled(t, c)

	if snap := c.Snapshot(); snap.Error != NoPayloadMessage {
		t.Fatalf("expected no-payload message, got %q", snap.Error)
	}
}

func TestErrorWinsOverStaleResponse(t *testing.T) {
	var fail atomic.Bool
	f := funcFetcher(func(context.Context) (*domain.ArticleResponse, error) {
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return article("stale"), nil
	})
	c, _ := NewController(f, Options{})
	defer c.Close()

	c.Trigger()
	waitSettled(t, c)

	fail.Store(true)
	c.Trigger()
	waitSettled(t, c)

	snap := c.Snapshot()
	if snap.Phase != PhaseError {
		t.Fatalf("expected error phase, got %s", snap.Phase)
	}
	if snap.Response == nil || snap.Response.News.Headline != "stale" {
		t.Fatalf("previous response should be retained, got %+v", snap.Response)
	}

	fail.Store(false)
	c.Trigger()
	if snap := c.Snapshot(); snap.Error != "" {
		t.Fatalf("trigger should clear the error, got %q", snap.Error)
	}
	waitSettled(t, c)
	if snap := c.Snapshot(); snap.Phase != PhaseLoaded || snap.Generation != 3 {
		t.Fatalf("expected loaded third generation, got %+v", snap)
	}
}

func TestTimeoutSettlesIntoError(t *testing.T) {
	f := newGatedFetcher(article("never"), nil)
	c, _ := NewController(f, Options{Timeout: 20 * time.Millisecond})
	defer c.Close()

	c.Trigger()
	waitSettled(t, c)

	snap := c.Snapshot()
	if snap.Phase != PhaseError || snap.Error != "Error: "+context.DeadlineExceeded.Error() {
		t.Fatalf("expected deadline error, got %+v", snap)
	}
}

func TestCloseCancelsInflightFetch(t *testing.T) {
	f := newGatedFetcher(article("never"), nil)
	c, _ := NewController(f, Options{})

	c.Trigger()
	c.Close()

	snap := c.Snapshot()
	if snap.Loading || snap.Phase != PhaseError {
		t.Fatalf("expected error after close, got %+v", snap)
	}
	if c.Trigger() {
		t.Fatalf("trigger after close should be ignored")
	}
}

func TestPanicInFetcherSettlesIntoError(t *testing.T) {
	c, _ := NewController(funcFetcher(func(context.Context) (*domain.ArticleResponse, error) {
		panic("kaboom")
	}), Options{})
	defer c.Close()

	c.Trigger()
	waitSettled(t, c)

	if snap := c.Snapshot(); snap.Error != "Error: Unknown error" {
		t.Fatalf("unexpected error %q", snap.Error)
	}
}

func TestSinkReceivesLoadedArticlesOnly(t *testing.T) {
	sink := &recordingSink{}
	var fail atomic.Bool
	c, _ := NewController(funcFetcher(func(context.Context) (*domain.ArticleResponse, error) {
		if fail.Load() {
			return nil, errors.New("down")
		}
		return article("relayed"), nil
	}), Options{Sink: sink})

	c.Trigger()
	waitSettled(t, c)
	fail.Store(true)
	c.Trigger()
	waitSettled(t, c)
	c.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.delivered) != 1 || sink.delivered[0].News.Headline != "relayed" {
		t.Fatalf("unexpected deliveries %+v", sink.delivered)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c, _ := NewController(funcFetcher(func(context.Context) (*domain.ArticleResponse, error) {
		return article("original"), nil
	}), Options{})
	defer c.Close()

	c.Trigger()
	waitSettled(t, c)

	snap := c.Snapshot()
	snap.Response.News.Headline = "mutated"
	if got := c.Snapshot().Response.News.Headline; got != "original" {
		t.Fatalf("snapshot mutation leaked into controller: %q", got)
	}
}
