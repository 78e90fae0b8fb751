package publishers

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/samvad-hq/news-intelligence/internal/logger"
	"github.com/samvad-hq/news-intelligence/pkg/httpclient"
)

const maxErrorBodyBytes = 512

// httpPublisher sends each event as a JSON request to a webhook.
type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  httpclient.Client
	log     logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}
	headers := make(map[string]string, len(cfg.HTTP.Headers)+1)
	maps.Copy(headers, cfg.HTTP.Headers)
	headers["Content-Type"] = "application/json"

	return &httpPublisher{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: headers,
		client:  httpclient.New(httpclient.Options{Timeout: time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second}),
		log:     logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the event to the webhook; any non-2xx status is an error.
func (h *httpPublisher) Publish(ctx context.Context, evt ArticleEvent) error {
	headers := maps.Clone(h.headers)
	headers["X-Event-ID"] = evt.EventID

	resp, err := h.client.Send(ctx, h.method, h.url, headers, evt)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("http response status %d: %s", resp.Status, truncateBody(resp.Body))
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"status":       resp.Status,
	})
	return nil
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return strings.TrimSpace(string(body))
}
