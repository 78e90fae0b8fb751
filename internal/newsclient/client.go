package newsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/news-intelligence/internal/domain"
	"github.com/samvad-hq/news-intelligence/internal/logger"
	"github.com/samvad-hq/news-intelligence/pkg/httpclient"
)

const maxSnippetBytes = 512

// Client fetches the latest reframed article from the news backend.
type Client struct {
	http     httpclient.Client
	endpoint string
	log      logger.Logger
}

// New builds a Client for the given endpoint. A nil http client falls back to resty
// without a client-side timeout; callers bound requests through the context.
func New(endpoint string, http httpclient.Client, log logger.Logger) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("news endpoint must not be empty")
	}
	if http == nil {
		http = httpclient.New(httpclient.Options{})
	}
	return &Client{
		http:     http,
		endpoint: endpoint,
		log:      logger.Ensure(log),
	}, nil
}

// Endpoint returns the configured backend URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Fetch performs one GET against the backend.
// A nil response with a nil error means the backend returned no usable payload.
func (c *Client) Fetch(ctx context.Context) (*domain.ArticleResponse, error) {
	resp, err := c.http.Get(ctx, c.endpoint, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		terr := &TransportError{Err: err}
		c.logFailure(terr, 0, nil)
		return nil, terr
	}

	body := resp.Body
	if !resp.OK() {
		serr := &StatusError{
			StatusCode: resp.Status,
			Message:    errorMessage(body),
		}
		c.logFailure(serr, resp.Status, body)
		return nil, serr
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var out domain.ArticleResponse
	if err := json.Unmarshal(trimmed, &out); err != nil {
		derr := &DecodeError{Err: err}
		c.logFailure(derr, resp.Status, body)
		return nil, derr
	}
	if !out.Success {
		c.log.WarnObj("backend reported success=false", "fetch_meta", map[string]any{
			"endpoint": c.endpoint,
			"headline": out.News.Headline,
		})
	}
	return &out, nil
}

// errorMessage extracts the server-supplied error text or the fallback.
func errorMessage(body []byte) string {
	var eb domain.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return FallbackStatusMessage
	}
	if msg := strings.TrimSpace(eb.Error); msg != "" {
		return msg
	}
	return FallbackStatusMessage
}

func (c *Client) logFailure(err error, status int, body []byte) {
	fields := map[string]any{
		"endpoint": c.endpoint,
		"error":    err.Error(),
	}
	if status != 0 {
		fields["status"] = status
	}
	if len(body) > 0 {
		fields["body"] = snippet(body)
	}
	c.log.WarnObj("error fetching news", "fetch_error", fields)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetBytes {
		return s[:maxSnippetBytes] + "..."
	}
	return s
}
