package httpclient

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent identifies the viewer to remote services.
const DefaultUserAgent = "news-intelligence-viewer/1.0"

// Options configures a Resty client.
type Options struct {
	// Timeout caps each request. Zero leaves requests bounded by their context only.
	Timeout   time.Duration
	UserAgent string
}

// Resty implements Client on top of go-resty with retries disabled.
type Resty struct {
	rc *resty.Client
}

// New builds a Resty client.
func New(opts Options) *Resty {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	rc := resty.New().
		SetHeader("User-Agent", opts.UserAgent).
		SetRetryCount(0)
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	return &Resty{rc: rc}
}

// Get performs a GET request.
func (c *Resty) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Send(ctx, "GET", url, headers, nil)
}

// Send performs a request with an optional body. Structs and maps are encoded as JSON.
func (c *Resty) Send(ctx context.Context, method, url string, headers map[string]string, body any) (*Response, error) {
	req := c.rc.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(strings.ToUpper(method), url)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status: resp.StatusCode(),
		Header: resp.Header(),
		Body:   resp.Body(),
	}, nil
}
