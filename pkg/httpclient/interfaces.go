package httpclient

import (
	"context"
	"net/http"
)

// Client issues single HTTP requests. A non-nil error means no response arrived.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
	Send(ctx context.Context, method, url string, headers map[string]string, body any) (*Response, error)
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}
