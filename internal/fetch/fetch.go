// Package fetch performs bounded HTTP requests against third-party services.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout = 10 * time.Second
	UserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"
)

// Client wraps a fasthttp client so that every call resolves within a
// bounded time
type Client struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// New creates a client. A nil fasthttp client uses a default one and a
// non-positive timeout uses DefaultTimeout.
func New(client *fasthttp.Client, timeout time.Duration) *Client {
	if client == nil {
		client = &fasthttp.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{client: client, timeout: timeout}
}

// Get fetches url and returns a copy of the response body. Non-200 responses
// are errors.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	return c.Do(ctx, req)
}

// Do sends req, bounded by the client timeout and the context deadline,
// whichever is sooner
func (c *Client) Do(ctx context.Context, req *fasthttp.Request) ([]byte, error) {
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if len(req.Header.UserAgent()) == 0 {
		req.Header.Set("User-Agent", UserAgent)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request to %s cancelled: %w", req.URI().Host(), err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("request to %s skipped: %w", req.URI().Host(), context.DeadlineExceeded)
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URI().Host(), err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%s returned non-200 status code: %d", req.URI().Host(), resp.StatusCode())
	}

	body := resp.Body()
	data := make([]byte, len(body))
	copy(data, body)
	return data, nil
}
