// Package fetch downloads remote assets such as preview images and signed
// design-file URLs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const maxRedirects = 5

var ErrTooLarge = errors.New("response body too large")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

type Client struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// New returns a client whose requests never outlive timeout and whose
// responses are capped at maxBody bytes.
func New(timeout time.Duration, maxBody int) *Client {
	return &Client{
		client: &fasthttp.Client{
			Name:                "embroidery-shop-fetch",
			MaxResponseBodySize: maxBody,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
		timeout: timeout,
	}
}

// Fetch GETs url and returns the body. The context deadline applies when it
// is earlier than the client timeout.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	target := url
	for i := 0; ; i++ {
		req.Reset()
		resp.Reset()
		req.SetRequestURI(target)
		req.Header.SetMethod(fasthttp.MethodGet)

		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			if errors.Is(err, fasthttp.ErrBodyTooLarge) {
				return nil, fmt.Errorf("GET %s: %w", url, ErrTooLarge)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("GET %s: %w", url, err)
		}

		code := resp.StatusCode()
		if fasthttp.StatusCodeIsRedirect(code) && i < maxRedirects {
			location := resp.Header.Peek(fasthttp.HeaderLocation)
			if len(location) == 0 {
				return nil, &StatusError{URL: url, Code: code}
			}
			next := req.URI()
			next.UpdateBytes(location)
			target = next.String()
			continue
		}
		if code < 200 || code > 299 {
			return nil, &StatusError{URL: url, Code: code}
		}
		return append([]byte(nil), resp.Body()...), nil
	}
}
