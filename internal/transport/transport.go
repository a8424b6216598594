// Package transport abstracts the outbound HTTP call. The executor only
// needs one capability: send a request and either get an HTTP response
// back or learn that none arrived.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pysugar/connector-gate/internal/util"
)

// Request is one outbound call, already provider-shaped. Credential
// material is attached by the executor before Send.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the provider's answer. Any HTTP status, including errors,
// comes back as a Response; a Send error means no response arrived at
// all (connection failure, timeout).
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one request.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// HTTPClient is the production transport.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a transport with a generous timeout; connector
// calls can carry large uploads.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Send performs the request. The response body is buffered so callers
// can classify and re-read it freely.
func (c *HTTPClient) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
		if util.IsVerbose() {
			log.Printf("🔄 [VERBOSE] %s %s payload: %s", req.Method, req.URL, util.TruncateBytes(req.Body))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
