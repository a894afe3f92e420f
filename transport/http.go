package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

// HTTPClient is the default Client implementation over net/http. Instances
// share one pooled http.Transport; see pool.go for the lifecycle rules.
type HTTPClient struct {
	client *http.Client
	logger logr.Logger

	closeOnce func()
}

// NewHTTPClient constructs a Client sharing the process-wide transport.
// Callers own the client and must Close it.
func NewHTTPClient(logger logr.Logger) (c *HTTPClient) {
	var once func()
	released := false
	once = func() {
		if !released {
			released = true
			releasePool()
		}
	}
	c = &HTTPClient{
		client:    &http.Client{Transport: acquirePool()},
		logger:    logger.WithName("transport"),
		closeOnce: once,
	}
	return
}

// Close releases this client's share of the pooled transport.
func (c *HTTPClient) Close() { c.closeOnce() }

// Do implements Client.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (resp *Response, err error) {
	var httpReq *http.Request
	if httpReq, err = http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, nil); err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}

	if req.Body != nil {
		var body io.ReadCloser
		if body, err = req.Body.NewReader(); err != nil {
			return nil, err
		}
		httpReq.Body = body
		// exact byte count: an explicit ContentLength keeps net/http from
		// switching to Transfer-Encoding: chunked, which S3 rejects
		httpReq.ContentLength = req.Body.Len()
		source := req.Body
		httpReq.GetBody = func() (io.ReadCloser, error) { return source.NewReader() }
	}

	for k, v := range req.Header {
		switch strings.ToLower(k) {
		case "host":
			// signatures cover the signing host, which may differ from the
			// transport host when requests travel through a tunnel
			httpReq.Host = v
		case "content-length":
			// carried by the ContentLength field, not the header map
		default:
			httpReq.Header.Set(k, v)
		}
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()
	c.logger.V(1).Info("request completed",
		"method", req.Method, "url", req.URL, "status", httpResp.StatusCode)

	resp = &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
	}

	if req.Sink != nil && httpResp.StatusCode < 300 {
		if _, err = io.Copy(req.Sink, httpResp.Body); err != nil {
			return nil, fmt.Errorf("transport: read response body: %w", err)
		}
		return
	}
	if resp.Body, err = io.ReadAll(httpResp.Body); err != nil {
		return nil, fmt.Errorf("transport: read response body: %w", err)
	}
	return
}
