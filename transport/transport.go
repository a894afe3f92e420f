// Package transport provides the HTTP layer of the S3 client: a narrow
// Client interface the rest of the library (and its mocks) depend on, body
// sources covering memory, file-range and callback payloads, and a default
// implementation backed by a process-wide pooled http.Transport.
package transport

import (
	"context"
	"io"
	"net/http"
)

//go:generate mockgen -destination=mock/mock_transport.go -package=mock github.com/derektruong/s3xfer/transport Client

// Request describes one HTTP exchange against an S3 endpoint. The URL is
// fully formed (endpoint + path + encoded query); headers already include
// any signing material.
type Request struct {
	// Method is one of GET, PUT, POST, DELETE, HEAD.
	Method string

	// URL is the absolute request URL.
	URL string

	// Header holds the request headers. A "host" entry overrides the Host
	// derived from the URL, which keeps signatures valid across tunnels.
	Header map[string]string

	// Body is the request payload, nil for an empty body. PUT/POST bodies
	// are sent with their exact Content-Length, never chunked.
	Body BodySource

	// Sink, when non-nil, receives the response body of successful
	// requests instead of it being buffered into Response.Body. Error
	// bodies are always buffered so they can be decoded.
	Sink io.Writer
}

// Response is the outcome of a Request.
type Response struct {
	// StatusCode is the HTTP status code after any redirects.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the buffered response body. Empty when the body was streamed
	// into Request.Sink.
	Body []byte
}

// ETag returns the raw (still quoted) ETag response header.
func (r *Response) ETag() string { return r.Header.Get("ETag") }

// Client issues HTTP requests. It is deliberately narrow so tests can
// substitute a generated mock or an in-process server.
type Client interface {
	// Do sends the request and returns the response. Transport-level
	// failures (DNS, TCP, TLS, broken pipe) are returned as errors;
	// any HTTP status, including 4xx/5xx, yields a Response.
	Do(ctx context.Context, req *Request) (resp *Response, err error)

	// Close releases the client's share of the pooled transport.
	Close()
}
