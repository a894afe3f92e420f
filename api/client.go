// Package api implements the S3 REST operation facade: one method per
// operation, composed from the SigV4 signer, the transport request builder
// and the XML response decoder. It also hosts the multipart upload
// coordinator and the error taxonomy shared with the transfer engine.
package api

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/derektruong/s3xfer/sigv4"
	"github.com/derektruong/s3xfer/transport"
	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Config carries the connection settings of a Client.
type Config struct {
	// Endpoint is the transport endpoint, scheme://host[:port].
	Endpoint string `json:"endpoint" yaml:"endpoint" validate:"required,url"`
	// SignEndpoint is used for signing when it differs from the transport
	// endpoint (e.g. requests travelling through a tunnel). Defaults to
	// Endpoint.
	SignEndpoint string `json:"signEndpoint" yaml:"signEndpoint" validate:"omitempty,url"`
	// Region defaults to us-east-1.
	Region string `json:"region" yaml:"region"`
	// AccessKey and SecretKey are the S3 credentials. Both empty means
	// every request is sent anonymously, without an Authorization header.
	AccessKey string `json:"accessKey" yaml:"accessKey"`
	SecretKey string `json:"secretKey" yaml:"secretKey"`
}

func (c Config) Validate(ctx context.Context) error {
	if err := validate.StructCtx(ctx, c); err != nil {
		return err
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return &ConfigError{Reason: "both access and secret keys have to be specified"}
	}
	return nil
}

// Client is the S3 operation facade. A Client owns its credentials,
// endpoint and HTTP handle exclusively; it is safe for concurrent use.
type Client struct {
	logger logr.Logger
	cfg    Config

	http     transport.Client
	ownsHTTP bool
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTransport injects a transport.Client, replacing the default pooled
// HTTP client. The caller keeps ownership of the injected transport.
func WithTransport(t transport.Client) ClientOption {
	return func(c *Client) {
		c.http = t
		c.ownsHTTP = false
	}
}

// NewClient constructs a Client for one endpoint.
func NewClient(logger logr.Logger, cfg Config, options ...ClientOption) (c *Client, err error) {
	if err = cfg.Validate(context.Background()); err != nil {
		return
	}
	if cfg.Region == "" {
		cfg.Region = sigv4.DefaultRegion
	}
	if cfg.SignEndpoint == "" {
		cfg.SignEndpoint = cfg.Endpoint
	}
	c = &Client{
		logger: logger.WithName("api"),
		cfg:    cfg,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.http == nil {
		c.http = transport.NewHTTPClient(logger)
		c.ownsHTTP = true
	}
	return
}

// Close releases the client's transport share. Injected transports are left
// to their owner.
func (c *Client) Close() {
	if c.ownsHTTP {
		c.http.Close()
	}
}

// Endpoint returns the transport endpoint the client talks to.
func (c *Client) Endpoint() string { return c.cfg.Endpoint }

// Region returns the client's signing region.
func (c *Client) Region() string { return c.cfg.Region }

// anonymous reports whether requests are sent unsigned.
func (c *Client) anonymous() bool { return c.cfg.AccessKey == "" }

// SignedURL produces a presigned URL for method on bucket/key, valid for
// expires seconds.
func (c *Client) SignedURL(method, bucket, key string, expires int, params map[string]string) (string, error) {
	return sigv4.SignedURL(sigv4.Config{
		Access:     c.cfg.AccessKey,
		Secret:     c.cfg.SecretKey,
		Endpoint:   c.cfg.SignEndpoint,
		Method:     method,
		Bucket:     bucket,
		Key:        key,
		Parameters: params,
		Region:     c.cfg.Region,
		Expires:    expires,
	})
}

// SendParams describes one generic S3 REST exchange for callers that need
// an operation the facade does not wrap, e.g. the s3-client command.
type SendParams struct {
	// Method is one of GET, PUT, POST, DELETE, HEAD.
	Method string
	Bucket string
	Key    string
	// Params become the (signed) query string.
	Params map[string]string
	// Headers must use lowercase keys.
	Headers map[string]string
	// PayloadHash is the hex SHA-256 of Body, empty for UNSIGNED-PAYLOAD.
	PayloadHash string
	// Body is the request payload, nil for none.
	Body transport.BodySource
	// Sink receives the response body of successful requests; nil buffers
	// it into the returned Response.
	Sink io.Writer
}

// Send signs and issues a generic request, classifying the response status
// into the error taxonomy.
func (c *Client) Send(ctx context.Context, p SendParams) (*transport.Response, error) {
	method := strings.ToUpper(p.Method)
	switch method {
	case "GET", "PUT", "POST", "DELETE", "HEAD":
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf(
			"only GET, PUT, POST, DELETE and HEAD are supported, got %q", p.Method)}
	}
	return c.send(ctx, sendParams{
		method:      method,
		bucket:      p.Bucket,
		key:         p.Key,
		params:      p.Params,
		headers:     p.Headers,
		payloadHash: p.PayloadHash,
		body:        p.Body,
		sink:        p.Sink,
		quiet404:    method == "HEAD",
	})
}

// sendParams describes one S3 REST exchange.
type sendParams struct {
	method      string
	bucket      string
	key         string
	params      map[string]string
	headers     map[string]string // lowercase keys
	payloadHash string
	body        transport.BodySource
	sink        io.Writer
	quiet404    bool // HEAD probes: 404 becomes a typed NotFound
}

func resourcePath(bucket, key string) string {
	path := ""
	if bucket != "" {
		path += "/" + bucket
		if key != "" {
			path += "/" + key
		}
	}
	return path
}

// send signs (unless anonymous), issues the request and classifies the
// response status into the error taxonomy.
func (c *Client) send(ctx context.Context, p sendParams) (resp *transport.Response, err error) {
	headers := make(map[string]string, len(p.headers)+1)
	for k, v := range p.headers {
		headers[k] = v
	}
	if p.body != nil {
		headers["content-length"] = fmt.Sprintf("%d", p.body.Len())
	}

	signed := headers
	if !c.anonymous() {
		if signed, err = sigv4.SignHeaders(sigv4.Config{
			Access:      c.cfg.AccessKey,
			Secret:      c.cfg.SecretKey,
			Endpoint:    c.cfg.SignEndpoint,
			Method:      p.method,
			Bucket:      p.bucket,
			Key:         p.key,
			Parameters:  p.params,
			Headers:     headers,
			PayloadHash: p.payloadHash,
			Region:      c.cfg.Region,
		}); err != nil {
			return
		}
	}

	url := strings.TrimSuffix(c.cfg.Endpoint, "/") + resourcePath(p.bucket, p.key)
	if query := sigv4.EncodeQuery(p.params); query != "" {
		url += "?" + query
	}

	if resp, err = c.http.Do(ctx, &transport.Request{
		Method: p.method,
		URL:    url,
		Header: signed,
		Body:   p.body,
		Sink:   p.sink,
	}); err != nil {
		return nil, &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode == 404 && p.quiet404:
		return nil, &NotFoundError{Bucket: p.bucket, Key: p.key}
	default:
		return nil, protocolError(resp)
	}
}

// MetadataHeaders translates metadata into x-amz-meta-* request headers.
// The combined size is capped at 2 KiB, matching common server limits.
func MetadataHeaders(metadata map[string]string) (headers map[string]string, err error) {
	const maxMetaSize = 2048
	headers = make(map[string]string, len(metadata))
	size := 0
	for k, v := range metadata {
		key := "x-amz-meta-" + strings.ToLower(k)
		headers[key] = v
		size += len(key) + len(v) + 1
	}
	if size > maxMetaSize {
		return nil, &ConfigError{Reason: fmt.Sprintf("metadata larger than %d bytes", maxMetaSize)}
	}
	return
}
