// Package sigv4 implements the AWS Signature Version 4 signing scheme for
// S3-compatible services: canonical request construction, signing key
// derivation, Authorization headers and presigned URLs.
//
// All functions are pure: given the same configuration and dates they
// produce the same signature on every call and every platform, which keeps
// the package trivially testable against recorded vectors.
//
// See:
// https://docs.aws.amazon.com/AmazonS3/latest/API/sig-v4-authenticating-requests.html
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm is the signing algorithm token used in string-to-sign,
	// Authorization headers and presigned URLs.
	Algorithm = "AWS4-HMAC-SHA256"

	// UnsignedPayload is the payload hash sentinel for bodies that are not
	// hashed before signing.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// DefaultRegion is used when the configuration leaves the region empty.
	DefaultRegion = "us-east-1"

	// service is fixed: this signer only talks to S3-compatible endpoints.
	service = "s3"

	stampFormat = "20060102T150405Z"
	dateFormat  = "20060102"
)

// Dates carries the two timestamp renderings required by SigV4. Both must be
// derived from the same UTC instant.
type Dates struct {
	// Stamp is the full timestamp, e.g. 20230418T153022Z.
	Stamp string
	// Date is the date-only rendering, e.g. 20230418.
	Date string
}

// IsZero reports whether the dates have not been populated.
func (d Dates) IsZero() bool { return d.Date == "" && d.Stamp == "" }

// Now returns Dates for the current UTC instant.
func Now() Dates {
	now := time.Now().UTC()
	return Dates{
		Stamp: now.Format(stampFormat),
		Date:  now.Format(dateFormat),
	}
}

// Config is the input to ComputeSignature, SignHeaders and SignedURL.
// Header keys must be lowercase; parameters and headers may be nil.
type Config struct {
	// Access and Secret are the S3 credentials. Both empty means the request
	// is anonymous and must not be signed at all; callers are expected to
	// skip the signer entirely in that case.
	Access string
	Secret string

	// Endpoint is the signing endpoint, scheme://host[:port]. The host
	// (including any explicit port) becomes the canonical host header.
	Endpoint string

	Method string
	Bucket string
	Key    string

	// Parameters become the canonical query string.
	Parameters map[string]string

	// Headers are caller-supplied request headers with lowercase keys.
	// Only x-amz-* and content-length participate in signing.
	Headers map[string]string

	// PayloadHash is the lowercase hex SHA-256 of the request body, or empty
	// to sign with UNSIGNED-PAYLOAD.
	PayloadHash string

	// Region defaults to us-east-1.
	Region string

	// Expires bounds the lifetime of a presigned URL, in seconds. Ignored by
	// header signing.
	Expires int

	// Dates pins the signing instant; zero means "now". Supplying it makes
	// signatures reproducible.
	Dates Dates
}

// Signature is the output of ComputeSignature.
type Signature struct {
	// Signature is the lowercase hex HMAC of the string-to-sign.
	Signature string
	// CredentialScope is <date>/<region>/s3/aws4_request.
	CredentialScope string
	// SignedHeaders is the ;-joined, sorted, lowercase signed header names.
	SignedHeaders string
	// DefaultHeaders are the host, x-amz-content-sha256 and x-amz-date
	// headers the signature covers; callers merge them into the request.
	DefaultHeaders map[string]string
}

// HeaderKeyError reports a caller-supplied header whose key is not
// lowercase. Signing header names case-sensitively would silently produce a
// signature the server rejects, so this is surfaced as a programming error.
type HeaderKeyError struct {
	Key string
}

func (e *HeaderKeyError) Error() string {
	return fmt.Sprintf("sigv4: header key %q must be lowercase", e.Key)
}

func (c *Config) normalize() (Config, error) {
	out := *c
	if out.Region == "" {
		out.Region = DefaultRegion
	}
	if out.PayloadHash == "" {
		out.PayloadHash = UnsignedPayload
	}
	if out.Dates.IsZero() {
		out.Dates = Now()
	}
	for k := range out.Headers {
		if k != strings.ToLower(k) {
			return out, &HeaderKeyError{Key: k}
		}
	}
	return out, nil
}

// hostOf extracts host[:port] from an endpoint URL.
func hostOf(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("sigv4: parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("sigv4: endpoint %q has no host", endpoint)
	}
	return u.Host, nil
}

// UriEncode percent-encodes s per RFC 3986, leaving only the unreserved set
// [A-Za-z0-9-_.~] intact. Hex digits are uppercase, spaces become %20.
func UriEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

// EncodeQuery renders params as a canonical query string: keys sorted
// ascending, keys and values percent-encoded, k=v pairs joined with '&'.
func EncodeQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, UriEncode(k)+"="+UriEncode(params[k]))
	}
	return strings.Join(pairs, "&")
}

// canonicalURI is "/" + bucket + "/" + key; keys are expected to already
// conform to S3 naming and are not re-encoded here.
func canonicalURI(bucket, key string) string {
	uri := "/"
	if bucket != "" {
		uri += bucket
		if key != "" {
			uri += "/" + key
		}
	}
	return uri
}

// canonicalHeaders builds the sorted name:value lines and the signed-headers
// list from the default header set plus the caller headers eligible for
// signing (x-amz-* and content-length).
func canonicalHeaders(defaults, extra map[string]string) (lines, signed string) {
	merged := make(map[string]string, len(defaults)+len(extra))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range extra {
		if strings.HasPrefix(k, "x-amz-") || k == "content-length" {
			merged[k] = v
		}
	}
	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte(':')
		b.WriteString(merged[n])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

func credentialScope(dates Dates, region string) string {
	return dates.Date + "/" + region + "/" + service + "/aws4_request"
}

func hmacSHA256(key, msg []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(msg)
	return m.Sum(nil)
}

// signingKey derives the per-day signing key:
//
//	kDate    = HMAC("AWS4"+secret, date)
//	kRegion  = HMAC(kDate, region)
//	kService = HMAC(kRegion, "s3")
//	kSigning = HMAC(kService, "aws4_request")
func signingKey(secret, date, region string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), []byte(date))
	k = hmacSHA256(k, []byte(region))
	k = hmacSHA256(k, []byte(service))
	return hmacSHA256(k, []byte("aws4_request"))
}

func stringToSign(dates Dates, scope, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return Algorithm + "\n" +
		dates.Stamp + "\n" +
		scope + "\n" +
		hex.EncodeToString(sum[:])
}

// ComputeSignature produces the signature material for a header-signed
// request. It has no network side effects.
func ComputeSignature(cfg Config) (sig Signature, err error) {
	var c Config
	if c, err = cfg.normalize(); err != nil {
		return
	}
	var host string
	if host, err = hostOf(c.Endpoint); err != nil {
		return
	}

	defaults := map[string]string{
		"host":                 host,
		"x-amz-content-sha256": c.PayloadHash,
		"x-amz-date":           c.Dates.Stamp,
	}
	headerLines, signedHeaders := canonicalHeaders(defaults, c.Headers)

	canonicalRequest := strings.ToUpper(c.Method) + "\n" +
		canonicalURI(c.Bucket, c.Key) + "\n" +
		EncodeQuery(c.Parameters) + "\n" +
		headerLines + "\n" +
		signedHeaders + "\n" +
		c.PayloadHash

	scope := credentialScope(c.Dates, c.Region)
	key := signingKey(c.Secret, c.Dates.Date, c.Region)
	mac := hmacSHA256(key, []byte(stringToSign(c.Dates, scope, canonicalRequest)))

	sig = Signature{
		Signature:       hex.EncodeToString(mac),
		CredentialScope: scope,
		SignedHeaders:   signedHeaders,
		DefaultHeaders:  defaults,
	}
	return
}

// SignHeaders returns the complete header set for a signed request: the
// caller headers, the SigV4 default headers and the Authorization header.
func SignHeaders(cfg Config) (headers map[string]string, err error) {
	var sig Signature
	if sig, err = ComputeSignature(cfg); err != nil {
		return
	}
	authorization := Algorithm +
		" Credential=" + cfg.Access + "/" + sig.CredentialScope +
		", SignedHeaders=" + sig.SignedHeaders +
		", Signature=" + sig.Signature

	headers = make(map[string]string, len(cfg.Headers)+len(sig.DefaultHeaders)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	for k, v := range sig.DefaultHeaders {
		headers[k] = v
	}
	headers["Authorization"] = authorization
	return
}

// SignedURL produces a presigned URL valid for cfg.Expires seconds. The
// signature moves into the query string; the canonical header set shrinks to
// host plus any caller-supplied x-amz-* headers, and the payload hash is
// fixed at UNSIGNED-PAYLOAD.
func SignedURL(cfg Config) (signedURL string, err error) {
	var c Config
	if c, err = cfg.normalize(); err != nil {
		return
	}
	var host string
	if host, err = hostOf(c.Endpoint); err != nil {
		return
	}

	scope := credentialScope(c.Dates, c.Region)

	signHeaders := map[string]string{"host": host}
	for k, v := range c.Headers {
		if strings.HasPrefix(k, "x-amz-") {
			signHeaders[k] = v
		}
	}
	headerLines, signedHeaders := canonicalHeaders(signHeaders, nil)

	params := make(map[string]string, len(c.Parameters)+5)
	for k, v := range c.Parameters {
		params[k] = v
	}
	params["X-Amz-Algorithm"] = Algorithm
	params["X-Amz-Credential"] = c.Access + "/" + scope
	params["X-Amz-Date"] = c.Dates.Stamp
	params["X-Amz-Expires"] = strconv.Itoa(c.Expires)
	params["X-Amz-SignedHeaders"] = signedHeaders
	query := EncodeQuery(params)

	canonicalRequest := strings.ToUpper(c.Method) + "\n" +
		canonicalURI(c.Bucket, c.Key) + "\n" +
		query + "\n" +
		headerLines + "\n" +
		signedHeaders + "\n" +
		UnsignedPayload

	key := signingKey(c.Secret, c.Dates.Date, c.Region)
	mac := hmacSHA256(key, []byte(stringToSign(c.Dates, scope, canonicalRequest)))

	signedURL = strings.TrimSuffix(c.Endpoint, "/") +
		canonicalURI(c.Bucket, c.Key) +
		"?" + query +
		"&X-Amz-Signature=" + hex.EncodeToString(mac)
	return
}
