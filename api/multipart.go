package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/avast/retry-go/v4"
	"github.com/derektruong/s3xfer/transport"
	"github.com/samber/lo"
)

// MaxParts is the S3 limit on part numbers per multipart upload.
const MaxParts = 10000

// Part pairs a 1-based part number with the ETag returned for it.
type Part struct {
	Number int
	ETag   ETag
	Size   int64
}

// CreateMultipartUpload initiates a multipart upload and returns its
// server-issued id. An id that is never completed or aborted leaks
// server-side storage, so callers own its cleanup.
func (c *Client) CreateMultipartUpload(ctx context.Context, bucket, key string, headers map[string]string) (id UploadID, err error) {
	resp, err := c.send(ctx, sendParams{
		method:  "POST",
		bucket:  bucket,
		key:     key,
		params:  map[string]string{"uploads": ""},
		headers: headers,
	})
	if err != nil {
		return
	}
	doc, err := decodeBody(resp.Body)
	if err != nil {
		return
	}
	if id = doc.Text("/initiatemultipartuploadresult/uploadid"); id == "" {
		err = &IntegrityError{Reason: "InitiateMultipartUpload response missing UploadId"}
	}
	return
}

// UploadPart uploads one numbered part and returns its ETag. This is the
// single-attempt primitive; retry policy lives on the coordinator.
func (c *Client) UploadPart(ctx context.Context, bucket, key string, id UploadID, partNumber int, body transport.BodySource, payloadHash string) (etag ETag, err error) {
	if partNumber < 1 || partNumber > MaxParts {
		return "", &ProgrammingError{Reason: fmt.Sprintf("part number %d outside [1, %d]", partNumber, MaxParts)}
	}
	resp, err := c.send(ctx, sendParams{
		method: "PUT",
		bucket: bucket,
		key:    key,
		params: map[string]string{
			"partNumber": strconv.Itoa(partNumber),
			"uploadId":   id,
		},
		payloadHash: payloadHash,
		body:        body,
	})
	if err != nil {
		return
	}
	return responseETag(resp)
}

// CompleteMultipartUpload finishes an upload whose parts were numbered
// 1..len(etags) in order and returns the object's ETag.
func (c *Client) CompleteMultipartUpload(ctx context.Context, bucket, key string, id UploadID, etags []ETag) (etag ETag, err error) {
	parts := lo.Map(etags, func(e ETag, i int) Part {
		return Part{Number: i + 1, ETag: e}
	})
	return c.completeUpload(ctx, bucket, key, id, parts)
}

// AbortMultipartUpload abandons an upload, releasing its server-side parts.
func (c *Client) AbortMultipartUpload(ctx context.Context, bucket, key string, id UploadID) (err error) {
	_, err = c.send(ctx, sendParams{
		method: "DELETE",
		bucket: bucket,
		key:    key,
		params: map[string]string{"uploadId": id},
	})
	return
}

func (c *Client) completeUpload(ctx context.Context, bucket, key string, id UploadID, parts []Part) (etag ETag, err error) {
	if len(parts) == 0 {
		return "", &ProgrammingError{Reason: "completing multipart upload with no parts"}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })
	for i := 1; i < len(parts); i++ {
		if parts[i].Number == parts[i-1].Number {
			return "", &ProgrammingError{Reason: fmt.Sprintf("duplicate part number %d in completion list", parts[i].Number)}
		}
	}

	resp, err := c.send(ctx, sendParams{
		method:  "POST",
		bucket:  bucket,
		key:     key,
		params:  map[string]string{"uploadId": id},
		headers: map[string]string{"content-type": "application/xml"},
		body:    xmlBody(buildCompletionXML(parts)),
	})
	if err != nil {
		return
	}
	doc, err := decodeBody(resp.Body)
	if err != nil {
		return
	}
	// the object ETag arrives in the body for Complete, not in a header
	if etag = TrimETag(doc.Text("/completemultipartuploadresult/etag")); etag == "" {
		err = ErrMissingETag
	}
	return
}

// buildCompletionXML renders the completion manifest. ETags are emitted
// verbatim (already unquoted) and part numbers must be strictly ascending.
func buildCompletionXML(parts []Part) string {
	var b strings.Builder
	b.WriteString(`<CompleteMultipartUpload xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	for _, p := range parts {
		b.WriteString("<Part><ETag>")
		b.WriteString(p.ETag)
		b.WriteString("</ETag><PartNumber>")
		b.WriteString(strconv.Itoa(p.Number))
		b.WriteString("</PartNumber></Part>")
	}
	b.WriteString("</CompleteMultipartUpload>")
	return b.String()
}

type multipartState int

const (
	multipartActive multipartState = iota
	multipartDone
	multipartAborted
)

// MultipartUpload coordinates one logical multipart upload:
//
//	Start ──Create──> Active ──UploadPart*──> Active ──Complete──> Done
//	                     │                       │
//	                     └────── Abort ──────────┴──> Aborted
//
// Parts may be uploaded concurrently and in any order; the completion
// manifest is sorted by part number. The coordinator never aborts on its
// own: a failed upload stays Active so the caller can resume, and callers
// that cannot resume must Abort explicitly.
type MultipartUpload struct {
	client *Client
	bucket string
	key    string
	id     UploadID

	partRetries int
	budget      *RetryBudget

	mu    sync.Mutex
	parts []Part
	state multipartState
}

// MultipartOption customizes a MultipartUpload.
type MultipartOption func(*MultipartUpload)

// WithPartRetries sets the per-part retry ceiling. Default is no retries.
func WithPartRetries(n int) MultipartOption {
	return func(u *MultipartUpload) {
		if n > 0 {
			u.partRetries = n
		}
	}
}

// WithRetryBudget attaches a shared budget bounding the retries of every
// part of this upload (and, when shared further, of sibling uploads).
func WithRetryBudget(budget *RetryBudget) MultipartOption {
	return func(u *MultipartUpload) {
		u.budget = budget
	}
}

// NewMultipartUpload initiates a multipart upload and returns its
// coordinator.
func (c *Client) NewMultipartUpload(ctx context.Context, bucket, key string, headers map[string]string, options ...MultipartOption) (u *MultipartUpload, err error) {
	var id UploadID
	if id, err = c.CreateMultipartUpload(ctx, bucket, key, headers); err != nil {
		return
	}
	u = &MultipartUpload{
		client: c,
		bucket: bucket,
		key:    key,
		id:     id,
	}
	for _, opt := range options {
		opt(u)
	}
	return
}

// ID returns the server-issued upload id.
func (u *MultipartUpload) ID() UploadID { return u.id }

// Parts returns a copy of the successfully uploaded parts so far.
func (u *MultipartUpload) Parts() []Part {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Part(nil), u.parts...)
}

func (u *MultipartUpload) requireActive() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != multipartActive {
		return &ProgrammingError{Reason: "multipart upload already completed or aborted"}
	}
	return nil
}

// UploadPart uploads one numbered part, retrying up to the per-part
// ceiling on transport failures, 5xx responses and responses missing the
// ETag header. Retries are immediate and draw from the shared budget when
// one is attached.
func (u *MultipartUpload) UploadPart(ctx context.Context, partNumber int, body transport.BodySource, payloadHash string) (etag ETag, err error) {
	return u.UploadPartVia(ctx, u.client, partNumber, body, payloadHash)
}

// UploadPartVia uploads a part through an alternate client, typically one
// pinned to another endpoint of the same pool. The upload id is honored by
// every equivalent front-end of the storage backend.
func (u *MultipartUpload) UploadPartVia(ctx context.Context, client *Client, partNumber int, body transport.BodySource, payloadHash string) (etag ETag, err error) {
	if err = u.requireActive(); err != nil {
		return
	}

	attempts := uint(u.partRetries) + 1
	if err = retry.Do(
		func() (doErr error) {
			etag, doErr = client.UploadPart(ctx, u.bucket, u.key, u.id, partNumber, body, payloadHash)
			return
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if !IsRetryable(err) && !errors.Is(err, ErrMissingETag) {
				return false
			}
			return u.budget == nil || u.budget.Take()
		}),
		retry.OnRetry(func(n uint, err error) {
			u.client.logger.Info("retrying part upload",
				"bucket", u.bucket, "key", u.key, "partNumber", partNumber,
				"errorMessage", err.Error(), "retryAttempts", n+1)
		}),
	); err != nil {
		return "", fmt.Errorf("cannot upload part %d: %w", partNumber, err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.parts = append(u.parts, Part{Number: partNumber, ETag: etag, Size: body.Len()})
	return
}

// Complete sorts the collected parts by ascending part number, sends the
// completion manifest and returns the object's ETag.
func (u *MultipartUpload) Complete(ctx context.Context) (etag ETag, err error) {
	if err = u.requireActive(); err != nil {
		return
	}
	if etag, err = u.client.completeUpload(ctx, u.bucket, u.key, u.id, u.Parts()); err != nil {
		return
	}
	u.mu.Lock()
	u.state = multipartDone
	u.mu.Unlock()
	return
}

// Abort abandons the upload and releases its server-side parts.
func (u *MultipartUpload) Abort(ctx context.Context) (err error) {
	if err = u.requireActive(); err != nil {
		return
	}
	if err = u.client.AbortMultipartUpload(ctx, u.bucket, u.key, u.id); err != nil {
		return
	}
	u.mu.Lock()
	u.state = multipartAborted
	u.mu.Unlock()
	return
}
