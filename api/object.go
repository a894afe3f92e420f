package api

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/derektruong/s3xfer/transport"
)

// ObjectInfo describes one entry of a ListObjectsV2 response.
type ObjectInfo struct {
	Key              string
	LastModified     string
	ETag             ETag
	Size             int64
	StorageClass     string
	OwnerID          string
	OwnerDisplayName string
}

// ListObjectsV2Config narrows a ListObjectsV2 call. Zero values are
// omitted from the request.
type ListObjectsV2Config struct {
	ContinuationToken string
	Delimiter         string
	EncodingType      string
	FetchOwner        bool
	MaxKeys           int
	Prefix            string
	StartAfter        string
}

// ListObjectsV2Result is the decoded object listing.
type ListObjectsV2Result struct {
	Truncated             bool
	NextContinuationToken string
	Objects               []ObjectInfo
}

// ObjectVersionInfo describes one entry of a ListObjectVersions response.
type ObjectVersionInfo struct {
	Key          string
	VersionID    string
	IsLatest     bool
	LastModified string
	ETag         ETag
	Size         int64
}

func rangeHeaders(headers map[string]string, begin, end int64) map[string]string {
	if end <= 0 {
		return headers
	}
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out["range"] = fmt.Sprintf("bytes=%d-%d", begin, end)
	return out
}

// PutObject uploads data as bucket/key and returns the object's ETag.
// payloadHash is the hex SHA-256 of data, or empty to sign unsigned.
func (c *Client) PutObject(ctx context.Context, bucket, key string, data []byte, payloadHash string, headers map[string]string) (etag ETag, err error) {
	resp, err := c.send(ctx, sendParams{
		method:      "PUT",
		bucket:      bucket,
		key:         key,
		headers:     headers,
		payloadHash: payloadHash,
		body:        transport.NewMemorySource(data),
	})
	if err != nil {
		return
	}
	return responseETag(resp)
}

// PutObjectFrom uploads an arbitrary body source as bucket/key; the
// transfer engine uses it to stream counted, rate-limited readers.
func (c *Client) PutObjectFrom(ctx context.Context, bucket, key string, body transport.BodySource, payloadHash string, headers map[string]string) (etag ETag, err error) {
	resp, err := c.send(ctx, sendParams{
		method:      "PUT",
		bucket:      bucket,
		key:         key,
		headers:     headers,
		payloadHash: payloadHash,
		body:        body,
	})
	if err != nil {
		return
	}
	return responseETag(resp)
}

// PutFileObject uploads size bytes of the file starting at offset. A zero
// size means everything from offset to the end of the file.
func (c *Client) PutFileObject(ctx context.Context, fileName string, offset, size int64, bucket, key string, mode transport.IOMode, payloadHash string, headers map[string]string) (etag ETag, err error) {
	if size == 0 {
		var info os.FileInfo
		if info, err = os.Stat(fileName); err != nil {
			return "", &ConfigError{Reason: fmt.Sprintf("cannot stat file %s: %v", fileName, err)}
		}
		size = info.Size() - offset
	}
	resp, err := c.send(ctx, sendParams{
		method:      "PUT",
		bucket:      bucket,
		key:         key,
		headers:     headers,
		payloadHash: payloadHash,
		body:        &transport.FileSource{Path: fileName, Offset: offset, Size: size, Mode: mode},
	})
	if err != nil {
		return
	}
	return responseETag(resp)
}

// GetObject downloads bucket/key and returns the body. A byte range with
// inclusive bounds is requested when end > 0.
func (c *Client) GetObject(ctx context.Context, bucket, key string, begin, end int64, headers map[string]string) (data []byte, err error) {
	resp, err := c.send(ctx, sendParams{
		method:  "GET",
		bucket:  bucket,
		key:     key,
		headers: rangeHeaders(headers, begin, end),
	})
	if err != nil {
		return
	}
	return resp.Body, nil
}

// GetObjectTo streams bucket/key (or a byte range of it when end > 0)
// into sink. The overloads below and the transfer engine's workers all
// funnel through this one call.
func (c *Client) GetObjectTo(ctx context.Context, bucket, key string, sink io.Writer, begin, end int64, headers map[string]string) (err error) {
	_, err = c.send(ctx, sendParams{
		method:  "GET",
		bucket:  bucket,
		key:     key,
		headers: rangeHeaders(headers, begin, end),
		sink:    sink,
	})
	return
}

// GetObjectInto downloads bucket/key into buffer starting at offset. The
// destination slice is buffer[offset+begin : offset+begin+size] for ranged
// reads, so parallel workers can share one buffer without overlap.
func (c *Client) GetObjectInto(ctx context.Context, bucket, key string, buffer []byte, offset, begin, end int64, headers map[string]string) (err error) {
	return c.GetObjectTo(ctx, bucket, key,
		&sliceWriter{buf: buffer, off: offset + begin}, begin, end, headers)
}

// GetFileObject downloads bucket/key into fileName at offset. The file is
// created if missing, otherwise written in place.
func (c *Client) GetFileObject(ctx context.Context, fileName string, bucket, key string, offset, begin, end int64, headers map[string]string) (err error) {
	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("cannot open file %s for writing: %v", fileName, err)}
	}
	defer file.Close()
	if _, err = file.Seek(offset, 0); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("cannot seek file %s: %v", fileName, err)}
	}
	return c.GetObjectTo(ctx, bucket, key, file, begin, end, headers)
}

// HeadObject probes an object and returns its response headers. A missing
// object yields a NotFoundError.
func (c *Client) HeadObject(ctx context.Context, bucket, key string) (headers map[string]string, err error) {
	resp, err := c.send(ctx, sendParams{method: "HEAD", bucket: bucket, key: key, quiet404: true})
	if err != nil {
		return
	}
	return headerMap(resp.Header), nil
}

// ObjectExists reports whether bucket/key exists.
func (c *Client) ObjectExists(ctx context.Context, bucket, key string) (exists bool, err error) {
	if _, err = c.HeadObject(ctx, bucket, key); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return
	}
	return true, nil
}

// GetObjectSize returns the Content-Length of bucket/key.
func (c *Client) GetObjectSize(ctx context.Context, bucket, key string) (size int64, err error) {
	headers, err := c.HeadObject(ctx, bucket, key)
	if err != nil {
		return
	}
	length, ok := headers["content-length"]
	if !ok {
		return 0, &IntegrityError{Reason: "HEAD response missing Content-Length"}
	}
	if size, err = strconv.ParseInt(length, 10, 64); err != nil {
		return 0, &IntegrityError{Reason: fmt.Sprintf("malformed Content-Length %q", length)}
	}
	return
}

// DeleteObject removes bucket/key.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) (err error) {
	_, err = c.send(ctx, sendParams{method: "DELETE", bucket: bucket, key: key})
	return
}

// ListObjectsV2 lists the objects of a bucket. Only non-empty
// configuration fields become query parameters.
func (c *Client) ListObjectsV2(ctx context.Context, bucket string, cfg ListObjectsV2Config) (result ListObjectsV2Result, err error) {
	params := map[string]string{"list-type": "2"}
	if cfg.ContinuationToken != "" {
		params["continuation-token"] = cfg.ContinuationToken
	}
	if cfg.Delimiter != "" {
		params["delimiter"] = cfg.Delimiter
	}
	if cfg.EncodingType != "" {
		params["encoding-type"] = cfg.EncodingType
	}
	if cfg.FetchOwner {
		params["fetch-owner"] = "true"
	}
	if cfg.MaxKeys > 0 {
		params["max-keys"] = strconv.Itoa(cfg.MaxKeys)
	}
	if cfg.Prefix != "" {
		params["prefix"] = cfg.Prefix
	}
	if cfg.StartAfter != "" {
		params["start-after"] = cfg.StartAfter
	}

	resp, err := c.send(ctx, sendParams{method: "GET", bucket: bucket, params: params})
	if err != nil {
		return
	}
	doc, err := decodeBody(resp.Body)
	if err != nil {
		return
	}
	result.Truncated = parseBool(doc.Text("/listbucketresult/istruncated"))
	result.NextContinuationToken = doc.Text("/listbucketresult/nextcontinuationtoken")
	for _, rec := range doc.Records("/listbucketresult/contents") {
		result.Objects = append(result.Objects, ObjectInfo{
			Key:              rec["/key"],
			LastModified:     rec["/lastmodified"],
			ETag:             TrimETag(rec["/etag"]),
			Size:             parseInt64(rec["/size"]),
			StorageClass:     rec["/storageclass"],
			OwnerID:          rec["/owner/id"],
			OwnerDisplayName: rec["/owner/displayname"],
		})
	}
	return
}

// ListObjectVersions lists the versions of the objects under prefix.
func (c *Client) ListObjectVersions(ctx context.Context, bucket, prefix string) (versions []ObjectVersionInfo, err error) {
	params := map[string]string{"versions": ""}
	if prefix != "" {
		params["prefix"] = prefix
	}
	resp, err := c.send(ctx, sendParams{method: "GET", bucket: bucket, params: params})
	if err != nil {
		return
	}
	doc, err := decodeBody(resp.Body)
	if err != nil {
		return
	}
	for _, rec := range doc.Records("/listversionsresult/version") {
		versions = append(versions, ObjectVersionInfo{
			Key:          rec["/key"],
			VersionID:    rec["/versionid"],
			IsLatest:     parseBool(rec["/islatest"]),
			LastModified: rec["/lastmodified"],
			ETag:         TrimETag(rec["/etag"]),
			Size:         parseInt64(rec["/size"]),
		})
	}
	return
}

// sliceWriter writes sequentially into a caller-owned buffer at an offset.
type sliceWriter struct {
	buf []byte
	off int64
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	if w.off+int64(len(p)) > int64(len(w.buf)) {
		return 0, &ConfigError{Reason: "destination buffer too small"}
	}
	copy(w.buf[w.off:], p)
	w.off += int64(len(p))
	return len(p), nil
}
