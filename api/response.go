package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/derektruong/s3xfer/internal/xmlpath"
	"github.com/derektruong/s3xfer/transport"
)

// ETag is a server-issued object or part identifier, stored unquoted.
type ETag = string

// UploadID is the server-issued token grouping the parts of one multipart
// upload.
type UploadID = string

// TrimETag strips one surrounding pair of ASCII quotes or &#34; entities
// from a server-issued ETag. Anything else is returned verbatim: the value
// must survive a round trip into the completion manifest.
func TrimETag(etag string) string {
	if etag == "" {
		return ""
	}
	if strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) && len(etag) >= 2 {
		return etag[1 : len(etag)-1]
	}
	const entity = "&#34;"
	if strings.HasPrefix(etag, entity) && strings.HasSuffix(etag, entity) && len(etag) >= 2*len(entity) {
		return etag[len(entity) : len(etag)-len(entity)]
	}
	return etag
}

// responseETag extracts and normalizes the ETag header, or fails with
// ErrMissingETag.
func responseETag(resp *transport.Response) (ETag, error) {
	etag := TrimETag(resp.ETag())
	if etag == "" {
		return "", ErrMissingETag
	}
	return etag, nil
}

// headerMap lowers the response headers into a plain map, joining repeated
// values the way HTTP does.
func headerMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}

// decodeBody parses an XML response body; a body that fails to parse
// surfaces as an IntegrityError.
func decodeBody(body []byte) (*xmlpath.Document, error) {
	doc, err := xmlpath.Parse(body)
	if err != nil {
		return nil, &IntegrityError{Reason: err.Error()}
	}
	return doc, nil
}

// protocolError builds the typed error for a status >= 300, pulling
// <Code> and <Message> out of the error document when the body has one.
func protocolError(resp *transport.Response) error {
	perr := &ProtocolError{StatusCode: resp.StatusCode}
	if doc, err := xmlpath.Parse(resp.Body); err == nil {
		perr.Code = doc.Text("/error/code")
		perr.Message = doc.Text("/error/message")
	}
	return perr
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
