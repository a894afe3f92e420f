// Package iometer wraps readers with transfer accounting and optional rate
// limiting. The transfer engine threads part bodies through it to feed
// progress callbacks and to honor a configured bandwidth cap.
package iometer

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const burstLimit = 1024 * 1024 * 1024 // 1GB

// TransferReader wraps an io.Reader and counts the number of bytes read
// from it into a shared counter.
type TransferReader struct {
	reader  io.Reader
	limiter *rate.Limiter

	// transferredSize accumulates the bytes read; shared across the
	// readers of one transfer
	transferredSize *int64

	ctx    context.Context
	closed bool
}

// NewTransferReader constructs a TransferReader adding into
// transferredSize, which may be shared by several readers.
func NewTransferReader(reader io.Reader, transferredSize *int64) (tr *TransferReader) {
	tr = &TransferReader{
		reader:          reader,
		transferredSize: transferredSize,
		ctx:             context.Background(),
	}
	return
}

// SetRateLimit sets rate limit (bytes/sec) to the reader. Zero or negative
// removes the limit.
func (tr *TransferReader) SetRateLimit(bytesPerSec float64) {
	if bytesPerSec <= 0 {
		tr.limiter = nil
		return
	}
	tr.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burstLimit)
	tr.limiter.AllowN(time.Now(), burstLimit) // spend initial burst
}

// Read reads from the underlying reader, accounts the bytes read and
// applies the rate limit.
func (tr *TransferReader) Read(p []byte) (n int, err error) {
	if n, err = tr.reader.Read(p); err != nil {
		return
	}
	if tr.limiter != nil {
		if limitErr := tr.limiter.WaitN(tr.ctx, n); limitErr != nil {
			return n, limitErr
		}
	}
	if n > 0 && tr.transferredSize != nil {
		atomic.AddInt64(tr.transferredSize, int64(n))
	}
	return
}

// TransferredSize returns the number of bytes accounted so far.
func (tr *TransferReader) TransferredSize() int64 {
	if tr.transferredSize == nil {
		return 0
	}
	return atomic.LoadInt64(tr.transferredSize)
}

// Close closes the underlying io.Reader if it implements the
// io.Closer interface.
func (tr *TransferReader) Close() (err error) {
	if tr.closed {
		return
	}
	if closer, ok := tr.reader.(io.Closer); ok {
		err = closer.Close()
	}
	tr.closed = true
	return
}
