package s3xfer

import (
	"time"

	"github.com/derektruong/s3xfer/transport"
)

const defaultRefreshInterval = 1 * time.Second

// TransferOption customizes a Transferer.
type TransferOption func(*transferer)

// WithSynchronous makes workers execute one after another in the calling
// goroutine. Ordering and retry semantics are unchanged; only concurrency
// is removed. Useful for debugging and deterministic tests.
func WithSynchronous() TransferOption {
	return func(t *transferer) {
		t.sync = true
	}
}

// WithFileIOMode selects the strategy used to read file-backed upload
// bodies. Default is buffered streaming.
func WithFileIOMode(mode transport.IOMode) TransferOption {
	return func(t *transferer) {
		t.ioMode = mode
	}
}

// WithRateLimit caps each worker's upload throughput in bytes per second.
// Zero or negative leaves transfers uncapped.
func WithRateLimit(bytesPerSec float64) TransferOption {
	return func(t *transferer) {
		t.rateLimit = bytesPerSec
	}
}

// WithProgressRefreshInterval sets the interval for refreshing the
// progress update. Default is 1 second.
func WithProgressRefreshInterval(interval time.Duration) TransferOption {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return func(t *transferer) {
		t.refreshProgressInterval = interval
	}
}

// WithTransport injects a transport.Client shared by every worker,
// replacing the default pooled HTTP client. The caller keeps ownership of
// the injected transport.
func WithTransport(tc transport.Client) TransferOption {
	return func(t *transferer) {
		t.http = tc
		t.ownsHTTP = false
	}
}
