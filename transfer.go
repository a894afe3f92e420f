// Package s3xfer orchestrates parallel, range-based, retry-aware uploads
// and downloads of large objects against pools of S3-compatible endpoints.
// It partitions an object into per-job slices, fans the slices across
// workers pinned to randomly selected endpoints, bounds retries with a
// budget shared by every worker and reassembles the result: a multipart
// completion manifest for uploads, disjoint writes into the destination
// for downloads.
package s3xfer

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/derektruong/s3xfer/api"
	"github.com/derektruong/s3xfer/transport"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// Transfer is the interface for parallel object transfers.
type Transfer interface {
	// Upload transfers the configured file or buffer to bucket/key and
	// returns the resulting object ETag. Multipart is used whenever the
	// payload spans more than one part; a failed multipart upload is not
	// aborted automatically so the caller can resume or Abort via the api
	// package.
	Upload(ctx context.Context, cfg TransferConfig, cb ProgressUpdatedCallback) (etag api.ETag, err error)

	// Download transfers bucket/key into the configured file or buffer.
	// The destination is fully assembled only after Download returns nil.
	Download(ctx context.Context, cfg TransferConfig, cb ProgressUpdatedCallback) (err error)

	// Retries reports the retries consumed by the most recent transfer.
	Retries() int64

	// Close releases the engine's transport share.
	Close()
}

// transferer implements Transfer.
type transferer struct {
	logger logr.Logger

	http     transport.Client
	ownsHTTP bool

	// options
	sync                    bool
	ioMode                  transport.IOMode
	rateLimit               float64
	refreshProgressInterval time.Duration

	retries atomic.Int64
}

// NewTransfer creates a transfer engine with the optional TransferOption(s).
func NewTransfer(logger logr.Logger, options ...TransferOption) (t Transfer) {
	tr := &transferer{
		logger:                  logger.WithName("s3xfer"),
		refreshProgressInterval: defaultRefreshInterval,
	}
	for _, opt := range options {
		opt(tr)
	}
	if tr.http == nil {
		tr.http = transport.NewHTTPClient(logger)
		tr.ownsHTTP = true
	}
	return tr
}

func (t *transferer) Close() {
	if t.ownsHTTP {
		t.http.Close()
	}
}

func (t *transferer) Retries() int64 { return t.retries.Load() }

// pickEndpoint selects one endpoint uniformly at random. With a singleton
// pool this is a no-op.
func pickEndpoint(endpoints []string) string {
	return endpoints[rand.IntN(len(endpoints))]
}

// newClient builds an operation facade against a random endpoint of the
// configured pool, sharing the engine's transport.
func (t *transferer) newClient(cfg TransferConfig) (*api.Client, error) {
	return api.NewClient(t.logger, api.Config{
		Endpoint:     pickEndpoint(cfg.Endpoints),
		SignEndpoint: cfg.SignEndpoint,
		Region:       cfg.Region,
		AccessKey:    cfg.AccessKey,
		SecretKey:    cfg.SecretKey,
	}, api.WithTransport(t.http))
}

// withRetry runs fn with immediate retries drawn from the shared budget.
// Only transport failures and 5xx responses are retried.
func (t *transferer) withRetry(ctx context.Context, budget *api.RetryBudget, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(0), // bounded by the budget, not a per-call count
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return api.IsRetryable(err) && budget.Take()
		}),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Info("retrying part transfer", "errorMessage", err.Error())
		}),
	)
}

// runJobs executes one function per job slice, concurrently unless the
// engine is synchronous. All workers are joined before failures are
// reported: the first failure when concurrent, every failure joined when
// synchronous. In-flight siblings of a failed worker are allowed to finish.
func (t *transferer) runJobs(slices []jobSlice, run func(jobSlice) error) error {
	if t.sync {
		var errs []error
		for _, s := range slices {
			if err := run(s); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	var eg errgroup.Group
	for _, s := range slices {
		eg.Go(func() error { return run(s) })
	}
	return eg.Wait()
}
