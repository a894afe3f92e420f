package s3xfer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/derektruong/s3xfer/api"
	"github.com/derektruong/s3xfer/internal/iometer"
	"github.com/derektruong/s3xfer/transport"
)

func (t *transferer) Upload(ctx context.Context, cfg TransferConfig, cb ProgressUpdatedCallback) (etag api.ETag, err error) {
	if err = cfg.Validate(ctx); err != nil {
		return
	}
	cfg = cfg.withDefaults()

	var total int64
	if total, err = uploadSize(cfg); err != nil {
		return
	}

	plan := newTransferPlan(total, cfg.Jobs, cfg.PartsPerJob)
	budget := api.NewRetryBudget(cfg.MaxRetries)
	defer func() { t.retries.Store(budget.Used()) }()

	tracker := newProgressTracker(total, cb)
	trackCtx, stopTracking := context.WithCancel(ctx)
	trackerDone := make(chan struct{})
	go func() {
		tracker.track(trackCtx, t.refreshProgressInterval)
		close(trackerDone)
	}()
	defer func() {
		// the ticker must be drained before the terminal snapshot so no
		// in-progress update can follow it
		stopTracking()
		<-trackerDone
		tracker.finish(err)
	}()

	var headers map[string]string
	if headers, err = api.MetadataHeaders(cfg.Metadata); err != nil {
		return
	}

	var client *api.Client
	if client, err = t.newClient(cfg); err != nil {
		return
	}
	defer client.Close()

	// small single-job transfers skip the multipart state machine entirely
	if plan.singlePart() {
		t.logger.Info("uploading object in a single part",
			"bucket", cfg.Bucket, "key", cfg.Key, "totalSize", total)
		err = t.withRetry(ctx, budget, func() (putErr error) {
			etag, putErr = client.PutObjectFrom(ctx, cfg.Bucket, cfg.Key,
				t.uploadBody(cfg, cfg.Offset, total, tracker), cfg.PayloadHash, headers)
			return
		})
		return
	}

	var up *api.MultipartUpload
	if up, err = client.NewMultipartUpload(ctx, cfg.Bucket, cfg.Key, headers,
		api.WithPartRetries(cfg.MaxRetries),
		api.WithRetryBudget(budget),
	); err != nil {
		return
	}

	t.logger.Info("starting parallel upload",
		"bucket", cfg.Bucket, "key", cfg.Key, "totalSize", total,
		"jobs", cfg.Jobs, "partsPerJob", cfg.PartsPerJob, "uploadId", up.ID())

	if err = t.runJobs(plan.slices(), func(s jobSlice) error {
		return t.uploadJob(ctx, cfg, up, s, tracker)
	}); err != nil {
		// no automatic abort: the caller may resume the upload or abort it
		// through the api package
		return "", fmt.Errorf("upload %s/%s (id %s): %w", cfg.Bucket, cfg.Key, up.ID(), err)
	}

	return up.Complete(ctx)
}

// uploadJob transfers the parts of one slice sequentially through a client
// pinned to a randomly selected endpoint. Cancellation is observed at part
// boundaries, never mid-part.
func (t *transferer) uploadJob(ctx context.Context, cfg TransferConfig, up *api.MultipartUpload, s jobSlice, tracker *progressTracker) (err error) {
	var client *api.Client
	if client, err = t.newClient(cfg); err != nil {
		return
	}
	defer client.Close()

	for _, p := range s.parts() {
		if err = ctx.Err(); err != nil {
			return
		}
		body := t.uploadBody(cfg, cfg.Offset+p.begin, p.size, tracker)
		if _, err = up.UploadPartVia(ctx, client, p.number, body, ""); err != nil {
			return
		}
	}
	return
}

// uploadBody builds the body source for one part, threading it through the
// accounting reader when progress or a rate cap is configured.
func (t *transferer) uploadBody(cfg TransferConfig, offset, size int64, tracker *progressTracker) transport.BodySource {
	var base transport.BodySource
	if cfg.Data != nil {
		base = transport.NewMemorySource(cfg.Data[offset : offset+size])
	} else {
		base = &transport.FileSource{Path: cfg.File, Offset: offset, Size: size, Mode: t.ioMode}
	}
	if t.rateLimit <= 0 && tracker.cb == nil {
		return base
	}
	return transport.NewReaderSource(func() (io.ReadCloser, error) {
		rc, err := base.NewReader()
		if err != nil {
			return nil, err
		}
		tr := iometer.NewTransferReader(rc, tracker.counter())
		if t.rateLimit > 0 {
			tr.SetRateLimit(t.rateLimit)
		}
		return tr, nil
	}, size)
}

// uploadSize resolves the number of bytes the transfer will move.
func uploadSize(cfg TransferConfig) (total int64, err error) {
	if cfg.Data != nil {
		total = int64(len(cfg.Data)) - cfg.Offset
		if cfg.Size > 0 {
			total = cfg.Size
		}
		if total <= 0 || cfg.Offset+total > int64(len(cfg.Data)) {
			return 0, &ConfigError{Reason: "zero size or out of range upload data buffer"}
		}
		return
	}
	info, statErr := os.Stat(cfg.File)
	if statErr != nil {
		return 0, &ConfigError{Reason: fmt.Sprintf("cannot open file %s: %v", cfg.File, statErr)}
	}
	total = info.Size() - cfg.Offset
	if cfg.Size > 0 {
		total = cfg.Size
	}
	if total <= 0 || cfg.Offset+total > info.Size() {
		return 0, &ConfigError{Reason: fmt.Sprintf("zero size or out of range upload from file %s", cfg.File)}
	}
	return
}
