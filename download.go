package s3xfer

import (
	"context"
	"fmt"
	"os"

	"github.com/derektruong/s3xfer/api"
)

func (t *transferer) Download(ctx context.Context, cfg TransferConfig, cb ProgressUpdatedCallback) (err error) {
	if err = cfg.Validate(ctx); err != nil {
		return
	}
	cfg = cfg.withDefaults()

	var client *api.Client
	if client, err = t.newClient(cfg); err != nil {
		return
	}
	defer client.Close()

	var total int64
	if total, err = client.GetObjectSize(ctx, cfg.Bucket, cfg.Key); err != nil {
		return
	}

	if err = t.prepareDestination(cfg, total); err != nil {
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
		stopTracking()
		<-trackerDone
		tracker.finish(err)
	}()

	t.logger.Info("starting parallel download",
		"bucket", cfg.Bucket, "key", cfg.Key, "totalSize", total,
		"jobs", cfg.Jobs, "partsPerJob", cfg.PartsPerJob)

	if err = t.runJobs(plan.slices(), func(s jobSlice) error {
		return t.downloadJob(ctx, cfg, s, total, budget, tracker)
	}); err != nil {
		err = fmt.Errorf("download %s/%s: %w", cfg.Bucket, cfg.Key, err)
	}
	return
}

// prepareDestination sizes the output so workers can write disjoint
// regions concurrently: files are pre-extended, buffers length-checked.
func (t *transferer) prepareDestination(cfg TransferConfig, total int64) error {
	if cfg.Data != nil {
		if int64(len(cfg.Data)) < cfg.Offset+total {
			return &ConfigError{Reason: fmt.Sprintf(
				"destination buffer too small: need %d bytes, have %d",
				cfg.Offset+total, len(cfg.Data))}
		}
		return nil
	}
	file, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("cannot create file %s: %v", cfg.File, err)}
	}
	defer file.Close()
	if err = file.Truncate(cfg.Offset + total); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("cannot pre-size file %s: %v", cfg.File, err)}
	}
	return nil
}

// downloadJob transfers the parts of one slice sequentially through a
// client pinned to a randomly selected endpoint. Cancellation is observed
// at part boundaries, never mid-part.
func (t *transferer) downloadJob(ctx context.Context, cfg TransferConfig, s jobSlice, total int64, budget *api.RetryBudget, tracker *progressTracker) (err error) {
	var client *api.Client
	if client, err = t.newClient(cfg); err != nil {
		return
	}
	defer client.Close()

	for _, p := range s.parts() {
		if err = ctx.Err(); err != nil {
			return
		}
		if err = t.withRetry(ctx, budget, func() error {
			return downloadPart(ctx, client, cfg, p, total)
		}); err != nil {
			return fmt.Errorf("cannot download part %d: %w", p.number, err)
		}
		tracker.add(p.size)
	}
	return
}

// downloadPart fetches one byte range into its disjoint region of the
// destination. Range bounds are inclusive; a part covering the whole
// object skips the Range header.
func downloadPart(ctx context.Context, client *api.Client, cfg TransferConfig, p partRange, total int64) error {
	begin, end := p.begin, p.begin+p.size-1
	if p.size == total {
		begin, end = 0, 0
	}
	if cfg.Data != nil {
		return client.GetObjectInto(ctx, cfg.Bucket, cfg.Key, cfg.Data, cfg.Offset, begin, end, nil)
	}
	return client.GetFileObject(ctx, cfg.File, cfg.Bucket, cfg.Key, cfg.Offset+p.begin, begin, end, nil)
}
