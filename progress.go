package s3xfer

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// ProgressUpdatedCallback is a function that is called when the progress
// of a transfer is updated. A nil callback disables progress tracking.
type ProgressUpdatedCallback func(progress Progress)

// ProgressStatus is an enum that represents the status of the progress
type ProgressStatus int

const (
	// ProgressStatusInProgress is the status while parts are moving
	ProgressStatusInProgress ProgressStatus = iota
	// ProgressStatusFinished is the status once every worker has joined
	ProgressStatusFinished
	// ProgressStatusInError is the status when the transfer failed
	ProgressStatusInError
)

// Progress is a snapshot of a running transfer.
type Progress struct {
	// Status is the status of the progress
	Status ProgressStatus

	// TotalSize is the total number of bytes that need to be transferred
	TotalSize int64

	// TransferredSize is the number of bytes that have been transferred
	TransferredSize int64

	// Percentage is the percentage of the transfer that has been completed
	Percentage int

	// Speed is the speed of the transfer in bytes per second
	Speed int64

	// Duration is the duration of the transfer
	Duration time.Duration

	// Error is the error that occurred (when Status is ProgressStatusInError)
	Error error
}

const finishedProgress = 100

// progressTracker periodically renders the shared byte counter into
// Progress snapshots for the callback.
type progressTracker struct {
	transferred int64
	totalSize   int64
	startTime   time.Time
	cb          ProgressUpdatedCallback
}

func newProgressTracker(totalSize int64, cb ProgressUpdatedCallback) *progressTracker {
	return &progressTracker{
		totalSize: totalSize,
		startTime: time.Now(),
		cb:        cb,
	}
}

// counter returns the shared counter part bodies account into.
func (p *progressTracker) counter() *int64 { return &p.transferred }

// add accounts bytes transferred at part granularity.
func (p *progressTracker) add(n int64) { atomic.AddInt64(&p.transferred, n) }

func (p *progressTracker) snapshot(status ProgressStatus, err error) Progress {
	transferred := atomic.LoadInt64(&p.transferred)
	percentage := finishedProgress
	if status != ProgressStatusFinished && p.totalSize > 0 {
		percentage = int(math.Min(
			finishedProgress,
			math.Round(float64(transferred)/float64(p.totalSize)*100),
		))
	}
	elapsed := time.Since(p.startTime)
	return Progress{
		Status:          status,
		TotalSize:       p.totalSize,
		TransferredSize: transferred,
		Percentage:      percentage,
		Speed:           transferred / int64(math.Max(1, elapsed.Seconds())),
		Duration:        elapsed,
		Error:           err,
	}
}

// track emits a snapshot every interval until ctx is cancelled.
func (p *progressTracker) track(ctx context.Context, interval time.Duration) {
	if p.cb == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cb(p.snapshot(ProgressStatusInProgress, nil))
		}
	}
}

// finish emits the terminal snapshot.
func (p *progressTracker) finish(err error) {
	if p.cb == nil {
		return
	}
	if err != nil {
		p.cb(p.snapshot(ProgressStatusInError, err))
		return
	}
	p.cb(p.snapshot(ProgressStatusFinished, nil))
}
