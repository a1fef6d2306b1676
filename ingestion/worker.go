package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

const (
	DefaultLeaseTimeout = 5 * time.Minute
	DefaultJobTimeout   = 2 * time.Minute
	DefaultPollInterval = 250 * time.Millisecond
)

// Worker leases extraction jobs and runs them on a fixed-size pool.
type Worker struct {
	store        ContentStore
	queue        storage.JobQueue
	extractor    Extractor
	pool         *ants.Pool
	poolSize     int
	leaseTimeout time.Duration
	jobTimeout   time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker) error

// WithPoolSize sets how many jobs run concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(w *Worker) error {
		if size < 1 {
			size = 1
		}
		w.poolSize = size
		return nil
	}
}

// WithLeaseTimeout sets how long a leased job stays invisible to other workers.
// Default is 5 minutes.
func WithLeaseTimeout(d time.Duration) Option {
	return func(w *Worker) error {
		if d <= 0 {
			return fmt.Errorf("lease timeout must be positive, got %s", d)
		}
		w.leaseTimeout = d
		return nil
	}
}

// WithJobTimeout bounds a single extraction attempt. It must be shorter than
// the lease timeout. Default is 2 minutes.
func WithJobTimeout(d time.Duration) Option {
	return func(w *Worker) error {
		if d <= 0 {
			return fmt.Errorf("job timeout must be positive, got %s", d)
		}
		w.jobTimeout = d
		return nil
	}
}

// WithPollInterval sets the pause between lease attempts when the queue is
// empty or the pool is busy. Default is 250ms.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %s", d)
		}
		w.pollInterval = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWorker creates a worker. Call Run to start leasing and Release to stop.
func NewWorker(store ContentStore, queue storage.JobQueue, extractor Extractor, opts ...Option) (*Worker, error) {
	if store == nil {
		return nil, ErrContentStoreRequired
	}
	if queue == nil {
		return nil, ErrJobQueueRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	w := &Worker{
		store:        store,
		queue:        queue,
		extractor:    extractor,
		poolSize:     poolSize,
		leaseTimeout: DefaultLeaseTimeout,
		jobTimeout:   DefaultJobTimeout,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.jobTimeout >= w.leaseTimeout {
		return nil, fmt.Errorf("%w: job %s, lease %s", ErrJobTimeoutTooLong, w.jobTimeout, w.leaseTimeout)
	}
	w.logger = w.logger.With("component", "worker")

	pool, err := ants.NewPool(w.poolSize, ants.WithPanicHandler(func(p any) {
		w.logger.Error("worker goroutine panicked", "panic", p)
	}))
	if err != nil {
		return nil, err
	}
	w.pool = pool
	return w, nil
}

// Run leases and dispatches jobs until ctx is canceled. Jobs already running
// keep going after Run returns; use Release to wait for them.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "poolSize", w.poolSize, "leaseTimeout", w.leaseTimeout, "jobTimeout", w.jobTimeout)
	defer w.logger.Info("worker stopped leasing")

	// Jobs outlive the Run context so shutdown does not abort them midway
	jobCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if w.pool.Free() == 0 {
			if !w.wait(ctx) {
				return nil
			}
			continue
		}

		job, err := w.queue.Lease(ctx, w.leaseTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, storage.ErrStorageClosed) {
				return err
			}
			w.logger.Error("lease failed", "err", err)
			if !w.wait(ctx) {
				return nil
			}
			continue
		}
		if job == nil {
			if !w.wait(ctx) {
				return nil
			}
			continue
		}

		if err := w.pool.Submit(func() { w.handle(jobCtx, job) }); err != nil {
			// The lease runs out and the job is redelivered
			w.logger.Error("failed to dispatch job", "job", job.ID, "err", err)
		}
	}
}

// ProcessNext leases one job and handles it on the calling goroutine.
// Reports whether a job was available.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.queue.Lease(ctx, w.leaseTimeout)
	if err != nil || job == nil {
		return false, err
	}
	w.handle(ctx, job)
	return true, nil
}

// Running returns the number of jobs currently executing.
func (w *Worker) Running() int {
	return w.pool.Running()
}

// Release waits up to timeout for running jobs and frees the pool.
// The worker should not be used after calling Release.
func (w *Worker) Release(timeout time.Duration) error {
	return w.pool.ReleaseTimeout(timeout)
}

// wait sleeps for the poll interval. Returns false if ctx ended first.
func (w *Worker) wait(ctx context.Context) bool {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// handle runs one delivery of a job.
func (w *Worker) handle(ctx context.Context, job *core.Job) {
	logger := w.logger.With("job", job.ID, "content", job.ContentID, "generation", job.Generation, "attempt", job.Attempt)

	if _, err := w.store.MarkProcessing(ctx, job.ContentID, job.Generation); err != nil {
		if isStale(err) {
			logger.Info("dropping stale job", "reason", err)
			w.complete(ctx, job, logger)
			return
		}
		w.retryOrFail(ctx, job, err, logger)
		return
	}

	// A lease that ran out during the final attempt redelivers past the limit
	if job.Attempt > job.MaxAttempts {
		lastErr := job.LastError
		if lastErr == "" {
			lastErr = "lease expired before the job finished"
		}
		w.exhaust(ctx, job, lastErr, logger)
		return
	}

	text, err := w.extract(ctx, job)
	if err != nil {
		w.retryOrFail(ctx, job, err, logger)
		return
	}

	if _, err := w.store.Complete(ctx, job.ContentID, job.Generation, text); err != nil {
		if isStale(err) {
			logger.Info("discarding result of stale job", "reason", err)
			w.complete(ctx, job, logger)
			return
		}
		w.retryOrFail(ctx, job, err, logger)
		return
	}

	w.complete(ctx, job, logger)
	logger.Info("job completed", "type", job.Payload.Type, "length", len(text))
}

// extract runs the extractor under the job timeout, turning panics into errors.
func (w *Worker) extract(ctx context.Context, job *core.Job) (text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return w.extractor.Extract(ctx, job.Payload)
}

// retryOrFail schedules another attempt, or fails the content when none are left.
func (w *Worker) retryOrFail(ctx context.Context, job *core.Job, cause error, logger *slog.Logger) {
	if !job.Exhausted() {
		next, err := w.queue.Retry(ctx, job, cause)
		if err != nil {
			logger.Error("failed to schedule retry", "cause", cause, "err", err)
			return
		}
		logger.Warn("attempt failed, will retry", "err", cause, "retryAt", next.VisibleAt)
		return
	}
	w.exhaust(ctx, job, cause.Error(), logger)
}

// exhaust records the final failure on the content and drops the job.
// The content is failed first so a crash in between redelivers the job
// instead of losing the failure.
func (w *Worker) exhaust(ctx context.Context, job *core.Job, lastErr string, logger *slog.Logger) {
	logger.Error("job failed permanently", "err", fmt.Errorf("%w: %s", core.ErrQueueExhausted, lastErr))

	if _, err := w.store.Fail(ctx, job.ContentID, job.Generation, lastErr); err != nil && !isStale(err) {
		logger.Error("failed to mark content failed", "err", err)
		return
	}
	if err := w.queue.Discard(ctx, job, errors.New(lastErr)); err != nil {
		logger.Error("failed to discard job", "err", err)
	}
}

// complete acknowledges a job.
func (w *Worker) complete(ctx context.Context, job *core.Job, logger *slog.Logger) {
	if err := w.queue.Complete(ctx, job); err != nil {
		logger.Error("failed to acknowledge job", "err", err)
	}
}

// isStale reports whether err means the job no longer applies to its content.
func isStale(err error) bool {
	return errors.Is(err, core.ErrStaleJob) || errors.Is(err, core.ErrNotFound)
}
