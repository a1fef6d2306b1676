package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/retry"
	"github.com/poiesic/lectern/storage"
)

// JobQueue implements storage.JobQueue for BadgerDB.
//
// Every queued job has exactly one entry in the visibility index, keyed by the
// time it may next be leased. Leasing takes the first entry and moves it forward
// by the lease duration, so an unacknowledged job reappears once the lease runs out.
// Concurrent leases of the same entry collide in the transaction conflict check
// and the loser moves on to the next entry.
type JobQueue struct {
	backend *Backend
	now     func() time.Time
}

var _ storage.JobQueue = (*JobQueue)(nil)

// NewJobQueue creates a new JobQueue.
func NewJobQueue(backend *Backend) *JobQueue {
	return &JobQueue{
		backend: backend,
		now:     storageNow,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (q *JobQueue) Close() error {
	return nil
}

// Enqueue adds a waiting job unless a job with the same ID is already queued.
func (q *JobQueue) Enqueue(ctx context.Context, job *core.Job) error {
	return q.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		return enqueueJob(tx, job, q.now())
	})
}

// Lease claims the earliest visible job.
func (q *JobQueue) Lease(ctx context.Context, leaseFor time.Duration) (*core.Job, error) {
	var leased *core.Job
	err := q.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		leased = nil
		now := q.now()

		visKey, ok := firstKey(tx, []byte(jobVisibilityPrefix))
		if !ok {
			return nil
		}
		visibleAt, id, err := parseJobVisibilityKey(visKey)
		if err != nil {
			return err
		}
		if visibleAt.After(now) {
			return nil
		}

		job, err := readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if job == nil {
			// Orphaned index entry; drop it and let the caller poll again
			return tx.Delete(visKey)
		}

		if err := tx.Delete(visKey); err != nil {
			return err
		}
		job.Attempt++
		job.State = core.QueueStateActive
		job.VisibleAt = now.Add(leaseFor)
		if err := writeJob(tx, job); err != nil {
			return err
		}
		leased = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return leased, nil
}

// Retry returns a leased job to the waiting state after its backoff delay.
func (q *JobQueue) Retry(ctx context.Context, job *core.Job, cause error) (*core.Job, error) {
	var result *core.Job
	err := q.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		stored, err := q.checkLease(tx, job)
		if err != nil {
			return err
		}
		if err := tx.Delete(makeJobVisibilityKey(stored.VisibleAt, stored.ID)); err != nil {
			return err
		}
		stored.State = core.QueueStateWaiting
		stored.VisibleAt = q.now().Add(retry.Delay(stored.BackoffBase, stored.Attempt))
		if cause != nil {
			stored.LastError = cause.Error()
		}
		if err := writeJob(tx, stored); err != nil {
			return err
		}
		result = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete removes a successfully processed job. On return job.State is
// QueueStateCompleted.
func (q *JobQueue) Complete(ctx context.Context, job *core.Job) error {
	return q.remove(ctx, job, core.QueueStateCompleted, nil)
}

// Discard removes a job that will not be retried. On return job.State is
// QueueStateFailed and job.LastError holds cause.
func (q *JobQueue) Discard(ctx context.Context, job *core.Job, cause error) error {
	if err := q.remove(ctx, job, core.QueueStateFailed, cause); err != nil {
		return err
	}
	q.backend.logger.Debug("job discarded", "job", job.ID, "content", job.ContentID, "state", job.State, "error", cause)
	return nil
}

// GetJob retrieves a queued job by ID.
func (q *JobQueue) GetJob(ctx context.Context, id core.ID) (*core.Job, error) {
	var result *core.Job
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Stats counts waiting and active jobs.
func (q *JobQueue) Stats(ctx context.Context) (storage.QueueStats, error) {
	var stats storage.QueueStats
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.Job
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			}); err != nil {
				return err
			}
			switch job.State {
			case core.QueueStateWaiting:
				stats.Waiting++
			case core.QueueStateActive:
				stats.Active++
			}
		}
		return nil
	}, false)
	return stats, err
}

// Helper methods

// remove deletes a leased job and its visibility entry, then moves the
// caller's copy into the terminal state.
func (q *JobQueue) remove(ctx context.Context, job *core.Job, state core.QueueState, cause error) error {
	err := q.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		stored, err := q.checkLease(tx, job)
		if err != nil {
			return err
		}
		if err := tx.Delete(makeJobVisibilityKey(stored.VisibleAt, stored.ID)); err != nil {
			return err
		}
		return tx.Delete(makeJobKey(stored.ID))
	})
	if err != nil {
		return err
	}
	job.State = state
	if cause != nil {
		job.LastError = cause.Error()
	}
	return nil
}

// checkLease loads the stored job and verifies the caller still holds its lease.
// The attempt counter doubles as the lease token: a re-lease after expiry bumps it.
func (q *JobQueue) checkLease(tx *badger.Txn, job *core.Job) (*core.Job, error) {
	stored, err := readJob(tx, makeJobKey(job.ID))
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Attempt != job.Attempt || stored.State != core.QueueStateActive {
		return nil, storage.ErrLeaseLost
	}
	return stored, nil
}

// enqueueJob writes job as waiting and visible from now, unless a job with
// its ID is already queued.
func enqueueJob(tx *badger.Txn, job *core.Job, now time.Time) error {
	if job == nil || job.ContentID == "" || job.MaxAttempts < 1 {
		return storage.ErrInvalidJob
	}
	key := makeJobKey(job.ID)
	existing, err := readJob(tx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	stored := *job
	stored.State = core.QueueStateWaiting
	stored.EnqueuedAt = now
	if stored.VisibleAt.IsZero() || stored.VisibleAt.Before(now) {
		stored.VisibleAt = now
	}
	return writeJob(tx, &stored)
}

// readJob reads a job from the transaction.
// Returns nil, nil if the key doesn't exist.
func readJob(tx *badger.Txn, key []byte) (*core.Job, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}

// writeJob stores a job and its visibility entry.
func writeJob(tx *badger.Txn, job *core.Job) error {
	if err := tx.Set(makeJobKey(job.ID), storage.MarshalJob(job)); err != nil {
		return err
	}
	return tx.Set(makeJobVisibilityKey(job.VisibleAt, job.ID), storage.MarshalID(job.ID))
}

// firstKey returns a copy of the first key with the given prefix.
// The iterator is closed before returning so the caller may write in the same transaction.
func firstKey(tx *badger.Txn, prefix []byte) ([]byte, bool) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	iter.Rewind()
	if !iter.Valid() {
		return nil, false
	}
	return iter.Item().KeyCopy(nil), true
}
