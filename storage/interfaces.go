package storage

import (
	"context"
	"time"

	"github.com/poiesic/lectern/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// ContentRepository provides operations for managing content records.
type ContentRepository interface {
	Repository

	// AddContent stores a new content record.
	// Generates an ID when the record has none and sets CreatedAt, UpdatedAt and Version.
	// Returns ErrDuplicateKey if a record with the same ID exists.
	AddContent(ctx context.Context, content *core.Content) (*core.Content, error)

	// AddContentWithJob stores a new record and the job newJob builds for it in one
	// transaction. If the job cannot be written the record is not stored either.
	AddContentWithJob(ctx context.Context, content *core.Content, newJob func(*core.Content) *core.Job) (*core.Content, error)

	// GetContent retrieves a single content record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetContent(ctx context.Context, id string) (*core.Content, error)

	// UpdateContent atomically reads a record, applies fn and writes the result.
	// Concurrent updates to the same record are serialized: when another writer commits first
	// the read is repeated and fn is applied to the fresh copy.
	// If fn returns an error nothing is written and the error is returned unchanged.
	// Version and UpdatedAt are maintained automatically.
	// Returns ErrNotFound if the record doesn't exist.
	UpdateContent(ctx context.Context, id string, fn func(content *core.Content) error) (*core.Content, error)

	// UpdateContentWithJob behaves like UpdateContent and enqueues the job newJob
	// builds from the updated record in the same transaction. A job whose ID is
	// already queued is left as it is.
	UpdateContentWithJob(ctx context.Context, id string, fn func(content *core.Content) error, newJob func(*core.Content) *core.Job) (*core.Content, error)

	// DeleteContent removes a content record and its indices.
	// Returns ErrNotFound if the record doesn't exist.
	DeleteContent(ctx context.Context, id string) error

	// ListContentByOwner returns one page of an owner's records, newest first,
	// together with the owner's total record count.
	ListContentByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*core.Content, int, error)

	// ListContentByStatus returns up to limit records with the given status whose ID sorts after afterID.
	// Pass an empty afterID to start from the beginning. Used for batch sweeps.
	ListContentByStatus(ctx context.Context, status core.Status, afterID string, limit int) ([]*core.Content, error)
}

// QueueStats summarizes the jobs currently held by a queue.
type QueueStats struct {
	Waiting int
	Active  int
}

// JobQueue is a durable queue with lease-based, at-least-once delivery.
//
// A leased job is invisible to other consumers until its lease expires. A consumer
// that crashes simply never acknowledges the job and it becomes leasable again.
type JobQueue interface {
	Repository

	// Enqueue adds a waiting job that is immediately visible.
	// Enqueueing a job whose ID is already queued is a no-op.
	Enqueue(ctx context.Context, job *core.Job) error

	// Lease claims the next visible job, marks it active, increments its attempt
	// counter and hides it for leaseFor. Returns nil, nil when no job is ready.
	Lease(ctx context.Context, leaseFor time.Duration) (*core.Job, error)

	// Retry returns a leased job to the waiting state after an exponential backoff
	// derived from its attempt counter and records cause as its last error.
	// Returns ErrLeaseLost if the job was leased again after this lease expired.
	Retry(ctx context.Context, job *core.Job, cause error) (*core.Job, error)

	// Complete removes a successfully processed job.
	// Returns ErrLeaseLost if the job was leased again after this lease expired.
	Complete(ctx context.Context, job *core.Job) error

	// Discard removes a job that will not be retried.
	// Returns ErrLeaseLost if the job was leased again after this lease expired.
	Discard(ctx context.Context, job *core.Job, cause error) error

	// GetJob retrieves a queued job by ID.
	// Returns ErrNotFound if the job isn't queued.
	GetJob(ctx context.Context, id core.ID) (*core.Job, error)

	// Stats counts waiting and active jobs.
	Stats(ctx context.Context) (QueueStats, error)
}

// CheckpointRepository persists the progress of resumable batch sweeps.
type CheckpointRepository interface {
	// SaveCheckpoint stores checkpoint under its name, replacing any previous one.
	// Cursors only advance: a cursor ordered before the stored one returns
	// ErrCheckpointBehind. An empty name returns ErrInvalidQuery.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint stored under name.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint stored under name. Missing checkpoints are ignored.
	ClearCheckpoint(ctx context.Context, name string) error
}
