package reprocess

import (
	"context"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

const (
	// DefaultBatchSize is the default number of records to fetch in each batch
	DefaultBatchSize = 50
)

// StatusIterator pages through the content records in one status in ID order.
type StatusIterator struct {
	repo      storage.ContentRepository
	status    core.Status
	batchSize int
}

// NewStatusIterator creates an iterator over records in status.
// batchSize: number of records to fetch in each batch (defaults when <= 0)
func NewStatusIterator(repo storage.ContentRepository, status core.Status, batchSize int) *StatusIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &StatusIterator{
		repo:      repo,
		status:    status,
		batchSize: batchSize,
	}
}

// ForEach calls fn with successive batches of records whose ID sorts after
// afterID. Records leaving the status while iterating do not disturb paging.
// Iteration stops on the first error from fn or when the records run out.
// Context cancellation is checked between batches.
func (it *StatusIterator) ForEach(ctx context.Context, afterID string, fn func([]*core.Content) error) error {
	cursor := afterID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.repo.ListContentByStatus(ctx, it.status, cursor, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		cursor = batch[len(batch)-1].ID
		if len(batch) < it.batchSize {
			return nil
		}
	}
}

// Count returns how many records sort after afterID.
func (it *StatusIterator) Count(ctx context.Context, afterID string) (int, error) {
	total := 0
	err := it.ForEach(ctx, afterID, func(batch []*core.Content) error {
		total += len(batch)
		return nil
	})
	return total, err
}
