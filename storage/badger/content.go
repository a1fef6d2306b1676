package badger

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// ContentRepository implements storage.ContentRepository for BadgerDB.
type ContentRepository struct {
	backend *Backend
}

var _ storage.ContentRepository = (*ContentRepository)(nil)

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(backend *Backend) *ContentRepository {
	return &ContentRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *ContentRepository) Close() error {
	return nil
}

// AddContent stores a new content record and its index entries.
func (r *ContentRepository) AddContent(ctx context.Context, content *core.Content) (*core.Content, error) {
	record := newRecord(content)
	err := r.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		return addContent(tx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// AddContentWithJob stores a new record and the job built for it in one transaction.
func (r *ContentRepository) AddContentWithJob(ctx context.Context, content *core.Content, newJob func(*core.Content) *core.Job) (*core.Content, error) {
	record := newRecord(content)
	err := r.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		if err := addContent(tx, record); err != nil {
			return err
		}
		return enqueueJob(tx, newJob(cloneContent(record)), record.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetContent retrieves a single content record by ID.
func (r *ContentRepository) GetContent(ctx context.Context, id string) (*core.Content, error) {
	var result *core.Content
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readContent(tx, makeContentKey(id))
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

// UpdateContent applies fn to the stored record inside a conflict-checked transaction.
func (r *ContentRepository) UpdateContent(ctx context.Context, id string, fn func(content *core.Content) error) (*core.Content, error) {
	var result *core.Content
	err := r.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = updateContent(tx, id, fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateContentWithJob applies fn and enqueues the job built from the result in one transaction.
func (r *ContentRepository) UpdateContentWithJob(ctx context.Context, id string, fn func(content *core.Content) error, newJob func(*core.Content) *core.Job) (*core.Content, error) {
	var result *core.Content
	err := r.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		updated, err := updateContent(tx, id, fn)
		if err != nil {
			return err
		}
		if err := enqueueJob(tx, newJob(cloneContent(updated)), updated.UpdatedAt); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteContent removes a content record and its index entries.
func (r *ContentRepository) DeleteContent(ctx context.Context, id string) error {
	return r.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		key := makeContentKey(id)
		record, err := readContent(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		if err := deleteContentIndex(tx, record); err != nil {
			return err
		}
		return tx.Delete(key)
	})
}

// ListContentByOwner returns an owner's records newest first.
func (r *ContentRepository) ListContentByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*core.Content, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, storage.ErrInvalidQuery
	}

	var results []*core.Content
	total := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeContentOwnerPrefix(ownerID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration starts at the last key with the prefix
		seekKey := append(bytes.Clone(prefix), 0xFF)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			total++
			if total <= offset || len(results) >= limit {
				continue
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			record, err := readContent(tx, makeContentKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// ListContentByStatus returns up to limit records in a status, ordered by ID.
func (r *ContentRepository) ListContentByStatus(ctx context.Context, status core.Status, afterID string, limit int) ([]*core.Content, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Content
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeContentStatusPrefix(status)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		startKey := makeContentStatusKey(status, afterID)
		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			id := string(iter.Item().Key()[len(prefix):])
			if afterID != "" && id <= afterID {
				continue
			}
			record, err := readContent(tx, makeContentKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)
	return results, err
}

// Helper functions

// newRecord copies content for insertion, assigning an ID and bookkeeping fields.
func newRecord(content *core.Content) *core.Content {
	record := cloneContent(content)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := storageNow()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.Version = 1
	return record
}

// addContent writes a new record and its index entries.
func addContent(tx *badger.Txn, record *core.Content) error {
	key := makeContentKey(record.ID)
	existing, err := readContent(tx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		return storage.ErrDuplicateKey
	}
	if err := tx.Set(key, storage.MarshalContent(record)); err != nil {
		return err
	}
	return setContentIndex(tx, record)
}

// updateContent reads a record, applies fn and writes the result with its indexes.
func updateContent(tx *badger.Txn, id string, fn func(content *core.Content) error) (*core.Content, error) {
	key := makeContentKey(id)
	old, err := readContent(tx, key)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, storage.ErrNotFound
	}

	updated := cloneContent(old)
	if err := fn(updated); err != nil {
		return nil, err
	}
	// Identity and bookkeeping fields are not caller-writable
	updated.ID = old.ID
	updated.CreatedAt = old.CreatedAt
	updated.Version = old.Version + 1
	updated.UpdatedAt = storageNow()

	if err := tx.Set(key, storage.MarshalContent(updated)); err != nil {
		return nil, err
	}
	if old.OwnerID != updated.OwnerID || old.Status != updated.Status {
		if err := deleteContentIndex(tx, old); err != nil {
			return nil, err
		}
		if err := setContentIndex(tx, updated); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// readContent reads a content record from the transaction.
// Returns nil, nil if the key doesn't exist.
func readContent(tx *badger.Txn, key []byte) (*core.Content, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *core.Content
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalContent(val)
		return unmarshalErr
	})
	return record, err
}

// setContentIndex writes the owner and status index entries for a record.
func setContentIndex(tx *badger.Txn, record *core.Content) error {
	ownerKey := makeContentOwnerKey(record.OwnerID, record.CreatedAt, record.ID)
	if err := tx.Set(ownerKey, []byte(record.ID)); err != nil {
		return err
	}
	return tx.Set(makeContentStatusKey(record.Status, record.ID), nil)
}

// deleteContentIndex removes the owner and status index entries for a record.
func deleteContentIndex(tx *badger.Txn, record *core.Content) error {
	ownerKey := makeContentOwnerKey(record.OwnerID, record.CreatedAt, record.ID)
	if err := tx.Delete(ownerKey); err != nil {
		return err
	}
	return tx.Delete(makeContentStatusKey(record.Status, record.ID))
}

// storageNow returns the current time at the precision records are persisted with.
func storageNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// cloneContent copies a record so callers never share the metadata map with storage.
func cloneContent(c *core.Content) *core.Content {
	clone := *c
	clone.Metadata = maps.Clone(c.Metadata)
	return &clone
}
