// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// CheckpointRepository stores sweep cursors under chkpt:<name>.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend}
}

// SaveCheckpoint records how far the named sweep got. The cursor is a content
// ID from the status index, so it may only move forward in key order.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint == nil || checkpoint.Name == "" {
		return fmt.Errorf("%w: checkpoint name required", storage.ErrInvalidQuery)
	}
	return r.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		stored, err := readCheckpoint(tx, checkpoint.Name)
		if err != nil {
			return err
		}
		if stored != nil && checkpoint.Cursor < stored.Cursor {
			return fmt.Errorf("%w: %q < %q", storage.ErrCheckpointBehind, checkpoint.Cursor, stored.Cursor)
		}
		checkpoint.UpdatedAt = storageNow()
		return tx.Set(makeCheckpointKey(checkpoint.Name), storage.MarshalCheckpoint(checkpoint))
	})
}

// LoadCheckpoint returns nil, nil when the sweep has no stored cursor.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		checkpoint, err = readCheckpoint(tx, name)
		return err
	}, false)
	return checkpoint, err
}

// ClearCheckpoint drops the named cursor so the next sweep starts over.
func (r *CheckpointRepository) ClearCheckpoint(ctx context.Context, name string) error {
	return r.backend.WithUpdate(ctx, func(tx *badger.Txn) error {
		return tx.Delete(makeCheckpointKey(name))
	})
}

func readCheckpoint(tx *badger.Txn, name string) (*core.Checkpoint, error) {
	item, err := tx.Get(makeCheckpointKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var checkpoint *core.Checkpoint
	err = item.Value(func(val []byte) error {
		checkpoint, err = storage.UnmarshalCheckpoint(val)
		return err
	})
	return checkpoint, err
}
