package badger

import (
	"context"
	"testing"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRepository(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	cp, err := stores.Checkpoints.LoadCheckpoint(ctx, "reprocess-failed")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Name:      "reprocess-failed",
		Cursor:    "c-42",
		Processed: 42,
	}))

	cp, err = stores.Checkpoints.LoadCheckpoint(ctx, "reprocess-failed")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "c-42", cp.Cursor)
	assert.Equal(t, 42, cp.Processed)
	assert.False(t, cp.UpdatedAt.IsZero())

	require.NoError(t, stores.Checkpoints.ClearCheckpoint(ctx, "reprocess-failed"))
	cp, err = stores.Checkpoints.LoadCheckpoint(ctx, "reprocess-failed")
	require.NoError(t, err)
	assert.Nil(t, cp)

	// Clearing a missing checkpoint is not an error
	require.NoError(t, stores.Checkpoints.ClearCheckpoint(ctx, "never-saved"))
}

func TestSaveCheckpoint_CursorOnlyAdvances(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: "sweep", Cursor: "b", Processed: 2}))

	err := stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: "sweep", Cursor: "a", Processed: 1})
	assert.ErrorIs(t, err, storage.ErrCheckpointBehind)

	// Same cursor is a progress update
	require.NoError(t, stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: "sweep", Cursor: "b", Processed: 3}))
	require.NoError(t, stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: "sweep", Cursor: "c", Processed: 4}))

	cp, err := stores.Checkpoints.LoadCheckpoint(ctx, "sweep")
	require.NoError(t, err)
	assert.Equal(t, "c", cp.Cursor)
	assert.Equal(t, 4, cp.Processed)

	// Other sweeps keep their own cursor
	require.NoError(t, stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: "other", Cursor: "a"}))

	// A cleared sweep starts over
	require.NoError(t, stores.Checkpoints.ClearCheckpoint(ctx, "sweep"))
	require.NoError(t, stores.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: "sweep", Cursor: "a", Processed: 1}))
}

func TestSaveCheckpoint_RequiresName(t *testing.T) {
	stores := newTestStores(t)

	err := stores.Checkpoints.SaveCheckpoint(context.Background(), &core.Checkpoint{Cursor: "a"})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}
