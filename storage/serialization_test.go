package storage

import (
	"testing"
	"time"

	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/lectern/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"job ID", core.JobIDFor("content-1", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalContent(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name    string
		content *core.Content
	}{
		{
			name: "pending content",
			content: &core.Content{
				ID:         "0b6f8c1e-4a7d-4a43-9a53-7f2b8f1d9e11",
				OwnerID:    "owner-1",
				Source:     core.Source{Type: core.SourceTypeWebpage, Locator: "https://example.com/a"},
				Title:      "Article",
				Status:     core.StatusPending,
				Generation: 1,
				Version:    1,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
		{
			name: "completed content with metadata",
			content: &core.Content{
				ID:            "c2",
				OwnerID:       "owner-2",
				Source:        core.Source{Type: core.SourceTypeFile, Locator: "/tmp/notes.pdf"},
				Title:         "Notes",
				ExtractedText: "Photosynthesis converts light into chemical energy.",
				Status:        core.StatusCompleted,
				Generation:    3,
				Version:       9,
				Metadata:      map[string]string{"course": "bio101", "lang": "en"},
				CreatedAt:     now.Add(-time.Hour),
				UpdatedAt:     now,
			},
		},
		{
			name: "failed content with zero times",
			content: &core.Content{
				ID:           "c3",
				OwnerID:      "owner-3",
				Source:       core.Source{Type: core.SourceTypeVideo, Locator: "https://youtu.be/abc123"},
				Title:        "Talk",
				Status:       core.StatusFailed,
				ErrorMessage: "transcript unavailable",
				Generation:   1,
				Version:      4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalContent(tt.content)
			decoded, err := UnmarshalContent(data)
			require.NoError(t, err)
			assert.Equal(t, tt.content, decoded)
		})
	}
}

func TestUnmarshalContent_NegativeMetadataCount(t *testing.T) {
	data := MarshalContent(&core.Content{ID: "c1", OwnerID: "o", Title: "t"})

	// Metadata length sits right before the two fixed-width timestamps.
	at := len(data) - 2*8 - 1
	require.Equal(t, byte(0), data[at])

	negative := make([]byte, varint.PositiveInt.Size(-1))
	varint.PositiveInt.Marshal(-1, negative)
	corrupt := append(append(append([]byte{}, data[:at]...), negative...), data[at+1:]...)

	require.NotPanics(t, func() {
		_, err := UnmarshalContent(corrupt)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestUnmarshalContent_Truncated(t *testing.T) {
	data := MarshalContent(&core.Content{ID: "c1", OwnerID: "o", Title: "t"})
	_, err := UnmarshalContent(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalJob(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &core.Job{
		ID:          core.JobIDFor("c1", 2),
		ContentID:   "c1",
		Generation:  2,
		Payload:     core.Source{Type: core.SourceTypeVideo, Locator: "https://youtu.be/abc123"},
		Attempt:     2,
		MaxAttempts: 3,
		BackoffBase: 2 * time.Second,
		State:       core.QueueStateWaiting,
		VisibleAt:   now.Add(4 * time.Second),
		LastError:   "fetch timeout",
		EnqueuedAt:  now,
	}

	decoded, err := UnmarshalJob(MarshalJob(job))
	require.NoError(t, err)
	assert.Equal(t, job, decoded)
}

func TestMarshalUnmarshalCheckpoint(t *testing.T) {
	cp := &core.Checkpoint{
		Name:      "reprocess-failed",
		Cursor:    "0b6f8c1e-4a7d-4a43-9a53-7f2b8f1d9e11",
		Processed: 120,
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(cp))
	require.NoError(t, err)
	assert.Equal(t, cp, decoded)
}
