package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/core"
)

// run executes the CLI against dbPath and returns what it wrote to stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{"lectern", "--env-file", "", "--db", dbPath}, args...)
	err := app.Run(argv)
	return stdout.String(), err
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"worker", "ingest", "status", "list", "resubmit", "delete", "reprocess-failed", "generate"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	t.Run("owner is required", func(t *testing.T) {
		_, err := run(t, t.TempDir(), "ingest", "--type", "webpage", "https://example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "owner")
	})

	t.Run("task is required", func(t *testing.T) {
		_, err := run(t, t.TempDir(), "generate", "--owner", "alice", "some-id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "task")
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := run(t, t.TempDir(), "--log-level", "verbose", "list", "--owner", "alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestIngestStatusList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	out, err := run(t, db, "ingest", "--owner", "alice", "--type", "url", "--title", "Cells", "--meta", "course=bio101", "https://example.com/cells")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = run(t, db, "status", "--owner", "alice", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cells")
	assert.Contains(t, out, string(core.StatusPending))
	assert.Contains(t, out, "webpage https://example.com/cells")

	out, err = run(t, db, "list", "--owner", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "page 1 of 1 (1 total)")

	_, err = run(t, db, "status", "--owner", "bob", id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestIngestErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	_, err := run(t, db, "ingest", "--owner", "alice", "--type", "webpage")
	assert.ErrorContains(t, err, "locator is required")

	_, err = run(t, db, "ingest", "--owner", "alice", "--type", "podcast", "https://example.com/ep1")
	assert.ErrorIs(t, err, core.ErrUnsupportedSourceType)

	_, err = run(t, db, "ingest", "--owner", "alice", "--type", "webpage", "--meta", "novalue", "https://example.com")
	assert.ErrorContains(t, err, "key=value")
}

func TestGenerateRequiresCompletedContent(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	out, err := run(t, db, "ingest", "--owner", "alice", "--type", "video", "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	_, err = run(t, db, "generate", "--owner", "alice", "--task", "summary", id)
	assert.ErrorIs(t, err, core.ErrStillProcessing)

	_, err = run(t, db, "generate", "--owner", "alice", "--task", "poem", id)
	assert.Error(t, err)
}

func TestResubmitAndDelete(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	out, err := run(t, db, "ingest", "--owner", "alice", "--type", "file", "/tmp/notes.txt")
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	out, err = run(t, db, "resubmit", "--owner", "alice", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Generation:")

	_, err = run(t, db, "delete", "--owner", "alice", id)
	require.NoError(t, err)

	_, err = run(t, db, "status", "--owner", "alice", id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReprocessFailedValidation(t *testing.T) {
	_, err := run(t, t.TempDir(), "reprocess-failed", "--batch-size", "0")
	assert.ErrorContains(t, err, "batch-size")

	_, err = run(t, filepath.Join(t.TempDir(), "db"), "reprocess-failed")
	assert.NoError(t, err)
}

func TestParseMetadata(t *testing.T) {
	got, err := parseMetadata([]string{"course=bio101", "week=3", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"course": "bio101", "week": "3", "note": "a=b"}, got)

	got, err = parseMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseMetadata([]string{"=value"})
	assert.Error(t, err)
}
