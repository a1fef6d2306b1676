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


package reprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/retry"
	"github.com/poiesic/lectern/storage"
)

// DefaultCheckpointName names the checkpoint of the failed-content sweep.
const DefaultCheckpointName = "reprocess-failed"

// Config holds configuration for a sweep.
type Config struct {
	// BatchSize is the number of records fetched per page
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per re-submission
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// CheckpointName keys the stored cursor. Sweeps with different names
	// resume independently.
	CheckpointName string

	// OwnerID restricts the sweep to one owner. Empty sweeps every owner.
	OwnerID string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		CheckpointName: DefaultCheckpointName,
	}
}

// Submitter starts a new generation for a content record.
type Submitter interface {
	Resubmit(ctx context.Context, id, ownerID string) (*core.Content, error)
}

// Result summarizes a sweep.
type Result struct {
	Resubmitted int
	Skipped     int  // deleted while the sweep ran
	Resumed     bool // started from a stored checkpoint
}

// Reprocessor re-submits every failed content record.
type Reprocessor struct {
	submitter   Submitter
	checkpoints storage.CheckpointRepository
	iterator    *StatusIterator
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// NewReprocessor creates a reprocessor.
// progress: where to write progress output (typically os.Stderr)
func NewReprocessor(contents storage.ContentRepository, submitter Submitter, checkpoints storage.CheckpointRepository, config *Config, progress io.Writer) (*Reprocessor, error) {
	if contents == nil {
		return nil, ErrContentRepositoryRequired
	}
	if submitter == nil {
		return nil, ErrSubmitterRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckpointName == "" {
		config.CheckpointName = DefaultCheckpointName
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reprocessor{
		submitter:   submitter,
		checkpoints: checkpoints,
		iterator:    NewStatusIterator(contents, core.StatusFailed, config.BatchSize),
		config:      config,
		progress:    progress,
		logger:      slog.Default().With("component", "reprocess"),
	}, nil
}

// Run executes the sweep. On error the checkpoint holds the last record
// handled, and the next Run continues after it. A completed sweep clears
// its checkpoint.
func (r *Reprocessor) Run(ctx context.Context) (Result, error) {
	var result Result

	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, r.config.CheckpointName)
	if err != nil {
		return result, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint == nil {
		checkpoint = &core.Checkpoint{Name: r.config.CheckpointName}
	} else {
		result.Resumed = true
		r.logger.Info("resuming sweep", "cursor", checkpoint.Cursor, "processed", checkpoint.Processed)
	}

	remaining, err := r.iterator.Count(ctx, checkpoint.Cursor)
	if err != nil {
		return result, fmt.Errorf("failed to count failed content: %w", err)
	}
	if remaining == 0 {
		fmt.Fprintf(r.progress, "No failed content to re-submit\n")
		return result, r.checkpoints.ClearCheckpoint(ctx, r.config.CheckpointName)
	}

	fmt.Fprintf(r.progress, "Re-submitting %d failed contents (batch size: %d)\n", remaining, r.iterator.batchSize)
	tracker := NewProgressTracker(r.progress, checkpoint.Processed+remaining, r.config.ReportInterval)
	tracker.Start(checkpoint.Processed)

	err = r.iterator.ForEach(ctx, checkpoint.Cursor, func(batch []*core.Content) error {
		for _, content := range batch {
			if r.config.OwnerID != "" && content.OwnerID != r.config.OwnerID {
				checkpoint.Cursor = content.ID
				tracker.Increment(1)
				continue
			}

			skipped, err := r.resubmit(ctx, content)
			if err != nil {
				return fmt.Errorf("failed to re-submit %s: %w", content.ID, err)
			}
			if skipped {
				result.Skipped++
			} else {
				result.Resubmitted++
			}
			checkpoint.Cursor = content.ID
			checkpoint.Processed++
			tracker.Increment(1)
		}
		return r.checkpoints.SaveCheckpoint(ctx, checkpoint)
	})
	if err != nil {
		// Keep whatever the batch got through before failing
		if saveErr := r.checkpoints.SaveCheckpoint(context.WithoutCancel(ctx), checkpoint); saveErr != nil {
			r.logger.Error("failed to save checkpoint", "err", saveErr)
		}
		return result, err
	}

	tracker.Finish()
	if err := r.checkpoints.ClearCheckpoint(ctx, r.config.CheckpointName); err != nil {
		return result, fmt.Errorf("failed to clear checkpoint: %w", err)
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-submission complete. %d re-submitted, %d skipped in %v\n",
		result.Resubmitted, result.Skipped, elapsed.Round(time.Millisecond))
	r.logger.Info("sweep complete", "resubmitted", result.Resubmitted, "skipped", result.Skipped)
	return result, nil
}

// resubmit re-submits one record with retries. Reports skipped when the
// record no longer exists.
func (r *Reprocessor) resubmit(ctx context.Context, content *core.Content) (bool, error) {
	err := retry.WithBackoff(ctx, func() error {
		_, err := r.submitter.Resubmit(ctx, content.ID, content.OwnerID)
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) {
			return retry.Permanent(err)
		}
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)

	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, core.ErrNotFound):
		r.logger.Debug("content vanished before re-submission", "content", content.ID)
		return true, nil
	default:
		return false, err
	}
}
