package reprocess

import "errors"

var (
	// ErrContentRepositoryRequired is returned when a content repository is not provided.
	ErrContentRepositoryRequired = errors.New("content repository required")

	// ErrSubmitterRequired is returned when a submitter is not provided.
	ErrSubmitterRequired = errors.New("submitter required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")
)
