package ingestion

import "errors"

var (
	// ErrContentStoreRequired is returned when a content store is not provided.
	ErrContentStoreRequired = errors.New("content store required")

	// ErrJobQueueRequired is returned when a job queue is not provided.
	ErrJobQueueRequired = errors.New("job queue required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrJobTimeoutTooLong is returned when the job timeout does not fit inside the lease.
	ErrJobTimeoutTooLong = errors.New("job timeout must be shorter than the lease timeout")
)
