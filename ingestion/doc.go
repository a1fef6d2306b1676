// Package ingestion runs extraction jobs from the durable queue.
//
// The Worker leases jobs while its ants pool has idle goroutines and runs each
// job on one of them:
//   - marks the content processing for the job's generation
//   - extracts text through the injected Extractor under a per-job timeout
//   - completes the content with the text, or schedules a retry with
//     exponential backoff, or after the last attempt marks the content failed
//     with the last error and drops the job
//
// A job whose generation was superseded by a re-submission, or whose content
// is gone, is acknowledged and dropped without touching the content.
// Failures and panics in one job never stop the pool.
package ingestion
