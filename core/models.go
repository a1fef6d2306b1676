package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for queue entries.
// It is derived with content-based hashing so the same input always maps to the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// JobIDFor returns the job ID for one generation of a content record.
// Enqueueing twice for the same generation therefore addresses the same job.
func JobIDFor(contentID string, generation uint64) ID {
	return IDFromContent(contentID + "#" + strconv.FormatUint(generation, 10))
}

// SourceType identifies where a content record's text comes from.
type SourceType string

const (
	// SourceTypeFile is an uploaded document stored on local disk.
	SourceTypeFile SourceType = "file"
	// SourceTypeWebpage is an HTML page fetched over HTTP.
	SourceTypeWebpage SourceType = "webpage"
	// SourceTypeVideo is a video whose transcript is fetched.
	SourceTypeVideo SourceType = "video"
)

// Source is the declared origin of a content record.
type Source struct {
	Type    SourceType
	Locator string // file path or URL
}

// Status is the processing state of a content record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions happen for the current generation.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Content is an ingested source document tracked through the pipeline.
type Content struct {
	ID            string
	OwnerID       string
	Source        Source
	Title         string
	ExtractedText string // non-empty only when Status is StatusCompleted
	Status        Status
	ErrorMessage  string
	Generation    uint64 // attempt lineage; bumped by re-submission
	Version       uint64 // bumped on every write
	Metadata      map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QueueState is the state of a job inside the queue. Only waiting and active
// jobs are stored; completed and failed jobs are deleted and the states are
// reported on the caller's copy.
type QueueState string

const (
	QueueStateWaiting   QueueState = "waiting"
	QueueStateActive    QueueState = "active"
	QueueStateCompleted QueueState = "completed"
	QueueStateFailed    QueueState = "failed"
)

// Job is one queued unit of work: extract and populate text for a content record.
type Job struct {
	ID          ID
	ContentID   string
	Generation  uint64
	Payload     Source
	Attempt     int // attempts started so far
	MaxAttempts int
	BackoffBase time.Duration
	State       QueueState
	VisibleAt   time.Time // next time the job may be leased
	LastError   string
	EnqueuedAt  time.Time
}

// Exhausted reports whether the current attempt is the last one allowed.
func (j *Job) Exhausted() bool {
	return j.Attempt >= j.MaxAttempts
}

// Checkpoint records how far a named batch sweep has progressed.
type Checkpoint struct {
	Name      string
	Cursor    string // last content ID handled
	Processed int
	UpdatedAt time.Time
}
