// Package registry owns the lifecycle of content records.
//
// Every status change goes through Registry. Creation and re-submission put
// the record in pending and enqueue exactly one extraction job for the new
// generation. Worker-driven transitions carry the generation of the job that
// produced them; a transition from an older generation is rejected with
// core.ErrStaleJob so a superseded job can never overwrite fresher state.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

var (
	// ErrContentRepositoryRequired is returned when a content repository is not provided.
	ErrContentRepositoryRequired = errors.New("content repository required")
)

const (
	// DefaultPageSize is used by List when no limit is given.
	DefaultPageSize = 20

	// MaxPageSize caps the limit accepted by List.
	MaxPageSize = 100
)

// QueuePolicy is attached to every job the registry enqueues.
type QueuePolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// DefaultQueuePolicy allows three attempts with backoff doubling from two seconds.
func DefaultQueuePolicy() QueuePolicy {
	return QueuePolicy{
		MaxAttempts: 3,
		BackoffBase: 2 * time.Second,
	}
}

// Registry creates, reads and transitions content records.
type Registry struct {
	contents storage.ContentRepository
	policy   QueuePolicy
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithQueuePolicy overrides the retry policy of enqueued jobs.
func WithQueuePolicy(policy QueuePolicy) Option {
	return func(r *Registry) {
		r.policy = policy
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// New creates a registry over a content repository. Extraction jobs are
// written through the repository together with the record they belong to.
func New(contents storage.ContentRepository, opts ...Option) (*Registry, error) {
	if contents == nil {
		return nil, ErrContentRepositoryRequired
	}

	r := &Registry{
		contents: contents,
		policy:   DefaultQueuePolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.MaxAttempts < 1 {
		r.policy.MaxAttempts = 1
	}
	r.logger = r.logger.With("component", "registry")
	return r, nil
}

// CreateRequest describes new content to ingest.
type CreateRequest struct {
	OwnerID    string
	SourceType string // canonical name or legacy alias
	Locator    string
	Title      string
	Metadata   map[string]string
}

// Create stores a pending content record and its extraction job in one write.
// If the job cannot be stored the record is not stored either.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*core.Content, error) {
	sourceType, err := core.ParseSourceType(req.SourceType)
	if err != nil {
		return nil, err
	}

	content := &core.Content{
		OwnerID:    strings.TrimSpace(req.OwnerID),
		Source:     core.Source{Type: sourceType, Locator: strings.TrimSpace(req.Locator)},
		Title:      strings.TrimSpace(req.Title),
		Status:     core.StatusPending,
		Generation: 1,
		Metadata:   req.Metadata,
	}
	if err := core.ValidateContent(content); err != nil {
		return nil, err
	}

	added, err := r.contents.AddContentWithJob(ctx, content, r.newJob)
	if err != nil {
		return nil, fmt.Errorf("store content and extraction job: %w", err)
	}

	r.logger.Info("content created", "content", added.ID, "owner", added.OwnerID, "type", sourceType)
	return added, nil
}

// Get returns a content record owned by ownerID.
// Records owned by someone else are reported as core.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id, ownerID string) (*core.Content, error) {
	content, err := r.contents.GetContent(ctx, id)
	if err != nil {
		return nil, translateError(id, err)
	}
	if content.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return content, nil
}

// Page is one page of an owner's content, newest first.
type Page struct {
	Items []*core.Content
	Total int
	Page  int
	Limit int
}

// List returns page (1-based) of an owner's content.
func (r *Registry) List(ctx context.Context, ownerID string, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	items, total, err := r.contents.ListContentByOwner(ctx, ownerID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Delete removes a content record owned by ownerID. A job still queued for it
// is dropped by the worker when it finds the record gone.
func (r *Registry) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := r.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := r.contents.DeleteContent(ctx, id); err != nil {
		return translateError(id, err)
	}
	r.logger.Info("content deleted", "content", id)
	return nil
}

// Resubmit restarts extraction from pending under a new generation and
// queues its job in the same write. Any job still running for an earlier
// generation becomes stale.
func (r *Registry) Resubmit(ctx context.Context, id, ownerID string) (*core.Content, error) {
	updated, err := r.contents.UpdateContentWithJob(ctx, id, func(c *core.Content) error {
		if c.OwnerID != ownerID {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		c.Generation++
		c.Status = core.StatusPending
		c.ExtractedText = ""
		c.ErrorMessage = ""
		return nil
	}, r.newJob)
	if err != nil {
		return nil, translateError(id, err)
	}

	r.logger.Info("content resubmitted", "content", id, "generation", updated.Generation)
	return updated, nil
}

// UpdateStatus moves a record of the given generation to a new status.
// Leaving processing for anything but completed clears the extracted text;
// use UpdateText to complete a record.
func (r *Registry) UpdateStatus(ctx context.Context, id string, generation uint64, status core.Status, errMsg string) (*core.Content, error) {
	return r.transition(ctx, id, generation, status, func(c *core.Content) {
		c.ExtractedText = ""
		c.ErrorMessage = errMsg
	})
}

// UpdateText stores extracted text and completes the record in one write, so
// text and status are never observed out of step.
func (r *Registry) UpdateText(ctx context.Context, id string, generation uint64, text string) (*core.Content, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: extracted text is empty", core.ErrValidation)
	}
	return r.transition(ctx, id, generation, core.StatusCompleted, func(c *core.Content) {
		c.ExtractedText = text
		c.ErrorMessage = ""
	})
}

// MarkProcessing records that a worker started an attempt.
func (r *Registry) MarkProcessing(ctx context.Context, id string, generation uint64) (*core.Content, error) {
	return r.UpdateStatus(ctx, id, generation, core.StatusProcessing, "")
}

// Complete stores the extracted text and marks the record completed.
func (r *Registry) Complete(ctx context.Context, id string, generation uint64, text string) (*core.Content, error) {
	return r.UpdateText(ctx, id, generation, text)
}

// Fail marks the record failed with the last error message.
func (r *Registry) Fail(ctx context.Context, id string, generation uint64, errMsg string) (*core.Content, error) {
	return r.UpdateStatus(ctx, id, generation, core.StatusFailed, errMsg)
}

// transition applies a status change inside a serialized read-modify-write.
func (r *Registry) transition(ctx context.Context, id string, generation uint64, to core.Status, apply func(c *core.Content)) (*core.Content, error) {
	updated, err := r.contents.UpdateContent(ctx, id, func(c *core.Content) error {
		if c.Generation != generation {
			return fmt.Errorf("%w: job generation %d, content generation %d", core.ErrStaleJob, generation, c.Generation)
		}
		if !core.CanTransition(c.Status, to) {
			if c.Status.IsTerminal() {
				return fmt.Errorf("%w: generation %d already %s", core.ErrStaleJob, generation, c.Status)
			}
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, c.Status, to)
		}
		c.Status = to
		apply(c)
		return core.ValidateContent(c)
	})
	if err != nil {
		return nil, translateError(id, err)
	}
	return updated, nil
}

func (r *Registry) newJob(content *core.Content) *core.Job {
	return &core.Job{
		ID:          core.JobIDFor(content.ID, content.Generation),
		ContentID:   content.ID,
		Generation:  content.Generation,
		Payload:     content.Source,
		MaxAttempts: r.policy.MaxAttempts,
		BackoffBase: r.policy.BackoffBase,
	}
}

func translateError(id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return err
}
