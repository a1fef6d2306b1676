// Package extract routes content sources to the adapter that turns them into plain text.
//
// The router performs no retries and no fallbacks. Adapters classify their
// failures with core.ExtractionError; retry policy belongs to the job queue.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/lectern/core"
)

// Adapter turns one kind of source into plain text.
type Adapter interface {
	Extract(ctx context.Context, src core.Source) (string, error)
}

// AdapterFunc adapts an ordinary function to the Adapter interface.
type AdapterFunc func(ctx context.Context, src core.Source) (string, error)

// Extract calls f(ctx, src).
func (f AdapterFunc) Extract(ctx context.Context, src core.Source) (string, error) {
	return f(ctx, src)
}

// Router dispatches sources to adapters by source type.
type Router struct {
	mu       sync.RWMutex
	adapters map[core.SourceType]Adapter
	logger   *slog.Logger
}

// NewRouter creates a router with no adapters registered.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		adapters: make(map[core.SourceType]Adapter),
		logger:   logger.With("component", "extract-router"),
	}
}

// Register installs the adapter for a source type, replacing any previous one.
// Returns the router to allow chaining.
func (r *Router) Register(sourceType core.SourceType, adapter Adapter) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[sourceType] = adapter
	return r
}

// Supports reports whether an adapter is registered for the source type.
func (r *Router) Supports(sourceType core.SourceType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[sourceType]
	return ok
}

// Extract dispatches src to its adapter.
// Returns an error wrapping core.ErrUnsupportedSourceType when no adapter is registered.
func (r *Router) Extract(ctx context.Context, src core.Source) (string, error) {
	r.mu.RLock()
	adapter, ok := r.adapters[src.Type]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedSourceType, src.Type)
	}

	text, err := adapter.Extract(ctx, src)
	if err != nil {
		return "", err
	}
	r.logger.Debug("source extracted", "type", src.Type, "locator", src.Locator, "length", len(text))
	return text, nil
}
