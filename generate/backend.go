package generate

import "context"

// Prompt is one request to a generation backend.
type Prompt struct {
	Text        string
	Temperature float64
	MaxTokens   int
}

// Backend sends a prompt to a language model and returns its raw text reply.
// Implementations must be safe for concurrent use and must not retry.
type Backend interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, prompt Prompt) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}
