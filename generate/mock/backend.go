package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/poiesic/lectern/generate"
)

// ErrNoResponse is returned when a scripted backend runs out of replies.
var ErrNoResponse = errors.New("mock backend: no scripted response left")

// MockBackend is a test double for generate.Backend.
// It replays scripted responses in order, or calls CompleteFunc when set.
type MockBackend struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, prompt generate.Prompt) (string, error)

	mu        sync.Mutex
	responses []string
	prompts   []generate.Prompt
}

var _ generate.Backend = (*MockBackend)(nil)

// NewMockBackend creates a backend that returns responses one per call.
// Note: Returns concrete type to allow test assertions.
func NewMockBackend(responses ...string) *MockBackend {
	return &MockBackend{responses: responses}
}

// WithCompleteFunc sets custom behavior for Complete.
func (m *MockBackend) WithCompleteFunc(fn func(ctx context.Context, prompt generate.Prompt) (string, error)) *MockBackend {
	m.CompleteFunc = fn
	return m
}

// Complete records the prompt and returns the next scripted response.
func (m *MockBackend) Complete(ctx context.Context, prompt generate.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFunc
	var (
		next string
		ok   bool
	)
	if fn == nil && len(m.responses) > 0 {
		next, m.responses, ok = m.responses[0], m.responses[1:], true
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoResponse
	}
	return next, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns every prompt received so far.
func (m *MockBackend) Prompts() []generate.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generate.Prompt(nil), m.prompts...)
}

// Reset clears recorded prompts, scripted responses and custom functions.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.responses = nil
	m.CompleteFunc = nil
}
