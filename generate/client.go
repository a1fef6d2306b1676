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


package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	DefaultFlashcardCount = 10
	DefaultQuizCount      = 5
	MaxFlashcardCount     = 20
	MaxQuizCount          = 10
)

// Request describes what to generate.
type Request struct {
	Task Task

	// Count is the number of flashcards or quiz questions.
	// Zero selects the task default.
	Count int

	// SummaryKind is the summary length. Empty selects SummaryShort.
	SummaryKind SummaryKind
}

// normalize fills defaults and checks ranges.
func (r Request) normalize() (Request, error) {
	switch r.Task {
	case TaskFlashcards:
		if r.Count == 0 {
			r.Count = DefaultFlashcardCount
		}
		if r.Count < 1 || r.Count > MaxFlashcardCount {
			return r, fmt.Errorf("%w: flashcard count must be 1-%d, got %d", ErrInvalidRequest, MaxFlashcardCount, r.Count)
		}
	case TaskQuiz:
		if r.Count == 0 {
			r.Count = DefaultQuizCount
		}
		if r.Count < 1 || r.Count > MaxQuizCount {
			return r, fmt.Errorf("%w: quiz count must be 1-%d, got %d", ErrInvalidRequest, MaxQuizCount, r.Count)
		}
	case TaskSummary:
		if r.SummaryKind == "" {
			r.SummaryKind = SummaryShort
		}
		if r.SummaryKind != SummaryShort && r.SummaryKind != SummaryDetailed {
			return r, fmt.Errorf("%w: unknown summary kind %q", ErrInvalidRequest, r.SummaryKind)
		}
	case TaskConcepts:
	default:
		return r, fmt.Errorf("%w: unknown task %q", ErrInvalidRequest, r.Task)
	}
	return r, nil
}

// Client turns extracted text into study artifacts through a Backend.
// Each call makes exactly one backend request; failures are returned to the
// caller and never retried.
type Client struct {
	backend         Backend
	prompts         map[Task]*promptTemplate
	tokens          *tokenizer
	maxOutputTokens int
	maxInputTokens  int
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithOutputTokenLimit caps completion length. Default is 2048.
func WithOutputTokenLimit(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", n)
		}
		c.maxOutputTokens = n
		return nil
	}
}

// WithInputTokenLimit truncates source text to n tokens before prompting.
// Zero disables truncation, which is the default.
func WithInputTokenLimit(n int) Option {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("max input tokens must not be negative, got %d", n)
		}
		c.maxInputTokens = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a generation client over backend.
func NewClient(backend Backend, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	prompts, err := loadPrompts(promptFiles)
	if err != nil {
		return nil, err
	}

	c := &Client{
		backend:         backend,
		prompts:         prompts,
		maxOutputTokens: 2048,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "generator")
	c.tokens = newTokenizer(c.logger)
	return c, nil
}

// Generate produces the artifacts req asks for from text.
func (c *Client) Generate(ctx context.Context, text string, req Request) ([]Artifact, error) {
	req, err := c.normalizeRequest(text, req)
	if err != nil {
		return nil, err
	}

	raw, err := c.complete(ctx, text, req)
	if err != nil {
		return nil, err
	}

	decoded, err := decode(req.Task, raw)
	if err != nil {
		c.logger.Warn("failed to parse model output", "task", req.Task, "err", err, "raw", truncateForLog(raw))
		return nil, &GenerationError{Kind: ErrParseFailure, Task: req.Task, Raw: raw, Err: err}
	}

	artifacts := toArtifacts(decoded, req)
	c.logger.Info("artifacts generated", "task", req.Task, "count", len(artifacts))
	return artifacts, nil
}

// Flashcards generates count flashcards. Zero selects the default count.
func (c *Client) Flashcards(ctx context.Context, text string, count int) ([]Flashcard, error) {
	artifacts, err := c.Generate(ctx, text, Request{Task: TaskFlashcards, Count: count})
	if err != nil {
		return nil, err
	}
	return collect[Flashcard](artifacts), nil
}

// Quiz generates count multiple choice questions. Zero selects the default count.
func (c *Client) Quiz(ctx context.Context, text string, count int) ([]QuizQuestion, error) {
	artifacts, err := c.Generate(ctx, text, Request{Task: TaskQuiz, Count: count})
	if err != nil {
		return nil, err
	}
	return collect[QuizQuestion](artifacts), nil
}

// Summarize generates a summary of the given kind.
func (c *Client) Summarize(ctx context.Context, text string, kind SummaryKind) (Summary, error) {
	artifacts, err := c.Generate(ctx, text, Request{Task: TaskSummary, SummaryKind: kind})
	if err != nil {
		return Summary{}, err
	}
	return artifacts[0].(Summary), nil
}

// Concepts extracts the key concepts of text.
func (c *Client) Concepts(ctx context.Context, text string) ([]string, error) {
	artifacts, err := c.Generate(ctx, text, Request{Task: TaskConcepts})
	if err != nil {
		return nil, err
	}
	return artifacts[0].(ConceptList).Concepts, nil
}

func (c *Client) normalizeRequest(text string, req Request) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return req, fmt.Errorf("%w: source text is empty", ErrInvalidRequest)
	}
	return req.normalize()
}

// complete renders the task prompt and makes the single backend call.
func (c *Client) complete(ctx context.Context, text string, req Request) (string, error) {
	tmpl := c.prompts[req.Task]

	if trimmed, cut := c.tokens.Truncate(text, c.maxInputTokens); cut {
		c.logger.Debug("source text truncated", "task", req.Task, "maxTokens", c.maxInputTokens)
		text = trimmed
	}

	body, err := tmpl.Execute(promptData{
		Content: text,
		Count:   req.Count,
		Words:   req.SummaryKind.words(),
	})
	if err != nil {
		return "", err
	}

	raw, err := c.backend.Complete(ctx, Prompt{
		Text:        body,
		Temperature: tmpl.Config.Temperature,
		MaxTokens:   c.maxOutputTokens,
	})
	if err != nil {
		c.logger.Error("generation backend failed", "task", req.Task, "err", err)
		return "", &GenerationError{Kind: ErrBackendFailure, Task: req.Task, Err: err}
	}
	return raw, nil
}

// toArtifacts wraps decoded task output in the Artifact union.
func toArtifacts(decoded any, req Request) []Artifact {
	var out []Artifact
	switch v := decoded.(type) {
	case []Flashcard:
		out = make([]Artifact, 0, len(v))
		for _, f := range v {
			out = append(out, f)
		}
	case []QuizQuestion:
		out = make([]Artifact, 0, len(v))
		for _, q := range v {
			out = append(out, q)
		}
	case Summary:
		v.Kind = req.SummaryKind
		out = []Artifact{v}
	case ConceptList:
		if v.Concepts == nil {
			v.Concepts = []string{}
		}
		out = []Artifact{v}
	}
	return out
}

func collect[T Artifact](artifacts []Artifact) []T {
	out := make([]T, 0, len(artifacts))
	for _, a := range artifacts {
		if v, ok := a.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func truncateForLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
