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


// Package langchain implements generate.Backend on any OpenAI-compatible chat
// API (OpenAI, Ollama, LocalAI, vLLM) through langchaingo.
package langchain

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/lectern/generate"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoChoices is returned when the model answers without any completion.
var ErrNoChoices = errors.New("no choices returned from model")

// Backend implements generate.Backend using OpenAI-compatible chat completions.
type Backend struct {
	client llms.Model
	config *generate.Config
	logger *slog.Logger
}

var _ generate.Backend = (*Backend)(nil)

// NewBackend creates a backend from config. The config is validated and
// normalized before use.
func NewBackend(config *generate.Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	token := config.APIKey
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Backend{
		client: client,
		config: config,
		logger: slog.Default().With("component", "openai-backend"),
	}, nil
}

// Complete sends the prompt as a single user message in JSON mode.
func (b *Backend) Complete(ctx context.Context, prompt generate.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.Text),
	}
	response, err := b.client.GenerateContent(ctx, content,
		llms.WithTemperature(prompt.Temperature),
		llms.WithMaxTokens(prompt.MaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrNoChoices
	}

	b.logger.Debug("completion generated", "model", b.config.Model, "length", len(response.Choices[0].Content))
	return response.Choices[0].Content, nil
}
