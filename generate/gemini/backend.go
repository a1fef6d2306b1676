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


// Package gemini implements generate.Backend on Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/lectern/generate"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when Gemini answers without any text.
var ErrEmptyResponse = errors.New("gemini returned no text")

// Backend implements generate.Backend with the Gemini API.
type Backend struct {
	client *genai.Client
	config *generate.Config
	logger *slog.Logger
}

var _ generate.Backend = (*Backend)(nil)

// NewBackend creates a Gemini backend. The config must name the gemini
// provider and carry an API key.
func NewBackend(ctx context.Context, config *generate.Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider != generate.ProviderGemini {
		return nil, fmt.Errorf("gemini backend: provider is %q", config.Provider)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Backend{
		client: client,
		config: config,
		logger: slog.Default().With("component", "gemini-backend"),
	}, nil
}

// Complete sends the prompt with a JSON response type.
func (b *Backend) Complete(ctx context.Context, prompt generate.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	// GenerativeModel carries per-request settings, so each call gets its own
	model := b.client.GenerativeModel(b.config.Model)
	model.SetTemperature(float32(prompt.Temperature))
	model.SetMaxOutputTokens(int32(prompt.MaxTokens))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.Text))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	if resp.UsageMetadata != nil {
		b.logger.Info("Gemini completion generated",
			"promptTokens", resp.UsageMetadata.PromptTokenCount,
			"completionTokens", resp.UsageMetadata.CandidatesTokenCount,
			"totalTokens", resp.UsageMetadata.TotalTokenCount)
	}
	return text, nil
}

// Close releases the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
