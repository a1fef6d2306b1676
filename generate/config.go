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
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported backend providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultOpenAIModel = "qwen2.5:3b"
	defaultGeminiModel = "gemini-2.5-flash-lite"
)

// Config holds configuration for generation backends.
type Config struct {
	// Provider selects the backend implementation: "openai" for any
	// OpenAI-compatible server, or "gemini".
	Provider string

	// Host is the base URL of an OpenAI-compatible API.
	// Example: "http://localhost:11434/v1". Ignored by the gemini provider.
	Host string

	// Model is the model identifier. Empty selects the provider default.
	Model string

	// APIKey authenticates against the backend. Required for gemini.
	APIKey string

	// Timeout bounds a single backend call.
	// Default: 60s
	Timeout time.Duration

	// MaxOutputTokens caps the length of a completion.
	// Default: 2048
	MaxOutputTokens int

	// MaxInputTokens truncates source text before it is put in a prompt.
	// Zero disables truncation.
	MaxInputTokens int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the backend provider.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the OpenAI-compatible host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the backend credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxOutputTokens sets the completion length cap.
func WithMaxOutputTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxOutputTokens = n
	}
}

// WithMaxInputTokens sets the source text budget.
func WithMaxInputTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInputTokens = n
	}
}

// DefaultConfig returns a Config for a local OpenAI-compatible server.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderOpenAI,
		Host:            "http://localhost:11434/v1",
		Timeout:         60 * time.Second,
		MaxOutputTokens: 2048,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderGemini),
//	    WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the configuration in canonical form: lowercase provider,
// provider default model, and a /v1 suffix on OpenAI-compatible hosts.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Model == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.Model = defaultOpenAIModel
		case ProviderGemini:
			c.Model = defaultGeminiModel
		}
	}
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI:
		if c.Host == "" {
			return errors.New("generate config: Host is required for the openai provider")
		}
	case ProviderGemini:
		if c.APIKey == "" {
			return errors.New("generate config: APIKey is required for the gemini provider")
		}
	default:
		return fmt.Errorf("generate config: unknown provider %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return errors.New("generate config: Timeout must be positive")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("generate config: MaxOutputTokens must be positive")
	}
	if c.MaxInputTokens < 0 {
		return errors.New("generate config: MaxInputTokens must not be negative")
	}
	return nil
}
