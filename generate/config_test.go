package generate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 2048, cfg.MaxOutputTokens)
	assert.Zero(t, cfg.MaxInputTokens)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultOpenAIModel, cfg.Model)
}

func TestNewConfig(t *testing.T) {
	t.Run("gemini defaults", func(t *testing.T) {
		cfg := NewConfig(WithProvider("Gemini"), WithAPIKey("key"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, ProviderGemini, cfg.Provider)
		assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model)
	})

	t.Run("explicit values", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://llm:8080"),
			WithModel("gpt-4o-mini"),
			WithTimeout(5*time.Second),
			WithMaxOutputTokens(1024),
			WithMaxInputTokens(8000),
		)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://llm:8080/v1", cfg.Host)
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Equal(t, 1024, cfg.MaxOutputTokens)
		assert.Equal(t, 8000, cfg.MaxInputTokens)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"http://localhost:11434", "http://localhost:11434/v1"},
		{"http://localhost:11434/", "http://localhost:11434/v1"},
		{"http://localhost:11434/v1", "http://localhost:11434/v1"},
	}
	for _, tt := range tests {
		cfg := NewConfig(WithHost(tt.host))
		cfg.Normalize()
		assert.Equal(t, tt.want, cfg.Host)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []ConfigOption
	}{
		{"unknown provider", []ConfigOption{WithProvider("claude-on-a-toaster")}},
		{"openai without host", []ConfigOption{WithHost("")}},
		{"gemini without key", []ConfigOption{WithProvider(ProviderGemini)}},
		{"zero timeout", []ConfigOption{WithTimeout(0)}},
		{"zero output tokens", []ConfigOption{WithMaxOutputTokens(0)}},
		{"negative input tokens", []ConfigOption{WithMaxInputTokens(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewConfig(tt.opts...).Validate())
		})
	}
}
