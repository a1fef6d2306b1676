package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/generate"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "lectern.db", cfg.DBPath)
	assert.Equal(t, generate.ProviderOpenAI, cfg.Generation.Provider)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Queue.BackoffBase)
	assert.Equal(t, "en", cfg.Extract.TranscriptLanguage)
}

func TestLoad_NoFiles(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default().Worker, cfg.Worker)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "lectern.yaml", `
db_path: /var/lib/lectern
generation:
  provider: openai
  host: http://llm.internal:8080
  model: llama3
  timeout: 30s
worker:
  pool_size: 4
  lease_timeout: 10m
  job_timeout: 3m
queue:
  max_attempts: 5
  backoff_base: 500ms
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/lectern", cfg.DBPath)
	assert.Equal(t, "llama3", cfg.Generation.Model)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 4, cfg.Worker.PoolSize)
	assert.Equal(t, 10*time.Minute, cfg.Worker.LeaseTimeout)
	assert.Equal(t, 3*time.Minute, cfg.Worker.JobTimeout)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Queue.BackoffBase)

	// Unset sections keep their defaults
	assert.Equal(t, "en", cfg.Extract.TranscriptLanguage)
	assert.Equal(t, 2048, cfg.Generation.MaxOutputTokens)

	assert.Equal(t, "http://llm.internal:8080/v1", cfg.GenerateConfig().Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "lectern.yaml", "db_path: /from/file\nqueue:\n  max_attempts: 5\n")
	t.Setenv("LECTERN_DB", "/from/env")
	t.Setenv("LECTERN_MAX_ATTEMPTS", "7")
	t.Setenv("LECTERN_JOB_TIMEOUT", "90s")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DBPath)
	assert.Equal(t, 7, cfg.Queue.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Worker.JobTimeout)
}

func TestLoad_EnvFile(t *testing.T) {
	t.Cleanup(func() { os.Unsetenv("LECTERN_LLM_MODEL") })
	envFile := writeFile(t, ".env", "LECTERN_LLM_MODEL=mistral\n")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Generation.Model)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing config file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "worker: [unterminated")
		_, err := Load(path, "")
		assert.Error(t, err)
	})

	t.Run("invalid int", func(t *testing.T) {
		t.Setenv("LECTERN_MAX_ATTEMPTS", "many")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "LECTERN_MAX_ATTEMPTS")
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("LECTERN_LEASE_TIMEOUT", "forever")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "LECTERN_LEASE_TIMEOUT")
	})

	t.Run("gemini without key", func(t *testing.T) {
		t.Setenv("LECTERN_LLM_PROVIDER", "gemini")
		t.Setenv("LECTERN_LLM_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "APIKey")
	})
}

func TestLoad_GeminiKeyFallback(t *testing.T) {
	t.Setenv("LECTERN_LLM_PROVIDER", "Gemini")
	t.Setenv("LECTERN_LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg, err := Load("", "")
	require.NoError(t, err)

	gen := cfg.GenerateConfig()
	assert.Equal(t, generate.ProviderGemini, gen.Provider)
	assert.Equal(t, "secret", gen.APIKey)
	assert.Equal(t, "gemini-2.5-flash-lite", gen.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"negative pool", func(c *Config) { c.Worker.PoolSize = -1 }},
		{"job timeout not below lease", func(c *Config) { c.Worker.JobTimeout = c.Worker.LeaseTimeout }},
		{"zero poll interval", func(c *Config) { c.Worker.PollInterval = 0 }},
		{"zero attempts", func(c *Config) { c.Queue.MaxAttempts = 0 }},
		{"zero backoff", func(c *Config) { c.Queue.BackoffBase = 0 }},
		{"zero fetch timeout", func(c *Config) { c.Extract.FetchTimeout = 0 }},
		{"unknown provider", func(c *Config) { c.Generation.Provider = "claude" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Queue.MaxAttempts = 4
	cfg.Queue.BackoffBase = time.Second

	policy := cfg.QueuePolicy()
	assert.Equal(t, 4, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.BackoffBase)

	assert.Len(t, cfg.WorkerOptions(), 3)
	cfg.Worker.PoolSize = 8
	assert.Len(t, cfg.WorkerOptions(), 4)
}
