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


package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/lectern/generate"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/registry"
)

// Config holds application configuration. Values are layered: defaults,
// then the YAML file, then the environment.
type Config struct {
	DBPath     string           `yaml:"db_path"`
	Generation GenerationConfig `yaml:"generation"`
	Worker     WorkerConfig     `yaml:"worker"`
	Queue      QueueConfig      `yaml:"queue"`
	Extract    ExtractConfig    `yaml:"extract"`
}

// GenerationConfig selects and tunes the generation backend.
type GenerationConfig struct {
	Provider        string        `yaml:"provider"`
	Host            string        `yaml:"host"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MaxInputTokens  int           `yaml:"max_input_tokens"`
}

// WorkerConfig tunes the ingestion worker pool.
type WorkerConfig struct {
	PoolSize     int           `yaml:"pool_size"` // 0 selects NumCPU/2
	LeaseTimeout time.Duration `yaml:"lease_timeout"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// QueueConfig is the retry policy given to new jobs.
type QueueConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// ExtractConfig tunes the source adapters.
type ExtractConfig struct {
	TranscriptLanguage string        `yaml:"transcript_language"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	gen := generate.DefaultConfig()
	policy := registry.DefaultQueuePolicy()
	return &Config{
		DBPath: "lectern.db",
		Generation: GenerationConfig{
			Provider:        gen.Provider,
			Host:            gen.Host,
			Model:           gen.Model,
			Timeout:         gen.Timeout,
			MaxOutputTokens: gen.MaxOutputTokens,
		},
		Worker: WorkerConfig{
			LeaseTimeout: ingestion.DefaultLeaseTimeout,
			JobTimeout:   ingestion.DefaultJobTimeout,
			PollInterval: ingestion.DefaultPollInterval,
		},
		Queue: QueueConfig{
			MaxAttempts: policy.MaxAttempts,
			BackoffBase: policy.BackoffBase,
		},
		Extract: ExtractConfig{
			TranscriptLanguage: "en",
			FetchTimeout:       10 * time.Second,
		},
	}
}

// Load builds the configuration. filePath names an optional YAML file and
// envFilePath an optional .env file; a missing .env file is not an error.
func Load(filePath, envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading env file: %w", err)
		}
	}

	cfg := Default()
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", filePath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	c.DBPath = getEnv("LECTERN_DB", c.DBPath)

	g := &c.Generation
	g.Provider = getEnv("LECTERN_LLM_PROVIDER", g.Provider)
	g.Host = getEnv("LECTERN_LLM_HOST", g.Host)
	g.Model = getEnv("LECTERN_LLM_MODEL", g.Model)
	g.APIKey = getEnv("LECTERN_LLM_API_KEY", g.APIKey)
	if g.APIKey == "" && strings.EqualFold(g.Provider, generate.ProviderGemini) {
		g.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if g.Timeout, err = getEnvAsDuration("LECTERN_LLM_TIMEOUT", g.Timeout); err != nil {
		return err
	}
	if g.MaxOutputTokens, err = getEnvAsInt("LECTERN_LLM_MAX_OUTPUT_TOKENS", g.MaxOutputTokens); err != nil {
		return err
	}
	if g.MaxInputTokens, err = getEnvAsInt("LECTERN_LLM_MAX_INPUT_TOKENS", g.MaxInputTokens); err != nil {
		return err
	}

	w := &c.Worker
	if w.PoolSize, err = getEnvAsInt("LECTERN_WORKER_POOL_SIZE", w.PoolSize); err != nil {
		return err
	}
	if w.LeaseTimeout, err = getEnvAsDuration("LECTERN_LEASE_TIMEOUT", w.LeaseTimeout); err != nil {
		return err
	}
	if w.JobTimeout, err = getEnvAsDuration("LECTERN_JOB_TIMEOUT", w.JobTimeout); err != nil {
		return err
	}
	if w.PollInterval, err = getEnvAsDuration("LECTERN_POLL_INTERVAL", w.PollInterval); err != nil {
		return err
	}

	if c.Queue.MaxAttempts, err = getEnvAsInt("LECTERN_MAX_ATTEMPTS", c.Queue.MaxAttempts); err != nil {
		return err
	}
	if c.Queue.BackoffBase, err = getEnvAsDuration("LECTERN_BACKOFF_BASE", c.Queue.BackoffBase); err != nil {
		return err
	}

	c.Extract.TranscriptLanguage = getEnv("LECTERN_TRANSCRIPT_LANGUAGE", c.Extract.TranscriptLanguage)
	if c.Extract.FetchTimeout, err = getEnvAsDuration("LECTERN_FETCH_TIMEOUT", c.Extract.FetchTimeout); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for required fields and ranges.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if err := c.GenerateConfig().Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if c.Worker.PoolSize < 0 {
		return fmt.Errorf("worker pool size must not be negative")
	}
	if c.Worker.LeaseTimeout <= 0 || c.Worker.JobTimeout <= 0 || c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker timeouts must be positive")
	}
	if c.Worker.JobTimeout >= c.Worker.LeaseTimeout {
		return fmt.Errorf("worker job timeout %v must be shorter than lease timeout %v", c.Worker.JobTimeout, c.Worker.LeaseTimeout)
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue max attempts must be at least 1")
	}
	if c.Queue.BackoffBase <= 0 {
		return fmt.Errorf("queue backoff base must be positive")
	}
	if c.Extract.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	return nil
}

// GenerateConfig returns the normalized generation backend configuration.
func (c *Config) GenerateConfig() *generate.Config {
	g := c.Generation
	cfg := generate.NewConfig(
		generate.WithProvider(g.Provider),
		generate.WithHost(g.Host),
		generate.WithModel(g.Model),
		generate.WithAPIKey(g.APIKey),
		generate.WithTimeout(g.Timeout),
		generate.WithMaxOutputTokens(g.MaxOutputTokens),
		generate.WithMaxInputTokens(g.MaxInputTokens),
	)
	cfg.Normalize()
	return cfg
}

// QueuePolicy returns the retry policy for new jobs.
func (c *Config) QueuePolicy() registry.QueuePolicy {
	return registry.QueuePolicy{
		MaxAttempts: c.Queue.MaxAttempts,
		BackoffBase: c.Queue.BackoffBase,
	}
}

// WorkerOptions returns the worker options the configuration describes.
func (c *Config) WorkerOptions() []ingestion.Option {
	opts := []ingestion.Option{
		ingestion.WithLeaseTimeout(c.Worker.LeaseTimeout),
		ingestion.WithJobTimeout(c.Worker.JobTimeout),
		ingestion.WithPollInterval(c.Worker.PollInterval),
	}
	if c.Worker.PoolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(c.Worker.PoolSize))
	}
	return opts
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
