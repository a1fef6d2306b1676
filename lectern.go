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


// Package lectern ingests learning material from documents, web pages and
// video transcripts, and turns the extracted text into study artifacts.
//
// An Engine owns the durable content store and job queue. Content is
// registered through Registry, extracted by a Worker in the background,
// and once completed can be passed to Generate.
package lectern

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/extract"
	"github.com/poiesic/lectern/extract/document"
	"github.com/poiesic/lectern/extract/transcript"
	"github.com/poiesic/lectern/extract/webpage"
	"github.com/poiesic/lectern/generate"
	"github.com/poiesic/lectern/generate/gemini"
	"github.com/poiesic/lectern/generate/langchain"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/registry"
	"github.com/poiesic/lectern/reprocess"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/storage/badger"
)

type Engine struct {
	stores    *badger.Stores
	registry  *registry.Registry
	router    *extract.Router
	generator *generate.Client
	backend   generate.Backend
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	inMemory           bool
	generation         *generate.Config
	backend            generate.Backend
	policy             registry.QueuePolicy
	fetchTimeout       time.Duration
	transcriptLanguage string
	fetcher            transcript.Fetcher
	httpClient         *http.Client
	adapters           map[core.SourceType]extract.Adapter
	logger             *slog.Logger
}

// WithConfig applies application configuration. The database path is
// still taken from Open's argument.
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) {
		o.generation = cfg.GenerateConfig()
		o.policy = cfg.QueuePolicy()
		o.fetchTimeout = cfg.Extract.FetchTimeout
		o.transcriptLanguage = cfg.Extract.TranscriptLanguage
	}
}

// WithGenerationConfig selects the generation backend.
func WithGenerationConfig(cfg *generate.Config) Option {
	return func(o *engineOptions) {
		o.generation = cfg
	}
}

// WithBackend uses backend for generation instead of building one from
// the generation config.
func WithBackend(backend generate.Backend) Option {
	return func(o *engineOptions) {
		o.backend = backend
	}
}

// WithQueuePolicy overrides the retry policy of new jobs.
func WithQueuePolicy(policy registry.QueuePolicy) Option {
	return func(o *engineOptions) {
		o.policy = policy
	}
}

// WithInMemory keeps all data in memory. The path given to Open is ignored.
func WithInMemory() Option {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithHTTPClient sets the client used to fetch web pages and transcripts.
func WithHTTPClient(client *http.Client) Option {
	return func(o *engineOptions) {
		o.httpClient = client
	}
}

// WithTranscriptFetcher replaces the YouTube transcript fetcher.
func WithTranscriptFetcher(fetcher transcript.Fetcher) Option {
	return func(o *engineOptions) {
		o.fetcher = fetcher
	}
}

// WithAdapter replaces the extraction adapter for one source type.
func WithAdapter(sourceType core.SourceType, adapter extract.Adapter) Option {
	return func(o *engineOptions) {
		o.adapters[sourceType] = adapter
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// Open opens or creates the database at path and wires the services over it.
func Open(path string, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		generation:         generate.DefaultConfig(),
		policy:             registry.DefaultQueuePolicy(),
		fetchTimeout:       webpage.DefaultTimeout,
		transcriptLanguage: transcript.DefaultLanguage,
		adapters:           make(map[core.SourceType]extract.Adapter),
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		return nil, err
	}
	stores := badger.NewStores(backend)

	reg, err := registry.New(stores.Contents,
		registry.WithQueuePolicy(options.policy),
		registry.WithLogger(logger),
	)
	if err != nil {
		stores.Close()
		return nil, err
	}

	genBackend := options.backend
	if genBackend == nil {
		genBackend, err = newBackend(options.generation, logger)
		if err != nil {
			stores.Close()
			return nil, err
		}
	}

	generator, err := generate.NewClient(genBackend,
		generate.WithOutputTokenLimit(options.generation.MaxOutputTokens),
		generate.WithInputTokenLimit(options.generation.MaxInputTokens),
		generate.WithLogger(logger),
	)
	if err != nil {
		closeBackend(genBackend, logger)
		stores.Close()
		return nil, err
	}

	return &Engine{
		stores:    stores,
		registry:  reg,
		router:    newRouter(options),
		generator: generator,
		backend:   genBackend,
		logger:    logger.With("component", "engine"),
	}, nil
}

func newBackend(cfg *generate.Config, logger *slog.Logger) (generate.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("creating generation backend", "provider", cfg.Provider, "model", cfg.Model)
	if cfg.Provider == generate.ProviderGemini {
		backend, err := gemini.NewBackend(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
	backend, err := langchain.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func newRouter(o *engineOptions) *extract.Router {
	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = transcript.NewYouTubeFetcher(o.httpClient)
	}

	webOpts := []webpage.Option{
		webpage.WithTimeout(o.fetchTimeout),
		webpage.WithLogger(o.logger),
	}
	if o.httpClient != nil {
		webOpts = append(webOpts, webpage.WithHTTPClient(o.httpClient))
	}

	router := extract.NewRouter(o.logger).
		Register(core.SourceTypeFile, document.New(document.WithLogger(o.logger))).
		Register(core.SourceTypeWebpage, webpage.New(webOpts...)).
		Register(core.SourceTypeVideo, transcript.New(fetcher,
			transcript.WithLanguage(o.transcriptLanguage),
			transcript.WithLogger(o.logger),
		))
	for sourceType, adapter := range o.adapters {
		router.Register(sourceType, adapter)
	}
	return router
}

func closeBackend(backend generate.Backend, logger *slog.Logger) {
	closer, ok := backend.(interface{ Close() error })
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Error("error closing generation backend", "err", err)
	}
}

// Close releases the generation backend and then the storage.
func (e *Engine) Close() error {
	closeBackend(e.backend, e.logger)

	if err := e.stores.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

func (e *Engine) Router() *extract.Router {
	return e.router
}

func (e *Engine) Queue() storage.JobQueue {
	return e.stores.Queue
}

func (e *Engine) Generator() *generate.Client {
	return e.generator
}

// NewWorker creates an extraction worker over the engine's queue.
// The caller runs it and releases it when done.
func (e *Engine) NewWorker(opts ...ingestion.Option) (*ingestion.Worker, error) {
	return ingestion.NewWorker(e.registry, e.stores.Queue, e.router, opts...)
}

// NewReprocessor creates a sweep that re-submits every failed content.
// progress receives human readable progress and may be nil.
func (e *Engine) NewReprocessor(cfg *reprocess.Config, progress io.Writer) (*reprocess.Reprocessor, error) {
	return reprocess.NewReprocessor(e.stores.Contents, e.registry, e.stores.Checkpoints, cfg, progress)
}

// Generate produces study artifacts from the extracted text of a content
// record. The content must be completed; any other status fails with
// core.ErrStillProcessing. Generation never waits for extraction.
func (e *Engine) Generate(ctx context.Context, id, ownerID string, req generate.Request) ([]generate.Artifact, error) {
	content, err := e.registry.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if content.Status != core.StatusCompleted {
		return nil, fmt.Errorf("%w: content %s is %s", core.ErrStillProcessing, id, content.Status)
	}
	return e.generator.Generate(ctx, content.ExtractedText, req)
}
