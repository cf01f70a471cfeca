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


package sessionrag

import (
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/ai/cache"
	"github.com/poiesic/sessionrag/ai/openai"
	"github.com/poiesic/sessionrag/ingestion"
	"github.com/poiesic/sessionrag/rag"
	"github.com/poiesic/sessionrag/reembed"
	"github.com/poiesic/sessionrag/retrieval"
	"github.com/poiesic/sessionrag/sessions"
	"github.com/poiesic/sessionrag/storage"
	"github.com/poiesic/sessionrag/storage/badger"
)

type Database struct {
	backend        *badger.Backend
	sessionRepo    *badger.SessionRepository
	documentRepo   *badger.DocumentRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.AIProvider
	queryEmbedder  ai.Embedder
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	cacheEnabled bool
	cacheOpts    []cache.Option
	inMemory     bool
	logger       *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
// Ignored when WithProvider is also given.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of creating an OpenAI-compatible one.
// The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithEmbeddingCache caches query embeddings used by retrieval engines.
func WithEmbeddingCache(opts ...cache.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.cacheEnabled = true
		o.cacheOpts = opts
	}
}

// WithInMemory keeps all data in memory; the path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	documentRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			documentRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	queryEmbedder := provider.Embedder()
	if options.cacheEnabled {
		cacheOpts := append([]cache.Option{cache.WithLogger(options.logger)}, options.cacheOpts...)
		queryEmbedder = cache.NewCachingEmbedder(queryEmbedder, cacheOpts...)
	}

	return &Database{
		backend:        backend,
		sessionRepo:    badger.NewSessionRepository(backend),
		documentRepo:   documentRepo,
		checkpointRepo: badger.NewCheckpointRepository(backend),
		provider:       provider,
		queryEmbedder:  queryEmbedder,
		logger:         options.logger,
	}, nil
}

func (db *Database) Close() error {
	var errs []error

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := db.sessionRepo.Close(); err != nil {
		db.logger.Error("error closing session repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.documentRepo.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) SessionRepository() storage.SessionRepository {
	return db.sessionRepo
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.documentRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewEngine creates a retrieval engine over the document store.
func (db *Database) NewEngine(opts ...retrieval.Option) (*retrieval.Engine, error) {
	opts = append([]retrieval.Option{retrieval.WithLogger(db.logger)}, opts...)
	return retrieval.NewEngine(db.documentRepo, db.queryEmbedder, opts...)
}

// NewPipeline creates an ingestion pipeline. Callers must Release it.
func (db *Database) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db.sessionRepo, db.documentRepo, db.provider, opts...)
}

// NewSessionService creates a session service that saves through pipeline.
func (db *Database) NewSessionService(pipeline *ingestion.Pipeline, opts ...sessions.Option) (*sessions.Service, error) {
	opts = append([]sessions.Option{sessions.WithLogger(db.logger)}, opts...)
	return sessions.NewService(db.sessionRepo, db.documentRepo, pipeline, opts...)
}

// NewAnswerer creates an answerer over engine and the provider's generator.
func (db *Database) NewAnswerer(engine *retrieval.Engine, opts ...rag.Option) (*rag.Answerer, error) {
	opts = append([]rag.Option{rag.WithLogger(db.logger)}, opts...)
	return rag.NewAnswerer(engine, db.provider.Generator(), opts...)
}

// NewReembedder creates a resumable reembedder using the uncached embedder.
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(db.documentRepo, db.provider.Embedder(), config, progress,
		reembed.WithCheckpoints(db.checkpointRepo),
		reembed.WithLogger(db.logger),
	)
}
