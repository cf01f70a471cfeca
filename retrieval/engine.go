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


package retrieval

import (
	"context"
	"log/slog"
	"math"

	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/storage"
)

const (
	// DefaultTopK is the number of documents RetrieveDefault returns.
	DefaultTopK = 5
	// DefaultPoolFactor sizes the candidate pool as a multiple of topK.
	DefaultPoolFactor = 2
)

// Engine runs hybrid retrieval over a session's documents.
// Configuration is fixed at construction and every call keeps its state
// local, so an Engine is safe for concurrent use.
type Engine struct {
	fetcher     *Fetcher
	weights     Weights
	defaultTopK int
	poolFactor  int
	bm25        BM25
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithWeights sets the fusion weights.
// Default is DefaultWeights (0.7 dense, 0.3 sparse).
func WithWeights(w Weights) Option {
	return func(e *Engine) error {
		if err := w.Validate(); err != nil {
			return err
		}
		e.weights = w
		return nil
	}
}

// WithDefaultTopK sets the result count used by RetrieveDefault.
// Default is 5.
func WithDefaultTopK(topK int) Option {
	return func(e *Engine) error {
		if topK < 1 {
			return ErrInvalidTopK
		}
		e.defaultTopK = topK
		return nil
	}
}

// WithPoolFactor sets the candidate pool size as a multiple of topK.
// Default is 2.
func WithPoolFactor(factor int) Option {
	return func(e *Engine) error {
		if factor < 1 {
			return ErrInvalidPoolFactor
		}
		e.poolFactor = factor
		return nil
	}
}

// WithBM25 overrides the lexical scoring parameters.
func WithBM25(p BM25) Option {
	return func(e *Engine) error {
		e.bm25 = p
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a retrieval engine over index using embedder for queries.
func NewEngine(index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		weights:     DefaultWeights,
		defaultTopK: DefaultTopK,
		poolFactor:  DefaultPoolFactor,
		bm25:        NewBM25(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	fetcher, err := NewFetcher(index, embedder, e.logger)
	if err != nil {
		return nil, err
	}
	e.fetcher = fetcher

	return e, nil
}

// Weights returns the configured fusion weights.
func (e *Engine) Weights() Weights {
	return e.weights
}

// DefaultTopK returns the result count used by RetrieveDefault.
func (e *Engine) DefaultTopK() int {
	return e.defaultTopK
}

// Retrieve returns the text of the topK best documents of sessionID for query.
// topK <= 0 returns an empty slice without touching the index.
func (e *Engine) Retrieve(ctx context.Context, query string, sessionID core.SessionID, topK int) ([]string, error) {
	results, err := e.RetrieveWithMonitor(ctx, query, sessionID, topK, nil)
	if err != nil {
		return nil, err
	}
	return Texts(results), nil
}

// RetrieveDefault is Retrieve with the configured default topK.
func (e *Engine) RetrieveDefault(ctx context.Context, query string, sessionID core.SessionID) ([]string, error) {
	return e.Retrieve(ctx, query, sessionID, e.defaultTopK)
}

// RetrieveDocuments is Retrieve but keeps the documents and their scores.
func (e *Engine) RetrieveDocuments(ctx context.Context, query string, sessionID core.SessionID, topK int) ([]core.ScoredDocument, error) {
	return e.RetrieveWithMonitor(ctx, query, sessionID, topK, nil)
}

// RetrieveWithMonitor runs the pipeline and reports each stage to monitor.
// A nil monitor is allowed.
func (e *Engine) RetrieveWithMonitor(ctx context.Context, query string, sessionID core.SessionID, topK int, monitor Monitor) ([]core.ScoredDocument, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query, sessionID, topK)

	if topK <= 0 {
		results := []core.ScoredDocument{}
		monitor.Finish(results)
		return results, nil
	}

	candidates, err := e.fetcher.Fetch(ctx, query, sessionID, e.poolSize(topK))
	if err != nil {
		return nil, err
	}
	monitor.AfterFetch(candidates)

	if len(candidates) == 0 {
		e.logger.Debug("no candidates for session", "session", sessionID)
		results := []core.ScoredDocument{}
		monitor.Finish(results)
		return results, nil
	}

	texts := make([]string, len(candidates))
	similarities := make([]float64, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Document.Text
		similarities[i] = c.Similarity()
	}

	lexical := e.bm25.Score(query, texts)
	monitor.AfterLexical(lexical)

	dense := NormalizeDense(similarities)
	sparse := NormalizeSparse(lexical)
	monitor.AfterNormalize(dense, sparse)

	results := Fuse(candidates, dense, sparse, e.weights, topK)
	monitor.Finish(results)

	e.logger.Debug("retrieval complete",
		"session", sessionID,
		"candidates", len(candidates),
		"results", len(results),
	)
	return results, nil
}

// poolSize is topK times the pool factor, saturating at math.MaxInt.
func (e *Engine) poolSize(topK int) int {
	if topK > math.MaxInt/e.poolFactor {
		return math.MaxInt
	}
	return topK * e.poolFactor
}

// Texts extracts document bodies in rank order.
func Texts(results []core.ScoredDocument) []string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Document.Text
	}
	return texts
}
