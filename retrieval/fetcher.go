package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/storage"
)

// Fetcher produces the candidate pool for a query: the nearest documents of
// one session by embedding distance.
type Fetcher struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher. A nil logger falls back to slog.Default().
func NewFetcher(index storage.VectorIndex, embedder ai.Embedder, logger *slog.Logger) (*Fetcher, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		index:    index,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Fetch embeds query and returns up to poolSize candidates from sessionID.
// A session with nothing indexed yields an empty slice and no error.
// Embedding and index failures are wrapped with ErrRetrievalUnavailable and
// are not retried.
func (f *Fetcher) Fetch(ctx context.Context, query string, sessionID core.SessionID, poolSize int) ([]core.Candidate, error) {
	if poolSize < 1 {
		return nil, ErrInvalidPoolSize
	}

	vector, err := f.embedder.EmbedText(ctx, query)
	if err != nil {
		f.logger.Error("error generating embedding for query", "session", sessionID, "err", err)
		return nil, fmt.Errorf("%w: embed query: %w", ErrRetrievalUnavailable, err)
	}

	candidates, err := f.index.Query(ctx, vector, storage.Filter{SessionId: sessionID}, poolSize)
	if err != nil {
		f.logger.Error("error querying vector index", "session", sessionID, "err", err)
		return nil, fmt.Errorf("%w: query index: %w", ErrRetrievalUnavailable, err)
	}

	if candidates == nil {
		candidates = []core.Candidate{}
	}
	return candidates, nil
}
