package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/core"
)

// embeddingProcessor generates embeddings for documents.
type embeddingProcessor struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(embedder ai.Embedder, logger *slog.Logger) (*embeddingProcessor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		embedder: embedder,
		logger:   logger.With("processor", "embeddings"),
	}, nil
}

// process sets the Vector of every document from one batch embedding call.
func (ep *embeddingProcessor) process(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	ep.logger.Debug("generating embeddings for documents", "documents", len(texts))
	vectors, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: expected %d vectors, received %d", ErrEmbeddingFailed, len(docs), len(vectors))
	}

	for i := range vectors {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("%w: empty vector for document %d", ErrEmbeddingFailed, i)
		}
		docs[i].Vector = vectors[i]
	}
	return nil
}
