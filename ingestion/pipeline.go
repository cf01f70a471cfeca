package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/storage"
)

const defaultBatchSize = 16

// Pipeline stores conversation text as embedded documents.
type Pipeline struct {
	sessionRepository  storage.SessionRepository
	documentRepository storage.DocumentRepository
	embeddingPool      *ants.Pool
	embeddingProc      *embeddingProcessor
	batchSize          int
	logger             *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent batch embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithBatchSize sets how many texts one embedding call receives in IngestBatch.
// Default is 16.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	sessionRepository storage.SessionRepository,
	documentRepository storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if sessionRepository == nil {
		return nil, ErrSessionRepositoryRequired
	}
	if documentRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		sessionRepository:  sessionRepository,
		documentRepository: documentRepository,
		embeddingPool:      embeddingPool,
		batchSize:          defaultBatchSize,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Created after options so the processor gets the final logger
	embeddingProc, err := newEmbeddingProcessor(provider.Embedder(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// SaveConversation embeds text and stores it as a new document of sessionID.
func (p *Pipeline) SaveConversation(ctx context.Context, sessionID core.SessionID, text string, metadata map[string]string) (*core.Document, error) {
	doc := &core.Document{
		SessionId: sessionID,
		Text:      text,
		CreatedAt: core.Now(),
		Metadata:  metadata,
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := p.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if err := p.embeddingProc.process(ctx, []*core.Document{doc}); err != nil {
		return nil, err
	}

	added, err := p.documentRepository.AddDocuments(ctx, doc)
	if err != nil {
		p.logger.Error("error storing document", "session", sessionID, "err", err)
		return nil, err
	}

	p.logger.Debug("saved conversation", "session", sessionID, "id", added[0].Id, "length", len(text))
	return added[0], nil
}

// IngestBatch stores texts as documents of sessionID, embedding them in
// chunks on the worker pool. Documents keep the order of texts. If any chunk
// fails nothing is stored and the chunk errors are joined.
func (p *Pipeline) IngestBatch(ctx context.Context, sessionID core.SessionID, texts []string, metadata map[string]string) ([]*core.Document, error) {
	if len(texts) == 0 {
		return []*core.Document{}, nil
	}

	now := core.Now()
	docs := make([]*core.Document, len(texts))
	for i, text := range texts {
		docs[i] = &core.Document{
			SessionId: sessionID,
			Text:      text,
			CreatedAt: now,
			Metadata:  metadata,
		}
		if err := core.ValidateDocument(docs[i]); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}
	if err := p.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for start := 0; start < len(docs); start += p.batchSize {
		chunk := docs[start:min(start+p.batchSize, len(docs))]
		wg.Add(1)
		if err := p.embeddingPool.Submit(func() {
			defer wg.Done()
			if err := p.embeddingProc.process(ctx, chunk); err != nil {
				record(err)
			}
		}); err != nil {
			wg.Done()
			record(err)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		err := errors.Join(errs...)
		p.logger.Error("batch ingestion failed", "session", sessionID, "texts", len(texts), "err", err)
		return nil, err
	}

	added, err := p.documentRepository.AddDocuments(ctx, docs...)
	if err != nil {
		return nil, err
	}

	p.logger.Info("ingested batch", "session", sessionID, "documents", len(added))
	return added, nil
}

func (p *Pipeline) requireSession(ctx context.Context, sessionID core.SessionID) error {
	if _, err := p.sessionRepository.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return err
	}
	return nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
