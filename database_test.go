package sessionrag

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/sessionrag/ai/cache"
	"github.com/poiesic/sessionrag/ai/mock"
	"github.com/poiesic/sessionrag/rag"
	"github.com/poiesic/sessionrag/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, opts ...DatabaseOption) (*Database, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockGenerator())
	opts = append([]DatabaseOption{WithProvider(provider), WithInMemory()}, opts...)
	db, err := NewDatabase("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, provider
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.SessionRepository())
		assert.NotNil(t, db.DocumentRepository())
		assert.NotNil(t, db.CheckpointRepository())
		assert.NotNil(t, db.Provider())
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_CloseClosesProvider(t *testing.T) {
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockGenerator())
	db, err := NewDatabase(t.TempDir(), WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.True(t, provider.Closed())
}

func TestDatabase_EndToEnd(t *testing.T) {
	db, provider := newTestDatabase(t)
	ctx := context.Background()

	pipeline, err := db.NewPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	svc, err := db.NewSessionService(pipeline)
	require.NoError(t, err)

	session, err := svc.CreateSession(ctx, "travel", "trip planning")
	require.NoError(t, err)

	_, err = svc.AddConversation(ctx, session.Id, "we booked the train to Lyon", nil)
	require.NoError(t, err)
	_, err = svc.AddConversation(ctx, session.Id, "the hotel has a pool", nil)
	require.NoError(t, err)

	engine, err := db.NewEngine(retrieval.WithDefaultTopK(1))
	require.NoError(t, err)

	texts, err := engine.RetrieveDefault(ctx, "we booked the train to Lyon", session.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"we booked the train to Lyon"}, texts)

	answerer, err := db.NewAnswerer(engine, rag.WithTopK(2))
	require.NoError(t, err)
	answer, err := answerer.Answer(ctx, "how do we travel?", session.Id)
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultResponse, answer)
	prompt := provider.GetMockGenerator().LastPrompt()
	assert.Contains(t, prompt, "we booked the train to Lyon")
	assert.Contains(t, prompt, "the hotel has a pool")

	var progress bytes.Buffer
	processed, err := db.NewReembedder(nil, &progress).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
}

func TestDatabase_EmbeddingCache(t *testing.T) {
	db, provider := newTestDatabase(t, WithEmbeddingCache(cache.WithTTL(0)))
	ctx := context.Background()

	engine, err := db.NewEngine()
	require.NoError(t, err)

	embedder := provider.GetMockEmbedder()
	for range 3 {
		_, err := engine.Retrieve(ctx, "same query", "s1", 3)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, embedder.CallCount(), "repeated queries should hit the cache")
}
