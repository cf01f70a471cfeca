package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/sessionrag/ai/mock"
	"github.com/poiesic/sessionrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unnormalizedEmbedder returns (1, 2, 2) for every text; its magnitude is 3.
func unnormalizedEmbedder() *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		result := make([][]float32, len(texts))
		for i := range texts {
			result[i] = []float32{1.0, 2.0, 2.0}
		}
		return result, nil
	}
	return m
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return sum
}

func TestBatchProcessor_Process(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()
	added := seedDocuments(t, repo, 2)

	processor := NewBatchProcessor(repo, unnormalizedEmbedder(), 3, 10*time.Millisecond)
	require.NoError(t, processor.Process(ctx, added))

	updated, err := repo.GetDocuments(ctx, added[0].Id, added[1].Id)
	require.NoError(t, err)
	require.Len(t, updated, 2)

	for _, doc := range updated {
		require.Len(t, doc.Vector, 3)
		assert.InDelta(t, 1.0/3.0, doc.Vector[0], 1e-6)
		assert.InDelta(t, 1.0, magnitude(doc.Vector), 1e-6, "vector should be normalized")
		assert.False(t, doc.UpdatedAt.IsZero())
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo, _ := setupTestDB(t)
	embedder := unnormalizedEmbedder()

	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)
	require.NoError(t, processor.Process(context.Background(), []*core.Document{}))
	assert.Zero(t, embedder.CallCount())
}

func TestBatchProcessor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		embed   func(ctx context.Context, texts []string) ([][]float32, error)
		wantErr error
		wantMsg string
	}{
		{
			name: "embedding error",
			embed: func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, errors.New("embedding error")
			},
			wantMsg: "embedding error",
		},
		{
			name: "too few vectors",
			embed: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{{1, 0}}, nil
			},
			wantErr: ErrEmbeddingMismatch,
		},
		{
			name: "empty vector",
			embed: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{{1, 0}, {}}, nil
			},
			wantErr: ErrEmbeddingMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := setupTestDB(t)
			ctx := context.Background()
			added := seedDocuments(t, repo, 2)

			embedder := mock.NewMockEmbedder()
			embedder.EmbedTextsFunc = tt.embed
			processor := NewBatchProcessor(repo, embedder, 2, time.Millisecond)

			err := processor.Process(ctx, added)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			stored, err := repo.GetDocument(ctx, added[0].Id)
			require.NoError(t, err)
			assert.Empty(t, stored.Vector, "failed batch should not be written")
		})
	}
}

func TestBatchProcessor_Retry(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()
	added := seedDocuments(t, repo, 1)

	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("temporary error")
		}
		return [][]float32{{0, 5, 0}}, nil
	}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	require.NoError(t, processor.Process(ctx, added))
	assert.Equal(t, 2, attempts, "should retry on failure")

	stored, err := repo.GetDocument(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, stored.Vector)
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	repo, _ := setupTestDB(t)
	added := seedDocuments(t, repo, 1)

	ctx, cancel := context.WithCancel(context.Background())
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		cancel()
		return nil, errors.New("error")
	}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	err := processor.Process(ctx, added)
	assert.ErrorIs(t, err, context.Canceled)
}
