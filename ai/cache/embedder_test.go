package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/sessionrag/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingEmbedder_EmbedText(t *testing.T) {
	inner := mock.NewMockEmbedder()
	c := NewCachingEmbedder(inner)
	ctx := context.Background()

	first, err := c.EmbedText(ctx, "where did we park")
	require.NoError(t, err)
	second, err := c.EmbedText(ctx, "where did we park")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.CallCount())
	assert.Equal(t, 1, c.Len())

	// Mutating a returned vector must not leak into the cache
	second[0] = 42
	third, err := c.EmbedText(ctx, "where did we park")
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestCachingEmbedder_FailuresNotCached(t *testing.T) {
	inner := mock.NewMockEmbedder()
	fail := true
	inner.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return []float32{1, 2}, nil
	}
	c := NewCachingEmbedder(inner)
	ctx := context.Background()

	_, err := c.EmbedText(ctx, "q")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	fail = false
	v, err := c.EmbedText(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
	assert.Equal(t, 2, inner.CallCount())
}

func TestCachingEmbedder_EmbedTexts(t *testing.T) {
	inner := mock.NewMockEmbedder()
	var batches [][]string
	inner.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, texts)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}
	c := NewCachingEmbedder(inner)
	ctx := context.Background()

	_, err := c.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)

	vectors, err := c.EmbedTexts(ctx, []string{"b", "c", "a"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	require.Len(t, batches, 2)
	assert.Equal(t, []string{"c"}, batches[1])
	assert.Equal(t, mock.DeterministicVector("b", 8), vectors[0])
	assert.Equal(t, mock.DeterministicVector("c", 8), vectors[1])
	assert.Equal(t, mock.DeterministicVector("a", 8), vectors[2])
}

func TestCachingEmbedder_Expiry(t *testing.T) {
	inner := mock.NewMockEmbedder()
	c := NewCachingEmbedder(inner, WithTTL(10*time.Millisecond), WithCleanupInterval(time.Millisecond))
	ctx := context.Background()

	_, err := c.EmbedText(ctx, "q")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = c.EmbedText(ctx, "q")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.CallCount())

	c.Flush()
	assert.Equal(t, 0, c.Len())
}
