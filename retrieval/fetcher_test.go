package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/sessionrag/ai/mock"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex is a storage.VectorIndex whose Query behavior is injected.
type fakeIndex struct {
	QueryFunc func(ctx context.Context, vector []float32, filter storage.Filter, limit int) ([]core.Candidate, error)

	lastFilter storage.Filter
	lastLimit  int
	calls      int
}

var _ storage.VectorIndex = (*fakeIndex)(nil)

func (f *fakeIndex) Query(ctx context.Context, vector []float32, filter storage.Filter, limit int) ([]core.Candidate, error) {
	f.calls++
	f.lastFilter = filter
	f.lastLimit = limit
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, vector, filter, limit)
	}
	return nil, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, doc *core.Document) (*core.Document, error) {
	return doc, nil
}

func (f *fakeIndex) DeleteByIDs(ctx context.Context, ids ...core.ID) error {
	return nil
}

func TestNewFetcher(t *testing.T) {
	_, err := NewFetcher(nil, mock.NewMockEmbedder(), nil)
	assert.Equal(t, ErrVectorIndexRequired, err)

	_, err = NewFetcher(&fakeIndex{}, nil, nil)
	assert.Equal(t, ErrEmbedderRequired, err)

	f, err := NewFetcher(&fakeIndex{}, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)
	assert.NotNil(t, f.logger)
}

func TestFetch_PassesFilterAndLimit(t *testing.T) {
	index := &fakeIndex{}
	f, err := NewFetcher(index, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	candidates, err := f.Fetch(context.Background(), "q", "s42", 10)
	require.NoError(t, err)

	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
	assert.Equal(t, storage.Filter{SessionId: "s42"}, index.lastFilter)
	assert.Equal(t, 10, index.lastLimit)
}

func TestFetch_InvalidPoolSize(t *testing.T) {
	index := &fakeIndex{}
	embedder := mock.NewMockEmbedder()
	f, err := NewFetcher(index, embedder, nil)
	require.NoError(t, err)

	for _, size := range []int{0, -3} {
		_, err := f.Fetch(context.Background(), "q", "s1", size)
		assert.ErrorIs(t, err, ErrInvalidPoolSize)
	}
	assert.Equal(t, 0, embedder.CallCount())
	assert.Equal(t, 0, index.calls)
}

func TestFetch_Failures(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("embedding failure", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, cause
		}
		index := &fakeIndex{}
		f, err := NewFetcher(index, embedder, nil)
		require.NoError(t, err)

		_, err = f.Fetch(context.Background(), "q", "s1", 4)
		assert.ErrorIs(t, err, ErrRetrievalUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 0, index.calls)
	})

	t.Run("index failure is not retried", func(t *testing.T) {
		index := &fakeIndex{
			QueryFunc: func(ctx context.Context, vector []float32, filter storage.Filter, limit int) ([]core.Candidate, error) {
				return nil, cause
			},
		}
		f, err := NewFetcher(index, mock.NewMockEmbedder(), nil)
		require.NoError(t, err)

		_, err = f.Fetch(context.Background(), "q", "s1", 4)
		assert.ErrorIs(t, err, ErrRetrievalUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, index.calls)
	})
}
