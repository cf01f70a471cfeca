package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("hello", 16)
	b := DeterministicVector("hello", 16)
	c := DeterministicVector("world", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_Hooks(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	v, err := m.EmbedText(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)

	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	}
	_, err = m.EmbedText(ctx, "x")
	assert.Error(t, err)
	assert.Equal(t, 2, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	vs, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)
}

func TestMockGenerator(t *testing.T) {
	g := NewMockGenerator()

	var out string
	err := g.GenerateStream(context.Background(), "prompt text", func(chunk string) error {
		out += chunk
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, out)
	assert.Equal(t, "prompt text", g.LastPrompt())
	assert.Equal(t, 1, g.CallCount())

	stop := errors.New("client went away")
	err = g.GenerateStream(context.Background(), "p", func(string) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProviderWithServices(NewMockEmbedder(), NewMockGenerator())
	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Generator())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
