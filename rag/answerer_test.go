package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/sessionrag/ai/mock"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/retrieval"
	"github.com/poiesic/sessionrag/storage"
	"github.com/poiesic/sessionrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) storage.DocumentRepository {
	t.Helper()
	_, docRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docRepo.Close()
		backend.Close()
	})
	return docRepo
}

func addDocs(t *testing.T, repo storage.DocumentRepository, session core.SessionID, texts ...string) {
	t.Helper()
	for _, text := range texts {
		_, err := repo.AddDocuments(context.Background(), &core.Document{
			SessionId: session,
			Text:      text,
			Vector:    mock.DeterministicVector(text, mock.DefaultDimension),
		})
		require.NoError(t, err)
	}
}

func newTestAnswerer(t *testing.T, repo storage.DocumentRepository, generator *mock.MockGenerator, opts ...Option) *Answerer {
	t.Helper()
	engine, err := retrieval.NewEngine(repo, mock.NewMockEmbedder())
	require.NoError(t, err)
	a, err := NewAnswerer(engine, generator, opts...)
	require.NoError(t, err)
	return a
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Where did we go?", []string{"We went to Paris.", "Then Lyon."})

	assert.Contains(t, prompt, "named Clara")
	assert.Contains(t, prompt, "Context:\nWe went to Paris.\n\nThen Lyon.\n")
	assert.Contains(t, prompt, "User Question: Where did we go?")
	assert.True(t, strings.HasSuffix(prompt, "Answer:\n"))
}

func TestBuildPrompt_EmptyContext(t *testing.T) {
	prompt := BuildPrompt("anything?", nil)

	assert.Contains(t, prompt, "Context:\n\n")
	assert.Contains(t, prompt, "User Question: anything?")
}

func TestNewAnswerer_Validation(t *testing.T) {
	repo := newTestRepo(t)
	engine, err := retrieval.NewEngine(repo, mock.NewMockEmbedder(), retrieval.WithDefaultTopK(3))
	require.NoError(t, err)

	_, err = NewAnswerer(nil, mock.NewMockGenerator())
	assert.ErrorIs(t, err, ErrEngineRequired)

	_, err = NewAnswerer(engine, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewAnswerer(engine, mock.NewMockGenerator(), WithTopK(0))
	assert.ErrorIs(t, err, retrieval.ErrInvalidTopK)

	a, err := NewAnswerer(engine, mock.NewMockGenerator())
	require.NoError(t, err)
	assert.Equal(t, 3, a.topK)
}

func TestStreamAnswer(t *testing.T) {
	repo := newTestRepo(t)
	addDocs(t, repo, "s1", "the launch is on friday", "lunch was pasta")
	addDocs(t, repo, "s2", "secret from another session")

	generator := mock.NewMockGenerator()
	a := newTestAnswerer(t, repo, generator)

	var chunks []string
	err := a.StreamAnswer(context.Background(), "when is the launch", "s1", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, mock.DefaultResponse, strings.Join(chunks, ""))
	assert.Greater(t, len(chunks), 1, "answer should arrive in several chunks")

	prompt := generator.LastPrompt()
	assert.Contains(t, prompt, "the launch is on friday")
	assert.Contains(t, prompt, "lunch was pasta")
	assert.NotContains(t, prompt, "secret from another session")
	assert.Contains(t, prompt, "User Question: when is the launch")
}

func TestStreamAnswer_EmptySessionStillAnswers(t *testing.T) {
	repo := newTestRepo(t)
	generator := mock.NewMockGenerator()
	a := newTestAnswerer(t, repo, generator)

	answer, err := a.Answer(context.Background(), "hello?", "empty")
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultResponse, answer)
	assert.Equal(t, 1, generator.CallCount())
	assert.Contains(t, generator.LastPrompt(), "Context:\n\n")
}

func TestStreamAnswer_EmptyQuery(t *testing.T) {
	repo := newTestRepo(t)
	generator := mock.NewMockGenerator()
	a := newTestAnswerer(t, repo, generator)

	err := a.StreamAnswer(context.Background(), "   ", "s1", func(string) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, generator.CallCount())
}

func TestStreamAnswer_RetrievalUnavailable(t *testing.T) {
	repo := newTestRepo(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	engine, err := retrieval.NewEngine(repo, embedder)
	require.NoError(t, err)
	generator := mock.NewMockGenerator()
	a, err := NewAnswerer(engine, generator)
	require.NoError(t, err)

	err = a.StreamAnswer(context.Background(), "question", "s1", func(string) error { return nil })
	assert.ErrorIs(t, err, retrieval.ErrRetrievalUnavailable)
	assert.Zero(t, generator.CallCount())
}

func TestStreamAnswer_SinkErrorStopsStream(t *testing.T) {
	repo := newTestRepo(t)
	a := newTestAnswerer(t, repo, mock.NewMockGenerator())
	stop := errors.New("client went away")

	received := 0
	err := a.StreamAnswer(context.Background(), "question", "s1", func(string) error {
		received++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.NotErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, 1, received)
}

func TestStreamAnswer_GeneratorFailure(t *testing.T) {
	repo := newTestRepo(t)
	generator := mock.NewMockGenerator()
	generator.GenerateStreamFunc = func(ctx context.Context, prompt string, onChunk func(string) error) error {
		if err := onChunk("partial "); err != nil {
			return err
		}
		return errors.New("model crashed")
	}
	a := newTestAnswerer(t, repo, generator)

	var got strings.Builder
	err := a.StreamAnswer(context.Background(), "question", "s1", func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, "partial ", got.String())
}

func TestPrepare(t *testing.T) {
	repo := newTestRepo(t)
	addDocs(t, repo, "s1", "the train leaves at nine")
	addDocs(t, repo, "s2", "the train leaves at ten")
	generator := mock.NewMockGenerator()
	a := newTestAnswerer(t, repo, generator)

	prompt, err := a.Prepare(context.Background(), "the train leaves at nine", "s1")
	require.NoError(t, err)
	assert.Equal(t, core.SessionID("s1"), prompt.SessionID)
	assert.Equal(t, []string{"the train leaves at nine"}, prompt.Contexts)
	assert.Equal(t, BuildPrompt("the train leaves at nine", prompt.Contexts), prompt.Text)
	assert.Zero(t, generator.CallCount(), "preparing does not generate")

	answer := ""
	require.NoError(t, a.Generate(context.Background(), prompt, func(chunk string) error {
		answer += chunk
		return nil
	}))
	assert.Equal(t, mock.DefaultResponse, answer)
	assert.Equal(t, prompt.Text, generator.LastPrompt())
}

func TestPrepare_Errors(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}
	engine, err := retrieval.NewEngine(newTestRepo(t), embedder)
	require.NoError(t, err)
	a, err := NewAnswerer(engine, mock.NewMockGenerator())
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  error
	}{
		{"blank query", "   ", ErrEmptyQuery},
		{"retrieval down", "question", retrieval.ErrRetrievalUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := a.Prepare(context.Background(), tt.query, "s1")
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, prompt)
		})
	}
}
