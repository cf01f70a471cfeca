package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocumentRepo(t *testing.T) (*DocumentRepository, *Backend) {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	repo, err := NewDocumentRepository(backend)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo, backend
}

func TestDocumentBasics(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	doc := &core.Document{
		SessionId: "s1",
		Text:      "Hello, world!",
		Metadata:  map[string]string{"speaker": "human"},
	}

	added, err := repo.AddDocuments(ctx, doc)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotZero(t, added[0].Id)
	assert.False(t, added[0].CreatedAt.IsZero())

	retrieved, err := repo.GetDocument(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", retrieved.Text)
	assert.Equal(t, "human", retrieved.Metadata["speaker"])

	_, err = repo.GetDocument(ctx, core.ID(999999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddDocuments_KeepsCreatedAt(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	added, err := repo.AddDocuments(ctx, &core.Document{SessionId: "s1", Text: "old", CreatedAt: created})
	require.NoError(t, err)

	retrieved, err := repo.GetDocument(ctx, added[0].Id)
	require.NoError(t, err)
	assert.True(t, created.Equal(retrieved.CreatedAt))
}

func TestWrites_MatchStoredRecord(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	zone := time.FixedZone("PDT", -7*60*60)
	created := time.Date(2024, 3, 1, 12, 0, 0, 987654321, zone)

	existing, err := repo.AddDocuments(ctx, &core.Document{SessionId: "s1", Text: "existing", Vector: []float32{1, 0}})
	require.NoError(t, err)

	tests := []struct {
		name  string
		write func() (*core.Document, error)
	}{
		{"add with caller timestamp", func() (*core.Document, error) {
			added, err := repo.AddDocuments(ctx, &core.Document{
				SessionId: "s1", Text: "a", CreatedAt: created,
				Vector: []float32{0.5}, Metadata: map[string]string{"speaker": "human"},
			})
			if err != nil {
				return nil, err
			}
			return added[0], nil
		}},
		{"add stamped", func() (*core.Document, error) {
			added, err := repo.AddDocuments(ctx, &core.Document{SessionId: "s1", Text: "b", Vector: []float32{0.5}})
			if err != nil {
				return nil, err
			}
			return added[0], nil
		}},
		{"upsert new", func() (*core.Document, error) {
			return repo.Upsert(ctx, &core.Document{SessionId: "s1", Text: "c", CreatedAt: created, Vector: []float32{0.5}})
		}},
		{"upsert existing", func() (*core.Document, error) {
			return repo.Upsert(ctx, &core.Document{Id: existing[0].Id, SessionId: "s1", Text: "d", Vector: []float32{0, 1}})
		}},
		{"update", func() (*core.Document, error) {
			doc, err := repo.GetDocument(ctx, existing[0].Id)
			if err != nil {
				return nil, err
			}
			doc.Text = "e"
			updated, err := repo.UpdateDocuments(ctx, doc)
			if err != nil {
				return nil, err
			}
			return updated[0], nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			written, err := tt.write()
			require.NoError(t, err)

			stored, err := repo.GetDocument(ctx, written.Id)
			require.NoError(t, err)
			assert.Equal(t, written, stored)
			assert.Equal(t, time.UTC, stored.CreatedAt.Location())
		})
	}
}

func TestGetDocuments_SkipsMissing(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	added, err := repo.AddDocuments(ctx,
		&core.Document{SessionId: "s1", Text: "one"},
		&core.Document{SessionId: "s1", Text: "two"},
	)
	require.NoError(t, err)

	docs, err := repo.GetDocuments(ctx, added[0].Id, core.ID(424242), added[1].Id)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "one", docs[0].Text)
	assert.Equal(t, "two", docs[1].Text)
}

func TestGetSessionDocuments(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	_, err := repo.AddDocuments(ctx,
		&core.Document{SessionId: "a", Text: "a1"},
		&core.Document{SessionId: "b", Text: "b1"},
		&core.Document{SessionId: "a", Text: "a2"},
	)
	require.NoError(t, err)

	docs, err := repo.GetSessionDocuments(ctx, "a")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a1", docs[0].Text)
	assert.Equal(t, "a2", docs[1].Text)

	empty, err := repo.GetSessionDocuments(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpsert(t *testing.T) {
	repo, backend := newTestDocumentRepo(t)
	ctx := context.Background()

	doc, err := repo.Upsert(ctx, &core.Document{SessionId: "a", Text: "first", Vector: []float32{1, 0}})
	require.NoError(t, err)
	require.NotZero(t, doc.Id)
	created := doc.CreatedAt

	t.Run("replace in place", func(t *testing.T) {
		replaced, err := repo.Upsert(ctx, &core.Document{Id: doc.Id, SessionId: "a", Text: "second", Vector: []float32{0, 1}})
		require.NoError(t, err)
		assert.Equal(t, doc.Id, replaced.Id)
		assert.True(t, created.Equal(replaced.CreatedAt))

		got, err := repo.GetDocument(ctx, doc.Id)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Text)
	})

	t.Run("move to another session", func(t *testing.T) {
		_, err := repo.Upsert(ctx, &core.Document{Id: doc.Id, SessionId: "b", Text: "moved", Vector: []float32{0, 1}})
		require.NoError(t, err)

		inA, err := backend.QuerySession(ctx, []float32{0, 1}, "a", 10)
		require.NoError(t, err)
		assert.Empty(t, inA)

		inB, err := backend.QuerySession(ctx, []float32{0, 1}, "b", 10)
		require.NoError(t, err)
		require.Len(t, inB, 1)
		assert.Equal(t, "moved", inB[0].Document.Text)
	})
}

func TestUpdateDocuments(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	added, err := repo.AddDocuments(ctx, &core.Document{SessionId: "s1", Text: "text"})
	require.NoError(t, err)

	doc := added[0]
	doc.Vector = []float32{0.5, 0.5}
	before := doc.UpdatedAt

	time.Sleep(time.Millisecond)
	_, err = repo.UpdateDocuments(ctx, doc)
	require.NoError(t, err)

	got, err := repo.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, got.Vector)
	assert.True(t, got.UpdatedAt.After(before))

	_, err = repo.UpdateDocuments(ctx, &core.Document{Id: 777, SessionId: "s1", Text: "ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteByIDs(t *testing.T) {
	repo, backend := newTestDocumentRepo(t)
	ctx := context.Background()

	added, err := repo.AddDocuments(ctx,
		&core.Document{SessionId: "s1", Text: "keep", Vector: []float32{1}},
		&core.Document{SessionId: "s1", Text: "drop", Vector: []float32{1}},
	)
	require.NoError(t, err)

	// Unknown IDs are ignored
	require.NoError(t, repo.DeleteByIDs(ctx, added[1].Id, core.ID(31337)))

	_, err = repo.GetDocument(ctx, added[1].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	results, err := backend.QuerySession(ctx, []float32{1}, "s1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].Document.Text)
}

func TestGetDocumentsAfter(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		_, err := repo.AddDocuments(ctx, &core.Document{SessionId: "s1", Text: text})
		require.NoError(t, err)
	}

	var seen []string
	afterID := core.ID(0)
	for {
		batch, err := repo.GetDocumentsAfter(ctx, afterID, 2)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		assert.LessOrEqual(t, len(batch), 2)
		for _, doc := range batch {
			assert.Greater(t, doc.Id, afterID)
			seen = append(seen, doc.Text)
			afterID = doc.Id
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)

	_, err := repo.GetDocumentsAfter(ctx, 0, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestCountDocuments(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	count, err := repo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = repo.AddDocuments(ctx,
		&core.Document{SessionId: "a", Text: "1"},
		&core.Document{SessionId: "b", Text: "2"},
		&core.Document{SessionId: "c", Text: "3"},
	)
	require.NoError(t, err)

	count, err = repo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDocumentRepository_Query(t *testing.T) {
	repo, _ := newTestDocumentRepo(t)
	ctx := context.Background()

	_, err := repo.AddDocuments(ctx,
		&core.Document{SessionId: "s1", Text: "mine", Vector: []float32{1, 0}},
		&core.Document{SessionId: "s2", Text: "theirs", Vector: []float32{1, 0}},
	)
	require.NoError(t, err)

	results, err := repo.Query(ctx, []float32{1, 0}, storage.Filter{SessionId: "s1"}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].Document.Text)
	assert.InDelta(t, 1.0, results[0].Similarity(), 1e-6)
}
