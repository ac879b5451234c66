package embedstore

import (
	"context"
	"testing"

	"github.com/poiesic/poliscope/ai/mock"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *mock.MockEmbedder) {
	t.Helper()

	_, chunkRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	return NewStore(chunkRepo, embedder, opts...), embedder
}

func chunkWithText(policy string, ordinal int, text string) *core.Chunk {
	c := &core.Chunk{
		PolicyNumber:   policy,
		SectionLabel:   "general",
		Text:           text,
		SourceFilename: "test.pdf",
		Ordinal:        ordinal,
	}
	c.Id = core.IDFromContent(c.Locator())
	return c
}

func TestIngestAndSearch(t *testing.T) {
	store, embedder := newTestStore(t)
	ctx := context.Background()

	chunks := []*core.Chunk{
		chunkWithText("POL-1", 0, "Dwelling Coverage: $300,000"),
		chunkWithText("POL-1", 1, "Flood damage is not covered."),
	}

	count, err := store.Ingest(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, embedder.CallCount())

	for _, c := range chunks {
		assert.NotEmpty(t, c.Vector)
	}

	// The mock embedder is deterministic, so embedding the same text again
	// retrieves the matching chunk first
	query, err := embedder.EmbedText(ctx, "Dwelling Coverage: $300,000")
	require.NoError(t, err)

	results, err := store.Search(ctx, "POL-1", query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Dwelling Coverage: $300,000", results[0].Chunk.Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchDefaultK(t *testing.T) {
	store, embedder := newTestStore(t)
	ctx := context.Background()

	chunks := make([]*core.Chunk, 8)
	for i := range chunks {
		chunks[i] = chunkWithText("POL-1", i, "text "+string(rune('a'+i)))
	}
	_, err := store.Ingest(ctx, chunks)
	require.NoError(t, err)

	query, err := embedder.EmbedText(ctx, "text a")
	require.NoError(t, err)

	results, err := store.Search(ctx, "POL-1", query, 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultSearchK)
}

func TestSearchEmptyPolicy(t *testing.T) {
	store, embedder := newTestStore(t)
	ctx := context.Background()

	query, err := embedder.EmbedText(ctx, "anything")
	require.NoError(t, err)

	results, err := store.Search(ctx, "POL-EMPTY", query, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDimensionMismatch(t *testing.T) {
	t.Run("configured dimensions enforced on embed", func(t *testing.T) {
		store, embedder := newTestStore(t, WithDimensions(8))
		embedder.Dimensions = 4

		err := store.Embed(context.Background(), []*core.Chunk{chunkWithText("POL-1", 0, "text")})
		assert.True(t, core.IsConfig(err), "expected config error, got %v", err)
	})

	t.Run("learned dimensions enforced on search", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.Ingest(context.Background(), []*core.Chunk{chunkWithText("POL-1", 0, "text")})
		require.NoError(t, err)
		assert.Equal(t, 384, store.Dimensions())

		_, err = store.Search(context.Background(), "POL-1", []float32{1, 2, 3}, 5)
		assert.True(t, core.IsConfig(err), "expected config error, got %v", err)
	})
}

func TestPersistRequiresVectors(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Persist(context.Background(), []*core.Chunk{chunkWithText("POL-1", 0, "no vector")})
	assert.True(t, core.IsInput(err), "expected input error, got %v", err)
}

func TestCountAndDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, []*core.Chunk{
		chunkWithText("POL-1", 0, "a"),
		chunkWithText("POL-1", 1, "b"),
	})
	require.NoError(t, err)

	n, err := store.Count(ctx, "POL-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deleted, err := store.Delete(ctx, "POL-1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	n, err = store.Count(ctx, "POL-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
