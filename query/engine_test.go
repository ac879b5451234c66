package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/poliscope/ai/mock"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/embedstore"
	"github.com/poiesic/poliscope/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *embedstore.Store, *mock.MockProvider) {
	t.Helper()

	_, chunks, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	store := embedstore.NewStore(chunks, provider.Embedder())

	engine, err := NewEngine(store, provider, opts...)
	require.NoError(t, err)
	return engine, store, provider
}

func chunkWithText(policyNumber, label, text string, ordinal int) *core.Chunk {
	c := &core.Chunk{
		PolicyNumber:   policyNumber,
		SectionLabel:   label,
		Text:           text,
		SourceFilename: policyNumber + ".pdf",
		Ordinal:        ordinal,
	}
	c.Id = core.IDFromContent(c.Locator())
	return c
}

func ingest(t *testing.T, store *embedstore.Store, chunks ...*core.Chunk) {
	t.Helper()
	_, err := store.Ingest(context.Background(), chunks)
	require.NoError(t, err)
}

func TestAnswerReturnsMatchingChunk(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	dwelling := "Dwelling Coverage: $300,000 limit applies to the dwelling."
	ingest(t, store,
		chunkWithText("POL-1", "coverage_1", dwelling, 0),
		chunkWithText("POL-1", "exclusions", "Flood damage is not covered by this policy.", 1),
		chunkWithText("POL-1", "general", "Premium payments are due on the first of the month.", 2),
	)

	// The deterministic mock embedder maps identical text to identical
	// vectors, so asking with the chunk's own words ranks it first.
	answer, err := engine.Answer(ctx, "POL-1", dwelling)
	require.NoError(t, err)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "coverage_1", answer.Sources[0].Chunk.SectionLabel)
	assert.Greater(t, answer.Confidence, float32(0))
	assert.Contains(t, answer.Text, "Dwelling Coverage")
}

func TestAnswerNoChunks(t *testing.T) {
	engine, _, provider := newTestEngine(t)

	answer, err := engine.Answer(context.Background(), "POL-404", "What is covered?")
	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, answer.Text)
	assert.Zero(t, answer.Confidence)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, provider.GetMockGenerator().CallCount(), "no generation without context")
}

func TestAnswerEmptyQuestion(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Answer(context.Background(), "POL-1", "   ")
	assert.True(t, core.IsInput(err))
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAnswerInvalidPolicyNumber(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Answer(context.Background(), "POL 1", "What is covered?")
	assert.True(t, core.IsInput(err))
}

func TestAnswerDimensionMismatch(t *testing.T) {
	engine, store, provider := newTestEngine(t)
	ctx := context.Background()

	ingest(t, store, chunkWithText("POL-1", "general", "Some policy text.", 0))

	// A question embedded at a different dimensionality than ingestion
	// must fail fast, not silently degrade.
	provider.GetMockEmbedder().Dimensions = 16
	_, err := engine.Answer(ctx, "POL-1", "What is covered?")
	assert.True(t, core.IsConfig(err))
}

func TestAnswerGenerationFailure(t *testing.T) {
	engine, store, provider := newTestEngine(t)
	ctx := context.Background()

	ingest(t, store, chunkWithText("POL-1", "general", "Some policy text.", 0))

	provider.GetMockGenerator().GenerateAnswerFunc = func(ctx context.Context, contextText, question string) (string, error) {
		return "", fmt.Errorf("%w: model unavailable", core.ErrTransient)
	}
	_, err := engine.Answer(ctx, "POL-1", "What is covered?")
	assert.True(t, core.IsTransient(err))
}

type recordingMonitor struct {
	started  bool
	embedded bool
	searched int
	finished *core.Answer
}

func (m *recordingMonitor) Start(_, _ string)                  { m.started = true }
func (m *recordingMonitor) AfterQuestionEmbedding(_ []float32) { m.embedded = true }
func (m *recordingMonitor) AfterSearch(matches []*core.ScoredChunk) {
	m.searched = len(matches)
}
func (m *recordingMonitor) Finish(answer *core.Answer) { m.finished = answer }

func TestAnswerWithMonitor(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	ingest(t, store,
		chunkWithText("POL-1", "general", "The deductible is $1,000 per claim.", 0),
		chunkWithText("POL-1", "general", "Claims must be filed within 60 days.", 1),
	)

	monitor := &recordingMonitor{}
	answer, err := engine.AnswerWithMonitor(ctx, "POL-1", "What is the deductible?", monitor)
	require.NoError(t, err)
	assert.True(t, monitor.started)
	assert.True(t, monitor.embedded)
	assert.Equal(t, 2, monitor.searched)
	assert.Equal(t, answer, monitor.finished)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name  string
		score float32
		want  float32
	}{
		{"negative score", -0.4, 0},
		{"zero score", 0, 0},
		{"mid score", 0.73, 0.73},
		{"exact one", 1, 1},
		{"above one", 1.5, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, confidence(tc.score))
		})
	}
}

func TestWithTopK(t *testing.T) {
	engine, store, _ := newTestEngine(t, WithTopK(2))
	ctx := context.Background()

	chunks := make([]*core.Chunk, 6)
	for i := range chunks {
		chunks[i] = chunkWithText("POL-1", "general", fmt.Sprintf("Clause %d of the policy.", i), i)
	}
	ingest(t, store, chunks...)

	answer, err := engine.Answer(ctx, "POL-1", "What do the clauses say?")
	require.NoError(t, err)
	assert.Len(t, answer.Sources, 2)
}
