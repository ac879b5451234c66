package poliscope

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/poliscope/ai/mock"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystem(t *testing.T) {
	t.Run("create new system", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		sys, err := NewSystem(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, sys)
		defer sys.Close()

		assert.NotNil(t, sys.TaskRepository())
		assert.NotNil(t, sys.ChunkRepository())
		assert.NotNil(t, sys.PolicyRepository())
		assert.NotNil(t, sys.EmbedStore())
		assert.NotNil(t, sys.backend)
		assert.NotNil(t, sys.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		sys, err := NewSystem(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, sys)
	})
}

func TestSystem_Close(t *testing.T) {
	sys, err := NewSystem("", WithInMemory())
	require.NoError(t, err)
	require.NotNil(t, sys)

	err = sys.Close()
	assert.NoError(t, err)
}

func TestSystem_FactoryMethods(t *testing.T) {
	sys, err := NewSystem("", WithInMemory(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer sys.Close()

	t.Run("can create orchestrator", func(t *testing.T) {
		orch, err := sys.NewOrchestrator()
		require.NoError(t, err)
		require.NotNil(t, orch)
		orch.Release()
	})

	t.Run("can create query engine", func(t *testing.T) {
		engine, err := sys.NewQueryEngine()
		require.NoError(t, err)
		require.NotNil(t, engine)
	})
}

func TestSystem_Health(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	sys, err := NewSystem("", WithInMemory(), WithProvider(provider))
	require.NoError(t, err)
	defer sys.Close()

	h := sys.Health(context.Background())
	assert.Equal(t, pipeline.HealthOK, h.Status)
	assert.True(t, h.EmbeddingStoreReachable)
	assert.True(t, h.ExtractionServiceReachable)

	provider.PingErr = errors.New("connection refused")
	h = sys.Health(context.Background())
	assert.Equal(t, pipeline.HealthDegraded, h.Status)
	assert.True(t, h.EmbeddingStoreReachable)
	assert.False(t, h.ExtractionServiceReachable)
}

// wordVector embeds text as a normalized bag-of-words vector, so texts
// sharing words score positive cosine similarity. Stands in for a real
// embedding model in the end-to-end test.
func wordVector(text string) []float32 {
	const dims = 64
	vec := make([]float32, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:$()\"'")
		if word == "" {
			continue
		}
		h := fnv.New64a()
		h.Write([]byte(word))
		seed := h.Sum64()
		for i := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] += float32(int32(seed>>33)) / float32(1<<31)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}

func TestSystemEndToEnd(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return wordVector(text), nil
	}
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = wordVector(text)
		}
		return vectors, nil
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockExtractor(), mock.NewMockGenerator())

	sys, err := NewSystem("", WithInMemory(), WithProvider(provider))
	require.NoError(t, err)
	defer sys.Close()

	orch, err := sys.NewOrchestrator(pipeline.WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	defer orch.Release()

	ctx := context.Background()
	doc := pipeline.Document{
		Filename: "pol-1.txt",
		Data: []byte(`Policy Number: POL-1
Insurer: Hawkeye Mutual
Effective Date: 2025-01-01
Expiration Date: 2026-01-01
Dwelling Coverage: $300,000
`),
	}
	task, err := orch.SubmitBatch(ctx, []pipeline.Document{doc}, nil)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for {
		current, statusErr := orch.GetStatus(ctx, task.Id)
		require.NoError(t, statusErr)
		if current.Status.Terminal() {
			require.Equal(t, core.StatusCompleted, current.Status)
			break
		}
		require.True(t, time.Now().Before(deadline), "pipeline never finished")
		time.Sleep(5 * time.Millisecond)
	}

	engine, err := sys.NewQueryEngine()
	require.NoError(t, err)

	answer, err := engine.Answer(ctx, "POL-1", "What is the dwelling coverage limit?")
	require.NoError(t, err)
	assert.Greater(t, answer.Confidence, float32(0))

	found := false
	for _, source := range answer.Sources {
		if strings.Contains(source.Chunk.Text, "Dwelling Coverage") {
			found = true
		}
	}
	assert.True(t, found, "sources should include the dwelling coverage chunk")
}
