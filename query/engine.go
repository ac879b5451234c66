package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/embedstore"
)

// NoInformationAnswer is returned when a policy has no chunks relevant to
// the question.
const NoInformationAnswer = "No relevant information was found for this policy."

// Engine answers natural-language questions about a single policy using
// retrieval-augmented lookup over the embedding store.
type Engine struct {
	store     *embedstore.Store
	embedder  ai.Embedder
	generator ai.AnswerGenerator
	topK      int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithTopK sets how many chunks are retrieved as answer context.
// Default is embedstore.DefaultSearchK.
func WithTopK(k int) Option {
	return func(e *Engine) error {
		if k > 0 {
			e.topK = k
		}
		return nil
	}
}

// NewEngine creates a new query engine.
func NewEngine(store *embedstore.Store, provider ai.Provider, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrEmbedStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		store:     store,
		embedder:  provider.Embedder(),
		generator: provider.Generator(),
		topK:      embedstore.DefaultSearchK,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Answer answers a question about one policy.
func (e *Engine) Answer(ctx context.Context, policyNumber, question string) (*core.Answer, error) {
	return e.AnswerWithMonitor(ctx, policyNumber, question, nil)
}

// AnswerWithMonitor answers a question about one policy with monitoring.
// The monitor receives callbacks at each stage of retrieval.
//
// The question is embedded with the same collaborator used at ingestion;
// an embedding of a different dimensionality fails fast with a
// configuration error. A policy with no relevant chunks yields
// NoInformationAnswer with zero confidence, never an error.
func (e *Engine) AnswerWithMonitor(ctx context.Context, policyNumber, question string, monitor QueryMonitor) (*core.Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if err := core.ValidatePolicyNumber(policyNumber); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInput, ErrEmptyQuestion)
	}

	monitor.Start(policyNumber, question)

	vector, err := e.embedder.EmbedText(ctx, question)
	if err != nil {
		e.logger.Error("error embedding question", "policy", policyNumber, "err", err)
		return nil, err
	}
	monitor.AfterQuestionEmbedding(vector)

	matches, err := e.store.Search(ctx, policyNumber, vector, e.topK)
	if err != nil {
		e.logger.Error("error searching chunks", "policy", policyNumber, "err", err)
		return nil, err
	}
	monitor.AfterSearch(matches)

	if len(matches) == 0 {
		answer := &core.Answer{
			Text:       NoInformationAnswer,
			Sources:    []*core.ScoredChunk{},
			Confidence: 0,
		}
		monitor.Finish(answer)
		return answer, nil
	}

	text, err := e.generator.GenerateAnswer(ctx, buildContext(matches), question)
	if err != nil {
		e.logger.Error("error generating answer", "policy", policyNumber, "err", err)
		return nil, err
	}

	answer := &core.Answer{
		Text:       text,
		Sources:    matches,
		Confidence: confidence(matches[0].Score),
	}
	monitor.Finish(answer)
	return answer, nil
}

// buildContext assembles the retrieved chunks into the answer-generation
// context, best match first, each chunk prefixed with its section label.
func buildContext(matches []*core.ScoredChunk) string {
	var b strings.Builder
	for i, match := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(match.Chunk.SectionLabel)
		b.WriteString("]\n")
		b.WriteString(match.Chunk.Text)
	}
	return b.String()
}

// confidence maps the top chunk's cosine similarity to [0, 1]. Negative
// similarity means the best available chunk points away from the question,
// which is no confidence at all.
func confidence(topScore float32) float32 {
	if topScore <= 0 {
		return 0
	}
	if topScore >= 1 {
		return 1
	}
	return topScore
}
