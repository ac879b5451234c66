package mock

import (
	"context"
	"strings"
	"sync"
)

// MockGenerator is a test double for ai.AnswerGenerator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateAnswerFunc is called by GenerateAnswer if set.
	// If nil, uses default context-line matching.
	GenerateAnswerFunc func(ctx context.Context, contextText, question string) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockGenerator creates a mock generator with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// GenerateAnswer returns the context line sharing the most words with the
// question, falling back to the first non-empty context line. This keeps
// answers grounded in retrieved text without a model call.
func (m *MockGenerator) GenerateAnswer(ctx context.Context, contextText, question string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.GenerateAnswerFunc != nil {
		return m.GenerateAnswerFunc(ctx, contextText, question)
	}

	questionWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, ".,!?;:\"'")
		if len(w) > 3 {
			questionWords[w] = struct{}{}
		}
	}

	var best string
	bestMatches := 0
	var first string
	for _, line := range strings.Split(contextText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		matches := 0
		for _, w := range strings.Fields(strings.ToLower(line)) {
			w = strings.Trim(w, ".,!?;:\"'")
			if _, ok := questionWords[w]; ok {
				matches++
			}
		}
		if matches > bestMatches {
			bestMatches = matches
			best = line
		}
	}

	if best != "" {
		return best, nil
	}
	if first != "" {
		return first, nil
	}
	return "No answer available.", nil
}

// CallCount returns the number of times GenerateAnswer was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	m.callCount = 0
	m.mu.Unlock()
	m.GenerateAnswerFunc = nil
}
