package query

import "github.com/poiesic/poliscope/core"

// QueryMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during answering.
type QueryMonitor interface {
	Start(policyNumber, question string)
	AfterQuestionEmbedding(vector []float32)
	AfterSearch(matches []*core.ScoredChunk)
	Finish(answer *core.Answer)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                  {}
func (n *noopMonitor) AfterQuestionEmbedding(_ []float32) {}
func (n *noopMonitor) AfterSearch(_ []*core.ScoredChunk)  {}
func (n *noopMonitor) Finish(_ *core.Answer)              {}
