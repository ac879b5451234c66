package pipeline

import "context"

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Health reports collaborator reachability for the pipeline.
type Health struct {
	Status                     string
	EmbeddingStoreReachable    bool
	ExtractionServiceReachable bool
}

// Health probes the embedding store and the extraction service. The
// pipeline is degraded when either collaborator is unreachable; it never
// returns an error, since an unreachable collaborator is the answer, not a
// failure to answer.
func (o *Orchestrator) Health(ctx context.Context) *Health {
	h := &Health{
		Status:                     HealthOK,
		EmbeddingStoreReachable:    true,
		ExtractionServiceReachable: true,
	}
	if err := o.store.Ping(ctx); err != nil {
		o.logger.Warn("embedding store unreachable", "err", err)
		h.EmbeddingStoreReachable = false
		h.Status = HealthDegraded
	}
	if err := o.provider.Ping(ctx); err != nil {
		o.logger.Warn("extraction service unreachable", "err", err)
		h.ExtractionServiceReachable = false
		h.Status = HealthDegraded
	}
	return h
}
