// Package pipeline provides orchestration of the four-stage policy
// document ingestion chain.
//
// The Orchestrator type manages batch processing of policy documents:
//   - extract: structured fields and raw text are pulled from each document
//   - embed: the raw text is chunked and embedded
//   - store: chunks and the policy summary are written durably
//   - context_update: renewal date, roof age, and feature flags are computed
//
// Documents are processed concurrently on a worker pool; the four stages of
// a single policy always run in order. Each policy holds an advisory lock
// for the duration of its run, so at most one pipeline run is ever in
// flight per policy number. Transient collaborator failures are retried
// with bounded exponential backoff at stage granularity; input errors fail
// the stage immediately and configuration errors abort the remaining
// unstarted work of the batch.
//
// Task records track every run. Progress advances only on ok stage
// outcomes, so a task reads 100 exactly when it completed fully.
package pipeline
