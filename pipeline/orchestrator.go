package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/chunker"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/embedstore"
	"github.com/poiesic/poliscope/storage"
)

const (
	// DefaultMaxAttempts bounds stage-level retries of transient failures.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the starting backoff delay between retries.
	DefaultBaseDelay = 500 * time.Millisecond
)

// Document is one submitted document blob plus its filename.
type Document struct {
	Filename string
	Data     []byte
}

// SubmitOptions holds optional parameters for batch submission.
type SubmitOptions struct {
	// Invoices maps policy numbers to roofing invoice documents. Each
	// invoice feeds the context_update stage of the policy it is linked
	// to. Linked policy numbers are locked at submission and stay locked
	// until their document's stage chain finishes, so a second submission
	// naming the same policy is rejected up front.
	Invoices map[string]Document
}

// Orchestrator drives the four-stage ingestion pipeline over submitted
// document batches. Each document is processed on its own worker; the four
// stages for one policy run strictly in order, while different policies
// interleave freely.
type Orchestrator struct {
	tasks    storage.TaskRepository
	policies storage.PolicyRepository
	store    *embedstore.Store
	provider ai.Provider
	splitter *chunker.Splitter
	pool     *ants.Pool
	locks    *policyLocks
	logger   *slog.Logger

	maxAttempts           int
	baseDelay             time.Duration
	renewalFromExpiration bool

	mu      sync.Mutex
	running map[core.TaskID]*taskState
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithRetry sets the stage-level retry policy for transient failures.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(o *Orchestrator) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.maxAttempts = maxAttempts
		o.baseDelay = baseDelay
		return nil
	}
}

// WithSplitter sets the chunker used during the embed stage.
func WithSplitter(splitter *chunker.Splitter) Option {
	return func(o *Orchestrator) error {
		if splitter != nil {
			o.splitter = splitter
		}
		return nil
	}
}

// WithRenewalFromExpiration controls whether the context_update stage
// defaults a policy's renewal date to its expiration date. Enabled by
// default.
func WithRenewalFromExpiration(enabled bool) Option {
	return func(o *Orchestrator) error {
		o.renewalFromExpiration = enabled
		return nil
	}
}

// NewOrchestrator creates a pipeline orchestrator over the given
// collaborators.
func NewOrchestrator(
	tasks storage.TaskRepository,
	policies storage.PolicyRepository,
	store *embedstore.Store,
	provider ai.Provider,
	opts ...Option,
) (*Orchestrator, error) {
	if tasks == nil {
		return nil, ErrTaskRepositoryRequired
	}
	if policies == nil {
		return nil, ErrPolicyRepositoryRequired
	}
	if store == nil {
		return nil, ErrEmbedStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		tasks:                 tasks,
		policies:              policies,
		store:                 store,
		provider:              provider,
		splitter:              chunker.NewSplitter(),
		pool:                  pool,
		locks:                 newPolicyLocks(),
		logger:                slog.Default(),
		maxAttempts:           DefaultMaxAttempts,
		baseDelay:             DefaultBaseDelay,
		renewalFromExpiration: true,
		running:               make(map[core.TaskID]*taskState),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// taskState tracks one in-flight batch. All mutable fields are guarded by
// mu; the embedded task copy is the authoritative record and is persisted
// after every change.
type taskState struct {
	mu        sync.Mutex
	task      *core.Task
	totalDocs int
	remaining int
	okSteps   int
	extractOK int
	cancelled bool
	fatalErr  error

	// owned holds every policy lock the task currently holds; unclaimed is
	// the subset pre-acquired through invoice links that no document has
	// claimed yet. Each pre-acquired policy may be claimed at most once.
	owned     map[string]struct{}
	unclaimed map[string]struct{}
}

// SubmitBatch accepts a batch of policy documents for asynchronous
// processing and returns the tracking task without waiting for workers.
// Invoice links in opts are validated and their policy numbers locked
// before any work is scheduled; a link to a policy already in flight
// rejects the whole submission.
func (o *Orchestrator) SubmitBatch(ctx context.Context, documents []Document, opts *SubmitOptions) (*core.Task, error) {
	if len(documents) == 0 {
		return nil, ErrNoDocuments
	}
	if opts == nil {
		opts = &SubmitOptions{}
	}

	for policyNumber := range opts.Invoices {
		if err := core.ValidatePolicyNumber(policyNumber); err != nil {
			return nil, fmt.Errorf("%w: invoice link: %v", core.ErrInput, err)
		}
	}

	// Lock invoice-linked policies up front, all or nothing.
	owned := make(map[string]struct{}, len(opts.Invoices))
	for policyNumber := range opts.Invoices {
		if !o.locks.TryAcquire(policyNumber) {
			for acquired := range owned {
				o.locks.Release(acquired)
			}
			return nil, fmt.Errorf("%w: %s", core.ErrPolicyInFlight, policyNumber)
		}
		owned[policyNumber] = struct{}{}
	}

	task := &core.Task{
		Id:     core.NewTaskID(),
		Kind:   core.TaskKindBatchProcess,
		Status: core.StatusPending,
	}
	created, err := o.tasks.CreateTask(ctx, task)
	if err != nil {
		for acquired := range owned {
			o.locks.Release(acquired)
		}
		return nil, err
	}

	unclaimed := make(map[string]struct{}, len(owned))
	for policyNumber := range owned {
		unclaimed[policyNumber] = struct{}{}
	}

	state := &taskState{
		task:      created,
		totalDocs: len(documents),
		remaining: len(documents),
		owned:     owned,
		unclaimed: unclaimed,
	}
	o.mu.Lock()
	o.running[created.Id] = state
	o.mu.Unlock()

	// Scheduling runs off the caller's goroutine so submission returns the
	// task immediately even when every worker is busy.
	go o.dispatch(state, documents, opts.Invoices)

	return snapshotTask(state), nil
}

// dispatch hands each document of a batch to the worker pool. Submit blocks
// while the pool is saturated, which is why dispatch runs detached from
// SubmitBatch.
func (o *Orchestrator) dispatch(state *taskState, documents []Document, invoices map[string]Document) {
	for _, doc := range documents {
		if err := o.pool.Submit(func() {
			o.runDocument(state, doc, invoices)
		}); err != nil {
			o.logger.Error("error scheduling document", "file", doc.Filename, "err", err)
			o.documentDone(state, func() {
				o.recordStep(state, core.StageExtract, "", core.OutcomeFailed, fmt.Sprintf("%s: could not schedule: %v", doc.Filename, err))
			})
		}
	}
}

// GetStatus returns the current task record.
func (o *Orchestrator) GetStatus(ctx context.Context, id core.TaskID) (*core.Task, error) {
	o.mu.Lock()
	state, ok := o.running[id]
	o.mu.Unlock()
	if ok {
		return snapshotTask(state), nil
	}
	return o.tasks.GetTask(ctx, id)
}

// Cancel marks a running task for cancellation. Stages already in flight
// complete on their own; remaining unstarted stages are skipped and the
// task ends partial. Returns ErrTaskNotRunning if the task has already
// reached a terminal status.
func (o *Orchestrator) Cancel(ctx context.Context, id core.TaskID) error {
	o.mu.Lock()
	state, ok := o.running[id]
	o.mu.Unlock()
	if ok {
		state.mu.Lock()
		state.cancelled = true
		state.mu.Unlock()
		o.logger.Info("task marked for cancellation", "task", id)
		return nil
	}

	task, err := o.tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTaskNotRunning, id, task.Status)
	}
	return fmt.Errorf("%w: %s", ErrTaskNotRunning, id)
}

// Release releases the worker pool. The orchestrator should not be used
// after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// acquirePolicy locks a policy number on behalf of one document. A policy
// pre-acquired through an invoice link is claimed by the first document
// that extracts it; a second document naming the same number is a conflict
// even within the same batch, so one policy never has two chains in flight.
func (o *Orchestrator) acquirePolicy(state *taskState, policyNumber string) bool {
	state.mu.Lock()
	if _, pending := state.unclaimed[policyNumber]; pending {
		delete(state.unclaimed, policyNumber)
		state.mu.Unlock()
		return true
	}
	state.mu.Unlock()

	if !o.locks.TryAcquire(policyNumber) {
		return false
	}
	state.mu.Lock()
	state.owned[policyNumber] = struct{}{}
	state.mu.Unlock()
	return true
}

// releasePolicy unlocks a policy once its document's stage chain has
// finished, so a long-running sibling document does not block resubmission.
// The owned check keeps the release idempotent against finalize, which
// frees whatever is left.
func (o *Orchestrator) releasePolicy(state *taskState, policyNumber string) {
	state.mu.Lock()
	_, held := state.owned[policyNumber]
	delete(state.owned, policyNumber)
	state.mu.Unlock()
	if held {
		o.locks.Release(policyNumber)
	}
}

// recordStep appends a step result to the task, recomputes progress, and
// persists the task record. Only ok outcomes advance progress, so a task
// reaches 100 exactly when every stage of every document succeeded.
func (o *Orchestrator) recordStep(state *taskState, stage core.Stage, policyNumber string, outcome core.StepOutcome, detail string) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.task.Steps = append(state.task.Steps, core.StepResult{
		Stage:        stage,
		PolicyNumber: policyNumber,
		Outcome:      outcome,
		Detail:       detail,
		RecordedAt:   time.Now().UTC(),
	})
	if outcome == core.OutcomeOK {
		state.okSteps++
		if stage == core.StageExtract {
			state.extractOK++
		}
	}
	state.task.Progress = 100 * state.okSteps / (4 * state.totalDocs)
	o.persistLocked(state)
}

// markProcessing transitions the task out of pending on the first stage
// attempt.
func (o *Orchestrator) markProcessing(state *taskState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.task.Status != core.StatusPending {
		return
	}
	state.task.Status = core.StatusProcessing
	o.persistLocked(state)
}

// halted reports whether remaining work should be skipped, along with the
// reason to record in step details.
func (state *taskState) halted() (bool, string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.fatalErr != nil {
		return true, fmt.Sprintf("aborted: %v", state.fatalErr)
	}
	if state.cancelled {
		return true, "cancelled"
	}
	return false, ""
}

// markFatal records a configuration error that aborts the remaining
// unstarted work of the whole batch.
func (state *taskState) markFatal(err error) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.fatalErr == nil {
		state.fatalErr = err
	}
}

// documentDone runs finish for one document (recording any final step
// results via the callback), and finalizes the task when it was the last
// one.
func (o *Orchestrator) documentDone(state *taskState, finish func()) {
	if finish != nil {
		finish()
	}

	state.mu.Lock()
	state.remaining--
	last := state.remaining == 0
	state.mu.Unlock()

	if last {
		o.finalize(state)
	}
}

// finalize assigns the terminal status once every document has finished,
// releases the task's policy locks, and drops it from the running set.
func (o *Orchestrator) finalize(state *taskState) {
	state.mu.Lock()
	switch {
	case state.fatalErr != nil:
		state.task.Status = core.StatusFailed
		state.task.Error = state.fatalErr.Error()
	case state.cancelled:
		state.task.Status = core.StatusPartial
	case state.extractOK == 0:
		state.task.Status = core.StatusFailed
		state.task.Error = "no policy could be extracted from the batch"
	case state.okSteps == 4*state.totalDocs:
		state.task.Status = core.StatusCompleted
	default:
		state.task.Status = core.StatusPartial
	}
	o.persistLocked(state)
	owned := state.owned
	state.owned = make(map[string]struct{})
	id := state.task.Id
	status := state.task.Status
	state.mu.Unlock()

	for policyNumber := range owned {
		o.locks.Release(policyNumber)
	}

	o.mu.Lock()
	delete(o.running, id)
	o.mu.Unlock()

	o.logger.Info("batch finished", "task", id, "status", status.String())
}

// persistLocked writes the task record. Callers hold state.mu.
func (o *Orchestrator) persistLocked(state *taskState) {
	if _, err := o.tasks.UpdateTask(context.Background(), state.task); err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrStorageClosed) {
			o.logger.Warn("task record unavailable", "task", state.task.Id, "err", err)
			return
		}
		o.logger.Error("error persisting task", "task", state.task.Id, "err", err)
	}
}

// snapshotTask copies the task record so callers never observe concurrent
// mutation.
func snapshotTask(state *taskState) *core.Task {
	state.mu.Lock()
	defer state.mu.Unlock()
	copied := *state.task
	copied.Steps = append([]core.StepResult(nil), state.task.Steps...)
	return &copied
}
