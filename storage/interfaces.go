package storage

import (
	"context"

	"github.com/poiesic/poliscope/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Ping verifies the backing store is open and usable.
	Ping(ctx context.Context) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// TaskRepository provides operations for managing pipeline task records.
type TaskRepository interface {
	Repository

	// CreateTask persists a new task record.
	// Sets CreatedAt and UpdatedAt timestamps if not already set.
	// Returns ErrDuplicateKey if a task with the same ID already exists.
	CreateTask(ctx context.Context, task *core.Task) (*core.Task, error)

	// GetTask retrieves a task by ID.
	// Returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, id core.TaskID) (*core.Task, error)

	// UpdateTask overwrites an existing task record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the task doesn't exist.
	UpdateTask(ctx context.Context, task *core.Task) (*core.Task, error)
}

// ChunkRepository provides operations for managing embedded text chunks.
// Chunks are keyed by (policy number, source filename, ordinal), so writing
// the same chunk twice overwrites rather than duplicates.
type ChunkRepository interface {
	Repository

	// UpsertChunks writes chunks, overwriting any chunk with the same
	// locator. Sets InsertedAt on first write and UpdatedAt always.
	// Returns the number of chunks written.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) (int, error)

	// GetChunks retrieves all chunks for a policy, ordered by source
	// filename then ordinal. Returns an empty slice when the policy has
	// no chunks.
	GetChunks(ctx context.Context, policyNumber string) ([]*core.Chunk, error)

	// CountChunks returns the number of stored chunks for a policy.
	CountChunks(ctx context.Context, policyNumber string) (int, error)

	// DeleteChunks removes all chunks for a policy.
	// Returns the number of chunks removed.
	DeleteChunks(ctx context.Context, policyNumber string) (int, error)

	// SearchSimilar scores every chunk of the policy by cosine similarity
	// against the query vector and returns the top k by descending score,
	// ties broken by chunk ordinal. Returns an empty slice (not an error)
	// when the policy has no chunks.
	SearchSimilar(ctx context.Context, policyNumber string, vector []float32, k int) ([]*core.ScoredChunk, error)
}

// PolicyRepository provides operations for managing structured policy
// summaries, queryable by policy number.
type PolicyRepository interface {
	Repository

	// UpsertPolicy writes a policy summary, overwriting any existing
	// summary for the same policy number. Sets InsertedAt on first write
	// and UpdatedAt always.
	UpsertPolicy(ctx context.Context, summary *core.PolicySummary) (*core.PolicySummary, error)

	// GetPolicy retrieves a policy summary by policy number.
	// Returns ErrNotFound if no summary exists.
	GetPolicy(ctx context.Context, policyNumber string) (*core.PolicySummary, error)

	// ListPolicyNumbers returns all stored policy numbers in ascending order.
	ListPolicyNumbers(ctx context.Context) ([]string, error)
}
