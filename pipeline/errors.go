package pipeline

import "errors"

var (
	// ErrTaskRepositoryRequired is returned when a task repository is not provided.
	ErrTaskRepositoryRequired = errors.New("task repository required")

	// ErrPolicyRepositoryRequired is returned when a policy repository is not provided.
	ErrPolicyRepositoryRequired = errors.New("policy repository required")

	// ErrEmbedStoreRequired is returned when an embedding store is not provided.
	ErrEmbedStoreRequired = errors.New("embedding store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrNoDocuments is returned when a batch is submitted with no documents.
	ErrNoDocuments = errors.New("no documents in batch")

	// ErrNoPolicyNumbers is returned when a step re-run names no policies.
	ErrNoPolicyNumbers = errors.New("no policy numbers given")

	// ErrTaskNotRunning is returned when cancelling a task that has already
	// reached a terminal status.
	ErrTaskNotRunning = errors.New("task is not running")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
