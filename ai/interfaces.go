package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentExtractor turns raw document bytes into structured policy data.
// Implementations must be thread-safe for concurrent use.
type DocumentExtractor interface {
	// ExtractPolicy extracts structured fields and raw text from an insurance
	// policy document. The returned ExtractedPolicy carries the discovered
	// policy number; extraction fails with an input error when the document
	// is empty, unreadable, or carries no policy number.
	ExtractPolicy(ctx context.Context, document []byte, filename string) (*ExtractedPolicy, error)

	// ExtractInvoice extracts the installation date and work description from
	// a roofing invoice document. Used by the context_update stage to derive
	// roof age for a policy.
	ExtractInvoice(ctx context.Context, document []byte, filename string) (*ExtractedInvoice, error)
}

// AnswerGenerator produces a natural-language answer from retrieved context.
// Implementations must be thread-safe for concurrent use.
type AnswerGenerator interface {
	// GenerateAnswer answers the question using only the supplied context
	// text (concatenated retrieved chunks). Returns the answer text.
	GenerateAnswer(ctx context.Context, contextText, question string) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder, DocumentExtractor, and
// AnswerGenerator instances, ensuring they share configuration and resources
// appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Extractor returns the document extraction service.
	// The returned DocumentExtractor is safe for concurrent use.
	Extractor() DocumentExtractor

	// Generator returns the answer generation service.
	// The returned AnswerGenerator is safe for concurrent use.
	Generator() AnswerGenerator

	// Ping probes the backing services for reachability.
	// Returns nil when the services can be reached.
	Ping(ctx context.Context) error

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
