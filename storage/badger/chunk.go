package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository over the shared backend.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *ChunkRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertChunks writes chunks, overwriting any chunk with the same locator.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks ...*core.Chunk) (int, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return 0, err
		}
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Microsecond precision matches what the value encoding persists,
		// so the in-memory record equals the stored one.
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.PolicyNumber, chunk.SourceFilename, chunk.Ordinal)

			// Preserve the first-write timestamp across overwrites
			existing, err := readChunk(tx, key)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if existing != nil {
				chunk.InsertedAt = existing.InsertedAt
			} else if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = now
			}
			chunk.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			count++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetChunks retrieves all chunks for a policy in key order, which is source
// filename then ordinal.
func (r *ChunkRepository) GetChunks(ctx context.Context, policyNumber string) ([]*core.Chunk, error) {
	if err := core.ValidatePolicyNumber(policyNumber); err != nil {
		return nil, err
	}

	chunks := []*core.Chunk{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(policyNumber)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// CountChunks returns the number of stored chunks for a policy.
func (r *ChunkRepository) CountChunks(ctx context.Context, policyNumber string) (int, error) {
	if err := core.ValidatePolicyNumber(policyNumber); err != nil {
		return 0, err
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(policyNumber)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteChunks removes all chunks for a policy.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, policyNumber string) (int, error) {
	if err := core.ValidatePolicyNumber(policyNumber); err != nil {
		return 0, err
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(policyNumber)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
			count++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// SearchSimilar scores every chunk of the policy by cosine similarity and
// returns the top k, ties broken by chunk ordinal.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, policyNumber string, vector []float32, k int) ([]*core.ScoredChunk, error) {
	if err := core.ValidatePolicyNumber(policyNumber); err != nil {
		return nil, err
	}
	if k < 1 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	results := []*core.ScoredChunk{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(policyNumber)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip chunks without embeddings
			if len(chunk.Vector) == 0 {
				continue
			}

			results = append(results, &core.ScoredChunk{
				Chunk: chunk,
				Score: cosineSimilarity(vector, chunk.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by score descending, ordinal ascending on ties
	slices.SortFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Chunk.Ordinal < b.Chunk.Ordinal {
			return -1
		}
		if a.Chunk.Ordinal > b.Chunk.Ordinal {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// readChunk reads and unmarshals a chunk by key within a transaction.
// Returns storage.ErrNotFound when the key is absent.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chunk, nil
}
