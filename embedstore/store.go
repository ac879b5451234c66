// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/storage"
)

// DefaultSearchK is how many chunks a search returns when the caller does
// not override k.
const DefaultSearchK = 5

// Store owns the embedded chunks of every policy. It embeds chunk text
// through the configured embedder, persists the vectors, and answers
// per-policy similarity searches. All stored and queried vectors must share
// one dimensionality; a mismatch is a configuration error, never a silent
// degradation.
type Store struct {
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger

	mu   sync.Mutex
	dims int // 0 until configured or learned from the first vector
}

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*Store)

// WithDimensions fixes the expected embedding vector length up front.
// Without it, the store learns the length from the first embedded vector.
func WithDimensions(dims int) StoreOption {
	return func(s *Store) {
		s.dims = dims
	}
}

// NewStore creates a Store over the chunk repository and embedder.
func NewStore(chunks storage.ChunkRepository, embedder ai.Embedder, opts ...StoreOption) *Store {
	s := &Store{
		chunks:   chunks,
		embedder: embedder,
		logger:   slog.Default().With("component", "embedstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embed populates the Vector field of each chunk by batch-embedding the
// chunk texts. Chunks are modified in place. Dimensionality is checked on
// every vector.
func (s *Store) Embed(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", core.ErrTransient, len(vectors), len(chunks))
	}

	for i, vector := range vectors {
		if err := s.checkDimensions(len(vector)); err != nil {
			return err
		}
		chunks[i].Vector = vector
	}

	s.logger.Debug("embedded chunks", "count", len(chunks))
	return nil
}

// Persist upserts embedded chunks. Every chunk must already carry a vector
// of the expected length. Returns the number of chunks written.
func (s *Store) Persist(ctx context.Context, chunks []*core.Chunk) (int, error) {
	for _, chunk := range chunks {
		if len(chunk.Vector) == 0 {
			return 0, fmt.Errorf("%w: chunk %s has no vector", core.ErrInput, chunk.Locator())
		}
		if err := s.checkDimensions(len(chunk.Vector)); err != nil {
			return 0, err
		}
	}

	count, err := s.chunks.UpsertChunks(ctx, chunks...)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("persisted chunks", "count", count)
	return count, nil
}

// Ingest embeds and persists chunks in one call.
// Returns the number of chunks written.
func (s *Store) Ingest(ctx context.Context, chunks []*core.Chunk) (int, error) {
	if err := s.Embed(ctx, chunks); err != nil {
		return 0, err
	}
	return s.Persist(ctx, chunks)
}

// Search returns the top k stored chunks of the policy by cosine similarity
// to the query vector. k defaults to DefaultSearchK when not positive.
// A policy with no chunks yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, policyNumber string, queryVector []float32, k int) ([]*core.ScoredChunk, error) {
	if k < 1 {
		k = DefaultSearchK
	}
	if err := s.checkDimensions(len(queryVector)); err != nil {
		return nil, err
	}
	return s.chunks.SearchSimilar(ctx, policyNumber, queryVector, k)
}

// Count returns the number of stored chunks for a policy.
func (s *Store) Count(ctx context.Context, policyNumber string) (int, error) {
	return s.chunks.CountChunks(ctx, policyNumber)
}

// Delete removes all stored chunks for a policy.
// Returns the number of chunks removed.
func (s *Store) Delete(ctx context.Context, policyNumber string) (int, error) {
	return s.chunks.DeleteChunks(ctx, policyNumber)
}

// Ping verifies the backing chunk storage is open and usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.chunks.Ping(ctx)
}

// Dimensions returns the current expected vector length, 0 when not yet
// configured or learned.
func (s *Store) Dimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims
}

// checkDimensions enforces one vector length across the store's lifetime.
// The first observed length wins when none was configured.
func (s *Store) checkDimensions(length int) error {
	if length == 0 {
		return fmt.Errorf("%w: zero-length vector", core.ErrConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dims == 0 {
		s.dims = length
		return nil
	}
	if length != s.dims {
		return fmt.Errorf("%w: vector length %d does not match expected %d", core.ErrConfig, length, s.dims)
	}
	return nil
}
