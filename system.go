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


package poliscope

import (
	"context"
	"log/slog"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/ai/openai"
	"github.com/poiesic/poliscope/embedstore"
	"github.com/poiesic/poliscope/pipeline"
	"github.com/poiesic/poliscope/query"
	"github.com/poiesic/poliscope/storage"
	"github.com/poiesic/poliscope/storage/badger"
)

// System wires the storage backend, the AI provider, and the embedding
// store together and hands out pipeline orchestrators and query engines
// built on them.
type System struct {
	backend    *badger.Backend
	taskRepo   storage.TaskRepository
	chunkRepo  storage.ChunkRepository
	policyRepo storage.PolicyRepository
	provider   ai.Provider
	store      *embedstore.Store
	logger     *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig  *ai.Config
	provider  ai.Provider
	inMemory  bool
	storeOpts []embedstore.StoreOption
}

// WithAIConfig sets the AI service configuration used to build the
// provider. Ignored when WithProvider is also given.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects a prebuilt AI provider instead of constructing one
// from configuration. Used by tests to run against mocks.
func WithProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithInMemory opens the storage backend in memory, without touching disk.
func WithInMemory() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// WithStoreOptions passes options through to the embedding store.
func WithStoreOptions(opts ...embedstore.StoreOption) SystemOption {
	return func(o *systemOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// NewSystem opens the storage backend at filePath and builds the shared
// repositories, AI provider, and embedding store.
func NewSystem(filePath string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	taskRepo := badger.NewTaskRepository(backend)
	chunkRepo := badger.NewChunkRepository(backend)
	policyRepo := badger.NewPolicyRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
		if options.aiConfig.EmbeddingDimensions > 0 {
			options.storeOpts = append([]embedstore.StoreOption{
				embedstore.WithDimensions(options.aiConfig.EmbeddingDimensions),
			}, options.storeOpts...)
		}
	}

	return &System{
		backend:    backend,
		taskRepo:   taskRepo,
		chunkRepo:  chunkRepo,
		policyRepo: policyRepo,
		provider:   provider,
		store:      embedstore.NewStore(chunkRepo, provider.Embedder(), options.storeOpts...),
		logger:     slog.Default(),
	}, nil
}

// Close releases the AI provider and the storage backend.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.taskRepo.Close(); err != nil {
		s.logger.Error("error closing task repository", "err", err)
		return err
	}
	if err := s.chunkRepo.Close(); err != nil {
		s.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := s.policyRepo.Close(); err != nil {
		s.logger.Error("error closing policy repository", "err", err)
		return err
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *System) TaskRepository() storage.TaskRepository {
	return s.taskRepo
}

func (s *System) ChunkRepository() storage.ChunkRepository {
	return s.chunkRepo
}

func (s *System) PolicyRepository() storage.PolicyRepository {
	return s.policyRepo
}

func (s *System) EmbedStore() *embedstore.Store {
	return s.store
}

func (s *System) NewOrchestrator(opts ...pipeline.Option) (*pipeline.Orchestrator, error) {
	return pipeline.NewOrchestrator(s.taskRepo, s.policyRepo, s.store, s.provider, opts...)
}

func (s *System) NewQueryEngine(opts ...query.Option) (*query.Engine, error) {
	return query.NewEngine(s.store, s.provider, opts...)
}

// Health probes the embedding store and the extraction service without
// constructing an orchestrator.
func (s *System) Health(ctx context.Context) *pipeline.Health {
	h := &pipeline.Health{
		Status:                     pipeline.HealthOK,
		EmbeddingStoreReachable:    true,
		ExtractionServiceReachable: true,
	}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("embedding store unreachable", "err", err)
		h.EmbeddingStoreReachable = false
		h.Status = pipeline.HealthDegraded
	}
	if err := s.provider.Ping(ctx); err != nil {
		s.logger.Warn("extraction service unreachable", "err", err)
		h.ExtractionServiceReachable = false
		h.Status = pipeline.HealthDegraded
	}
	return h
}
