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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// It manages embedder, extractor, and generator instances.
type Provider struct {
	config    *ai.Config
	embedder  *Embedder
	extractor *Extractor
	generator *Generator
	logger    *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create embedder (using internal constructor for concrete type)
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	// Create document extractor (using internal constructor for concrete type)
	extractor, err := newExtractor(config)
	if err != nil {
		return nil, err
	}

	// Create answer generator (using internal constructor for concrete type)
	generator, err := newGenerator(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		embedder:  embedder,
		extractor: extractor,
		generator: generator,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Extractor returns the document extraction service.
func (p *Provider) Extractor() ai.DocumentExtractor {
	return p.extractor
}

// Generator returns the answer generation service.
func (p *Provider) Generator() ai.AnswerGenerator {
	return p.generator
}

// Ping probes each distinct configured host with a GET request.
// Any HTTP response counts as reachable; only connection failures are errors.
func (p *Provider) Ping(ctx context.Context) error {
	hosts := map[string]struct{}{
		p.config.EmbeddingHost: {},
		p.config.ExtractorHost: {},
		p.config.GeneratorHost: {},
	}

	client := &http.Client{Timeout: 5 * time.Second}
	for host := range hosts {
		url := strings.TrimSuffix(host, "/v1")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("%w: building ping request for %s: %v", core.ErrConfig, host, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			p.logger.Warn("AI host unreachable", "host", host, "err", err)
			return fmt.Errorf("%w: host %s unreachable: %v", core.ErrTransient, host, err)
		}
		resp.Body.Close()
	}
	return nil
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
