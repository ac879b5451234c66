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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Extractor implements ai.DocumentExtractor using OpenAI-compatible chat APIs.
type Extractor struct {
	client llms.Model
	logger *slog.Logger
}

// policyPayload matches the JSON structure the extraction model returns.
// All values arrive as strings; conversion happens after parsing.
type policyPayload struct {
	PolicyNumber     string `json:"policy_number"`
	InsurerName      string `json:"insurer_name"`
	PolicyholderName string `json:"policyholder_name"`
	PropertyAddress  string `json:"property_address"`
	EffectiveDate    string `json:"effective_date"`
	ExpirationDate   string `json:"expiration_date"`
	TotalPremium     string `json:"total_premium"`
	CoverageDetails  []struct {
		CoverageType string `json:"coverage_type"`
		Limit        string `json:"limit"`
	} `json:"coverage_details"`
	Deductibles []struct {
		CoverageType string `json:"coverage_type"`
		Amount       string `json:"amount"`
	} `json:"deductibles"`
}

// newExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newExtractor(config *ai.Config) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/extraction
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		client: client,
		logger: slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewExtractor creates a new document extractor using the provided configuration.
//
// Returns ai.DocumentExtractor interface to enforce abstraction.
func NewExtractor(config *ai.Config) (ai.DocumentExtractor, error) {
	return newExtractor(config)
}

// ExtractPolicy extracts structured fields and raw text from a policy document.
func (e *Extractor) ExtractPolicy(ctx context.Context, document []byte, filename string) (*ai.ExtractedPolicy, error) {
	text, err := documentText(document, filename)
	if err != nil {
		return nil, err
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(policyExtractionPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var payload policyPayload
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: extraction model: %v", core.ErrTransient, err)
		}

		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("no choices returned from model")
			continue
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &payload); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: parsing extraction response: %v", core.ErrTransient, lastErr)
	}

	payload.PolicyNumber = strings.TrimSpace(payload.PolicyNumber)
	if payload.PolicyNumber == "" {
		return nil, fmt.Errorf("%w: document %s carries no policy number", core.ErrInput, filename)
	}
	if err := core.ValidatePolicyNumber(payload.PolicyNumber); err != nil {
		return nil, err
	}

	extracted := &ai.ExtractedPolicy{
		PolicyNumber:     payload.PolicyNumber,
		InsurerName:      cleanInsurerName(payload.InsurerName),
		PolicyholderName: strings.TrimSpace(payload.PolicyholderName),
		PropertyAddress:  strings.TrimSpace(payload.PropertyAddress),
		TotalPremium:     parseMoney(payload.TotalPremium),
		Coverages:        mergeCoverages(payload),
		RawText:          text,
	}
	if t, ok := parseDate(payload.EffectiveDate); ok {
		extracted.EffectiveDate = t
	}
	if t, ok := parseDate(payload.ExpirationDate); ok {
		extracted.ExpirationDate = t
	}

	e.logger.Debug("extracted policy",
		"policy", extracted.PolicyNumber,
		"coverages", len(extracted.Coverages),
		"text_length", len(extracted.RawText))

	return extracted, nil
}

// ExtractInvoice extracts the installation date and work description from a
// roofing invoice. Invoices carry labeled date lines, so no model round-trip
// is needed; the preferred label wins, then the earliest date.
func (e *Extractor) ExtractInvoice(ctx context.Context, document []byte, filename string) (*ai.ExtractedInvoice, error) {
	text, err := documentText(document, filename)
	if err != nil {
		return nil, err
	}

	invoice := parseInvoiceText(text)
	if invoice.InstallationDate.IsZero() {
		e.logger.Warn("no dates found in invoice", "filename", filename)
	}
	return invoice, nil
}

// mergeCoverages joins coverage limits and deductibles by coverage type,
// preserving the order coverage types first appear in the document.
func mergeCoverages(payload policyPayload) []core.Coverage {
	index := make(map[string]int)
	coverages := make([]core.Coverage, 0, len(payload.CoverageDetails))

	for _, cd := range payload.CoverageDetails {
		ctype := strings.TrimSpace(cd.CoverageType)
		if ctype == "" {
			continue
		}
		if _, ok := index[ctype]; ok {
			continue
		}
		index[ctype] = len(coverages)
		coverages = append(coverages, core.Coverage{
			Type:  ctype,
			Limit: strings.TrimSpace(cd.Limit),
		})
	}

	for _, d := range payload.Deductibles {
		ctype := strings.TrimSpace(d.CoverageType)
		if i, ok := index[ctype]; ok {
			coverages[i].Deductible = strings.TrimSpace(d.Amount)
		}
	}

	return coverages
}

// cleanInsurerName strips trailing corporate suffixes the model tends to
// duplicate.
func cleanInsurerName(name string) string {
	name = strings.TrimSpace(name)
	for {
		trimmed := name
		for _, suffix := range []string{"Inc.", "LLC", ","} {
			trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, suffix))
		}
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// around its JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
