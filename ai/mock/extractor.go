package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
)

// MockExtractor is a test double for ai.DocumentExtractor.
// It allows custom behavior injection via function fields.
// Safe for concurrent use; the pipeline extracts from multiple workers.
type MockExtractor struct {
	// ExtractPolicyFunc is called by ExtractPolicy if set.
	// If nil, uses default labeled-line parsing of the document text.
	ExtractPolicyFunc func(ctx context.Context, document []byte, filename string) (*ai.ExtractedPolicy, error)

	// ExtractInvoiceFunc is called by ExtractInvoice if set.
	// If nil, uses default labeled-line parsing of the document text.
	ExtractInvoiceFunc func(ctx context.Context, document []byte, filename string) (*ai.ExtractedInvoice, error)

	mu        sync.Mutex
	callCount int
}

// NewMockExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// ExtractPolicy parses the document bytes as labeled plain text.
// Default behavior understands lines of the form "Key: Value":
//
//	Policy Number: POL-1
//	Insurer: Hawkeye Insurance Group
//	Effective Date: 2025-06-02
//	Dwelling Coverage: $300,000
//
// Lines ending in "Coverage" before the colon become coverage entries.
// A document without a "Policy Number" line is an input error.
func (m *MockExtractor) ExtractPolicy(ctx context.Context, document []byte, filename string) (*ai.ExtractedPolicy, error) {
	m.recordCall()

	if m.ExtractPolicyFunc != nil {
		return m.ExtractPolicyFunc(ctx, document, filename)
	}

	if len(document) == 0 {
		return nil, fmt.Errorf("%w: document %s is empty", core.ErrInput, filename)
	}

	text := string(document)
	extracted := &ai.ExtractedPolicy{RawText: text}

	for _, line := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		if label == "" || value == "" {
			continue
		}

		switch {
		case strings.EqualFold(label, "Policy Number"):
			extracted.PolicyNumber = value
		case strings.EqualFold(label, "Insurer"), strings.EqualFold(label, "Insurer Name"):
			extracted.InsurerName = value
		case strings.EqualFold(label, "Policyholder"), strings.EqualFold(label, "Policyholder Name"):
			extracted.PolicyholderName = value
		case strings.EqualFold(label, "Property Address"):
			extracted.PropertyAddress = value
		case strings.EqualFold(label, "Effective Date"):
			extracted.EffectiveDate = parseMockDate(value)
		case strings.EqualFold(label, "Expiration Date"):
			extracted.ExpirationDate = parseMockDate(value)
		case strings.EqualFold(label, "Total Premium"), strings.EqualFold(label, "Premium"):
			extracted.TotalPremium = parseMockMoney(value)
		case strings.HasSuffix(label, "Coverage"):
			extracted.Coverages = append(extracted.Coverages, core.Coverage{
				Type:  label,
				Limit: value,
			})
		}
	}

	if extracted.PolicyNumber == "" {
		return nil, fmt.Errorf("%w: document %s carries no policy number", core.ErrInput, filename)
	}
	return extracted, nil
}

// ExtractInvoice parses the document bytes for an "Installation Date" line.
func (m *MockExtractor) ExtractInvoice(ctx context.Context, document []byte, filename string) (*ai.ExtractedInvoice, error) {
	m.recordCall()

	if m.ExtractInvoiceFunc != nil {
		return m.ExtractInvoiceFunc(ctx, document, filename)
	}

	if len(document) == 0 {
		return nil, fmt.Errorf("%w: document %s is empty", core.ErrInput, filename)
	}

	invoice := &ai.ExtractedInvoice{}
	for _, line := range strings.Split(string(document), "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		switch {
		case strings.EqualFold(label, "Installation Date"):
			invoice.InstallationDate = parseMockDate(value)
		case strings.EqualFold(label, "Work Description"), strings.EqualFold(label, "Description"):
			invoice.WorkDescription = value
		}
	}
	return invoice, nil
}

// CallCount returns the number of times any method was called.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.mu.Lock()
	m.callCount = 0
	m.mu.Unlock()
	m.ExtractPolicyFunc = nil
	m.ExtractInvoiceFunc = nil
}

func (m *MockExtractor) recordCall() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

func parseMockDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseMockMoney(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil {
		return 0
	}
	return value
}
