package openai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"ISO format", "2025-06-02", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), true},
		{"long month", "June 2, 2025", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), true},
		{"short month", "Jun 2, 2025", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), true},
		{"slash format", "06/02/2025", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), true},
		{"with whitespace", "  2025-06-02  ", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "not a date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	assert.Equal(t, 300000.0, parseMoney("$300,000"))
	assert.Equal(t, 1710.0, parseMoney("1710.00"))
	assert.Equal(t, 1000.5, parseMoney(" $1,000.50 "))
	assert.Equal(t, 0.0, parseMoney(""))
	assert.Equal(t, 0.0, parseMoney("n/a"))
}

func TestMergeCoverages(t *testing.T) {
	payload := policyPayload{}
	payload.CoverageDetails = []struct {
		CoverageType string `json:"coverage_type"`
		Limit        string `json:"limit"`
	}{
		{CoverageType: "Coverage A - Dwelling", Limit: "300000.00"},
		{CoverageType: "Coverage B - Other Structures", Limit: "30000.00"},
		{CoverageType: "Coverage A - Dwelling", Limit: "999999.00"}, // duplicate ignored
	}
	payload.Deductibles = []struct {
		CoverageType string `json:"coverage_type"`
		Amount       string `json:"amount"`
	}{
		{CoverageType: "Coverage A - Dwelling", Amount: "1000.00"},
		{CoverageType: "Unknown Coverage", Amount: "500.00"}, // no matching coverage
	}

	coverages := mergeCoverages(payload)
	require.Len(t, coverages, 2)
	assert.Equal(t, "Coverage A - Dwelling", coverages[0].Type)
	assert.Equal(t, "300000.00", coverages[0].Limit)
	assert.Equal(t, "1000.00", coverages[0].Deductible)
	assert.Equal(t, "Coverage B - Other Structures", coverages[1].Type)
	assert.Empty(t, coverages[1].Deductible)
}

func TestParseInvoiceText(t *testing.T) {
	t.Run("preferred label wins", func(t *testing.T) {
		text := "Invoice Date: 2024-03-01\nInstallation Date: 2015-07-15\nWork Description: Full roof replacement"

		invoice := parseInvoiceText(text)
		assert.Equal(t, time.Date(2015, 7, 15, 0, 0, 0, 0, time.UTC), invoice.InstallationDate)
		assert.Equal(t, "Full roof replacement", invoice.WorkDescription)
	})

	t.Run("falls back to earliest date", func(t *testing.T) {
		text := "Some Date: 2020-01-01\nAnother Date: 2018-05-05"

		invoice := parseInvoiceText(text)
		assert.Equal(t, time.Date(2018, 5, 5, 0, 0, 0, 0, time.UTC), invoice.InstallationDate)
	})

	t.Run("no dates", func(t *testing.T) {
		invoice := parseInvoiceText("no labeled lines here")
		assert.True(t, invoice.InstallationDate.IsZero())
	})
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}

func TestRepairJSON(t *testing.T) {
	// Missing opening quote before a key
	assert.Equal(t, `{"policy_number": "POL-1"}`, repairJSON(`{policy_number": "POL-1"}`))
	// Well-formed input passes through
	assert.Equal(t, `{"a": 1, "b": 2}`, repairJSON(`{"a": 1, "b": 2}`))
}
