package chunker

import (
	"strings"
	"testing"
	"time"

	"github.com/poiesic/poliscope/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePolicy() *core.PolicySummary {
	return &core.PolicySummary{
		PolicyNumber:     "POL-1",
		InsurerName:      "Hawkeye Insurance Group",
		PolicyholderName: "Michael Kline",
		PropertyAddress:  "123 Main St, Anytown, IA 50001",
		EffectiveDate:    time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		ExpirationDate:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		TotalPremium:     1710,
		Coverages: []core.Coverage{
			{Type: "Coverage A - Dwelling", Limit: "$300,000", Deductible: "$1,000"},
			{Type: "Coverage B - Other Structures", Limit: "$30,000"},
		},
		RawText:        "HOMEOWNERS POLICY\nDwelling Coverage: $300,000\nOther Structures: $30,000\n\nEXCLUSIONS\nFlood damage is not covered.",
		SourceFilename: "pol1.pdf",
	}
}

func TestSplitPolicy(t *testing.T) {
	s := NewSplitter()
	chunks := s.SplitPolicy(samplePolicy())
	require.NotEmpty(t, chunks)

	// Structured chunks come first
	assert.Equal(t, "policy_details", chunks[0].SectionLabel)
	assert.Contains(t, chunks[0].Text, "Policy Number: POL-1")
	assert.Contains(t, chunks[0].Text, "Total Premium: $1710.00")

	assert.Equal(t, "coverage_1", chunks[1].SectionLabel)
	assert.Contains(t, chunks[1].Text, "Coverage A - Dwelling")
	assert.Contains(t, chunks[1].Text, "Limit: $300,000")
	assert.Contains(t, chunks[1].Text, "Deductible: $1,000")
	assert.Equal(t, "coverage_2", chunks[2].SectionLabel)

	// Raw text sections follow, labeled from their headings
	labels := make([]string, 0, len(chunks))
	for _, c := range chunks {
		labels = append(labels, c.SectionLabel)
	}
	assert.Contains(t, labels, "homeowners_policy")
	assert.Contains(t, labels, "exclusions")

	// Every chunk carries the policy number, filename, and sequential ordinals
	for i, c := range chunks {
		assert.Equal(t, "POL-1", c.PolicyNumber)
		assert.Equal(t, "pol1.pdf", c.SourceFilename)
		assert.Equal(t, i, c.Ordinal)
		assert.NotZero(t, c.Id)
		assert.Nil(t, c.Vector)
	}

	// The dwelling coverage line survives into some chunk
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, "Dwelling Coverage: $300,000") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSplitPolicyDeterministic(t *testing.T) {
	s := NewSplitter()
	a := s.SplitPolicy(samplePolicy())
	b := s.SplitPolicy(samplePolicy())

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Id, b[i].Id)
		assert.Equal(t, a[i].Ordinal, b[i].Ordinal)
		assert.Equal(t, a[i].SectionLabel, b[i].SectionLabel)
		assert.Equal(t, a[i].Text, b[i].Text)
	}
}

func TestSplitWindowsLongSections(t *testing.T) {
	s := NewSplitter(WithMaxChunkLen(100), WithOverlap(20))

	long := strings.Repeat("the quick brown fox jumps over the lazy dog ", 10)
	chunks := s.Split("POL-2", "pol2.pdf", long)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 100)
		assert.Equal(t, "general", c.SectionLabel)
	}

	// Consecutive chunks overlap
	first := chunks[0].Text
	second := chunks[1].Text
	assert.Equal(t, first[len(first)-20:], second[:20])
}

func TestSplitNoHeadings(t *testing.T) {
	s := NewSplitter()
	chunks := s.Split("POL-3", "pol3.pdf", "plain text without any headings at all")

	require.Len(t, chunks, 1)
	assert.Equal(t, "general", chunks[0].SectionLabel)
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter()
	assert.Empty(t, s.Split("POL-4", "pol4.pdf", ""))
	assert.Empty(t, s.Split("POL-4", "pol4.pdf", "   \n\n  "))
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"EXCLUSIONS", true},
		{"Coverages:", true},
		{"HOMEOWNERS POLICY", true},
		{"Dwelling Coverage: $300,000", false},
		{"plain sentence here", false},
		{"", false},
		{strings.Repeat("A", 80), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isHeading(tt.line), "line %q", tt.line)
	}
}

func TestHeadingLabel(t *testing.T) {
	assert.Equal(t, "coverage_summary", headingLabel("COVERAGE SUMMARY:"))
	assert.Equal(t, "exclusions", headingLabel("Exclusions"))
	assert.Equal(t, "general", headingLabel(":"))
}
