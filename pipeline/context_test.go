package pipeline

import (
	"testing"
	"time"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
	"github.com/stretchr/testify/assert"
)

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestYearsSince(t *testing.T) {
	now := date(2026, 8, 30)

	tests := []struct {
		name string
		then time.Time
		want int
	}{
		{"anniversary passed", date(2010, 5, 1), 16},
		{"anniversary today", date(2010, 8, 30), 16},
		{"anniversary not yet reached", date(2010, 11, 1), 15},
		{"same month later day", date(2010, 8, 31), 15},
		{"under a year", date(2026, 1, 10), 0},
		{"future date", date(2027, 1, 1), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, yearsSince(tc.then, now))
		})
	}
}

func TestApplyContextSignalsRenewal(t *testing.T) {
	now := date(2026, 8, 30)

	summary := &core.PolicySummary{
		PolicyNumber:   "POL-1",
		ExpirationDate: date(2026, 10, 1),
	}
	applyContextSignals(summary, nil, true, now)
	assert.Equal(t, summary.ExpirationDate, summary.RenewalDate)
	assert.Contains(t, summary.Features, "renewal_upcoming")

	// A renewal further out than the lead window is not flagged.
	summary = &core.PolicySummary{
		PolicyNumber:   "POL-2",
		ExpirationDate: date(2027, 8, 1),
	}
	applyContextSignals(summary, nil, true, now)
	assert.Equal(t, summary.ExpirationDate, summary.RenewalDate)
	assert.NotContains(t, summary.Features, "renewal_upcoming")
}

func TestApplyContextSignalsRenewalDisabled(t *testing.T) {
	summary := &core.PolicySummary{
		PolicyNumber:   "POL-1",
		ExpirationDate: date(2026, 10, 1),
	}
	applyContextSignals(summary, nil, false, date(2026, 8, 30))
	assert.True(t, summary.RenewalDate.IsZero())
}

func TestApplyContextSignalsKeepsExistingRenewal(t *testing.T) {
	explicit := date(2026, 12, 15)
	summary := &core.PolicySummary{
		PolicyNumber:   "POL-1",
		ExpirationDate: date(2026, 10, 1),
		RenewalDate:    explicit,
	}
	applyContextSignals(summary, nil, true, date(2026, 8, 30))
	assert.Equal(t, explicit, summary.RenewalDate)
}

func TestApplyContextSignalsRoofAge(t *testing.T) {
	now := date(2026, 8, 30)

	summary := &core.PolicySummary{PolicyNumber: "POL-1"}
	invoice := &ai.ExtractedInvoice{InstallationDate: date(2008, 4, 12)}
	applyContextSignals(summary, invoice, true, now)
	assert.Equal(t, 18, summary.RoofAgeYears)
	assert.Contains(t, summary.Features, "aging_roof")
	assert.NotContains(t, summary.Features, "recent_roof_replacement")

	summary = &core.PolicySummary{PolicyNumber: "POL-2"}
	invoice = &ai.ExtractedInvoice{InstallationDate: date(2025, 9, 1)}
	applyContextSignals(summary, invoice, true, now)
	assert.Equal(t, 0, summary.RoofAgeYears)
	assert.Contains(t, summary.Features, "recent_roof_replacement")
	assert.NotContains(t, summary.Features, "aging_roof")
}

func TestApplyContextSignalsInvoiceWithoutDate(t *testing.T) {
	summary := &core.PolicySummary{PolicyNumber: "POL-1"}
	invoice := &ai.ExtractedInvoice{WorkDescription: "gutter repair"}
	applyContextSignals(summary, invoice, true, date(2026, 8, 30))
	assert.Zero(t, summary.RoofAgeYears)
	assert.Equal(t, []string{defaultPropertyFeature}, summary.Features)
}
