package ai

import (
	"time"

	"github.com/poiesic/poliscope/core"
)

// ExtractedPolicy is the structured result of policy document extraction.
// PolicyNumber is always populated; extraction fails instead of returning
// a policy without one. Date fields are zero when the document did not
// state them.
type ExtractedPolicy struct {
	PolicyNumber     string
	InsurerName      string
	PolicyholderName string
	PropertyAddress  string
	EffectiveDate    time.Time
	ExpirationDate   time.Time
	TotalPremium     float64
	Coverages        []core.Coverage

	// RawText is the full plain text recovered from the document,
	// used downstream for chunking and embedding.
	RawText string
}

// ExtractedInvoice is the structured result of roofing invoice extraction.
// InstallationDate is zero when the invoice did not state one.
type ExtractedInvoice struct {
	InstallationDate time.Time
	WorkDescription  string
}
