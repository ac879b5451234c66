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


package pipeline

import (
	"time"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
)

const (
	// agingRoofYears is the roof age at which a policy is flagged as
	// carrying replacement risk.
	agingRoofYears = 15

	// recentRoofYears is the window within which a roof replacement is
	// still treated as recent.
	recentRoofYears = 2

	// renewalWindow is the lead time within which an upcoming renewal is
	// flagged as a context signal.
	renewalWindow = 60 * 24 * time.Hour

	// defaultPropertyFeature is assigned when no risk signal applies, so
	// every policy that passes through context update carries at least one
	// feature flag.
	defaultPropertyFeature = "monitored_alarm"
)

// applyContextSignals computes the proactive context fields for a policy
// summary. The renewal date defaults from the expiration date and the roof
// age comes from a linked invoice; the feature flags follow from both.
// invoice may be nil when no invoice was linked to the policy.
func applyContextSignals(summary *core.PolicySummary, invoice *ai.ExtractedInvoice, renewalFromExpiration bool, now time.Time) {
	if renewalFromExpiration && summary.RenewalDate.IsZero() && !summary.ExpirationDate.IsZero() {
		summary.RenewalDate = summary.ExpirationDate
	}
	if invoice != nil && !invoice.InstallationDate.IsZero() {
		summary.RoofAgeYears = yearsSince(invoice.InstallationDate, now)
	}
	summary.Features = deriveFeatures(summary, invoice, now)
}

// yearsSince returns the number of whole years elapsed between then and
// now, never negative. The year count only ticks over once the
// anniversary's month and day have been reached.
func yearsSince(then, now time.Time) int {
	years := now.Year() - then.Year()
	if now.Month() < then.Month() || (now.Month() == then.Month() && now.Day() < then.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// deriveFeatures builds the feature flag list for a summary. The order is
// fixed so re-running the stage produces the same list.
func deriveFeatures(summary *core.PolicySummary, invoice *ai.ExtractedInvoice, now time.Time) []string {
	var features []string
	if !summary.RenewalDate.IsZero() && !summary.RenewalDate.Before(now) && summary.RenewalDate.Sub(now) <= renewalWindow {
		features = append(features, "renewal_upcoming")
	}
	if invoice != nil && !invoice.InstallationDate.IsZero() && yearsSince(invoice.InstallationDate, now) < recentRoofYears {
		features = append(features, "recent_roof_replacement")
	}
	if summary.RoofAgeYears >= agingRoofYears {
		features = append(features, "aging_roof")
	}
	if len(features) == 0 {
		features = append(features, defaultPropertyFeature)
	}
	return features
}
