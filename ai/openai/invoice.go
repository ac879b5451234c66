package openai

import (
	"strings"
	"time"

	"github.com/poiesic/poliscope/ai"
)

// preferredDateLabels is the priority order for choosing the installation
// date among an invoice's labeled date lines.
var preferredDateLabels = []string{
	"Installation Date",
	"Work Date",
	"Service Date",
	"Completion Date",
	"Project Completion Date",
	"Date of Issue",
	"Invoice Date",
}

var workDescriptionLabels = []string{
	"Work Description",
	"Description of Work",
	"Scope of Work",
	"Description",
}

// parseInvoiceText scans labeled "Key: Value" lines for dates and a work
// description. The first preferred label that carries a parsable date wins;
// with no preferred label, the earliest date found is used.
func parseInvoiceText(text string) *ai.ExtractedInvoice {
	labeledDates := make(map[string]time.Time)
	var earliest time.Time
	invoice := &ai.ExtractedInvoice{}

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

		if invoice.WorkDescription == "" {
			for _, wl := range workDescriptionLabels {
				if strings.EqualFold(label, wl) {
					invoice.WorkDescription = value
					break
				}
			}
		}

		date, ok := parseDate(value)
		if !ok {
			continue
		}
		labeledDates[strings.ToLower(label)] = date
		if earliest.IsZero() || date.Before(earliest) {
			earliest = date
		}
	}

	for _, label := range preferredDateLabels {
		if date, ok := labeledDates[strings.ToLower(label)]; ok {
			invoice.InstallationDate = date
			return invoice
		}
	}

	invoice.InstallationDate = earliest
	return invoice
}
