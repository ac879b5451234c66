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


package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/poiesic/poliscope/core"
)

const (
	// DefaultMaxChunkLen is the maximum chunk text length in bytes.
	DefaultMaxChunkLen = 1000

	// DefaultOverlap is how many bytes consecutive window chunks share.
	DefaultOverlap = 200

	// maxHeadingLen bounds how long a line can be and still count as a
	// section heading.
	maxHeadingLen = 60
)

// Splitter turns policy text into ordered, labeled chunks. Splitting is
// deterministic: the same input always yields the same chunks with the same
// ordinals, which keeps re-ingestion idempotent.
type Splitter struct {
	maxLen  int
	overlap int
}

// SplitterOption is a functional option for configuring a Splitter.
type SplitterOption func(*Splitter)

// WithMaxChunkLen sets the maximum chunk text length.
func WithMaxChunkLen(n int) SplitterOption {
	return func(s *Splitter) {
		s.maxLen = n
	}
}

// WithOverlap sets the overlap between consecutive window chunks.
func WithOverlap(n int) SplitterOption {
	return func(s *Splitter) {
		s.overlap = n
	}
}

// NewSplitter creates a Splitter with default limits and applies the
// provided options. An overlap at or above the maximum length is clamped.
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{
		maxLen:  DefaultMaxChunkLen,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxLen < 1 {
		s.maxLen = DefaultMaxChunkLen
	}
	if s.overlap >= s.maxLen {
		s.overlap = s.maxLen / 2
	}
	return s
}

// SplitPolicy builds the full chunk set for a policy summary: a structured
// policy-details chunk, one chunk per coverage, then the raw document text
// split into labeled sections. Ordinals are assigned sequentially across
// the whole set. Vectors are left nil; embedding happens downstream.
func (s *Splitter) SplitPolicy(summary *core.PolicySummary) []*core.Chunk {
	var chunks []*core.Chunk

	details := policyDetailsText(summary)
	chunks = append(chunks, s.newChunk(summary.PolicyNumber, summary.SourceFilename, "policy_details", details, len(chunks)))

	for i, cov := range summary.Coverages {
		label := fmt.Sprintf("coverage_%d", i+1)
		chunks = append(chunks, s.newChunk(summary.PolicyNumber, summary.SourceFilename, label, coverageText(cov), len(chunks)))
	}

	for _, sec := range s.sections(summary.RawText) {
		for _, text := range s.window(sec.text) {
			chunks = append(chunks, s.newChunk(summary.PolicyNumber, summary.SourceFilename, sec.label, text, len(chunks)))
		}
	}

	return chunks
}

// Split chunks raw text only, without the structured policy chunks.
func (s *Splitter) Split(policyNumber, sourceFilename, rawText string) []*core.Chunk {
	var chunks []*core.Chunk
	for _, sec := range s.sections(rawText) {
		for _, text := range s.window(sec.text) {
			chunks = append(chunks, s.newChunk(policyNumber, sourceFilename, sec.label, text, len(chunks)))
		}
	}
	return chunks
}

func (s *Splitter) newChunk(policyNumber, sourceFilename, label, text string, ordinal int) *core.Chunk {
	c := &core.Chunk{
		PolicyNumber:   policyNumber,
		SectionLabel:   label,
		Text:           text,
		SourceFilename: sourceFilename,
		Ordinal:        ordinal,
	}
	c.Id = core.IDFromContent(c.Locator())
	return c
}

type section struct {
	label string
	text  string
}

// sections splits text at heading lines. A heading is a short line that
// either ends with a colon or is entirely upper-case. Text before the first
// heading, or text with no headings at all, is labeled "general".
func (s *Splitter) sections(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	current := section{label: "general"}
	var body []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(body, "\n"))
		if joined != "" {
			current.text = joined
			sections = append(sections, current)
		}
		body = body[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			flush()
			current = section{label: headingLabel(trimmed)}
			// The heading line itself stays in the section text so
			// coverage figures keep their labels when embedded.
			body = append(body, trimmed)
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

// window splits section text into at most maxLen byte pieces, consecutive
// pieces sharing overlap bytes. Short sections pass through unchanged.
func (s *Splitter) window(text string) []string {
	if len(text) <= s.maxLen {
		return []string{text}
	}

	step := s.maxLen - s.overlap
	var pieces []string
	for start := 0; start < len(text); start += step {
		end := start + s.maxLen
		if end > len(text) {
			end = len(text)
		}
		pieces = append(pieces, text[start:end])
		if end == len(text) {
			break
		}
	}
	return pieces
}

// isHeading reports whether a trimmed line reads like a section heading.
func isHeading(line string) bool {
	if line == "" || len(line) > maxHeadingLen {
		return false
	}
	if strings.HasSuffix(line, ":") && !strings.Contains(strings.TrimSuffix(line, ":"), ":") {
		// "Dwelling Coverage: $300,000" is data, not a heading.
		return !strings.ContainsAny(strings.TrimSuffix(line, ":"), "0123456789$")
	}
	return isAllCaps(line)
}

// isAllCaps reports whether the line contains letters and none of them
// are lower-case.
func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// headingLabel normalizes a heading line into a section label:
// lower-cased, colon stripped, spaces collapsed to underscores.
func headingLabel(line string) string {
	label := strings.TrimSuffix(line, ":")
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Join(strings.Fields(label), "_")
	if label == "" {
		return "general"
	}
	return label
}

func policyDetailsText(summary *core.PolicySummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Policy Number: %s\n", summary.PolicyNumber)
	if summary.InsurerName != "" {
		fmt.Fprintf(&sb, "Insurer: %s\n", summary.InsurerName)
	}
	if summary.PolicyholderName != "" {
		fmt.Fprintf(&sb, "Policyholder: %s\n", summary.PolicyholderName)
	}
	if summary.PropertyAddress != "" {
		fmt.Fprintf(&sb, "Property Address: %s\n", summary.PropertyAddress)
	}
	if !summary.EffectiveDate.IsZero() {
		fmt.Fprintf(&sb, "Effective Date: %s\n", summary.EffectiveDate.Format("2006-01-02"))
	}
	if !summary.ExpirationDate.IsZero() {
		fmt.Fprintf(&sb, "Expiration Date: %s\n", summary.ExpirationDate.Format("2006-01-02"))
	}
	if summary.TotalPremium > 0 {
		fmt.Fprintf(&sb, "Total Premium: $%.2f\n", summary.TotalPremium)
	}
	return strings.TrimSpace(sb.String())
}

func coverageText(cov core.Coverage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Coverage Type: %s\n", cov.Type)
	// Limits and deductibles are kept exactly as they appeared in the
	// document, so they embed with their original formatting.
	if cov.Limit != "" {
		fmt.Fprintf(&sb, "Limit: %s\n", cov.Limit)
	}
	if cov.Deductible != "" {
		fmt.Fprintf(&sb, "Deductible: %s\n", cov.Deductible)
	}
	return strings.TrimSpace(sb.String())
}
