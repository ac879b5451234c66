package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
)

// runDocument carries one submitted document through the four-stage chain.
// Each stage is gated on the previous stage's ok outcome; a failure records
// the remaining stages as skipped for this document only.
func (o *Orchestrator) runDocument(state *taskState, doc Document, invoices map[string]Document) {
	ctx := context.Background()
	o.markProcessing(state)

	if stop, reason := state.halted(); stop {
		o.documentDone(state, func() {
			o.skipFrom(state, core.StageExtract, "", fmt.Sprintf("%s: %s", doc.Filename, reason))
		})
		return
	}

	var extracted *ai.ExtractedPolicy
	err := o.retryStage(ctx, func() error {
		var extractErr error
		extracted, extractErr = o.provider.Extractor().ExtractPolicy(ctx, doc.Data, doc.Filename)
		return extractErr
	})
	if err != nil {
		o.noteFatal(state, err)
		o.documentDone(state, func() {
			o.recordStep(state, core.StageExtract, "", core.OutcomeFailed, fmt.Sprintf("%s: %v", doc.Filename, err))
			o.skipFrom(state, core.StageEmbed, "", "extract did not succeed")
		})
		return
	}

	policyNumber := extracted.PolicyNumber
	if !o.acquirePolicy(state, policyNumber) {
		o.documentDone(state, func() {
			o.recordStep(state, core.StageExtract, policyNumber, core.OutcomeFailed,
				fmt.Sprintf("%s: policy %s already processing", doc.Filename, policyNumber))
			o.skipFrom(state, core.StageEmbed, policyNumber, "extract did not succeed")
		})
		return
	}
	// The lock covers exactly this document's four-stage chain.
	defer o.releasePolicy(state, policyNumber)

	summary := summaryFromExtraction(extracted, doc.Filename)
	o.recordStep(state, core.StageExtract, policyNumber, core.OutcomeOK, doc.Filename)

	if stop, reason := state.halted(); stop {
		o.documentDone(state, func() {
			o.skipFrom(state, core.StageEmbed, policyNumber, reason)
		})
		return
	}

	chunks := o.splitter.SplitPolicy(summary)
	err = o.retryStage(ctx, func() error {
		return o.store.Embed(ctx, chunks)
	})
	if err != nil {
		o.noteFatal(state, err)
		o.documentDone(state, func() {
			o.recordStep(state, core.StageEmbed, policyNumber, core.OutcomeFailed, err.Error())
			o.skipFrom(state, core.StageStore, policyNumber, "embed did not succeed")
		})
		return
	}
	o.recordStep(state, core.StageEmbed, policyNumber, core.OutcomeOK, fmt.Sprintf("%d chunks", len(chunks)))

	if stop, reason := state.halted(); stop {
		o.documentDone(state, func() {
			o.skipFrom(state, core.StageStore, policyNumber, reason)
		})
		return
	}

	err = o.retryStage(ctx, func() error {
		if _, persistErr := o.store.Persist(ctx, chunks); persistErr != nil {
			return persistErr
		}
		_, upsertErr := o.policies.UpsertPolicy(ctx, summary)
		return upsertErr
	})
	if err != nil {
		o.noteFatal(state, err)
		o.documentDone(state, func() {
			o.recordStep(state, core.StageStore, policyNumber, core.OutcomeFailed, err.Error())
			o.skipFrom(state, core.StageContextUpdate, policyNumber, "store did not succeed")
		})
		return
	}
	o.recordStep(state, core.StageStore, policyNumber, core.OutcomeOK, "")

	if stop, reason := state.halted(); stop {
		o.documentDone(state, func() {
			o.skipFrom(state, core.StageContextUpdate, policyNumber, reason)
		})
		return
	}

	var invoiceDoc *Document
	if invoice, linked := invoices[policyNumber]; linked {
		invoiceDoc = &invoice
	}
	if err := o.contextStage(ctx, policyNumber, invoiceDoc); err != nil {
		o.noteFatal(state, err)
		o.documentDone(state, func() {
			o.recordStep(state, core.StageContextUpdate, policyNumber, core.OutcomeFailed, err.Error())
		})
		return
	}
	o.documentDone(state, func() {
		o.recordStep(state, core.StageContextUpdate, policyNumber, core.OutcomeOK, "")
	})
}

// contextStage computes the proactive context signals for a stored policy
// and writes them back. invoiceDoc is nil when no invoice was linked.
func (o *Orchestrator) contextStage(ctx context.Context, policyNumber string, invoiceDoc *Document) error {
	var invoice *ai.ExtractedInvoice
	if invoiceDoc != nil {
		err := o.retryStage(ctx, func() error {
			var extractErr error
			invoice, extractErr = o.provider.Extractor().ExtractInvoice(ctx, invoiceDoc.Data, invoiceDoc.Filename)
			return extractErr
		})
		if err != nil {
			return fmt.Errorf("invoice %s: %w", invoiceDoc.Filename, err)
		}
	}

	return o.retryStage(ctx, func() error {
		stored, err := o.policies.GetPolicy(ctx, policyNumber)
		if err != nil {
			return err
		}
		applyContextSignals(stored, invoice, o.renewalFromExpiration, time.Now().UTC())
		_, err = o.policies.UpsertPolicy(ctx, stored)
		return err
	})
}

// skipFrom records a skipped outcome for the given stage and every stage
// after it.
func (o *Orchestrator) skipFrom(state *taskState, from core.Stage, policyNumber, reason string) {
	for _, stage := range core.Stages {
		if stage < from {
			continue
		}
		o.recordStep(state, stage, policyNumber, core.OutcomeSkipped, reason)
	}
}

// retryStage applies the orchestrator's retry policy to one stage call.
func (o *Orchestrator) retryStage(ctx context.Context, operation func() error) error {
	return RetryWithBackoff(ctx, operation, o.maxAttempts, o.baseDelay)
}

// noteFatal promotes configuration errors to task-fatal. Input and
// transient errors stay scoped to their stage.
func (o *Orchestrator) noteFatal(state *taskState, err error) {
	if core.IsConfig(err) {
		state.markFatal(err)
	}
}

// summaryFromExtraction builds the policy summary record for freshly
// extracted fields. Context fields are left zero; the context_update stage
// fills them in.
func summaryFromExtraction(extracted *ai.ExtractedPolicy, sourceFilename string) *core.PolicySummary {
	return &core.PolicySummary{
		PolicyNumber:     extracted.PolicyNumber,
		InsurerName:      extracted.InsurerName,
		PolicyholderName: extracted.PolicyholderName,
		PropertyAddress:  extracted.PropertyAddress,
		EffectiveDate:    extracted.EffectiveDate,
		ExpirationDate:   extracted.ExpirationDate,
		TotalPremium:     extracted.TotalPremium,
		Coverages:        extracted.Coverages,
		RawText:          extracted.RawText,
		SourceFilename:   sourceFilename,
	}
}
