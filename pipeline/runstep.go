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
	"context"
	"fmt"
	"time"

	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
)

// StepParams holds the optional inputs for a manual step re-run.
type StepParams struct {
	// Documents maps policy numbers to their source documents, required
	// for re-running the extract stage.
	Documents map[string]Document

	// Invoices maps policy numbers to roofing invoices, consumed by a
	// context_update re-run.
	Invoices map[string]Document
}

// RunStep re-runs one stage for already-processed policies, synchronously.
// It is the operational recovery path: a partially failed batch can have
// its failed stage repeated without re-submitting the whole batch. A
// single-step task is recorded for audit; the per-policy results are also
// returned directly.
func (o *Orchestrator) RunStep(ctx context.Context, stage core.Stage, policyNumbers []string, params *StepParams) ([]core.StepResult, error) {
	if _, err := core.ParseStage(stage.String()); err != nil {
		return nil, err
	}
	if len(policyNumbers) == 0 {
		return nil, ErrNoPolicyNumbers
	}
	if params == nil {
		params = &StepParams{}
	}

	task, err := o.tasks.CreateTask(ctx, &core.Task{
		Id:     core.NewTaskID(),
		Kind:   core.TaskKindSingleStep,
		Status: core.StatusProcessing,
	})
	if err != nil {
		return nil, err
	}

	ok := 0
	results := make([]core.StepResult, 0, len(policyNumbers))
	for _, policyNumber := range policyNumbers {
		result := o.runSingleStep(ctx, stage, policyNumber, params)
		if result.Outcome == core.OutcomeOK {
			ok++
		}
		results = append(results, result)
	}

	task.Steps = results
	task.Progress = 100 * ok / len(results)
	switch {
	case ok == len(results):
		task.Status = core.StatusCompleted
	case ok == 0:
		task.Status = core.StatusFailed
		task.Error = fmt.Sprintf("%s failed for every policy", stage)
	default:
		task.Status = core.StatusPartial
	}
	if _, err := o.tasks.UpdateTask(ctx, task); err != nil {
		o.logger.Error("error persisting step re-run", "task", task.Id, "err", err)
	}

	return results, nil
}

func (o *Orchestrator) runSingleStep(ctx context.Context, stage core.Stage, policyNumber string, params *StepParams) core.StepResult {
	result := core.StepResult{
		Stage:        stage,
		PolicyNumber: policyNumber,
		RecordedAt:   time.Now().UTC(),
	}

	if err := core.ValidatePolicyNumber(policyNumber); err != nil {
		result.Outcome = core.OutcomeFailed
		result.Detail = err.Error()
		return result
	}
	if !o.locks.TryAcquire(policyNumber) {
		result.Outcome = core.OutcomeFailed
		result.Detail = fmt.Sprintf("%v: %s", core.ErrPolicyInFlight, policyNumber)
		return result
	}
	defer o.locks.Release(policyNumber)

	var err error
	switch stage {
	case core.StageExtract:
		err = o.reExtract(ctx, policyNumber, params)
	case core.StageEmbed, core.StageStore:
		// Both stages replay as a full re-ingest: vectors cannot be
		// persisted without recomputing them first.
		err = o.reIngest(ctx, policyNumber)
	case core.StageContextUpdate:
		var invoiceDoc *Document
		if invoice, linked := params.Invoices[policyNumber]; linked {
			invoiceDoc = &invoice
		}
		err = o.contextStage(ctx, policyNumber, invoiceDoc)
	}
	if err != nil {
		result.Outcome = core.OutcomeFailed
		result.Detail = err.Error()
		return result
	}

	result.Outcome = core.OutcomeOK
	return result
}

// reExtract repeats extraction for one policy from a freshly supplied
// document and merges the extracted fields over the stored summary,
// keeping any previously computed context signals.
func (o *Orchestrator) reExtract(ctx context.Context, policyNumber string, params *StepParams) error {
	doc, supplied := params.Documents[policyNumber]
	if !supplied {
		return fmt.Errorf("%w: no document supplied for %s", core.ErrInput, policyNumber)
	}

	var extracted *ai.ExtractedPolicy
	err := o.retryStage(ctx, func() error {
		var extractErr error
		extracted, extractErr = o.provider.Extractor().ExtractPolicy(ctx, doc.Data, doc.Filename)
		return extractErr
	})
	if err != nil {
		return err
	}
	if extracted.PolicyNumber != policyNumber {
		return fmt.Errorf("%w: document %s names policy %s, not %s",
			core.ErrInput, doc.Filename, extracted.PolicyNumber, policyNumber)
	}

	summary := summaryFromExtraction(extracted, doc.Filename)
	if stored, getErr := o.policies.GetPolicy(ctx, policyNumber); getErr == nil {
		summary.RenewalDate = stored.RenewalDate
		summary.RoofAgeYears = stored.RoofAgeYears
		summary.Features = stored.Features
	}
	_, err = o.policies.UpsertPolicy(ctx, summary)
	return err
}

// reIngest rebuilds, embeds, and persists the chunk set for a stored
// policy from its raw text.
func (o *Orchestrator) reIngest(ctx context.Context, policyNumber string) error {
	stored, err := o.policies.GetPolicy(ctx, policyNumber)
	if err != nil {
		return err
	}
	chunks := o.splitter.SplitPolicy(stored)
	return o.retryStage(ctx, func() error {
		_, ingestErr := o.store.Ingest(ctx, chunks)
		return ingestErr
	})
}
