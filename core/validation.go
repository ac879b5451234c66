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


package core

import (
	"fmt"
	"strings"
)

// ValidatePolicyNumber validates a policy number according to domain rules.
//
// Validation rules:
//   - must not be empty
//   - must not contain ':' or whitespace (reserved by the storage key encoding)
//
// Violations are input errors: they are never retried.
func ValidatePolicyNumber(policyNumber string) error {
	if policyNumber == "" {
		return fmt.Errorf("%w: %w", ErrInput, ErrEmptyPolicyNumber)
	}
	if strings.ContainsAny(policyNumber, ": \t\n") {
		return fmt.Errorf("%w: %w: %q", ErrInput, ErrMalformedPolicyNumber, policyNumber)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - PolicyNumber must be valid
//   - Text must not be empty
//
// NOT validated (populated later):
//   - Vector (can be empty until the embed stage runs)
//   - Id (derived from the locator at upsert time)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if err := ValidatePolicyNumber(chunk.PolicyNumber); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	return nil
}

// ValidateTask validates a Task according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - Kind must be a known TaskKind
//   - Status must be a known TaskStatus
//   - Progress must be within [0, 100]
func ValidateTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}

	if task.Id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	}

	if task.Kind != TaskKindBatchProcess && task.Kind != TaskKindSingleStep {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidTask, task.Kind)
	}

	if err := ValidateStatus(task.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	if task.Progress < 0 || task.Progress > 100 {
		return fmt.Errorf("%w: progress %d out of range", ErrInvalidTask, task.Progress)
	}

	return nil
}

// ValidateStatus validates that a TaskStatus has a valid value.
func ValidateStatus(status TaskStatus) error {
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusPartial:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
}
