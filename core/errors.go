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

import "errors"

// Error taxonomy kinds. Components wrap failures in one of these so the
// pipeline can decide whether to retry, fail a single stage, or abort.
var (
	// ErrInput indicates malformed or unusable input (unsupported file type,
	// empty document, malformed policy-number link). Never retried.
	ErrInput = errors.New("invalid input")

	// ErrTransient indicates a collaborator failure that may succeed on retry
	// (timeout, rate limit, 5xx). Retried with bounded backoff.
	ErrTransient = errors.New("transient collaborator failure")

	// ErrConfig indicates a collaborator configuration error (embedding
	// dimensionality mismatch, missing credentials). Fatal for the whole
	// task; retrying cannot help.
	ErrConfig = errors.New("collaborator configuration error")

	// ErrPolicyInFlight indicates a submission for a policy number that is
	// already being processed. Rejected at submission time.
	ErrPolicyInFlight = errors.New("policy already processing")
)

// Domain validation errors
var (
	// ErrInvalidTask indicates a Task failed validation.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidStage indicates an unknown stage name or value.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrInvalidStatus indicates an invalid TaskStatus value.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrEmptyPolicyNumber indicates a missing policy number.
	ErrEmptyPolicyNumber = errors.New("policy number cannot be empty")

	// ErrMalformedPolicyNumber indicates a policy number containing
	// characters reserved by the storage key encoding.
	ErrMalformedPolicyNumber = errors.New("malformed policy number")

	// ErrEmptyChunkText indicates a chunk with no text.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")
)

// IsInput reports whether err is classified as an input error.
func IsInput(err error) bool { return errors.Is(err, ErrInput) }

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsConfig reports whether err is classified as a configuration error.
func IsConfig(err error) bool { return errors.Is(err, ErrConfig) }
