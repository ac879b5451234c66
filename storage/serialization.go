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


package storage

import (
	"github.com/poiesic/poliscope/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalTask serializes a Task to bytes.
func MarshalTask(task *core.Task) []byte {
	buf := make([]byte, core.TaskMUS.Size(*task))
	core.TaskMUS.Marshal(*task, buf)
	return buf
}

// UnmarshalTask deserializes a Task from bytes.
func UnmarshalTask(data []byte) (*core.Task, error) {
	task, _, err := core.TaskMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalPolicySummary serializes a PolicySummary to bytes.
func MarshalPolicySummary(summary *core.PolicySummary) []byte {
	buf := make([]byte, core.PolicySummaryMUS.Size(*summary))
	core.PolicySummaryMUS.Marshal(*summary, buf)
	return buf
}

// UnmarshalPolicySummary deserializes a PolicySummary from bytes.
func UnmarshalPolicySummary(data []byte) (*core.PolicySummary, error) {
	summary, _, err := core.PolicySummaryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
