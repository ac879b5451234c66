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


// Package query provides retrieval-augmented question answering over
// ingested policies.
//
// The Engine type implements a three-step retrieval algorithm:
//   - The question is embedded with the same collaborator used at ingestion
//   - The policy's chunks are ranked by cosine similarity to the question
//   - The top chunks become the context for answer generation
//
// Confidence is derived from the best chunk's similarity, clamped to
// [0, 1]. A policy with no relevant chunks produces a fixed no-information
// answer with zero confidence rather than an error. The engine holds no
// state of its own; every answer is a pure function of the embedding store
// and the question.
package query
