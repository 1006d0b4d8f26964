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

// Package search answers "which of my tasks mean roughly this?" queries.
//
// A Searcher embeds the query text, gathers the requesting user's embedded
// tasks and subtasks, drops any whose embedding was computed from an older
// title, and ranks the rest by cosine similarity (see package similarity).
// Backends that implement storage.VectorSearcher rank inside the database
// instead, under the same contract.
//
// Results are strictly scoped to the requesting user. Failures are reported
// as ErrValidation (bad input, raised before any remote call), ErrEmbedding
// (the embedding service failed) or ErrStorage (candidates could not be
// read). A search that finds nothing returns an empty slice and no error.
package search
