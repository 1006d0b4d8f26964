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

// Package storage provides the storage abstraction layer for tasklens.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Two backends implement them: storage/badger (embedded)
// and storage/postgres (hosted, with pgvector).
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - TaskRepository: Operations for tasks
//   - SubtaskRepository: Operations for subtasks
//   - CandidateSource: Owner-scoped retrieval of embedded records for search
//   - VectorSearcher: Optional database-side similarity ranking
//   - EmbeddingCache: Memoized embeddings keyed by model and exact text
//   - Store: The bundle consumed by search, backfill and the task service
//
// # Embedding Writes
//
// An embedding and the content hash of the title it was computed from are
// always written together through SetTaskEmbedding or SetSubtaskEmbedding.
// Both re-check the title inside the write transaction and fail with
// ErrContentChanged when it moved on, so a stored hash never describes a
// title the vector was not computed from.
//
// # Usage
//
//	store, err := badger.OpenStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
