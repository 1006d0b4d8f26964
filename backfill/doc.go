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

// Package backfill computes embeddings for tasks and subtasks that lack a
// current one.
//
// A record is stale when it has no embedding or when its stored content hash
// does not match the hash of its current title. Backfiller.Run lists stale
// records, embeds each title on a worker pool and stores vector and hash in a
// single write. The write is rejected if the title changed in the meantime,
// so a stored embedding always describes the title its hash names.
//
// Runs are idempotent: once every record is fresh, another run finds nothing
// to do. Runs may overlap; two runs writing the same record store the same
// vector and hash.
//
// Basic usage:
//
//	b, err := backfill.NewBackfiller(store, embedder, nil, backfill.WithProgress(os.Stderr))
//	if err != nil {
//		return err
//	}
//	result, err := b.Run(ctx)
//	fmt.Printf("embedded %d of %d records\n", result.Processed, result.Total)
package backfill
