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

package search

import (
	"errors"
	"fmt"

	"github.com/poiesic/tasklens/ai"
)

var (
	// ErrSourceRequired is returned when a candidate source is not provided.
	ErrSourceRequired = errors.New("candidate source required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidOption is returned when an option value is out of range.
	ErrInvalidOption = errors.New("invalid searcher option")
)

var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("invalid search request")

	// ErrQueryRequired is returned for an empty or whitespace-only query.
	ErrQueryRequired = fmt.Errorf("%w: query is required", ErrValidation)

	// ErrUserRequired is returned when no user id is given.
	ErrUserRequired = fmt.Errorf("%w: user id is required", ErrValidation)

	// ErrEmbedding is returned when the query could not be embedded.
	// It wraps ai.ErrProvider.
	ErrEmbedding = fmt.Errorf("query embedding failed: %w", ai.ErrProvider)

	// ErrStorage is returned when candidates could not be read.
	ErrStorage = errors.New("candidate retrieval failed")
)
