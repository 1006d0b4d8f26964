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

package api

import "errors"

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrBackfillerRequired is returned when a backfiller is not provided.
	ErrBackfillerRequired = errors.New("backfiller required")

	// ErrTaskServiceRequired is returned when a task service is not provided.
	ErrTaskServiceRequired = errors.New("task service required")

	// ErrUnauthorized is returned for a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the token's subject is not the user
	// named by the request.
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest is returned for malformed request bodies and parameters.
	ErrBadRequest = errors.New("bad request")
)
