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

// Package api exposes task management and semantic search over HTTP.
//
// Routes are served by a gorilla/mux router wrapped in rs/cors. When a JWT
// secret is configured, every /api route requires an HS256 bearer token
// whose subject is the user id; a request that names a different user is
// rejected with 403.
//
// Errors are returned as {"error": "..."}. Invalid input maps to 400, a
// missing record to 404 and an embedding service failure to 502, so clients
// can tell a failed search from one that matched nothing.
package api
