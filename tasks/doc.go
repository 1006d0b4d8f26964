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

// Package tasks provides owner-scoped task and subtask management.
//
// Every operation takes the requesting user's id and only touches that
// user's records; another user's record is reported as storage.ErrNotFound.
// New records and retitled records get their embedding from a background
// job, so writes return as soon as the record is stored.
package tasks
