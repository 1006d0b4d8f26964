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
	"fmt"

	"github.com/poiesic/tasklens/core"
)

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
		return nil, fmt.Errorf("%w: task: %w", ErrSerializationFailed, err)
	}
	return &task, nil
}

// MarshalSubtask serializes a Subtask to bytes.
func MarshalSubtask(subtask *core.Subtask) []byte {
	buf := make([]byte, core.SubtaskMUS.Size(*subtask))
	core.SubtaskMUS.Marshal(*subtask, buf)
	return buf
}

// UnmarshalSubtask deserializes a Subtask from bytes.
func UnmarshalSubtask(data []byte) (*core.Subtask, error) {
	subtask, _, err := core.SubtaskMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: subtask: %w", ErrSerializationFailed, err)
	}
	return &subtask, nil
}

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	buf := make([]byte, core.CacheEntryMUS.Size(*entry))
	core.CacheEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	entry, _, err := core.CacheEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: cache entry: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}
