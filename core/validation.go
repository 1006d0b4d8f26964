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

package core

import (
	"fmt"
	"strings"
)

// ValidateTask validates a Task according to domain rules.
//
// Validation rules:
//   - Title must not be blank
//   - OwnerId must not be empty
//   - Priority and Status must be known values
//
// NOT validated (populated by the embedding step):
//   - Embedding and ContentHash (absent until the title is embedded)
//   - ID (assigned by the repository)
func ValidateTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}

	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrEmptyTitle)
	}

	if task.OwnerId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrEmptyOwner)
	}

	if err := ValidatePriority(task.Priority); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	if err := ValidateStatus(task.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	return nil
}

// ValidateSubtask validates a Subtask according to domain rules.
//
// Validation rules:
//   - Title must not be blank
//   - OwnerId and ParentId must not be empty
//   - Status must be a known value
func ValidateSubtask(subtask *Subtask) error {
	if subtask == nil {
		return fmt.Errorf("%w: subtask is nil", ErrInvalidSubtask)
	}

	if strings.TrimSpace(subtask.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubtask, ErrEmptyTitle)
	}

	if subtask.OwnerId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubtask, ErrEmptyOwner)
	}

	if subtask.ParentId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubtask, ErrEmptyParent)
	}

	if err := ValidateStatus(subtask.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubtask, err)
	}

	return nil
}

// ValidatePriority validates that a Priority has a valid value.
func ValidatePriority(p Priority) error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidPriority, p)
}

// ValidateStatus validates that a Status has a valid value.
func ValidateStatus(s Status) error {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidStatus, s)
}

// ValidateKind validates that a Kind has a valid value.
func ValidateKind(k Kind) error {
	switch k {
	case KindTask, KindSubtask:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidKind, k)
}
