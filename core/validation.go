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
	"time"
	"unicode/utf8"
)

// MaxEquipmentTypeNameLength bounds EquipmentType.Name in characters.
const MaxEquipmentTypeNameLength = 100

// ValidateProblem validates a Problem according to domain rules.
//
// Validation rules:
//   - Title and Description must not both be empty
//   - Phase, Priority and Status must be known values
//   - DiscoveredAt, when set, must not be in the future
//
// NOT validated:
//   - ID (0 is valid before the store assigns one)
//   - category IDs (0 means unclassified)
func ValidateProblem(problem *Problem) error {
	if problem == nil {
		return fmt.Errorf("%w: problem is nil", ErrInvalidProblem)
	}

	if problem.Title == "" && problem.Description == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProblem, ErrEmptyContent)
	}

	if !problem.Phase.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidProblem, ErrInvalidPhase, problem.Phase)
	}

	if !problem.Priority.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidProblem, ErrInvalidPriority, problem.Priority)
	}

	if !problem.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidProblem, ErrInvalidStatus, problem.Status)
	}

	if problem.DiscoveredAt != nil && !IsValidTimestamp(*problem.DiscoveredAt) {
		return fmt.Errorf("%w: %w", ErrInvalidProblem, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateEquipmentType validates an EquipmentType.
func ValidateEquipmentType(et *EquipmentType) error {
	if et == nil {
		return fmt.Errorf("%w: equipment type is nil", ErrInvalidEquipmentType)
	}
	if NormalizeName(et.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEquipmentType, ErrEmptyName)
	}
	if utf8.RuneCountInString(et.Name) > MaxEquipmentTypeNameLength {
		return fmt.Errorf("%w: %w: %d characters", ErrInvalidEquipmentType, ErrNameTooLong, utf8.RuneCountInString(et.Name))
	}
	return nil
}

// ValidateImportRun validates an ImportRun.
//
// Validation rules:
//   - Filename must not be empty
//   - Status must be known
//   - counters must be non-negative and imported+failed+skipped must not exceed total
func ValidateImportRun(run *ImportRun) error {
	if run == nil {
		return fmt.Errorf("%w: run is nil", ErrInvalidImportRun)
	}
	if run.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidImportRun, ErrEmptyName)
	}
	if !run.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidImportRun, ErrInvalidStatus, run.Status)
	}
	if run.TotalRows < 0 || run.ImportedCount < 0 || run.FailedCount < 0 || run.SkippedCount < 0 {
		return fmt.Errorf("%w: %w: negative counter", ErrInvalidImportRun, ErrInvalidCounts)
	}
	if run.ImportedCount+run.FailedCount+run.SkippedCount > run.TotalRows {
		return fmt.Errorf("%w: %w: %d imported, %d failed, %d skipped of %d rows",
			ErrInvalidImportRun, ErrInvalidCounts, run.ImportedCount, run.FailedCount, run.SkippedCount, run.TotalRows)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
