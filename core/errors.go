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

import "errors"

// Domain validation errors
var (
	// ErrInvalidProblem indicates a Problem failed validation.
	ErrInvalidProblem = errors.New("invalid problem")

	// ErrInvalidImportRun indicates an ImportRun failed validation.
	ErrInvalidImportRun = errors.New("invalid import run")

	// ErrInvalidEquipmentType indicates an EquipmentType failed validation.
	ErrInvalidEquipmentType = errors.New("invalid equipment type")

	// ErrEmptyContent indicates both title and description are empty.
	ErrEmptyContent = errors.New("title and description cannot both be empty")

	// ErrEmptyName indicates a required name is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNameTooLong indicates a name exceeds its maximum length.
	ErrNameTooLong = errors.New("name too long")

	// ErrInvalidPhase indicates an unknown Phase value.
	ErrInvalidPhase = errors.New("invalid phase")

	// ErrInvalidPriority indicates an unknown Priority value.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidCounts indicates inconsistent ImportRun counters.
	ErrInvalidCounts = errors.New("invalid import counts")

	// ErrInvalidLength indicates an encoded collection length is out of range.
	ErrInvalidLength = errors.New("invalid encoded length")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)
