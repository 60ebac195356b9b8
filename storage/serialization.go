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

	"github.com/poiesic/equiptrack/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalProblem serializes a Problem to bytes.
func MarshalProblem(problem *core.Problem) []byte {
	buf := make([]byte, core.ProblemMUS.Size(*problem))
	core.ProblemMUS.Marshal(*problem, buf)
	return buf
}

// UnmarshalProblem deserializes a Problem from bytes.
func UnmarshalProblem(data []byte) (*core.Problem, error) {
	problem, _, err := core.ProblemMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: problem: %w", ErrSerializationFailed, err)
	}
	return &problem, nil
}

// MarshalEquipmentType serializes an EquipmentType to bytes.
func MarshalEquipmentType(et *core.EquipmentType) []byte {
	buf := make([]byte, core.EquipmentTypeMUS.Size(*et))
	core.EquipmentTypeMUS.Marshal(*et, buf)
	return buf
}

// UnmarshalEquipmentType deserializes an EquipmentType from bytes.
func UnmarshalEquipmentType(data []byte) (*core.EquipmentType, error) {
	et, _, err := core.EquipmentTypeMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: equipment type: %w", ErrSerializationFailed, err)
	}
	return &et, nil
}

// MarshalImportRun serializes an ImportRun to bytes.
func MarshalImportRun(run *core.ImportRun) []byte {
	buf := make([]byte, core.ImportRunMUS.Size(*run))
	core.ImportRunMUS.Marshal(*run, buf)
	return buf
}

// UnmarshalImportRun deserializes an ImportRun from bytes.
func UnmarshalImportRun(data []byte) (*core.ImportRun, error) {
	run, _, err := core.ImportRunMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: import run: %w", ErrSerializationFailed, err)
	}
	return &run, nil
}

// MarshalProblemVector serializes a ProblemVector to bytes.
func MarshalProblemVector(doc *core.ProblemVector) []byte {
	buf := make([]byte, core.ProblemVectorMUS.Size(*doc))
	core.ProblemVectorMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalProblemVector deserializes a ProblemVector from bytes.
func UnmarshalProblemVector(data []byte) (*core.ProblemVector, error) {
	doc, _, err := core.ProblemVectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: problem vector: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}
