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

import "errors"

var (
	// ErrStoreRequired is returned when a problem store is not provided.
	ErrStoreRequired = errors.New("problem store required")

	// ErrIndexRequired is returned when a similarity index is not provided.
	ErrIndexRequired = errors.New("similarity index required")

	// ErrAdvisorRequired is returned when a design advisor is not provided.
	ErrAdvisorRequired = errors.New("design advisor required")

	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("query must not be empty")
)
