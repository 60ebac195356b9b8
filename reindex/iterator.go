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

package reindex

import (
	"context"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
)

const (
	// DefaultBatchSize is the default number of problems to fetch in each batch
	DefaultBatchSize = 100
)

// ProblemIterator pages through all problems in ID order.
type ProblemIterator struct {
	repo      storage.ProblemRepository
	batchSize int
}

// NewProblemIterator creates a new problem iterator.
// batchSize: number of problems to fetch in each batch; non-positive means DefaultBatchSize
func NewProblemIterator(repo storage.ProblemRepository, batchSize int) *ProblemIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ProblemIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each batch of problems.
// Iteration stops on the first error from fn or when all problems are processed.
// Context cancellation is checked between batches.
func (it *ProblemIterator) ForEach(ctx context.Context, fn func([]*core.Problem) error) error {
	for offset := 0; ; offset += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.repo.ListProblems(ctx, offset, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		if len(batch) < it.batchSize {
			return nil
		}
	}
}
