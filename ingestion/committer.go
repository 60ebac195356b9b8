package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/storage"
)

// PendingProblem is a classified row waiting for its batch to commit.
type PendingProblem struct {
	Problem           *core.Problem
	EquipmentTypeName string
	RowNumber         int
	Headers           []string
	RawData           map[string]string
}

// CommitResult summarises one committed batch.
type CommitResult struct {
	Persisted     []*core.Problem
	Indexed       int
	IndexFailures int
}

// Committer persists batches in one transaction each and mirrors the
// persisted problems into the similarity index.
type Committer struct {
	problems storage.ProblemRepository
	index    index.Index
	logger   *slog.Logger
}

// NewCommitter creates a committer. idx may be nil to skip indexing.
func NewCommitter(problems storage.ProblemRepository, idx index.Index, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Committer{problems: problems, index: idx, logger: logger}
}

// Commit writes the batch atomically. On failure nothing in the batch is
// persisted and the error wraps ErrBatchCommit. Index pushes happen after the
// commit, one attempt per problem; their failures are logged and counted only.
func (c *Committer) Commit(ctx context.Context, batch []PendingProblem) (*CommitResult, error) {
	if len(batch) == 0 {
		return &CommitResult{}, nil
	}

	problems := make([]*core.Problem, len(batch))
	for i, pending := range batch {
		problems[i] = pending.Problem
	}

	persisted, err := c.problems.AddProblems(ctx, problems...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBatchCommit, err)
	}

	result := &CommitResult{Persisted: persisted}
	if c.index == nil {
		return result, nil
	}

	for i, p := range persisted {
		doc := index.DocumentFromProblem(p, batch[i].EquipmentTypeName)
		if err := c.index.Upsert(ctx, doc); err != nil {
			result.IndexFailures++
			c.logger.Warn("failed to index problem", "problem_id", p.Id, "row", batch[i].RowNumber, "err", err)
			continue
		}
		result.Indexed++
	}
	return result, nil
}
