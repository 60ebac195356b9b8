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
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/index"
)

// pushPolicy bounds how often a batch is sent again after the index
// rejects the whole UpsertBatch call. Per-document failures are final.
type pushPolicy struct {
	attempts  int
	baseDelay time.Duration
}

// backoff returns the wait before the attempt after the given one.
func (p pushPolicy) backoff(attempt int) time.Duration {
	return p.baseDelay << (attempt - 1)
}

// PushError reports a batch the index refused on every attempt.
type PushError struct {
	FirstID  core.ID
	LastID   core.ID
	Size     int
	Attempts int
	Err      error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("batch of %d problems (%d..%d) not indexed after %d attempts: %v",
		e.Size, e.FirstID, e.LastID, e.Attempts, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// failures expands the error into one index failure per document.
func (e *PushError) failures(docs []index.Document) []index.Failure {
	out := make([]index.Failure, len(docs))
	for i, doc := range docs {
		out[i] = index.Failure{ID: doc.ID, Err: e}
	}
	return out
}

// pushBatch sends docs to idx, repeating the call with exponential backoff
// while it fails as a whole. Context errors are returned as is.
func pushBatch(ctx context.Context, idx index.Index, docs []index.Document, policy pushPolicy, logger *slog.Logger) (*index.BatchResult, error) {
	if policy.attempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if len(docs) == 0 {
		return &index.BatchResult{}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= policy.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := idx.UpsertBatch(ctx, docs)
		if err == nil {
			if attempt > 1 {
				logger.Debug("batch indexed after retry", "first_id", docs[0].ID, "attempt", attempt)
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		logger.Debug("batch push failed", "first_id", docs[0].ID, "size", len(docs),
			"attempt", attempt, "attempts", policy.attempts, "err", err)
		if attempt == policy.attempts {
			break
		}

		timer := time.NewTimer(policy.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, &PushError{
		FirstID:  docs[0].ID,
		LastID:   docs[len(docs)-1].ID,
		Size:     len(docs),
		Attempts: policy.attempts,
		Err:      lastErr,
	}
}
