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
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/storage"
)

// Config holds configuration for a reindex run.
type Config struct {
	// BatchSize is the number of problems pushed in each UpsertBatch call
	BatchSize int

	// Workers is the number of batches indexed concurrently
	Workers int

	// ReportInterval is how often to report progress (number of problems)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Clear empties the index before rebuilding it
	Clear bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return &Config{
		BatchSize:      DefaultBatchSize,
		Workers:        workers,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	out := *c
	if out.BatchSize <= 0 {
		out.BatchSize = d.BatchSize
	}
	if out.Workers <= 0 {
		out.Workers = d.Workers
	}
	if out.ReportInterval <= 0 {
		out.ReportInterval = d.ReportInterval
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = d.MaxRetries
	}
	if out.RetryDelay < 0 {
		out.RetryDelay = d.RetryDelay
	}
	return &out
}

// Report summarises a reindex run.
type Report struct {
	Total    int
	Indexed  int
	Failures []index.Failure
	Cleared  bool
	Elapsed  time.Duration
}

// Failed returns the number of problems that could not be indexed.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// Reindexer rebuilds the similarity index from the problem store.
type Reindexer struct {
	store    storage.Store
	index    index.Index
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Reindexer.
type Option func(*Reindexer)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr); nil discards it
func NewReindexer(store storage.Store, idx index.Index, config *Config, progress io.Writer, opts ...Option) (*Reindexer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reindexer{
		store:    store,
		index:    idx,
		config:   config.withDefaults(),
		progress: progress,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reindex")
	return r, nil
}

// Run pushes every stored problem into the index. Batches that fail to index
// are reported in Report.Failures; Run itself only fails on store, pool or
// context errors.
func (r *Reindexer) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{}

	if r.config.Clear {
		if err := r.index.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear index: %w", err)
		}
		report.Cleared = true
		fmt.Fprintf(r.progress, "Cleared similarity index\n")
	}

	total, err := r.store.CountProblems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count problems: %w", err)
	}
	report.Total = total
	if total == 0 {
		fmt.Fprintf(r.progress, "No problems found in store (0 problems)\n")
		report.Elapsed = time.Since(started)
		return report, nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d problems (batch size: %d, workers: %d)\n",
		total, r.config.BatchSize, r.config.Workers)

	pool, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	tracker := newProgress(r.progress, total, r.config.ReportInterval)

	processor := NewBatchProcessor(r.store, r.index, r.config.MaxRetries, r.config.RetryDelay, r.logger)
	iterator := NewProblemIterator(r.store, r.config.BatchSize)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		batchErr error
	)
	err = iterator.ForEach(ctx, func(problems []*core.Problem) error {
		mu.Lock()
		failed := batchErr
		mu.Unlock()
		if failed != nil {
			return failed
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			result, err := processor.Process(ctx, problems)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if batchErr == nil {
					batchErr = err
				}
				return
			}
			report.Indexed += result.Indexed
			report.Failures = append(report.Failures, result.Failures...)
			tracker.batchDone(result.Indexed, len(result.Failures))
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()
	if err == nil {
		err = batchErr
	}
	if err != nil {
		r.logger.Error("reindex aborted", "indexed", report.Indexed, "err", err)
		return report, err
	}

	tracker.finish()
	report.Elapsed = time.Since(started)

	fmt.Fprintf(r.progress, "Reindex complete. Indexed %d of %d problems in %v (%d failed)\n",
		report.Indexed, total, report.Elapsed.Round(time.Millisecond), report.Failed())
	r.logger.Info("reindex complete", "total", total, "indexed", report.Indexed,
		"failed", report.Failed(), "elapsed", report.Elapsed)
	return report, nil
}
