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

package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
)

// DefaultSearchLimit is used when Search is called with a non-positive limit.
const DefaultSearchLimit = 10

// Index is the similarity index over problems.
type Index interface {
	// Upsert embeds and stores one document, replacing any previous version.
	Upsert(ctx context.Context, doc Document) error

	// UpsertBatch embeds documents in one call and stores them.
	// Invalid documents and failed writes are reported in the result;
	// an embedding failure fails the whole batch.
	UpsertBatch(ctx context.Context, docs []Document) (*BatchResult, error)

	// Search returns up to limit documents at least minSimilarity close to query.
	Search(ctx context.Context, query string, limit int, minSimilarity float32) ([]Match, error)

	// Get returns the stored document for a problem.
	Get(ctx context.Context, id core.ID) (*Document, error)

	// Delete removes a problem from the index. Missing entries are ignored.
	Delete(ctx context.Context, id core.ID) error

	// Count returns the number of indexed problems.
	Count(ctx context.Context) (int, error)

	// Clear removes every indexed problem.
	Clear(ctx context.Context) error
}

// Match is a search hit.
type Match struct {
	Document
	Similarity float32 // cosine similarity
	Distance   float32 // 1 - Similarity
}

// Failure records a document that could not be indexed.
type Failure struct {
	ID  core.ID
	Err error
}

// BatchResult summarises an UpsertBatch call.
type BatchResult struct {
	Indexed  int
	Failures []Failure
}

// VectorIndex implements Index over an embedder and a vector repository.
type VectorIndex struct {
	embedder ai.Embedder
	repo     storage.VectorRepository
	logger   *slog.Logger
}

// Option configures a VectorIndex.
type Option func(*VectorIndex)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *VectorIndex) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVectorIndex creates an index storing vectors in repo.
func NewVectorIndex(embedder ai.Embedder, repo storage.VectorRepository, opts ...Option) (*VectorIndex, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	v := &VectorIndex{
		embedder: embedder,
		repo:     repo,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "index")
	return v, nil
}

// Upsert implements Index.
func (v *VectorIndex) Upsert(ctx context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	vector, err := v.embedder.EmbedText(ctx, doc.Content())
	if err != nil {
		return fmt.Errorf("embedding problem %d: %w", doc.ID, err)
	}
	return v.put(ctx, doc, vector)
}

// UpsertBatch implements Index.
func (v *VectorIndex) UpsertBatch(ctx context.Context, docs []Document) (*BatchResult, error) {
	result := &BatchResult{}
	valid := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			result.Failures = append(result.Failures, Failure{ID: doc.ID, Err: err})
			continue
		}
		valid = append(valid, doc)
	}
	if len(valid) == 0 {
		return result, nil
	}

	texts := make([]string, len(valid))
	for i, doc := range valid {
		texts[i] = doc.Content()
	}
	vectors, err := v.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("embedding %d problems: %w", len(valid), err)
	}
	if len(vectors) != len(valid) {
		return result, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(valid), len(vectors))
	}

	for i, doc := range valid {
		if err := v.put(ctx, doc, vectors[i]); err != nil {
			result.Failures = append(result.Failures, Failure{ID: doc.ID, Err: err})
			continue
		}
		result.Indexed++
	}
	if len(result.Failures) > 0 {
		v.logger.Warn("some problems were not indexed", "failed", len(result.Failures), "indexed", result.Indexed)
	}
	return result, nil
}

func (v *VectorIndex) put(ctx context.Context, doc Document, vector []float32) error {
	record := &core.ProblemVector{
		ProblemID:   doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Metadata:    doc.Metadata,
		Vector:      NormalizeVector(vector),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := v.repo.PutVector(ctx, record); err != nil {
		return fmt.Errorf("storing vector for problem %d: %w", doc.ID, err)
	}
	return nil
}

// Search implements Index.
func (v *VectorIndex) Search(ctx context.Context, query string, limit int, minSimilarity float32) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vector, err := v.embedder.EmbedText(ctx, truncate(query, MaxContentLength))
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := v.repo.FindSimilar(ctx, NormalizeVector(vector), minSimilarity, limit)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, Match{
			Document:   documentFromVector(hit.Document),
			Similarity: hit.Score,
			Distance:   1 - hit.Score,
		})
	}
	return matches, nil
}

// Get implements Index.
func (v *VectorIndex) Get(ctx context.Context, id core.ID) (*Document, error) {
	record, err := v.repo.GetVector(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := documentFromVector(record)
	return &doc, nil
}

// Delete implements Index.
func (v *VectorIndex) Delete(ctx context.Context, id core.ID) error {
	err := v.repo.DeleteVector(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// Count implements Index.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	return v.repo.CountVectors(ctx)
}

// Clear implements Index.
func (v *VectorIndex) Clear(ctx context.Context) error {
	return v.repo.ClearVectors(ctx)
}

func documentFromVector(record *core.ProblemVector) Document {
	return Document{
		ID:          record.ProblemID,
		Title:       record.Title,
		Description: record.Description,
		Metadata:    record.Metadata,
	}
}
