package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
// Similarity search is a linear scan; vectors are expected to be normalised.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) *VectorRepository {
	return &VectorRepository{backend: backend}
}

// Close is a no-op; the backend is owned by the caller.
func (r *VectorRepository) Close() error {
	return nil
}

// PutVector inserts or replaces the document for doc.ProblemID.
func (r *VectorRepository) PutVector(ctx context.Context, doc *core.ProblemVector) error {
	if doc == nil || doc.ProblemID == 0 {
		return storage.ErrInvalidQuery
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeVectorKey(doc.ProblemID), storage.MarshalProblemVector(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetVector retrieves the document for a problem.
func (r *VectorRepository) GetVector(ctx context.Context, id core.ID) (*core.ProblemVector, error) {
	var result *core.ProblemVector
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalProblemVector(val)
			return err
		})
	}, false)
	return result, err
}

// DeleteVector removes the document for a problem, if any.
func (r *VectorRepository) DeleteVector(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeVectorKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilar finds documents similar to the given vector.
func (r *VectorRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error) {
	var results []*core.SimilarityMatch

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc *core.ProblemVector
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalProblemVector(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip documents without embeddings
			if len(doc.Vector) == 0 {
				continue
			}

			// Cosine similarity is the dot product for normalised vectors
			similarity := dotProduct(vector, doc.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SimilarityMatch{
					Document: doc,
					Score:    similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// CountVectors returns the number of stored documents.
func (r *VectorRepository) CountVectors(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, vectorPrefix)
		return nil
	}, false)
	return count, err
}

// ClearVectors removes every stored document.
func (r *VectorRepository) ClearVectors(ctx context.Context) error {
	return r.backend.DropPrefix(vectorPrefix)
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
