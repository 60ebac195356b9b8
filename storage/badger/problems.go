package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
)

// ProblemRepository implements storage.ProblemRepository for BadgerDB.
type ProblemRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ProblemRepository = (*ProblemRepository)(nil)

// NewProblemRepository creates a new ProblemRepository.
func NewProblemRepository(backend *Backend) (*ProblemRepository, error) {
	idSeq, err := backend.GetSequence(problemIDSeq)
	if err != nil {
		return nil, err
	}

	return &ProblemRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ProblemRepository) Close() error {
	return r.idSeq.Release()
}

// AddProblems adds problems in a single transaction.
func (r *ProblemRepository) AddProblems(ctx context.Context, problems ...*core.Problem) ([]*core.Problem, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, problem := range problems {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := core.ValidateProblem(problem); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
			}
			if err := r.checkEquipmentType(tx, problem.EquipmentTypeID); err != nil {
				return err
			}

			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			problem.Id = core.ID(id)
			problem.InsertedAt = now
			problem.UpdatedAt = now

			if err := tx.Set(makeProblemKey(problem.Id), storage.MarshalProblem(problem)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		// Nothing was written, so don't hand back IDs that point nowhere.
		for _, problem := range problems {
			if problem != nil {
				problem.Id = 0
			}
		}
		return nil, err
	}
	return problems, nil
}

// UpdateProblems updates existing problems.
func (r *ProblemRepository) UpdateProblems(ctx context.Context, problems ...*core.Problem) ([]*core.Problem, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, problem := range problems {
			if err := core.ValidateProblem(problem); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
			}
			key := makeProblemKey(problem.Id)
			old, err := r.readProblem(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			if problem.EquipmentTypeID != old.EquipmentTypeID {
				if err := r.checkEquipmentType(tx, problem.EquipmentTypeID); err != nil {
					return err
				}
			}

			problem.InsertedAt = old.InsertedAt
			problem.UpdatedAt = time.Now().UTC()
			if err := tx.Set(key, storage.MarshalProblem(problem)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return problems, err
}

// DeleteProblems removes problems by their IDs.
func (r *ProblemRepository) DeleteProblems(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeProblemKey(id)
			if _, err := tx.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return storage.ErrNotFound
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetProblem retrieves a single problem by ID.
func (r *ProblemRepository) GetProblem(ctx context.Context, id core.ID) (*core.Problem, error) {
	var result *core.Problem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readProblem(tx, makeProblemKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetProblems retrieves multiple problems by their IDs.
func (r *ProblemRepository) GetProblems(ctx context.Context, ids ...core.ID) ([]*core.Problem, error) {
	var result []*core.Problem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			problem, err := r.readProblem(tx, makeProblemKey(id))
			if err != nil {
				return err
			}
			if problem != nil {
				result = append(result, problem)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListProblems returns problems in ID order. A limit <= 0 means no limit.
func (r *ProblemRepository) ListProblems(ctx context.Context, offset, limit int) ([]*core.Problem, error) {
	if offset < 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Problem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(problemPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		skipped := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			if skipped < offset {
				skipped++
				continue
			}
			var problem *core.Problem
			err := iter.Item().Value(func(val []byte) error {
				var err error
				problem, err = storage.UnmarshalProblem(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, problem)
		}
		return nil
	}, false)

	return results, err
}

// CountProblems returns the number of stored problems.
func (r *ProblemRepository) CountProblems(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, problemPrefix)
		return nil
	}, false)
	return count, err
}

// checkEquipmentType enforces the equipment-type reference. 0 means none.
func (r *ProblemRepository) checkEquipmentType(tx *badger.Txn, id core.ID) error {
	if id == 0 {
		return nil
	}
	if _, err := tx.Get(makeEquipmentTypeKey(id)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: unknown equipment type %d", storage.ErrConstraintViolation, id)
		}
		return err
	}
	return nil
}

func (r *ProblemRepository) readProblem(tx *badger.Txn, key []byte) (*core.Problem, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var problem *core.Problem
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		problem, unmarshalErr = storage.UnmarshalProblem(val)
		return unmarshalErr
	})
	return problem, err
}
