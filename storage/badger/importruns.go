package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
)

// ImportRunRepository implements storage.ImportRunRepository for BadgerDB.
// Runs are indexed by start time for newest-first listing.
type ImportRunRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ImportRunRepository = (*ImportRunRepository)(nil)

// NewImportRunRepository creates a new ImportRunRepository.
func NewImportRunRepository(backend *Backend) (*ImportRunRepository, error) {
	idSeq, err := backend.GetSequence(importRunIDSeq)
	if err != nil {
		return nil, err
	}
	return &ImportRunRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ImportRunRepository) Close() error {
	return r.idSeq.Release()
}

// AddImportRun stores a new run and assigns its ID.
func (r *ImportRunRepository) AddImportRun(ctx context.Context, run *core.ImportRun) (*core.ImportRun, error) {
	if err := core.ValidateImportRun(run); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		run.Id = core.ID(id)

		if err := tx.Set(makeImportRunKey(run.Id), storage.MarshalImportRun(run)); err != nil {
			return err
		}
		if err := tx.Set(makeImportRunDateKey(run.StartedAt, run.Id), storage.MarshalID(run.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		run.Id = 0
		return nil, err
	}
	return run, nil
}

// UpdateImportRun overwrites an existing run.
func (r *ImportRunRepository) UpdateImportRun(ctx context.Context, run *core.ImportRun) (*core.ImportRun, error) {
	if err := core.ValidateImportRun(run); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeImportRunKey(run.Id)
		old, err := readImportRun(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if err := tx.Set(key, storage.MarshalImportRun(run)); err != nil {
			return err
		}
		if !old.StartedAt.Equal(run.StartedAt) {
			if err := tx.Delete(makeImportRunDateKey(old.StartedAt, old.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeImportRunDateKey(run.StartedAt, run.Id), storage.MarshalID(run.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetImportRun retrieves a run by ID.
func (r *ImportRunRepository) GetImportRun(ctx context.Context, id core.ID) (*core.ImportRun, error) {
	var result *core.ImportRun
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readImportRun(tx, makeImportRunKey(id))
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

// ListImportRuns returns up to limit runs, most recently started first.
func (r *ImportRunRepository) ListImportRuns(ctx context.Context, limit int) ([]*core.ImportRun, error) {
	var results []*core.ImportRun
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(importRunDatePrefix)
		// Seek to just past the last possible date key
		seekKey := append(bytes.Clone(prefix), 0xFF)

		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			if !bytes.HasPrefix(iter.Item().Key(), prefix) {
				break
			}

			var runID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				runID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			run, err := readImportRun(tx, makeImportRunKey(runID))
			if err != nil {
				return err
			}
			if run != nil {
				results = append(results, run)
			}
		}
		return nil
	}, false)

	return results, err
}

func readImportRun(tx *badger.Txn, key []byte) (*core.ImportRun, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var run *core.ImportRun
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		run, unmarshalErr = storage.UnmarshalImportRun(val)
		return unmarshalErr
	})
	return run, err
}
