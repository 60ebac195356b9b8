package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
)

// EquipmentTypeRepository implements storage.EquipmentTypeRepository for BadgerDB.
// Keys are content IDs of the normalised name, which makes the primary key
// double as the name index.
type EquipmentTypeRepository struct {
	backend *Backend
}

var _ storage.EquipmentTypeRepository = (*EquipmentTypeRepository)(nil)

// NewEquipmentTypeRepository creates a new EquipmentTypeRepository.
func NewEquipmentTypeRepository(backend *Backend) *EquipmentTypeRepository {
	return &EquipmentTypeRepository{backend: backend}
}

// Close is a no-op; the backend is owned by the caller.
func (r *EquipmentTypeRepository) Close() error {
	return nil
}

// FindEquipmentTypeByName looks a type up by name, ignoring case and spacing.
func (r *EquipmentTypeRepository) FindEquipmentTypeByName(ctx context.Context, name string) (*core.EquipmentType, error) {
	if core.NormalizeName(name) == "" {
		return nil, storage.ErrNotFound
	}
	return r.GetEquipmentType(ctx, core.EquipmentTypeID(name))
}

// GetOrCreateEquipmentType returns the named type, creating it when absent.
func (r *EquipmentTypeRepository) GetOrCreateEquipmentType(ctx context.Context, name string) (*core.EquipmentType, error) {
	name = strings.TrimSpace(name)
	et := &core.EquipmentType{
		Id:   core.EquipmentTypeID(name),
		Name: name,
	}
	if err := core.ValidateEquipmentType(et); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
	}

	var result *core.EquipmentType
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEquipmentTypeKey(et.Id)
		existing, err := readEquipmentType(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		et.InsertedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalEquipmentType(et)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = et
		return nil
	}, true)

	// A concurrent writer created the same name first.
	if errors.Is(err, badger.ErrConflict) {
		return r.GetEquipmentType(ctx, et.Id)
	}
	return result, err
}

// GetEquipmentType retrieves an equipment type by ID.
func (r *EquipmentTypeRepository) GetEquipmentType(ctx context.Context, id core.ID) (*core.EquipmentType, error) {
	var result *core.EquipmentType
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEquipmentType(tx, makeEquipmentTypeKey(id))
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

// ListEquipmentTypes returns every equipment type ordered by name.
func (r *EquipmentTypeRepository) ListEquipmentTypes(ctx context.Context) ([]*core.EquipmentType, error) {
	var results []*core.EquipmentType
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(equipmentTypePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var et *core.EquipmentType
			err := iter.Item().Value(func(val []byte) error {
				var err error
				et, err = storage.UnmarshalEquipmentType(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, et)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.EquipmentType) int {
		return strings.Compare(core.NormalizeName(a.Name), core.NormalizeName(b.Name))
	})
	return results, nil
}

func readEquipmentType(tx *badger.Txn, key []byte) (*core.EquipmentType, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var et *core.EquipmentType
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		et, unmarshalErr = storage.UnmarshalEquipmentType(val)
		return unmarshalErr
	})
	return et, err
}
