package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FindEquipmentTypeByName looks a type up by name, ignoring case and spacing.
func (s *Store) FindEquipmentTypeByName(ctx context.Context, name string) (*core.EquipmentType, error) {
	key := core.NormalizeName(name)
	if key == "" {
		return nil, storage.ErrNotFound
	}
	var row equipmentTypeRow
	if err := s.db.WithContext(ctx).Where("name_key = ?", key).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

// GetOrCreateEquipmentType returns the named type, creating it when absent.
// Concurrent creators of the same name converge on one row.
func (s *Store) GetOrCreateEquipmentType(ctx context.Context, name string) (*core.EquipmentType, error) {
	name = strings.TrimSpace(name)
	et := &core.EquipmentType{
		Id:         core.EquipmentTypeID(name),
		Name:       name,
		InsertedAt: time.Now().UTC(),
	}
	if err := core.ValidateEquipmentType(et); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
	}

	var row equipmentTypeRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(newEquipmentTypeRow(et)).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Where("name_key = ?", core.NormalizeName(name)).First(&row).Error)
	})
	if err != nil {
		return nil, err
	}
	return row.toCore(), nil
}

// GetEquipmentType retrieves an equipment type by ID.
func (s *Store) GetEquipmentType(ctx context.Context, id core.ID) (*core.EquipmentType, error) {
	var row equipmentTypeRow
	if err := s.db.WithContext(ctx).First(&row, uint64(id)).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

// ListEquipmentTypes returns every equipment type ordered by name.
func (s *Store) ListEquipmentTypes(ctx context.Context) ([]*core.EquipmentType, error) {
	var rows []*equipmentTypeRow
	if err := s.db.WithContext(ctx).Order("name_key ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]*core.EquipmentType, len(rows))
	for i, row := range rows {
		result[i] = row.toCore()
	}
	return result, nil
}
