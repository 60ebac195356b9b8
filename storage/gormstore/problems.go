package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
	"gorm.io/gorm"
)

// AddProblems inserts problems in one transaction.
func (s *Store) AddProblems(ctx context.Context, problems ...*core.Problem) ([]*core.Problem, error) {
	if len(problems) == 0 {
		return problems, nil
	}

	rows := make([]*problemRow, len(problems))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for i, problem := range problems {
			if err := core.ValidateProblem(problem); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
			}
			if err := checkEquipmentType(tx, problem.EquipmentTypeID); err != nil {
				return err
			}
			row := newProblemRow(problem)
			row.ID = 0
			row.InsertedAt = now
			row.UpdatedAt = now
			rows[i] = row
		}
		return translate(tx.Create(&rows).Error)
	})
	if err != nil {
		return nil, err
	}

	for i, problem := range problems {
		problem.Id = core.ID(rows[i].ID)
		problem.InsertedAt = rows[i].InsertedAt
		problem.UpdatedAt = rows[i].UpdatedAt
	}
	return problems, nil
}

// UpdateProblems updates existing problems.
func (s *Store) UpdateProblems(ctx context.Context, problems ...*core.Problem) ([]*core.Problem, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, problem := range problems {
			if err := core.ValidateProblem(problem); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
			}
			var old problemRow
			if err := tx.First(&old, uint64(problem.Id)).Error; err != nil {
				return translate(err)
			}
			if fromOptionalID(old.EquipmentTypeID) != problem.EquipmentTypeID {
				if err := checkEquipmentType(tx, problem.EquipmentTypeID); err != nil {
					return err
				}
			}

			problem.InsertedAt = utc(old.InsertedAt)
			problem.UpdatedAt = time.Now().UTC()
			if err := tx.Save(newProblemRow(problem)).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
	return problems, err
}

// DeleteProblems removes problems by their IDs.
func (s *Store) DeleteProblems(ctx context.Context, ids ...core.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := tx.Delete(&problemRow{}, uint64(id))
			if res.Error != nil {
				return translate(res.Error)
			}
			if res.RowsAffected == 0 {
				return storage.ErrNotFound
			}
		}
		return nil
	})
}

// GetProblem retrieves a single problem by ID.
func (s *Store) GetProblem(ctx context.Context, id core.ID) (*core.Problem, error) {
	var row problemRow
	if err := s.db.WithContext(ctx).First(&row, uint64(id)).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

// GetProblems retrieves the problems that exist among ids, in the order given.
func (s *Store) GetProblems(ctx context.Context, ids ...core.ID) ([]*core.Problem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]uint64, len(ids))
	for i, id := range ids {
		keys[i] = uint64(id)
	}

	var rows []*problemRow
	if err := s.db.WithContext(ctx).Where("id IN ?", keys).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	byID := make(map[uint64]*problemRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	var result []*core.Problem
	for _, key := range keys {
		if row, ok := byID[key]; ok {
			result = append(result, row.toCore())
		}
	}
	return result, nil
}

// ListProblems returns problems in ID order. A limit <= 0 means no limit.
func (s *Store) ListProblems(ctx context.Context, offset, limit int) ([]*core.Problem, error) {
	if offset < 0 {
		return nil, storage.ErrInvalidQuery
	}
	query := s.db.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []*problemRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]*core.Problem, len(rows))
	for i, row := range rows {
		result[i] = row.toCore()
	}
	return result, nil
}

// CountProblems returns the number of stored problems.
func (s *Store) CountProblems(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&problemRow{}).Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return int(count), nil
}

// checkEquipmentType enforces the equipment-type reference. 0 means none.
func checkEquipmentType(tx *gorm.DB, id core.ID) error {
	if id == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&equipmentTypeRow{}).Where("id = ?", uint64(id)).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count == 0 {
		return fmt.Errorf("%w: unknown equipment type %d", storage.ErrConstraintViolation, id)
	}
	return nil
}

