package gormstore

import (
	"context"
	"fmt"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
	"gorm.io/gorm"
)

// AddImportRun inserts a run and assigns its ID.
func (s *Store) AddImportRun(ctx context.Context, run *core.ImportRun) (*core.ImportRun, error) {
	if err := core.ValidateImportRun(run); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
	}
	row := newImportRunRow(run)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translate(err)
	}
	run.Id = core.ID(row.ID)
	return run, nil
}

// UpdateImportRun overwrites an existing run.
func (s *Store) UpdateImportRun(ctx context.Context, run *core.ImportRun) (*core.ImportRun, error) {
	if err := core.ValidateImportRun(run); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConstraintViolation, err)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old importRunRow
		if err := tx.First(&old, uint64(run.Id)).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Save(newImportRunRow(run)).Error)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetImportRun retrieves a run by ID.
func (s *Store) GetImportRun(ctx context.Context, id core.ID) (*core.ImportRun, error) {
	var row importRunRow
	if err := s.db.WithContext(ctx).First(&row, uint64(id)).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

// ListImportRuns returns up to limit runs, most recently started first.
func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]*core.ImportRun, error) {
	query := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []*importRunRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]*core.ImportRun, len(rows))
	for i, row := range rows {
		result[i] = row.toCore()
	}
	return result, nil
}
