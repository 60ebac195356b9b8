package gormstore

import (
	"time"

	"github.com/poiesic/equiptrack/core"
)

type equipmentTypeRow struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement:false"`
	Name        string    `gorm:"size:100;not null"`
	NameKey     string    `gorm:"size:100;not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
	InsertedAt  time.Time `gorm:"not null"`
}

func (equipmentTypeRow) TableName() string {
	return "equipment_types"
}

type problemRow struct {
	ID                 uint64  `gorm:"primaryKey;autoIncrement"`
	Title              string  `gorm:"size:500"`
	Description        string  `gorm:"type:text"`
	EquipmentTypeID    *uint64 `gorm:"index"`
	ProblemCategoryID  int
	SolutionCategoryID int
	Status             string `gorm:"size:20;not null;index"`
	Priority           string `gorm:"size:20;not null"`
	Phase              string `gorm:"size:20;not null"`
	DiscoveredBy       string `gorm:"size:100"`
	DiscoveredAt       *time.Time
	AIAnalyzed         bool
	AIAnalysis         string  `gorm:"type:text"`
	Solution           string  `gorm:"type:text"`
	ImportRunID        *uint64 `gorm:"index"`
	InsertedAt         time.Time
	UpdatedAt          time.Time
}

func (problemRow) TableName() string {
	return "problems"
}

type importRunRow struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Filename      string `gorm:"size:255;not null"`
	ImportedBy    string `gorm:"size:100"`
	TotalRows     int
	ImportedCount int
	FailedCount   int
	SkippedCount  int
	Status        string    `gorm:"size:20;not null"`
	StartedAt     time.Time `gorm:"index"`
	CompletedAt   *time.Time
	ErrorLog      string `gorm:"type:text"`
}

func (importRunRow) TableName() string {
	return "import_runs"
}

func optionalID(id core.ID) *uint64 {
	if id == 0 {
		return nil
	}
	v := uint64(id)
	return &v
}

func fromOptionalID(v *uint64) core.ID {
	if v == nil {
		return 0
	}
	return core.ID(*v)
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func newEquipmentTypeRow(et *core.EquipmentType) *equipmentTypeRow {
	return &equipmentTypeRow{
		ID:          uint64(et.Id),
		Name:        et.Name,
		NameKey:     core.NormalizeName(et.Name),
		Description: et.Description,
		InsertedAt:  et.InsertedAt,
	}
}

func (r *equipmentTypeRow) toCore() *core.EquipmentType {
	return &core.EquipmentType{
		Id:          core.ID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		InsertedAt:  utc(r.InsertedAt),
	}
}

func newProblemRow(p *core.Problem) *problemRow {
	return &problemRow{
		ID:                 uint64(p.Id),
		Title:              p.Title,
		Description:        p.Description,
		EquipmentTypeID:    optionalID(p.EquipmentTypeID),
		ProblemCategoryID:  p.ProblemCategoryID,
		SolutionCategoryID: p.SolutionCategoryID,
		Status:             string(p.Status),
		Priority:           string(p.Priority),
		Phase:              string(p.Phase),
		DiscoveredBy:       p.DiscoveredBy,
		DiscoveredAt:       p.DiscoveredAt,
		AIAnalyzed:         p.AIAnalyzed,
		AIAnalysis:         p.AIAnalysis,
		Solution:           p.Solution,
		ImportRunID:        optionalID(p.ImportRunID),
		InsertedAt:         p.InsertedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (r *problemRow) toCore() *core.Problem {
	p := &core.Problem{
		Id:                 core.ID(r.ID),
		Title:              r.Title,
		Description:        r.Description,
		EquipmentTypeID:    fromOptionalID(r.EquipmentTypeID),
		ProblemCategoryID:  r.ProblemCategoryID,
		SolutionCategoryID: r.SolutionCategoryID,
		Status:             core.ProblemStatus(r.Status),
		Priority:           core.Priority(r.Priority),
		Phase:              core.Phase(r.Phase),
		DiscoveredBy:       r.DiscoveredBy,
		AIAnalyzed:         r.AIAnalyzed,
		AIAnalysis:         r.AIAnalysis,
		Solution:           r.Solution,
		ImportRunID:        fromOptionalID(r.ImportRunID),
		InsertedAt:         utc(r.InsertedAt),
		UpdatedAt:          utc(r.UpdatedAt),
	}
	if r.DiscoveredAt != nil {
		t := r.DiscoveredAt.UTC()
		p.DiscoveredAt = &t
	}
	return p
}

func newImportRunRow(run *core.ImportRun) *importRunRow {
	row := &importRunRow{
		ID:            uint64(run.Id),
		Filename:      run.Filename,
		ImportedBy:    run.ImportedBy,
		TotalRows:     run.TotalRows,
		ImportedCount: run.ImportedCount,
		FailedCount:   run.FailedCount,
		SkippedCount:  run.SkippedCount,
		Status:        string(run.Status),
		StartedAt:     run.StartedAt,
		ErrorLog:      run.ErrorLog,
	}
	if !run.CompletedAt.IsZero() {
		t := run.CompletedAt
		row.CompletedAt = &t
	}
	return row
}

func (r *importRunRow) toCore() *core.ImportRun {
	run := &core.ImportRun{
		Id:            core.ID(r.ID),
		Filename:      r.Filename,
		ImportedBy:    r.ImportedBy,
		TotalRows:     r.TotalRows,
		ImportedCount: r.ImportedCount,
		FailedCount:   r.FailedCount,
		SkippedCount:  r.SkippedCount,
		Status:        core.ImportStatus(r.Status),
		StartedAt:     utc(r.StartedAt),
		ErrorLog:      r.ErrorLog,
	}
	if r.CompletedAt != nil {
		run.CompletedAt = r.CompletedAt.UTC()
	}
	return run
}
