package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/ingestion"
	"github.com/poiesic/equiptrack/search"
	"github.com/poiesic/equiptrack/storage"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// Result carries the partial outcome of an import that failed after it started.
	Result *ImportResponse `json:"result,omitempty"`
}

func abortWithError(c *gin.Context, status int, message string, err error) {
	resp := ErrorResponse{Code: status, Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingestion.ErrIllegalPath), errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingestion.ErrMissingHeaders),
		errors.Is(err, ingestion.ErrDelimiterUndetected),
		errors.Is(err, ingestion.ErrEncodingUnresolved),
		errors.Is(err, ingestion.ErrMalformedFile),
		errors.Is(err, ingestion.ErrRowRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ImportResponse is the JSON view of an ingestion.ImportResult.
type ImportResponse struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	ImportedCount  int                `json:"importedCount"`
	FailedCount    int                `json:"failedCount"`
	SkippedCount   int                `json:"skippedCount"`
	TotalCount     int                `json:"totalCount"`
	ErrorCount     int                `json:"errorCount"`
	IndexFailures  int                `json:"indexFailures"`
	HistoryID      core.ID            `json:"historyId"`
	ProcessingTime float64            `json:"processingTime"`
	Encoding       string             `json:"encoding"`
	Delimiter      string             `json:"delimiter"`
	Truncated      bool               `json:"truncated"`
	FailedRecords  []FailedRecordView `json:"failedRecords"`
	Warnings       []string           `json:"warnings"`
}

// FailedRecordView is one rejected row.
type FailedRecordView struct {
	RowNumber int               `json:"row_number"`
	Data      map[string]string `json:"data"`
	ErrorInfo string            `json:"error_info"`
}

func newImportResponse(r *ingestion.ImportResult) *ImportResponse {
	resp := &ImportResponse{
		Success:        r.Stage == ingestion.StageCompleted,
		Message:        r.Message,
		ImportedCount:  r.ImportedCount,
		FailedCount:    r.FailedCount,
		SkippedCount:   r.SkippedCount,
		TotalCount:     r.TotalCount,
		ErrorCount:     r.ErrorCount,
		IndexFailures:  r.IndexFailures,
		HistoryID:      r.HistoryID,
		ProcessingTime: r.ProcessingTimeSeconds,
		Encoding:       r.Encoding,
		Delimiter:      r.Delimiter,
		Truncated:      r.Truncated,
		FailedRecords:  make([]FailedRecordView, len(r.FailedRecords)),
		Warnings:       r.Warnings,
	}
	for i := range r.FailedRecords {
		rec := &r.FailedRecords[i]
		resp.FailedRecords[i] = FailedRecordView{
			RowNumber: rec.RowNumber,
			Data:      rec.RawData,
			ErrorInfo: rec.ErrorInfo(),
		}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	return resp
}

// ImportRunView is the JSON view of a core.ImportRun.
type ImportRunView struct {
	ID            core.ID    `json:"id"`
	Filename      string     `json:"filename"`
	ImportedBy    string     `json:"imported_by"`
	TotalRows     int        `json:"total_records"`
	ImportedCount int        `json:"imported_count"`
	FailedCount   int        `json:"failed_count"`
	SkippedCount  int        `json:"skipped_count"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Duration      float64    `json:"duration_seconds"`
	ErrorLog      string     `json:"error_log,omitempty"`
}

func newImportRunView(run *core.ImportRun) ImportRunView {
	view := ImportRunView{
		ID:            run.Id,
		Filename:      run.Filename,
		ImportedBy:    run.ImportedBy,
		TotalRows:     run.TotalRows,
		ImportedCount: run.ImportedCount,
		FailedCount:   run.FailedCount,
		SkippedCount:  run.SkippedCount,
		Status:        string(run.Status),
		StartedAt:     run.StartedAt,
		Duration:      run.Duration().Seconds(),
		ErrorLog:      run.ErrorLog,
	}
	if !run.CompletedAt.IsZero() {
		completed := run.CompletedAt
		view.CompletedAt = &completed
	}
	return view
}

// ProblemView is the JSON view of a core.Problem.
type ProblemView struct {
	ID                   core.ID   `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	EquipmentTypeID      *core.ID  `json:"equipment_type_id"`
	EquipmentTypeName    *string   `json:"equipment_type_name"`
	ProblemCategoryID    int       `json:"problem_category_id"`
	ProblemCategoryName  string    `json:"problem_category_name"`
	SolutionCategoryID   int       `json:"solution_category_id"`
	SolutionCategoryName string    `json:"solution_category_name"`
	Status               string    `json:"status"`
	Priority             string    `json:"priority"`
	Phase                string    `json:"phase"`
	DiscoveredBy         string    `json:"discovered_by"`
	DiscoveredAt         *string   `json:"discovered_at"`
	AIAnalyzed           bool      `json:"ai_analyzed"`
	AIAnalysis           string    `json:"ai_analysis"`
	Solution             string    `json:"solution_description"`
	ImportRunID          *core.ID  `json:"import_history_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func newProblemView(p *core.Problem, equipmentTypeName string) ProblemView {
	view := ProblemView{
		ID:                   p.Id,
		Title:                p.Title,
		Description:          p.Description,
		ProblemCategoryID:    p.ProblemCategoryID,
		ProblemCategoryName:  categoryName(ai.ProblemCategories, p.ProblemCategoryID),
		SolutionCategoryID:   p.SolutionCategoryID,
		SolutionCategoryName: categoryName(ai.SolutionCategories, p.SolutionCategoryID),
		Status:               string(p.Status),
		Priority:             string(p.Priority),
		Phase:                string(p.Phase),
		DiscoveredBy:         p.DiscoveredBy,
		AIAnalyzed:           p.AIAnalyzed,
		AIAnalysis:           p.AIAnalysis,
		Solution:             p.Solution,
		CreatedAt:            p.InsertedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.EquipmentTypeID != 0 {
		id := p.EquipmentTypeID
		view.EquipmentTypeID = &id
		view.EquipmentTypeName = &equipmentTypeName
	}
	if p.DiscoveredAt != nil {
		date := p.DiscoveredAt.Format(time.DateOnly)
		view.DiscoveredAt = &date
	}
	if p.ImportRunID != 0 {
		id := p.ImportRunID
		view.ImportRunID = &id
	}
	return view
}

func categoryName(table []ai.Category, id int) string {
	if c, ok := ai.CategoryByID(table, id); ok {
		return c.Name
	}
	return ""
}

// SimilarProblemView is one similarity search hit.
type SimilarProblemView struct {
	ProblemView
	Similarity float32 `json:"similarity_score"`
	Distance   float32 `json:"distance"`
	Score      float32 `json:"score"`
}

func newSimilarProblemViews(matches []*core.ProblemMatch) []SimilarProblemView {
	views := make([]SimilarProblemView, len(matches))
	for i, m := range matches {
		views[i] = SimilarProblemView{
			ProblemView: newProblemView(m.Problem, m.EquipmentTypeName),
			Similarity:  m.Similarity,
			Distance:    1 - m.Similarity,
			Score:       m.Score,
		}
	}
	return views
}

// CategoryView is one entry of a classification table.
type CategoryView struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameZH string `json:"name_zh"`
}

func newCategoryViews(table []ai.Category) []CategoryView {
	views := make([]CategoryView, len(table))
	for i, c := range table {
		views[i] = CategoryView{ID: c.ID, Name: c.Name, NameZH: c.NameZH}
	}
	return views
}
