package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/ingestion"
	"github.com/poiesic/equiptrack/reindex"
	"github.com/poiesic/equiptrack/search"
)

const (
	// multipartOverhead is allowed on top of the file size limit for form framing.
	multipartOverhead = 1 << 20

	defaultHistoryLimit = 20
	defaultPageSize     = 10
	maxPageSize         = 100
	filterScanBatch     = 500
)

// receiveUpload stores the multipart "file" field under a fresh directory in
// the upload directory. It returns the path relative to the upload directory
// and a cleanup func, or writes an error response and returns ok == false.
func (s *Server) receiveUpload(c *gin.Context) (rel string, cleanup func(), ok bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.Limits.MaxFileSize+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, "file too large", ingestion.ErrFileTooLarge)
			return "", nil, false
		}
		abortWithError(c, http.StatusBadRequest, "a CSV file is required in the 'file' field", err)
		return "", nil, false
	}

	name := uploadName(file.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		abortWithError(c, http.StatusBadRequest, "only CSV files are accepted", fmt.Errorf("got %q", file.Filename))
		return "", nil, false
	}

	dir := uuid.NewString()
	if err := os.MkdirAll(filepath.Join(s.config.UploadDir, dir), 0o755); err != nil {
		abortWithError(c, http.StatusInternalServerError, "failed to store upload", err)
		return "", nil, false
	}
	cleanup = func() {
		if err := os.RemoveAll(filepath.Join(s.config.UploadDir, dir)); err != nil {
			s.logger.Warn("failed to remove upload", "dir", dir, "err", err)
		}
	}

	rel = path.Join(dir, name)
	if err := c.SaveUploadedFile(file, filepath.Join(s.config.UploadDir, filepath.FromSlash(rel))); err != nil {
		cleanup()
		abortWithError(c, http.StatusInternalServerError, "failed to store upload", err)
		return "", nil, false
	}
	return rel, cleanup, true
}

// uploadName reduces a client-supplied filename to its final element.
func uploadName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

func (s *Server) importCSV(c *gin.Context) {
	rel, cleanup, ok := s.receiveUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	opts := ingestion.ImportOptions{ImportedBy: c.PostForm("imported_by")}
	if raw := c.PostForm("fail_on_error"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "fail_on_error must be a boolean", err)
			return
		}
		opts.FailOnError = v
	}

	importer, err := s.newImporter()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "failed to create importer", err)
		return
	}

	result, err := importer.ImportFile(c.Request.Context(), rel, opts)
	if err != nil {
		status := statusFor(err)
		resp := ErrorResponse{Code: status, Message: "CSV import failed", Details: err.Error()}
		if result != nil {
			resp.Result = newImportResponse(result)
		}
		c.AbortWithStatusJSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, newImportResponse(result))
}

func (s *Server) validateCSV(c *gin.Context) {
	rel, cleanup, ok := s.receiveUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	importer, err := s.newImporter()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "failed to create importer", err)
		return
	}
	report, err := importer.ValidateHeader(rel)
	if err != nil {
		abortWithError(c, statusFor(err), "CSV validation failed", err)
		return
	}

	missing := make([]string, len(report.Missing))
	for i, f := range report.Missing {
		missing[i] = string(f)
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":   report.Valid,
		"message": report.Message,
		"headers": report.Headers,
		"missing": missing,
	})
}

func (s *Server) listImportRuns(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	runs, err := s.store.ListImportRuns(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, statusFor(err), "failed to list import history", err)
		return
	}
	views := make([]ImportRunView, len(runs))
	for i, run := range runs {
		views[i] = newImportRunView(run)
	}
	c.JSON(http.StatusOK, gin.H{"imports": views, "count": len(views)})
}

func (s *Server) getImportRun(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	run, err := s.store.GetImportRun(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, statusFor(err), "import run not found", err)
		return
	}
	c.JSON(http.StatusOK, newImportRunView(run))
}

// problemFilter holds the optional list filters.
type problemFilter struct {
	status        core.ProblemStatus
	phase         core.Phase
	equipmentType core.ID
}

func (f problemFilter) empty() bool {
	return f.status == "" && f.phase == "" && f.equipmentType == 0
}

func (f problemFilter) match(p *core.Problem) bool {
	return (f.status == "" || p.Status == f.status) &&
		(f.phase == "" || p.Phase == f.phase) &&
		(f.equipmentType == 0 || p.EquipmentTypeID == f.equipmentType)
}

// listProblems returns one page of problems, newest first.
func (s *Server) listProblems(c *gin.Context) {
	page, ok := intQuery(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultPageSize)
	if !ok {
		return
	}
	limit = min(limit, maxPageSize)

	filter := problemFilter{
		status: core.ProblemStatus(c.Query("status")),
		phase:  core.Phase(c.Query("phase")),
	}
	if raw := c.Query("equipment_type"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "equipment_type must be an ID", err)
			return
		}
		filter.equipmentType = core.ID(id)
	}

	var (
		problems []*core.Problem
		total    int
		err      error
	)
	if filter.empty() {
		problems, total, err = s.newestPage(c, page, limit)
	} else {
		problems, total, err = s.filteredPage(c, filter, page, limit)
	}
	if err != nil {
		abortWithError(c, statusFor(err), "failed to list problems", err)
		return
	}

	names := s.equipmentTypeNames(c, problems)
	views := make([]ProblemView, len(problems))
	for i, p := range problems {
		views[i] = newProblemView(p, names[p.EquipmentTypeID])
	}
	c.JSON(http.StatusOK, gin.H{
		"problems": views,
		"total":    total,
		"page":     page,
		"pages":    (total + limit - 1) / limit,
	})
}

// newestPage reads page (1-based) of the ID-ordered listing counted from the end.
func (s *Server) newestPage(c *gin.Context, page, limit int) ([]*core.Problem, int, error) {
	ctx := c.Request.Context()
	total, err := s.store.CountProblems(ctx)
	if err != nil {
		return nil, 0, err
	}
	end := total - (page-1)*limit
	if end <= 0 {
		return []*core.Problem{}, total, nil
	}
	start := max(0, end-limit)

	problems, err := s.store.ListProblems(ctx, start, end-start)
	if err != nil {
		return nil, 0, err
	}
	reverse(problems)
	return problems, total, nil
}

// filteredPage scans every problem, keeping matches newest first.
func (s *Server) filteredPage(c *gin.Context, filter problemFilter, page, limit int) ([]*core.Problem, int, error) {
	ctx := c.Request.Context()
	var matched []*core.Problem
	err := reindex.NewProblemIterator(s.store, filterScanBatch).ForEach(ctx, func(batch []*core.Problem) error {
		for _, p := range batch {
			if filter.match(p) {
				matched = append(matched, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	reverse(matched)

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []*core.Problem{}, total, nil
	}
	return matched[start:min(start+limit, total)], total, nil
}

func reverse(problems []*core.Problem) {
	for i, j := 0, len(problems)-1; i < j; i, j = i+1, j-1 {
		problems[i], problems[j] = problems[j], problems[i]
	}
}

// equipmentTypeNames resolves the names of the types referenced by problems.
// Lookup failures leave the name empty.
func (s *Server) equipmentTypeNames(c *gin.Context, problems []*core.Problem) map[core.ID]string {
	names := make(map[core.ID]string)
	for _, p := range problems {
		if p.EquipmentTypeID == 0 {
			continue
		}
		if _, seen := names[p.EquipmentTypeID]; seen {
			continue
		}
		et, err := s.store.GetEquipmentType(c.Request.Context(), p.EquipmentTypeID)
		if err != nil {
			s.logger.Warn("error looking up equipment type", "equipment_type_id", p.EquipmentTypeID, "err", err)
			names[p.EquipmentTypeID] = ""
			continue
		}
		names[p.EquipmentTypeID] = et.Name
	}
	return names
}

func (s *Server) getProblem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := s.store.GetProblem(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, statusFor(err), "problem not found", err)
		return
	}
	names := s.equipmentTypeNames(c, []*core.Problem{p})
	c.JSON(http.StatusOK, newProblemView(p, names[p.EquipmentTypeID]))
}

func (s *Server) listEquipmentTypes(c *gin.Context) {
	types, err := s.store.ListEquipmentTypes(c.Request.Context())
	if err != nil {
		abortWithError(c, statusFor(err), "failed to list equipment types", err)
		return
	}
	sort.SliceStable(types, func(i, j int) bool { return types[i].Name < types[j].Name })

	result := make([]gin.H, len(types))
	for i, et := range types {
		result[i] = gin.H{"id": et.Id, "name": et.Name, "description": et.Description}
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listProblemCategories(c *gin.Context) {
	c.JSON(http.StatusOK, newCategoryViews(ai.ProblemCategories))
}

func (s *Server) listSolutionCategories(c *gin.Context) {
	c.JSON(http.StatusOK, newCategoryViews(ai.SolutionCategories))
}

// SearchRequest is the body of the search and suggestion endpoints.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func bindSearchRequest(c *gin.Context) (SearchRequest, bool) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return req, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		abortWithError(c, http.StatusBadRequest, "query must not be empty", search.ErrEmptyQuery)
		return req, false
	}
	return req, true
}

func (s *Server) searchSimilar(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}
	if req.Limit <= 0 {
		req.Limit = search.DefaultMaxHits
	}
	req.Limit = min(req.Limit, maxPageSize)

	matches, err := s.searcher.FindSimilar(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		abortWithError(c, statusFor(err), "similar problem search failed", err)
		return
	}
	views := newSimilarProblemViews(matches)
	c.JSON(http.StatusOK, gin.H{
		"query":            req.Query,
		"similar_problems": views,
		"count":            len(views),
	})
}

func (s *Server) designSuggestions(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}
	suggestion, err := s.searcher.SuggestDesign(c.Request.Context(), req.Query)
	if err != nil {
		abortWithError(c, statusFor(err), "design suggestion failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":            suggestion.Query,
		"suggestion":       suggestion.Text,
		"fallback":         suggestion.Fallback,
		"similar_problems": newSimilarProblemViews(suggestion.Similar),
	})
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()
	problems, err := s.store.CountProblems(ctx)
	if err != nil {
		abortWithError(c, http.StatusServiceUnavailable, "store unavailable", err)
		return
	}
	indexed, err := s.index.Count(ctx)
	if err != nil {
		abortWithError(c, http.StatusServiceUnavailable, "index unavailable", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"problems": problems,
		"indexed":  indexed,
	})
}

// intQuery parses a positive integer query parameter.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		abortWithError(c, http.StatusBadRequest, name+" must be a positive integer", err)
		return 0, false
	}
	return v, true
}

func idParam(c *gin.Context) (core.ID, bool) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || v == 0 {
		abortWithError(c, http.StatusBadRequest, "invalid id", err)
		return 0, false
	}
	return core.ID(v), true
}
