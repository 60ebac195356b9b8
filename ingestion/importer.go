// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/storage"
)

// Stage is a state of the import state machine.
type Stage string

const (
	StageInitializing       Stage = "initializing"
	StageResolvingEncoding  Stage = "resolving_encoding"
	StageDetectingDelimiter Stage = "detecting_delimiter"
	StageValidatingHeader   Stage = "validating_header"
	StageStreamingRows      Stage = "streaming_rows"
	StageFinalizing         Stage = "finalizing"
	StageCompleted          Stage = "completed"
	StageFailed             Stage = "failed"
)

// ImportResult is returned by ImportFile. On failure it is returned, partially
// filled, together with the error.
type ImportResult struct {
	Message               string
	Stage                 Stage // Completed or Failed
	ImportedCount         int
	FailedCount           int
	SkippedCount          int
	TotalCount            int // data rows seen, header excluded
	ErrorCount            int // warnings plus fatal issues
	IndexFailures         int
	HistoryID             core.ID
	ProcessingTimeSeconds float64
	Encoding              string
	Delimiter             string
	Truncated             bool // the row limit stopped streaming
	FailedRecords         []core.FailedRecord
	Warnings              []string // row-tagged warning messages
}

// Importer runs the tabular ingestion pipeline.
type Importer struct {
	store      storage.Store
	classifier ai.Classifier
	index      index.Index
	committer  *Committer
	sanitizer  *Sanitizer
	severity   SeverityFunc
	limits     Limits
	baseDir    string
	reportDir  string
	logger     *slog.Logger
}

// NewImporter creates an importer writing to store and classifying rows with classifier.
func NewImporter(store storage.Store, classifier ai.Classifier, opts ...Option) (*Importer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}

	i := &Importer{
		store:      store,
		classifier: classifier,
		severity:   ClassifySeverity,
		limits:     DefaultLimits(),
		baseDir:    ".",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.reportDir == "" {
		i.reportDir = i.baseDir
	}

	i.logger = i.logger.With("component", "ingestion")
	i.sanitizer = NewSanitizer(i.limits)
	i.committer = NewCommitter(store, i.index, i.logger)
	return i, nil
}

// ImportFile imports the delimited file at path, relative to the base directory.
func (i *Importer) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	r := &importRun{
		Importer: i,
		opts:     opts,
		started:  time.Now(),
		result:   &ImportResult{},
		logger:   i.logger.With("file", path),
	}
	r.enter(StageInitializing)

	fullPath, err := i.checkFile(path)
	if err != nil {
		return r.abort(err)
	}

	r.run = &core.ImportRun{
		Filename:   filepath.Base(fullPath),
		ImportedBy: opts.ImportedBy,
		Status:     core.ImportStatusProcessing,
		StartedAt:  r.started.UTC(),
	}
	if _, err := i.store.AddImportRun(ctx, r.run); err != nil {
		return r.abort(fmt.Errorf("recording import run: %w", err))
	}
	r.result.HistoryID = r.run.Id

	return r.finalize(ctx, r.execute(ctx, fullPath))
}

// ValidateHeader checks a file's path, size, encoding, delimiter and header
// without importing it. Missing columns are reported in the HeaderReport,
// not as an error.
func (i *Importer) ValidateHeader(path string) (*HeaderReport, error) {
	fullPath, err := i.checkFile(path)
	if err != nil {
		return nil, err
	}
	t, err := i.openTable(fullPath, func(Stage) {})
	if err != nil {
		return nil, err
	}
	defer t.Close()
	return ValidateHeaders(t.headers), nil
}

// SaveFailedRecords writes a failed-records report. An empty outputPath
// writes a timestamped CSV into the report directory.
func (i *Importer) SaveFailedRecords(records []core.FailedRecord, outputPath string) (string, error) {
	if outputPath == "" {
		outputPath = filepath.Join(i.reportDir, defaultReportName(time.Now()))
	}
	return SaveFailedRecords(records, outputPath)
}

// resolvePath rejects paths that could escape the base directory.
func (i *Importer) resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" || strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: %q", ErrIllegalPath, path)
	}
	slashed := strings.ReplaceAll(path, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(path) || hasDriveLetter(path) {
		return "", fmt.Errorf("%w: absolute path %q", ErrIllegalPath, path)
	}
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrIllegalPath, path)
		}
	}
	return filepath.Join(i.baseDir, filepath.FromSlash(slashed)), nil
}

func hasDriveLetter(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// checkFile runs the Initializing checks and returns the resolved path.
func (i *Importer) checkFile(path string) (string, error) {
	fullPath, err := i.resolvePath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > i.limits.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes exceeds the limit of %d", ErrFileTooLarge, info.Size(), i.limits.MaxFileSize)
	}
	return fullPath, nil
}

// table is a decoded file positioned after its header row.
type table struct {
	encoding  string
	delimiter rune
	headers   []string
	src       io.ReadCloser
	reader    *csv.Reader
}

func (t *table) Close() error {
	return t.src.Close()
}

// openTable resolves the encoding, detects the delimiter and reads the header row.
func (i *Importer) openTable(path string, enter func(Stage)) (*table, error) {
	enter(StageResolvingEncoding)
	resolution, err := ResolveEncoding(path, i.limits.EncodingSampleSize)
	if err != nil {
		return nil, err
	}

	enter(StageDetectingDelimiter)
	if strings.TrimSpace(resolution.Sample) == "" {
		return nil, fmt.Errorf("%w: file has no content", ErrDelimiterUndetected)
	}
	delimiter := DetectOrDefault(resolution.Sample)

	enter(StageValidatingHeader)
	src, err := resolution.OpenDecoded(path)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(src)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		src.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file has no header row", ErrMissingHeaders)
		}
		return nil, fmt.Errorf("%w: header row: %w", ErrMalformedFile, err)
	}
	for n, h := range headers {
		headers[n] = strings.TrimSpace(strings.TrimPrefix(h, bom))
	}

	return &table{
		encoding:  resolution.Encoding,
		delimiter: delimiter,
		headers:   headers,
		src:       src,
		reader:    reader,
	}, nil
}

// importRun holds the mutable state of one ImportFile call.
type importRun struct {
	*Importer
	opts    ImportOptions
	started time.Time
	stage   Stage
	run     *core.ImportRun
	result  *ImportResult
	batch   []PendingProblem
	logger  *slog.Logger
}

func (r *importRun) enter(stage Stage) {
	r.stage = stage
	r.logger.Debug("import stage", "stage", stage)
}

// abort fails the run before an ImportRun exists.
func (r *importRun) abort(err error) (*ImportResult, error) {
	r.result.Stage = StageFailed
	r.result.Message = err.Error()
	r.result.ProcessingTimeSeconds = time.Since(r.started).Seconds()
	r.logger.Error("import rejected", "stage", r.stage, "err", err)
	return r.result, err
}

func (r *importRun) execute(ctx context.Context, path string) error {
	t, err := r.openTable(path, r.enter)
	if err != nil {
		return err
	}
	defer t.Close()

	r.result.Encoding = t.encoding
	r.result.Delimiter = string(t.delimiter)

	report := ValidateHeaders(t.headers)
	if !report.Valid {
		return fmt.Errorf("%w: %s", ErrMissingHeaders, report.Message)
	}

	r.enter(StageStreamingRows)
	equipment := make(map[string]core.ID)
	if err := r.stream(ctx, t, equipment); err != nil {
		return err
	}

	r.enter(StageFinalizing)
	return r.flush(ctx)
}

// stream processes data rows in file order. Row numbers count physical lines
// with the header as row 0.
func (r *importRun) stream(ctx context.Context, t *table, equipment map[string]core.ID) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := t.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if r.result.TotalCount >= r.limits.MaxRows {
			r.result.Truncated = true
			r.result.Warnings = append(r.result.Warnings,
				fmt.Sprintf("row limit of %d reached; remaining rows were not processed", r.limits.MaxRows))
			r.logger.Info("row limit reached", "limit", r.limits.MaxRows)
			return nil
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.result.TotalCount++
			r.result.ErrorCount++
			issue := core.ValidationIssue{Message: "malformed row: " + parseErr.Err.Error(), Severity: core.SeverityFatal}
			if err := r.reject(parseErr.StartLine-1, t.headers, nil, []core.ValidationIssue{issue}); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedFile, err)
		}

		line, _ := t.reader.FieldPos(0)
		r.result.TotalCount++
		if err := r.processRow(ctx, line-1, t.headers, record, equipment); err != nil {
			return err
		}
	}
}

func (r *importRun) processRow(ctx context.Context, rowNumber int, headers, record []string, equipment map[string]core.ID) error {
	raw := make(RawRow, len(headers))
	for n, h := range headers {
		if _, seen := raw[h]; seen {
			continue
		}
		if n < len(record) {
			raw[h] = record[n]
		} else {
			raw[h] = ""
		}
	}

	cleaned, found := r.sanitizer.Sanitize(raw, headers...)
	if len(record) != len(headers) {
		found = append(found, textIssue("row has %d fields, header has %d", len(record), len(headers)))
	}
	issues := classifyIssues(found, r.severity)
	r.note(rowNumber, issues)

	if hasFatal(issues) {
		return r.reject(rowNumber, headers, raw, issues)
	}
	if cleaned.Empty() {
		r.result.SkippedCount++
		return nil
	}

	equipmentID, err := r.resolveEquipmentType(ctx, cleaned.EquipmentTypeName, equipment)
	if err != nil {
		r.result.ErrorCount++
		issues = append(issues, core.ValidationIssue{
			Message:  fmt.Sprintf("equipment type '%s': %v", cleaned.EquipmentTypeName, err),
			Severity: core.SeverityFatal,
		})
		return r.reject(rowNumber, headers, raw, issues)
	}

	r.batch = append(r.batch, PendingProblem{
		Problem:           r.classify(ctx, rowNumber, cleaned, equipmentID),
		EquipmentTypeName: cleaned.EquipmentTypeName,
		RowNumber:         rowNumber,
		Headers:           headers,
		RawData:           raw,
	})
	if len(r.batch) >= r.limits.BatchSize {
		return r.flush(ctx)
	}
	return nil
}

// note counts a row's issues and keeps its warnings for the result.
func (r *importRun) note(rowNumber int, issues []core.ValidationIssue) {
	r.result.ErrorCount += len(issues)
	for _, issue := range issues {
		if !issue.Fatal() {
			r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("row %d: %s", rowNumber, issue.Message))
		}
	}
}

// reject diverts a row into the failed records, or aborts in fail-fast mode.
func (r *importRun) reject(rowNumber int, headers []string, raw RawRow, issues []core.ValidationIssue) error {
	r.result.FailedCount++
	r.result.FailedRecords = append(r.result.FailedRecords, core.FailedRecord{
		RowNumber: rowNumber,
		Headers:   headers,
		RawData:   raw,
		Issues:    issueMessages(issues),
	})
	if !r.opts.FailOnError {
		return nil
	}

	var fatal []string
	for _, issue := range issues {
		if issue.Fatal() {
			fatal = append(fatal, issue.Message)
		}
	}
	return fmt.Errorf("%w: row %d: %s", ErrRowRejected, rowNumber, strings.Join(fatal, "; "))
}

// resolveEquipmentType maps a name to its ID through the run's cache,
// creating the type on first use.
func (r *importRun) resolveEquipmentType(ctx context.Context, name string, cache map[string]core.ID) (core.ID, error) {
	if name == "" {
		return 0, nil
	}
	key := core.NormalizeName(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}
	et, err := r.store.GetOrCreateEquipmentType(ctx, name)
	if err != nil {
		return 0, err
	}
	cache[key] = et.Id
	return et.Id, nil
}

// classify builds the problem for a row and attaches the classifier's
// suggestions. A classifier failure leaves the default categories and marks
// the problem as not analysed.
func (r *importRun) classify(ctx context.Context, rowNumber int, rec core.CleanedRecord, equipmentID core.ID) *core.Problem {
	p := &core.Problem{
		Title:              rec.Title,
		Description:        rec.Description,
		EquipmentTypeID:    equipmentID,
		ProblemCategoryID:  ai.DefaultCategoryID,
		SolutionCategoryID: ai.DefaultCategoryID,
		Status:             core.ProblemStatusNew,
		Priority:           rec.Priority,
		Phase:              rec.Phase,
		DiscoveredBy:       rec.DiscoveredBy,
		DiscoveredAt:       rec.DiscoveredAt,
		ImportRunID:        r.run.Id,
	}

	c, err := r.classifier.Classify(ctx, ai.ClassificationRequest{
		Title:         rec.Title,
		Description:   rec.Description,
		EquipmentType: rec.EquipmentTypeName,
		Phase:         rec.Phase,
	})
	if err != nil || c == nil {
		r.logger.Warn("classification failed, using default categories", "row", rowNumber, "err", err)
		return p
	}

	p.AIAnalyzed = true
	p.AIAnalysis = c.AnalysisText
	p.Status = core.ProblemStatusAnalyzed
	if c.ProblemCategoryID != nil {
		p.ProblemCategoryID = *c.ProblemCategoryID
	}
	if c.SolutionCategoryID != nil {
		p.SolutionCategoryID = *c.SolutionCategoryID
	}
	if !rec.PriorityGiven && c.Priority.Valid() {
		p.Priority = c.Priority
	}
	return p
}

// flush commits the pending batch. A failed commit marks every row of the
// batch as failed and aborts the run.
func (r *importRun) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	batch := r.batch
	r.batch = nil

	committed, err := r.committer.Commit(ctx, batch)
	if err != nil {
		for _, pending := range batch {
			r.result.FailedCount++
			r.result.ErrorCount++
			r.result.FailedRecords = append(r.result.FailedRecords, core.FailedRecord{
				RowNumber: pending.RowNumber,
				Headers:   pending.Headers,
				RawData:   pending.RawData,
				Issues:    []string{err.Error()},
			})
		}
		return err
	}

	r.result.ImportedCount += len(committed.Persisted)
	r.result.IndexFailures += committed.IndexFailures
	r.checkpoint(ctx)
	return nil
}

func (r *importRun) applyCounts() {
	r.run.TotalRows = r.result.TotalCount
	r.run.ImportedCount = r.result.ImportedCount
	r.run.FailedCount = r.result.FailedCount
	r.run.SkippedCount = r.result.SkippedCount
}

// checkpoint records progress on the ImportRun after a committed batch.
func (r *importRun) checkpoint(ctx context.Context) {
	r.applyCounts()
	if _, err := r.store.UpdateImportRun(ctx, r.run); err != nil {
		r.logger.Warn("failed to record import progress", "history_id", r.run.Id, "err", err)
	}
}

// finalize moves the run to its terminal state and persists the summary.
// Rows still pending in an unflushed batch are discarded on failure.
func (r *importRun) finalize(ctx context.Context, runErr error) (*ImportResult, error) {
	r.batch = nil
	ctx = context.WithoutCancel(ctx)

	r.applyCounts()
	r.run.CompletedAt = time.Now().UTC()
	r.run.Status = core.ImportStatusCompleted
	if runErr != nil {
		r.run.Status = core.ImportStatusFailed
		r.run.ErrorLog = runErr.Error()
	}
	if _, err := r.store.UpdateImportRun(ctx, r.run); err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("recording import result: %w", err)
		} else {
			r.logger.Error("failed to record import failure", "history_id", r.run.Id, "err", err)
		}
	}

	r.result.ProcessingTimeSeconds = time.Since(r.started).Seconds()
	if runErr != nil {
		r.enter(StageFailed)
		r.result.Stage = StageFailed
		r.result.Message = "import failed: " + runErr.Error()
		r.logger.Error("import failed", "history_id", r.run.Id, "imported", r.result.ImportedCount,
			"failed", r.result.FailedCount, "err", runErr)
		return r.result, runErr
	}

	r.enter(StageCompleted)
	r.result.Stage = StageCompleted
	r.result.Message = fmt.Sprintf("import completed: %d imported, %d failed, %d skipped of %d rows",
		r.result.ImportedCount, r.result.FailedCount, r.result.SkippedCount, r.result.TotalCount)
	r.logger.Info("import completed", "history_id", r.run.Id, "imported", r.result.ImportedCount,
		"failed", r.result.FailedCount, "skipped", r.result.SkippedCount, "total", r.result.TotalCount,
		"index_failures", r.result.IndexFailures)
	return r.result, nil
}
