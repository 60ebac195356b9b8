package ingestion

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/xuri/excelize/v2"
)

// Extra columns appended to failed-record reports.
const (
	ErrorInfoColumn = "error_info"
	RowNumberColumn = "row_number"
)

const reportSheet = "Sheet1"

func defaultReportName(now time.Time) string {
	return fmt.Sprintf("failed_records_%s.csv", now.Format("20060102_150405"))
}

// SaveFailedRecords writes records as a table of their original columns plus
// error_info and row_number. Paths ending in .xlsx produce a spreadsheet,
// anything else CSV. An empty outputPath writes a timestamped CSV into the
// working directory. Returns the path written.
func SaveFailedRecords(records []core.FailedRecord, outputPath string) (string, error) {
	if outputPath == "" {
		outputPath = defaultReportName(time.Now())
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}

	rows := reportRows(records)
	var err error
	if isSpreadsheet(outputPath) {
		err = writeSpreadsheet(outputPath, rows)
	} else {
		err = writeCSV(outputPath, rows)
	}
	if err != nil {
		return "", err
	}
	return outputPath, nil
}

// reportColumns is the union of the records' headers in first-seen order.
// Keys of RawData missing from Headers are appended in sorted order.
func reportColumns(records []core.FailedRecord) []string {
	seen := make(map[string]bool)
	var columns []string
	add := func(name string) {
		if name == ErrorInfoColumn || name == RowNumberColumn || seen[name] {
			return
		}
		seen[name] = true
		columns = append(columns, name)
	}
	for _, rec := range records {
		for _, h := range rec.Headers {
			add(h)
		}
	}
	var extra []string
	for _, rec := range records {
		for key := range rec.RawData {
			if !seen[key] {
				extra = append(extra, key)
			}
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		add(key)
	}
	return columns
}

func reportRows(records []core.FailedRecord) [][]string {
	columns := reportColumns(records)
	header := append(append([]string{}, columns...), ErrorInfoColumn, RowNumberColumn)
	rows := [][]string{header}
	for _, rec := range records {
		row := make([]string, 0, len(header))
		for _, col := range columns {
			row = append(row, rec.RawData[col])
		}
		row = append(row, rec.ErrorInfo(), strconv.Itoa(rec.RowNumber))
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSpreadsheet(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for n, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func isSpreadsheet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// LoadFailedRecords reads a report written by SaveFailedRecords.
func LoadFailedRecords(path string) ([]core.FailedRecord, error) {
	var rows [][]string
	var err error
	if isSpreadsheet(path) {
		rows, err = readSpreadsheet(path)
	} else {
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidReport)
	}

	header := rows[0]
	errorCol, rowCol := -1, -1
	for i, h := range header {
		switch h {
		case ErrorInfoColumn:
			errorCol = i
		case RowNumberColumn:
			rowCol = i
		}
	}
	if errorCol < 0 || rowCol < 0 {
		return nil, fmt.Errorf("%w: missing %s or %s column", ErrInvalidReport, ErrorInfoColumn, RowNumberColumn)
	}

	var columns []string
	for i, h := range header {
		if i != errorCol && i != rowCol {
			columns = append(columns, h)
		}
	}

	records := make([]core.FailedRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		cell := func(i int) string {
			if i < len(row) {
				return row[i]
			}
			return ""
		}
		rowNumber, err := strconv.Atoi(cell(rowCol))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad row number %q", ErrInvalidReport, n+2, cell(rowCol))
		}
		rec := core.FailedRecord{
			RowNumber: rowNumber,
			Headers:   columns,
			RawData:   make(map[string]string, len(columns)),
		}
		for i, h := range header {
			if i != errorCol && i != rowCol {
				rec.RawData[h] = cell(i)
			}
		}
		if info := cell(errorCol); info != "" {
			rec.Issues = strings.Split(info, "; ")
		}
		records = append(records, rec)
	}
	return records, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	return rows, nil
}

func readSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet has no sheets", ErrInvalidReport)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	return rows, nil
}
