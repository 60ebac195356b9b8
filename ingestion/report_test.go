package ingestion

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFailedRecords() []core.FailedRecord {
	return []core.FailedRecord{
		{
			RowNumber: 3,
			Headers:   []string{"title", "description", "equipment_type"},
			RawData:   map[string]string{"title": "Valve", "description": "x'; DROP TABLE problems", "equipment_type": "阀门"},
			Issues:    []string{"possible SQL injection in field 'description'", "invalid enum value 'soon' for field 'phase', expected one of {design, development, usage, maintenance}"},
		},
		{
			RowNumber: 7,
			Headers:   []string{"title", "description", "equipment_type"},
			RawData:   map[string]string{"title": "Pump", "description": "see ../../etc/passwd", "equipment_type": ""},
			Issues:    []string{"path traversal sequence in field 'description'"},
		},
	}
}

func TestSaveFailedRecords_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.csv")
	records := sampleFailedRecords()

	written, err := SaveFailedRecords(records, path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"title", "description", "equipment_type", ErrorInfoColumn, RowNumberColumn}, rows[0])
	assert.Equal(t, "Valve", rows[1][0])
	assert.Equal(t, records[0].ErrorInfo(), rows[1][3])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "7", rows[2][4])
}

func TestFailedRecords_RoundTrip(t *testing.T) {
	for _, name := range []string{"failed.csv", "failed.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reports", name)
			records := sampleFailedRecords()

			_, err := SaveFailedRecords(records, path)
			require.NoError(t, err)

			loaded, err := LoadFailedRecords(path)
			require.NoError(t, err)
			require.Len(t, loaded, len(records))
			for i := range records {
				assert.Equal(t, records[i].RowNumber, loaded[i].RowNumber)
				assert.Equal(t, records[i].Headers, loaded[i].Headers)
				assert.Equal(t, records[i].Issues, loaded[i].Issues)
				for _, h := range records[i].Headers {
					assert.Equal(t, records[i].RawData[h], loaded[i].RawData[h], h)
				}
			}
		})
	}
}

func TestReportColumns_UnionInFirstSeenOrder(t *testing.T) {
	records := []core.FailedRecord{
		{Headers: []string{"title", "description"}, RawData: map[string]string{"title": "a"}},
		{Headers: []string{"标题", "description", "phase"}, RawData: map[string]string{"zeta": "z", "alpha": "a"}},
	}
	assert.Equal(t, []string{"title", "description", "标题", "phase", "alpha", "zeta"}, reportColumns(records))
}

func TestLoadFailedRecords_Invalid(t *testing.T) {
	dir := t.TempDir()

	noColumns := filepath.Join(dir, "plain.csv")
	require.NoError(t, os.WriteFile(noColumns, []byte("title,description\nPump,Leak\n"), 0o644))
	_, err := LoadFailedRecords(noColumns)
	assert.ErrorIs(t, err, ErrInvalidReport)

	badRow := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badRow, []byte("title,error_info,row_number\nPump,oops,first\n"), 0o644))
	_, err = LoadFailedRecords(badRow)
	assert.ErrorIs(t, err, ErrInvalidReport)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = LoadFailedRecords(empty)
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestDefaultReportName(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "failed_records_20250309_140507.csv", defaultReportName(now))
}

func TestImporter_SaveFailedRecordsEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	reports := t.TempDir()
	imp := env.importer(t, WithReportDir(reports))
	name := env.write(t, "mixed.csv", "title,description\nPump,Leak\nValve,'; DROP TABLE x\n")

	result, err := imp.ImportFile(context.Background(), name, ImportOptions{})
	require.NoError(t, err)
	require.Len(t, result.FailedRecords, 1)

	written, err := imp.SaveFailedRecords(result.FailedRecords, "")
	require.NoError(t, err)
	assert.Equal(t, reports, filepath.Dir(written))
	assert.True(t, strings.HasPrefix(filepath.Base(written), "failed_records_"))

	loaded, err := LoadFailedRecords(written)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].RowNumber)
	assert.Equal(t, "Valve", loaded[0].RawData["title"])
	assert.Equal(t, result.FailedRecords[0].Issues, loaded[0].Issues)
}
