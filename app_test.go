package equiptrack

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/equiptrack/ai/mock"
	"github.com/poiesic/equiptrack/config"
	"github.com/poiesic/equiptrack/ingestion"
	"github.com/poiesic/equiptrack/reindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(dir, "problems")
	cfg.Index.Path = filepath.Join(dir, "index")
	cfg.Import.BaseDir = dir
	cfg.Server.UploadDir = filepath.Join(dir, "uploads")
	cfg.AI.Provider = "mock"
	return cfg
}

func TestNewApp(t *testing.T) {
	t.Run("badger storage", func(t *testing.T) {
		app, err := NewApp(testConfig(t))
		require.NoError(t, err)
		defer app.Close()

		assert.NotNil(t, app.Store())
		assert.NotNil(t, app.Index())
		assert.NotNil(t, app.Provider())
		assert.NotNil(t, app.storeBackend)
	})

	t.Run("sqlite storage", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.DSN = filepath.Join(t.TempDir(), "problems.db")

		app, err := NewApp(cfg)
		require.NoError(t, err)
		defer app.Close()

		assert.Nil(t, app.storeBackend)
		count, err := app.Store().CountProblems(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Driver = "oracle"
		app, err := NewApp(cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Nil(t, app)
	})

	t.Run("index path is a file", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.WriteFile(cfg.Index.Path, []byte("test"), 0o644))

		app, err := NewApp(cfg)
		assert.Error(t, err)
		assert.Nil(t, app)
	})
}

func TestApp_Close(t *testing.T) {
	app, err := NewApp(testConfig(t), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}

func TestApp_Factories(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewApp(cfg)
	require.NoError(t, err)
	defer app.Close()
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Import.BaseDir, "problems.csv"),
		[]byte("title,description,equipment_type\nOverheating,Temperature too high,Pump\nSeal leak,Oil on floor,Pump\n"), 0o644))

	importer, err := app.NewImporter()
	require.NoError(t, err)
	result, err := importer.ImportFile(ctx, "problems.csv", ingestion.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ImportedCount)

	searcher, err := app.NewSearcher()
	require.NoError(t, err)
	matches, err := searcher.FindSimilar(ctx, "Overheating Temperature too high", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Overheating", matches[0].Problem.Title)
	assert.Equal(t, "Pump", matches[0].EquipmentTypeName)

	require.NoError(t, app.Index().Clear(ctx))
	var progress bytes.Buffer
	reindexer, err := app.NewReindexer(reindex.DefaultConfig(), &progress)
	require.NoError(t, err)
	report, err := reindexer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	count, err := app.Index().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	srv, err := app.NewServer()
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}
