package reindex

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/equiptrack/ai/mock"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *badger.Store
	index    *index.VectorIndex
	embedder *mock.MockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, vectors, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	embedder := mock.NewMockEmbedder()
	idx, err := index.NewVectorIndex(embedder, vectors)
	require.NoError(t, err)
	return &fixture{store: store, index: idx, embedder: embedder}
}

func testConfig() *Config {
	return &Config{BatchSize: 7, Workers: 3, ReportInterval: 5, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestNewReindexer_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := NewReindexer(nil, f.index, nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewReindexer(f.store, nil, nil, nil)
	assert.ErrorIs(t, err, ErrIndexRequired)

	r, err := NewReindexer(f.store, f.index, &Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, r.config.BatchSize)
	assert.GreaterOrEqual(t, r.config.Workers, 1)
}

func TestReindexer_EmptyStore(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	r, err := NewReindexer(f.store, f.index, testConfig(), &out)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Contains(t, out.String(), "No problems found")
}

func TestReindexer_RestoresClearedIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	et, err := f.store.GetOrCreateEquipmentType(ctx, "Heat exchanger")
	require.NoError(t, err)

	added := addProblems(t, f.store, 30)
	added[0].EquipmentTypeID = et.Id
	_, err = f.store.UpdateProblems(ctx, added[0])
	require.NoError(t, err)

	// The index was emptied out of band.
	require.NoError(t, f.index.Clear(ctx))

	var out bytes.Buffer
	r, err := NewReindexer(f.store, f.index, testConfig(), &out)
	require.NoError(t, err)
	report, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 30, report.Total)
	assert.Equal(t, 30, report.Indexed)
	assert.Zero(t, report.Failed())
	assert.False(t, report.Cleared)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, count)

	doc, err := f.index.Get(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Heat exchanger", doc.Metadata[index.MetaEquipmentType])

	matches, err := f.index.Search(ctx, added[5].Title+" "+added[5].Description, 1, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, added[5].Id, matches[0].ID)

	assert.Contains(t, out.String(), "Starting reindex of 30 problems")
	assert.Contains(t, out.String(), "Reindex complete")
}

func TestReindexer_ClearRemovesStaleDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addProblems(t, f.store, 4)

	stale := index.Document{ID: 9999, Title: "Deleted long ago", Description: "gone"}
	require.NoError(t, f.index.Upsert(ctx, stale))

	cfg := testConfig()
	cfg.Clear = true
	r, err := NewReindexer(f.store, f.index, cfg, nil)
	require.NoError(t, err)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Cleared)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	_, err = f.index.Get(ctx, stale.ID)
	assert.Error(t, err)
}

func TestReindexer_RetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	addProblems(t, f.store, 10)

	var calls atomic.Int32
	f.embedder.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("rate limited")
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	})

	cfg := testConfig()
	cfg.BatchSize = 10
	cfg.Workers = 1
	r, err := NewReindexer(f.store, f.index, cfg, nil)
	require.NoError(t, err)
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.Indexed)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReindexer_PersistentFailuresAreReported(t *testing.T) {
	f := newFixture(t)
	addProblems(t, f.store, 12)
	f.embedder.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	})

	r, err := NewReindexer(f.store, f.index, testConfig(), nil)
	require.NoError(t, err)
	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Indexed)
	assert.Equal(t, 12, report.Failed())
	for _, failure := range report.Failures {
		assert.ErrorContains(t, failure.Err, "embedding service down")
	}
}

func TestReindexer_InvalidDocumentsAreFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addProblems(t, f.store, 3)
	_, err := f.store.AddProblems(ctx, &core.Problem{
		Title: "", Description: "untitled problem",
		Status: core.ProblemStatusNew, Priority: core.DefaultPriority, Phase: core.DefaultPhase,
	})
	require.NoError(t, err)

	r, err := NewReindexer(f.store, f.index, testConfig(), nil)
	require.NoError(t, err)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Indexed)
	require.Equal(t, 1, report.Failed())
	assert.ErrorIs(t, report.Failures[0].Err, index.ErrInvalidDocument)
}

func TestReindexer_Cancelled(t *testing.T) {
	f := newFixture(t)
	addProblems(t, f.store, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := NewReindexer(f.store, f.index, testConfig(), nil)
	require.NoError(t, err)
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
