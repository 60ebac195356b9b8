package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}

func newProblem(title string) *core.Problem {
	return &core.Problem{
		Title:       title,
		Description: title + " description",
		Status:      core.ProblemStatusNew,
		Priority:    core.DefaultPriority,
		Phase:       core.DefaultPhase,
	}
}

func TestAddProblems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddProblems(ctx, newProblem("Pump leak"), newProblem("Fan noise"))
	require.NoError(t, err)
	require.Len(t, added, 2)

	assert.NotZero(t, added[0].Id)
	assert.NotEqual(t, added[0].Id, added[1].Id)
	assert.False(t, added[0].InsertedAt.IsZero())
	assert.Equal(t, added[0].InsertedAt, added[0].UpdatedAt)

	got, err := store.GetProblem(ctx, added[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "Fan noise", got.Title)

	count, err := store.CountProblems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddProblems_AtomicOnInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bad := newProblem("Bad phase")
	bad.Phase = "testing"
	good := newProblem("Good")

	_, err := store.AddProblems(ctx, good, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrConstraintViolation)
	assert.ErrorIs(t, err, core.ErrInvalidPhase)
	assert.Contains(t, err.Error(), "database constraint violation")
	assert.Zero(t, good.Id)

	count, err := store.CountProblems(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "no problem from a failed batch should be stored")
}

func TestAddProblems_UnknownEquipmentType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := newProblem("Orphan")
	p.EquipmentTypeID = core.EquipmentTypeID("never created")
	_, err := store.AddProblems(ctx, p)
	assert.ErrorIs(t, err, storage.ErrConstraintViolation)

	et, err := store.GetOrCreateEquipmentType(ctx, "never created")
	require.NoError(t, err)
	p.EquipmentTypeID = et.Id
	_, err = store.AddProblems(ctx, p)
	assert.NoError(t, err)
}

func TestUpdateAndDeleteProblems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddProblems(ctx, newProblem("Motor stall"))
	require.NoError(t, err)
	p := added[0]
	inserted := p.InsertedAt

	time.Sleep(2 * time.Millisecond)
	p.Status = core.ProblemStatusSolved
	p.Solution = "Replaced bearing"
	_, err = store.UpdateProblems(ctx, p)
	require.NoError(t, err)

	got, err := store.GetProblem(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, core.ProblemStatusSolved, got.Status)
	assert.Equal(t, "Replaced bearing", got.Solution)
	assert.True(t, got.UpdatedAt.After(inserted))

	missing := newProblem("Missing")
	missing.Id = 9999
	_, err = store.UpdateProblems(ctx, missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.DeleteProblems(ctx, p.Id))
	_, err = store.GetProblem(ctx, p.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteProblems(ctx, p.Id), storage.ErrNotFound)
}

func TestGetAndListProblems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var problems []*core.Problem
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		problems = append(problems, newProblem(title))
	}
	added, err := store.AddProblems(ctx, problems...)
	require.NoError(t, err)

	got, err := store.GetProblems(ctx, added[0].Id, 12345, added[2].Id)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	page, err := store.ListProblems(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Title)
	assert.Equal(t, "c", page[1].Title)

	all, err := store.ListProblems(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = store.ListProblems(ctx, -1, 10)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestGetOrCreateEquipmentType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateEquipmentType(ctx, "  Centrifugal Pump ")
	require.NoError(t, err)
	assert.Equal(t, "Centrifugal Pump", first.Name)
	assert.Equal(t, core.EquipmentTypeID("centrifugal pump"), first.Id)

	again, err := store.GetOrCreateEquipmentType(ctx, "centrifugal  pump")
	require.NoError(t, err)
	assert.Equal(t, first.Id, again.Id)
	assert.Equal(t, "Centrifugal Pump", again.Name, "first spelling wins")

	found, err := store.FindEquipmentTypeByName(ctx, "CENTRIFUGAL PUMP")
	require.NoError(t, err)
	assert.Equal(t, first.Id, found.Id)

	_, err = store.FindEquipmentTypeByName(ctx, "compressor")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetOrCreateEquipmentType(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestListEquipmentTypes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Valve", "compressor", "Boiler"} {
		_, err := store.GetOrCreateEquipmentType(ctx, name)
		require.NoError(t, err)
	}

	types, err := store.ListEquipmentTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, "Boiler", types[0].Name)
	assert.Equal(t, "compressor", types[1].Name)
	assert.Equal(t, "Valve", types[2].Name)
}

func TestImportRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	var ids []core.ID
	for i := 0; i < 3; i++ {
		run, err := store.AddImportRun(ctx, &core.ImportRun{
			Filename:  "batch.csv",
			Status:    core.ImportStatusProcessing,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		assert.NotZero(t, run.Id)
		ids = append(ids, run.Id)
	}

	runs, err := store.ListImportRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].Id, "newest first")
	assert.Equal(t, ids[1], runs[1].Id)

	run, err := store.GetImportRun(ctx, ids[0])
	require.NoError(t, err)
	run.TotalRows = 10
	run.ImportedCount = 8
	run.FailedCount = 2
	run.Status = core.ImportStatusCompleted
	run.CompletedAt = time.Now().UTC()
	_, err = store.UpdateImportRun(ctx, run)
	require.NoError(t, err)

	got, err := store.GetImportRun(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 8, got.ImportedCount)
	assert.True(t, got.Finished())

	// Counts exceeding the total are rejected
	got.ImportedCount = 11
	_, err = store.UpdateImportRun(ctx, got)
	assert.ErrorIs(t, err, core.ErrInvalidCounts)

	_, err = store.GetImportRun(ctx, 4242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
