package reindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addProblems(t *testing.T, store *badger.Store, n int) []*core.Problem {
	t.Helper()
	problems := make([]*core.Problem, n)
	for i := range problems {
		problems[i] = &core.Problem{
			Title:       fmt.Sprintf("Problem %d", i),
			Description: fmt.Sprintf("Description of problem %d", i),
			Status:      core.ProblemStatusNew,
			Priority:    core.DefaultPriority,
			Phase:       core.DefaultPhase,
		}
	}
	added, err := store.AddProblems(context.Background(), problems...)
	require.NoError(t, err)
	return added
}

func TestProblemIterator_ForEach(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		batchSize int
		batches   []int
	}{
		{"empty store", 0, 10, nil},
		{"single partial batch", 3, 10, []int{3}},
		{"exact multiple", 20, 10, []int{10, 10}},
		{"remainder", 25, 10, []int{10, 10, 5}},
		{"default batch size", 5, 0, []int{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, backend, err := badger.NewMemoryStore()
			require.NoError(t, err)
			defer func() {
				store.Close()
				backend.Close()
			}()
			added := addProblems(t, store, tt.count)

			var sizes []int
			var seen []core.ID
			err = NewProblemIterator(store, tt.batchSize).ForEach(context.Background(), func(batch []*core.Problem) error {
				sizes = append(sizes, len(batch))
				for _, p := range batch {
					seen = append(seen, p.Id)
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.batches, sizes)

			want := make([]core.ID, 0, len(added))
			for _, p := range added {
				want = append(want, p.Id)
			}
			assert.ElementsMatch(t, want, seen)
		})
	}
}

func TestProblemIterator_StopsOnError(t *testing.T) {
	store, _, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer func() {
		store.Close()
		backend.Close()
	}()
	addProblems(t, store, 30)

	calls := 0
	boom := fmt.Errorf("boom")
	err = NewProblemIterator(store, 10).ForEach(context.Background(), func([]*core.Problem) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestProblemIterator_Cancelled(t *testing.T) {
	store, _, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer func() {
		store.Close()
		backend.Close()
	}()
	addProblems(t, store, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewProblemIterator(store, 10).ForEach(ctx, func([]*core.Problem) error {
		t.Fatal("should not be called")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
