package index

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/equiptrack/ai/mock"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/storage"
	"github.com/poiesic/equiptrack/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, embedder *mock.MockEmbedder) (*VectorIndex, storage.VectorRepository) {
	t.Helper()
	store, vectors, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	idx, err := NewVectorIndex(embedder, vectors)
	require.NoError(t, err)
	return idx, vectors
}

func TestNewVectorIndex_RequiresCollaborators(t *testing.T) {
	_, err := NewVectorIndex(nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewVectorIndex(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestDocumentFromProblem(t *testing.T) {
	discovered := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := DocumentFromProblem(&core.Problem{
		Id:           42,
		Title:        "Overheating",
		Description:  "Temperature too high",
		Phase:        core.PhaseUsage,
		Priority:     core.PriorityHigh,
		Status:       core.ProblemStatusAnalyzed,
		DiscoveredBy: "li",
		DiscoveredAt: &discovered,
	}, "Pump")

	assert.Equal(t, core.ID(42), doc.ID)
	assert.Equal(t, "42", doc.Metadata[MetaProblemID])
	assert.Equal(t, "Pump", doc.Metadata[MetaEquipmentType])
	assert.Equal(t, "usage", doc.Metadata[MetaPhase])
	assert.Equal(t, "high", doc.Metadata[MetaPriority])
	assert.Equal(t, "analyzed", doc.Metadata[MetaStatus])
	assert.Equal(t, "2024-03-01", doc.Metadata[MetaDiscoveredAt])
	assert.Equal(t, "Overheating Temperature too high", doc.Content())
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{"valid", Document{ID: 1, Title: "t"}, false},
		{"missing id", Document{Title: "t"}, true},
		{"missing title", Document{ID: 1, Description: "d"}, true},
		{"description at limit", Document{ID: 1, Title: "t", Description: strings.Repeat("a", MaxDescriptionLength)}, false},
		{"description over limit", Document{ID: 1, Title: "t", Description: strings.Repeat("a", MaxDescriptionLength+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDocument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocument_ContentTruncated(t *testing.T) {
	doc := Document{ID: 1, Title: "标题", Description: strings.Repeat("描", MaxContentLength)}
	assert.Equal(t, MaxContentLength, len([]rune(doc.Content())))
}

func TestUpsertAndSearch(t *testing.T) {
	idx, _ := newTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()

	pump := Document{ID: 1, Title: "Pump seal leak", Description: "Oil around the shaft"}
	fan := Document{ID: 2, Title: "Fan noise", Description: "Bearing worn"}
	require.NoError(t, idx.Upsert(ctx, pump))
	require.NoError(t, idx.Upsert(ctx, fan))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matches, err := idx.Search(ctx, pump.Content(), 5, 0.99)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, core.ID(1), matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-4)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-4)

	// Upsert replaces.
	pump.Title = "Pump seal leak (updated)"
	require.NoError(t, idx.Upsert(ctx, pump))
	got, err := idx.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pump seal leak (updated)", got.Title)
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsert_Errors(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	idx, _ := newTestIndex(t, embedder)
	ctx := context.Background()

	err := idx.Upsert(ctx, Document{ID: 1})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Zero(t, embedder.CallCount())

	embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	})
	err = idx.Upsert(ctx, Document{ID: 1, Title: "t"})
	assert.ErrorContains(t, err, "embedding service down")
}

func TestUpsertBatch(t *testing.T) {
	idx, _ := newTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()

	result, err := idx.UpsertBatch(ctx, []Document{
		{ID: 1, Title: "a"},
		{ID: 2},
		{ID: 3, Title: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, core.ID(2), result.Failures[0].ID)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertBatch_EmbeddingMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})
	idx, _ := newTestIndex(t, embedder)

	_, err := idx.UpsertBatch(context.Background(), []Document{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}})
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestSearch_EmptyQuery(t *testing.T) {
	idx, _ := newTestIndex(t, mock.NewMockEmbedder())
	_, err := idx.Search(context.Background(), "   ", 5, 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestDeleteAndClear(t *testing.T) {
	idx, _ := newTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, Document{ID: 1, Title: "a"}))
	require.NoError(t, idx.Upsert(ctx, Document{ID: 2, Title: "b"}))

	require.NoError(t, idx.Delete(ctx, 1))
	require.NoError(t, idx.Delete(ctx, 99))
	_, err := idx.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, idx.Clear(ctx))
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want []float32
	}{
		{"empty", []float32{}, []float32{}},
		{"zero", []float32{0, 0}, []float32{0, 0}},
		{"3-4-5", []float32{3, 4}, []float32{0.6, 0.8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVector(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-6)
			}
		})
	}
}
