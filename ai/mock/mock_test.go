package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder()
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "pump seal leak")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "pump seal leak")
	require.NoError(t, err)
	c, err := e.EmbedText(ctx, "fan bearing noise")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 3, e.CallCount())

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4, "vectors are unit length")
}

func TestMockEmbedder_Override(t *testing.T) {
	e := NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	})
	_, err := e.EmbedText(context.Background(), "x")
	assert.Error(t, err)

	e.Reset()
	assert.Zero(t, e.CallCount())
	_, err = e.EmbedText(context.Background(), "x")
	assert.NoError(t, err)
}

func TestMockClassifier(t *testing.T) {
	c := NewMockClassifier()

	result, err := c.Classify(context.Background(), ai.ClassificationRequest{
		Title:       "Casing corrosion",
		Description: "Corrosion from the humid environment",
		Phase:       core.PhaseMaintenance,
	})
	require.NoError(t, err)
	require.NotNil(t, result.ProblemCategoryID)
	assert.Equal(t, 7, *result.ProblemCategoryID)
	assert.Equal(t, core.PriorityMedium, result.Priority)
	assert.Contains(t, result.AnalysisText, "environmental factor")
	assert.Contains(t, result.AnalysisText, "Discovered during: maintenance")
	assert.Equal(t, 1, c.CallCount())
	assert.Len(t, c.Requests(), 1)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProviderWithServices(NewMockEmbedder(), NewMockClassifier(), NewMockAdvisor())
	var _ ai.AIProvider = p

	advice, err := p.Advisor().SuggestDesign(context.Background(), "seal design", []ai.HistoricalProblem{{Title: "Seal leak"}})
	require.NoError(t, err)
	assert.Contains(t, advice, "Most similar: Seal leak")
	assert.Equal(t, 1, p.GetMockAdvisor().CallCount())
	assert.NoError(t, p.Close())
}
