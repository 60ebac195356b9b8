package openai

import (
	"context"
	"testing"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel answers GenerateContent with canned responses in order.
type scriptedModel struct {
	responses []string
	err       error
	calls     int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := min(m.calls, len(m.responses)-1)
	m.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[i]}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newTestClassifier(model llms.Model) *Classifier {
	return newClassifierWithModel(model, ai.DefaultConfig())
}

func TestClassify_ParsesJSON(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"```json\n{\"analysis\":\"Seal swelling\",\"problem_category_id\":3,\"solution_category_id\":3,\"priority\":\"High\",\"confidence\":0.82}\n```",
	}}

	result, err := newTestClassifier(model).Classify(context.Background(), ai.ClassificationRequest{
		Title:       "Seal leak",
		Description: "Seal leaks after 200h",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, "Seal swelling", result.AnalysisText)
	require.NotNil(t, result.ProblemCategoryID)
	assert.Equal(t, 3, *result.ProblemCategoryID)
	assert.Equal(t, core.PriorityHigh, result.Priority)
	assert.InDelta(t, 0.82, result.Confidence, 1e-9)
}

func TestClassify_DropsInvalidValues(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"analysis":"x","problem_category_id":12,"solution_category_id":2,"priority":"urgent","confidence":0}`,
	}}

	result, err := newTestClassifier(model).Classify(context.Background(), ai.ClassificationRequest{Title: "t"})
	require.NoError(t, err)
	assert.Nil(t, result.ProblemCategoryID)
	require.NotNil(t, result.SolutionCategoryID)
	assert.Equal(t, 2, *result.SolutionCategoryID)
	assert.Empty(t, result.Priority)
	assert.Equal(t, ai.DefaultConfidence, result.Confidence)
}

func TestClassify_RepairsThenRetries(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"analysis":"ok", problem_category_id":6,"solution_category_id":5,"priority":"low","confidence":0.6,}`,
	}}

	result, err := newTestClassifier(model).Classify(context.Background(), ai.ClassificationRequest{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, 6, *result.ProblemCategoryID)
	assert.Equal(t, core.PriorityLow, result.Priority)
}

func TestClassify_FallsBackToKeywords(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"Root cause is insufficient maintenance. Priority: critical. Confidence: 0.6",
	}}

	result, err := newTestClassifier(model).Classify(context.Background(), ai.ClassificationRequest{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, parseAttempts, model.calls)
	assert.Equal(t, 6, *result.ProblemCategoryID)
	assert.Equal(t, core.PriorityCritical, result.Priority)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
	assert.Contains(t, result.AnalysisText, "insufficient maintenance")
}

func TestClassify_TransportError(t *testing.T) {
	model := &scriptedModel{err: assert.AnError}

	_, err := newTestClassifier(model).Classify(context.Background(), ai.ClassificationRequest{Title: "t"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBuildClassificationInput(t *testing.T) {
	input := buildClassificationInput(ai.ClassificationRequest{
		Title:         "Fan noise",
		Description:   "Grinding sound",
		EquipmentType: "Cooling fan",
		Phase:         core.PhaseUsage,
	})
	assert.Contains(t, input, "Title: Fan noise")
	assert.Contains(t, input, "Equipment type: Cooling fan")
	assert.Contains(t, input, "Discovered during: usage")

	prompt := buildClassificationPrompt()
	assert.Contains(t, prompt, "8. compatibility issue")
	assert.Contains(t, prompt, "problem_category_id")
}

func TestBuildAdvicePrompt(t *testing.T) {
	prompt := buildAdvicePrompt("pump seal design", []ai.HistoricalProblem{
		{Title: "Seal leak", Description: "Leaks", Phase: core.PhaseUsage},
	})
	assert.Contains(t, prompt, `"pump seal design"`)
	assert.Contains(t, prompt, "Problem: Seal leak")
	assert.Contains(t, prompt, "AI analysis: not analysed")
	assert.Contains(t, prompt, "Solution: none")
}
