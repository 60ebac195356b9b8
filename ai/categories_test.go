package ai

import (
	"testing"

	"github.com/poiesic/equiptrack/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCategories(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		problem    int
		solution   int
		priority   core.Priority
		confidence float64
	}{
		{
			name:       "defaults",
			text:       "nothing useful here",
			problem:    1,
			solution:   1,
			priority:   core.PriorityMedium,
			confidence: 0.7,
		},
		{
			name:       "english keywords",
			text:       "Root cause: material fatigue. Fix: material replacement. Priority: high. Confidence: 0.85",
			problem:    3,
			solution:   3,
			priority:   core.PriorityHigh,
			confidence: 0.85,
		},
		{
			name:       "chinese keywords",
			text:       "问题分类: 维护不足\n解决方案: 维护规范\n严重程度: 严重\n置信度：0.9",
			problem:    6,
			solution:   5,
			priority:   core.PriorityCritical,
			confidence: 0.9,
		},
		{
			name:       "low is a whole word",
			text:       "air flow below spec, allow recalibration",
			problem:    1,
			solution:   1,
			priority:   core.PriorityMedium,
			confidence: 0.7,
		},
		{
			name:       "out of range confidence ignored",
			text:       "confidence: 7.5, severity low",
			problem:    1,
			solution:   1,
			priority:   core.PriorityLow,
			confidence: 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ExtractCategories(tt.text)
			require.NotNil(t, c.ProblemCategoryID)
			require.NotNil(t, c.SolutionCategoryID)
			assert.Equal(t, tt.problem, *c.ProblemCategoryID)
			assert.Equal(t, tt.solution, *c.SolutionCategoryID)
			assert.Equal(t, tt.priority, c.Priority)
			assert.InDelta(t, tt.confidence, c.Confidence, 1e-9)
			assert.Equal(t, tt.text, c.AnalysisText)
		})
	}
}

func TestCategoryByID(t *testing.T) {
	c, ok := CategoryByID(ProblemCategories, 8)
	require.True(t, ok)
	assert.Equal(t, "compatibility issue", c.Name)

	_, ok = CategoryByID(SolutionCategories, 99)
	assert.False(t, ok)
}

func TestCategoryTables(t *testing.T) {
	for _, table := range [][]Category{ProblemCategories, SolutionCategories} {
		require.Len(t, table, 8)
		for i, c := range table {
			assert.Equal(t, i+1, c.ID)
			assert.NotEmpty(t, c.Keywords)
		}
	}
}
