package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
)

// MockClassifier is a rule-based ai.Classifier.
type MockClassifier struct {
	// ClassifyFunc is called by Classify if set.
	ClassifyFunc func(ctx context.Context, req ai.ClassificationRequest) (*ai.Classification, error)

	mu        sync.Mutex
	callCount int
	requests  []ai.ClassificationRequest
}

// NewMockClassifier creates a classifier with the simulated-analysis behavior.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// WithClassifyFunc overrides Classify.
func (m *MockClassifier) WithClassifyFunc(fn func(ctx context.Context, req ai.ClassificationRequest) (*ai.Classification, error)) *MockClassifier {
	m.ClassifyFunc = fn
	return m
}

// Classify writes a simulated analysis for the request and classifies it
// with ai.ExtractCategories.
func (m *MockClassifier) Classify(ctx context.Context, req ai.ClassificationRequest) (*ai.Classification, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := req.Title + " " + req.Description
	result := ai.ExtractCategories(text)
	result.AnalysisText = simulatedAnalysis(req, result)
	return result, nil
}

// CallCount returns the number of times Classify was called.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of every request received.
func (m *MockClassifier) Requests() []ai.ClassificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.ClassificationRequest(nil), m.requests...)
}

// Reset clears the call history and custom function.
func (m *MockClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
	m.ClassifyFunc = nil
}

func simulatedAnalysis(req ai.ClassificationRequest, c *ai.Classification) string {
	problem, _ := ai.CategoryByID(ai.ProblemCategories, *c.ProblemCategoryID)
	solution, _ := ai.CategoryByID(ai.SolutionCategories, *c.SolutionCategoryID)
	phase := req.Phase
	if phase == "" {
		phase = core.DefaultPhase
	}

	var b strings.Builder
	b.WriteString("Simulated analysis\n")
	fmt.Fprintf(&b, "Problem category: %s (%s)\n", problem.Name, problem.NameZH)
	fmt.Fprintf(&b, "Suggested solution: %s (%s)\n", solution.Name, solution.NameZH)
	fmt.Fprintf(&b, "Suggested priority: %s\n", c.Priority)
	fmt.Fprintf(&b, "Discovered during: %s\n", phase)
	fmt.Fprintf(&b, "Confidence: %.2f\n", c.Confidence)
	fmt.Fprintf(&b, "Original problem: %s - %s", req.Title, req.Description)
	return b.String()
}
