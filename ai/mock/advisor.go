package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/poiesic/equiptrack/ai"
)

// MockAdvisor is a canned ai.DesignAdvisor.
type MockAdvisor struct {
	// SuggestDesignFunc is called by SuggestDesign if set.
	SuggestDesignFunc func(ctx context.Context, query string, history []ai.HistoricalProblem) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockAdvisor creates an advisor returning a fixed checklist.
func NewMockAdvisor() *MockAdvisor {
	return &MockAdvisor{}
}

// WithSuggestDesignFunc overrides SuggestDesign.
func (m *MockAdvisor) WithSuggestDesignFunc(fn func(ctx context.Context, query string, history []ai.HistoricalProblem) (string, error)) *MockAdvisor {
	m.SuggestDesignFunc = fn
	return m
}

// SuggestDesign returns a checklist mentioning the closest historical problem.
func (m *MockAdvisor) SuggestDesign(ctx context.Context, query string, history []ai.HistoricalProblem) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.SuggestDesignFunc != nil {
		return m.SuggestDesignFunc(ctx, query, history)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Design suggestions for %q based on %d historical problems:\n", query, len(history))
	if len(history) > 0 {
		fmt.Fprintf(&b, "Most similar: %s\n", history[0].Title)
	}
	b.WriteString("1. Pay particular attention to material selection\n")
	b.WriteString("2. Add redundancy to improve reliability\n")
	b.WriteString("3. Consider environmental effects on the equipment")
	return b.String(), nil
}

// CallCount returns the number of times SuggestDesign was called.
func (m *MockAdvisor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
