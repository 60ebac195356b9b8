// Package mock provides deterministic implementations of the AI service interfaces.
//
// The mocks serve two purposes: test doubles that run without external AI
// services, and the offline "mock" provider that produces a simulated
// rule-based analysis when no model server is configured.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	classifier := mock.NewMockClassifier().
//	    WithClassifyFunc(func(ctx context.Context, req ai.ClassificationRequest) (*ai.Classification, error) {
//	        return nil, errors.New("service down")
//	    })
//
//	// Check call counts
//	count := classifier.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic unit vectors based on a text hash
//   - MockClassifier: writes a simulated analysis and classifies it by keyword
//   - MockAdvisor: returns a canned checklist naming the most similar problem
//   - MockProvider: aggregates the three
package mock
