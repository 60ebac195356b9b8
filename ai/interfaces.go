package ai

import (
	"context"

	"github.com/poiesic/equiptrack/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier analyses a problem report and suggests categories and a priority.
// Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// Classify returns the analysis for one problem.
	// Callers treat an error as "no analysis available" and fall back to defaults.
	Classify(ctx context.Context, req ClassificationRequest) (*Classification, error)
}

// DesignAdvisor turns a design query plus similar historical problems into advice.
type DesignAdvisor interface {
	SuggestDesign(ctx context.Context, query string, history []HistoricalProblem) (string, error)
}

// ClassificationRequest is the input to a Classifier.
type ClassificationRequest struct {
	Title         string
	Description   string
	EquipmentType string
	Phase         core.Phase
}

// Classification is the output of a Classifier.
// Category IDs are nil when the service could not suggest one.
type Classification struct {
	AnalysisText       string
	ProblemCategoryID  *int
	SolutionCategoryID *int
	Priority           core.Priority // empty when no valid suggestion
	Confidence         float64
}

// HistoricalProblem is the view of a past problem handed to a DesignAdvisor.
type HistoricalProblem struct {
	Title       string
	Description string
	AIAnalysis  string
	Solution    string
	Phase       core.Phase
	Similarity  float32
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the service instances, ensuring they share
// configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Classifier returns the problem classification service.
	Classifier() Classifier

	// Advisor returns the design suggestion service.
	Advisor() DesignAdvisor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
