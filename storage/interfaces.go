package storage

import (
	"context"

	"github.com/poiesic/equiptrack/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// ProblemRepository provides operations for managing problem reports.
type ProblemRepository interface {
	Repository

	// AddProblems inserts problems as one atomic batch.
	// Either every problem is persisted or none is. IDs are generated from a
	// sequence and InsertedAt/UpdatedAt are set; the returned slice holds the
	// same pointers with those fields populated.
	AddProblems(ctx context.Context, problems ...*core.Problem) ([]*core.Problem, error)

	// UpdateProblems updates existing problems.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any problem doesn't exist.
	UpdateProblems(ctx context.Context, problems ...*core.Problem) ([]*core.Problem, error)

	// DeleteProblems removes problems by their IDs.
	// Returns ErrNotFound if any problem doesn't exist.
	DeleteProblems(ctx context.Context, ids ...core.ID) error

	// GetProblem retrieves a single problem by ID.
	// Returns ErrNotFound if the problem doesn't exist.
	GetProblem(ctx context.Context, id core.ID) (*core.Problem, error)

	// GetProblems retrieves multiple problems by their IDs.
	// Returns only the problems that exist (no error for missing problems).
	GetProblems(ctx context.Context, ids ...core.ID) ([]*core.Problem, error)

	// ListProblems returns problems ordered by ID, skipping offset and returning at most limit.
	ListProblems(ctx context.Context, offset, limit int) ([]*core.Problem, error)

	// CountProblems returns the number of stored problems.
	CountProblems(ctx context.Context) (int, error)
}

// EquipmentTypeRepository provides operations for managing equipment types.
type EquipmentTypeRepository interface {
	Repository

	// FindEquipmentTypeByName looks a type up by its normalised name.
	// Returns ErrNotFound if no type has that name.
	FindEquipmentTypeByName(ctx context.Context, name string) (*core.EquipmentType, error)

	// GetOrCreateEquipmentType returns the type with the given name, creating it if needed.
	// Safe against concurrent creation of the same name.
	GetOrCreateEquipmentType(ctx context.Context, name string) (*core.EquipmentType, error)

	// GetEquipmentType retrieves an equipment type by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetEquipmentType(ctx context.Context, id core.ID) (*core.EquipmentType, error)

	// ListEquipmentTypes returns all equipment types ordered by name.
	ListEquipmentTypes(ctx context.Context) ([]*core.EquipmentType, error)
}

// ImportRunRepository persists the ImportRun audit trail.
type ImportRunRepository interface {
	Repository

	// AddImportRun inserts a run and assigns its ID.
	AddImportRun(ctx context.Context, run *core.ImportRun) (*core.ImportRun, error)

	// UpdateImportRun overwrites an existing run.
	// Returns ErrNotFound if the run doesn't exist.
	UpdateImportRun(ctx context.Context, run *core.ImportRun) (*core.ImportRun, error)

	// GetImportRun retrieves a run by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetImportRun(ctx context.Context, id core.ID) (*core.ImportRun, error)

	// ListImportRuns returns the most recently started runs first, at most limit.
	ListImportRuns(ctx context.Context, limit int) ([]*core.ImportRun, error)
}

// Store is the relational system of record.
type Store interface {
	ProblemRepository
	EquipmentTypeRepository
	ImportRunRepository
}

// VectorRepository stores embedded problem documents for the similarity index.
type VectorRepository interface {
	Repository

	// PutVector inserts or replaces the document for doc.ProblemID.
	PutVector(ctx context.Context, doc *core.ProblemVector) error

	// GetVector retrieves the document for a problem.
	// Returns ErrNotFound if there is none.
	GetVector(ctx context.Context, id core.ID) (*core.ProblemVector, error)

	// DeleteVector removes the document for a problem.
	// Deleting a missing document is not an error.
	DeleteVector(ctx context.Context, id core.ID) error

	// FindSimilar finds documents similar to the given normalised vector.
	// Returns documents with similarity >= minSimilarity, up to limit results,
	// ordered by similarity (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error)

	// CountVectors returns the number of stored documents.
	CountVectors(ctx context.Context) (int, error)

	// ClearVectors removes every stored document.
	ClearVectors(ctx context.Context) error
}
