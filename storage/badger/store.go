package badger

import (
	"errors"

	"github.com/poiesic/equiptrack/storage"
)

// Store bundles the BadgerDB repositories into a storage.Store.
type Store struct {
	*ProblemRepository
	*EquipmentTypeRepository
	*ImportRunRepository
}

var _ storage.Store = (*Store)(nil)

// NewStore creates every relational repository over one backend.
// The backend stays owned by the caller.
func NewStore(backend *Backend) (*Store, error) {
	problems, err := NewProblemRepository(backend)
	if err != nil {
		return nil, err
	}
	runs, err := NewImportRunRepository(backend)
	if err != nil {
		problems.Close()
		return nil, err
	}
	return &Store{
		ProblemRepository:       problems,
		EquipmentTypeRepository: NewEquipmentTypeRepository(backend),
		ImportRunRepository:     runs,
	}, nil
}

// Close releases the repositories' sequences.
func (s *Store) Close() error {
	return errors.Join(
		s.ProblemRepository.Close(),
		s.EquipmentTypeRepository.Close(),
		s.ImportRunRepository.Close(),
	)
}
