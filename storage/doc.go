// Package storage provides the storage abstraction layer for equiptrack.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Two backends implement them:
//
//   - storage/badger: embedded BadgerDB, implements every repository including
//     the VectorRepository used by the similarity index
//   - storage/gormstore: relational databases through GORM (SQLite, PostgreSQL,
//     MySQL), implements Store
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - ProblemRepository: problem reports, batch inserts are atomic
//   - EquipmentTypeRepository: equipment types, unique by normalised name
//   - ImportRunRepository: the import audit trail
//   - Store: the three above, i.e. the relational system of record
//   - VectorRepository: embedded problem documents and nearest-neighbour search
//
// # Usage
//
// Open an embedded store:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := badger.NewStore(backend)
//
// Use in tests with in-memory storage:
//
//	store, vectors, backend, err := badger.NewMemoryStore()
//
// # Errors
//
// Constraint failures are reported wrapped in ErrConstraintViolation or
// ErrDuplicateKey. Their messages deliberately contain the phrases the
// ingestion pipeline treats as fatal for a row.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
