package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a batch push allows no attempts.
	ErrInvalidMaxAttempts = errors.New("push attempts must be greater than 0")

	// ErrStoreRequired is returned when a problem store is not provided.
	ErrStoreRequired = errors.New("problem store required")

	// ErrIndexRequired is returned when a similarity index is not provided.
	ErrIndexRequired = errors.New("similarity index required")
)
