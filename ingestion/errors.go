package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrClassifierRequired is returned when a classifier is not provided.
	ErrClassifierRequired = errors.New("classifier required")

	// ErrIllegalPath is returned for paths that escape the base directory.
	ErrIllegalPath = errors.New("illegal file path: path traversal rejected")

	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEncodingUnresolved is returned when no candidate encoding decodes the file.
	ErrEncodingUnresolved = errors.New("unable to resolve file encoding")

	// ErrDelimiterUndetected is returned when a file has no content to detect a delimiter from.
	ErrDelimiterUndetected = errors.New("unable to detect delimiter")

	// ErrMissingHeaders is returned when required columns are absent.
	ErrMissingHeaders = errors.New("missing required headers")

	// ErrRowRejected is returned in fail-fast mode when a row has a fatal issue.
	ErrRowRejected = errors.New("row rejected")

	// ErrBatchCommit is returned when a batch transaction fails.
	ErrBatchCommit = errors.New("batch commit failed")

	// ErrMalformedFile is returned when the delimited text cannot be parsed.
	ErrMalformedFile = errors.New("malformed delimited file")

	// ErrInvalidReport is returned when a failed-records report cannot be read.
	ErrInvalidReport = errors.New("invalid failed-records report")
)
