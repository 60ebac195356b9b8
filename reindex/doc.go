// Package reindex rebuilds the similarity index from the relational store.
//
// Problems are read in ID order in fixed-size batches, turned into index
// documents and pushed concurrently on a worker pool. Embedding calls are
// retried with exponential backoff, and progress is written to an io.Writer.
package reindex
