// Package ingestion implements the tabular ingestion pipeline that bulk-loads
// equipment problems from delimited text files.
//
// An import run moves through a fixed sequence of stages:
//
//	Initializing → ResolvingEncoding → DetectingDelimiter → ValidatingHeader
//	→ StreamingRows → Finalizing → Completed | Failed
//
// Structural problems (illegal path, oversize file, undecodable content,
// missing required columns) fail the run before any row is read. Row-level
// problems are attached to the row as issues; a row with a fatal issue is
// diverted into the failed-record list while the rest of the file continues
// to import. Valid rows are committed to the relational store in bounded
// batches, one transaction per batch, and then pushed to the similarity
// index on a best-effort basis.
//
// A run is single-threaded and an Importer must not be reused concurrently.
package ingestion
