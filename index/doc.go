// Package index maintains the similarity index over problems.
//
// Each problem is mirrored into a VectorRepository as a ProblemVector whose
// embedding is computed from the problem title and description. The index
// is a best-effort accelerator: the relational store remains the system of
// record and the index may be rebuilt from it at any time (see package
// reindex).
package index
