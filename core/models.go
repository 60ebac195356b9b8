package core

import (
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Problems and import runs take IDs from store sequences, equipment types
// use content-based IDs derived from their name.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// NormalizeName folds an equipment type name for lookups.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// EquipmentTypeID returns the content ID for an equipment type name.
// Names differing only in case or surrounding whitespace share an ID.
// The ID fits in 63 bits so SQL drivers accept it as a signed integer key.
func EquipmentTypeID(name string) ID {
	id := IDFromContent("equipment_type:"+NormalizeName(name)) & math.MaxInt64
	if id == 0 {
		id = 1
	}
	return id
}

// EquipmentType is a kind of equipment that problems are reported against.
type EquipmentType struct {
	Id          ID
	Name        string
	Description string
	InsertedAt  time.Time
}

// Problem is a single equipment problem report. It is the system-of-record
// entity kept in the relational store and mirrored into the similarity index.
type Problem struct {
	Id                 ID
	Title              string
	Description        string
	EquipmentTypeID    ID // 0 when no equipment type was given
	ProblemCategoryID  int
	SolutionCategoryID int
	Status             ProblemStatus
	Priority           Priority
	Phase              Phase
	DiscoveredBy       string
	DiscoveredAt       *time.Time // date only, nil when unknown
	AIAnalyzed         bool
	AIAnalysis         string
	Solution           string
	ImportRunID        ID // 0 when created outside an import
	InsertedAt         time.Time
	UpdatedAt          time.Time
}

// ImportRun is the audit record summarising one execution of the ingestion pipeline.
type ImportRun struct {
	Id            ID
	Filename      string
	ImportedBy    string
	TotalRows     int
	ImportedCount int
	FailedCount   int
	SkippedCount  int
	Status        ImportStatus
	StartedAt     time.Time
	CompletedAt   time.Time // zero until the run reaches a terminal state
	ErrorLog      string
}

// Finished reports whether the run reached a terminal status.
func (r *ImportRun) Finished() bool {
	return r.Status == ImportStatusCompleted || r.Status == ImportStatusFailed
}

// Duration returns the elapsed time of a finished run, or the time since start otherwise.
func (r *ImportRun) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ProblemVector is the document stored by the similarity index for one problem.
type ProblemVector struct {
	ProblemID   ID
	Title       string
	Description string
	Metadata    map[string]string
	Vector      []float32 // normalised embedding
	UpdatedAt   time.Time
}

// SimilarityMatch is a raw nearest-neighbour hit from the vector store.
type SimilarityMatch struct {
	Document *ProblemVector
	Score    float32 // cosine similarity
}

// ProblemMatch is a similar-problem search result hydrated from the relational store.
type ProblemMatch struct {
	Problem           *Problem
	EquipmentTypeName string
	Similarity        float32
	Score             float32 // similarity plus ranking boosts
}

// CleanedRecord is the typed product of sanitising one tabular row.
// Enum fields always hold valid values.
type CleanedRecord struct {
	Title             string
	Description       string
	EquipmentTypeName string
	Phase             Phase
	Priority          Priority
	PriorityGiven     bool // the row supplied a valid priority
	DiscoveredBy      string
	DiscoveredAt      *time.Time
}

// Empty reports whether both title and description are blank.
func (c *CleanedRecord) Empty() bool {
	return c.Title == "" && c.Description == ""
}

// ValidationIssue is a message attached to a row during processing.
type ValidationIssue struct {
	Message  string
	Severity Severity
}

// Fatal reports whether the issue excludes the row from import.
func (i ValidationIssue) Fatal() bool {
	return i.Severity == SeverityFatal
}

// FailedRecord describes a row that was not imported.
type FailedRecord struct {
	RowNumber int
	Headers   []string // original column order
	RawData   map[string]string
	Issues    []string
}

// ErrorInfo joins the issue messages for reports.
func (f *FailedRecord) ErrorInfo() string {
	return strings.Join(f.Issues, "; ")
}
