package core

import "strings"

// Phase is the lifecycle phase in which a problem was discovered.
type Phase string

const (
	PhaseDesign      Phase = "design"
	PhaseDevelopment Phase = "development"
	PhaseUsage       Phase = "usage"
	PhaseMaintenance Phase = "maintenance"
)

// DefaultPhase is substituted for missing or invalid phases.
const DefaultPhase = PhaseDesign

// Phases lists the valid phases in display order.
func Phases() []Phase {
	return []Phase{PhaseDesign, PhaseDevelopment, PhaseUsage, PhaseMaintenance}
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	for _, v := range Phases() {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePhase matches s case-insensitively against the known phases.
func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Priority is the urgency of a problem.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultPriority is substituted for missing or invalid priorities.
const DefaultPriority = PriorityMedium

// Priorities lists the valid priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	for _, v := range Priorities() {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePriority matches s case-insensitively against the known priorities.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// ProblemStatus tracks a problem through triage.
type ProblemStatus string

const (
	ProblemStatusNew      ProblemStatus = "new"
	ProblemStatusAnalyzed ProblemStatus = "analyzed"
	ProblemStatusSolved   ProblemStatus = "solved"
	ProblemStatusVerified ProblemStatus = "verified"
)

// Valid reports whether s is one of the known statuses.
func (s ProblemStatus) Valid() bool {
	switch s {
	case ProblemStatusNew, ProblemStatusAnalyzed, ProblemStatusSolved, ProblemStatusVerified:
		return true
	}
	return false
}

// ImportStatus is the lifecycle state of an ImportRun.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// Valid reports whether s is one of the known import statuses.
func (s ImportStatus) Valid() bool {
	switch s {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusCompleted, ImportStatusFailed:
		return true
	}
	return false
}

// Severity classifies a ValidationIssue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// EnumValues renders a value set the way validation messages quote it.
func EnumValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
