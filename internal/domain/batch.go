package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecStatus represents the status of a single execution unit as reported by
// the judging backend
type ExecStatus string

const (
	StatusQueued              ExecStatus = "QUEUED"
	StatusProcessing          ExecStatus = "PROCESSING"
	StatusAccepted            ExecStatus = "ACCEPTED"
	StatusWrongOutput         ExecStatus = "WRONG_OUTPUT"
	StatusCompilationError    ExecStatus = "COMPILATION_ERROR"
	StatusRuntimeError        ExecStatus = "RUNTIME_ERROR"
	StatusTimeout             ExecStatus = "TIMEOUT"
	StatusMemoryLimitExceeded ExecStatus = "MEMORY_LIMIT_EXCEEDED"
	StatusInternalError       ExecStatus = "INTERNAL_ERROR"
)

// Terminal reports whether the backend is done with the unit.
func (s ExecStatus) Terminal() bool {
	return s != StatusQueued && s != StatusProcessing
}

// ResourceLimits bounds a single execution unit
type ResourceLimits struct {
	CPUTimeSec  float64
	MemoryKB    int
	WallTimeSec float64
}

// ExecutionUnit is a single (source, input, expected output) triple submitted
// for judging
type ExecutionUnit struct {
	SourceCode     string
	Language       string
	Stdin          string
	ExpectedOutput string
	Limits         ResourceLimits
}

// UnitResult is the terminal outcome of one execution unit
type UnitResult struct {
	Handle   string
	Status   ExecStatus
	Stdout   string
	Stderr   string
	TimeMs   int64
	MemoryKB int64
	Passed   bool
}

// SourceUnit is a participant's submission to run against a problem's test
// cases
type SourceUnit struct {
	ParticipantID string
	Language      string
	SourceCode    string
}

// ExecutionBatch groups execution units submitted together to the judging
// backend. A batch is immutable once all per-unit results are resolved;
// callers never observe a half-filled result list.
type ExecutionBatch struct {
	ID          uuid.UUID
	SessionID   uuid.UUID
	ProblemID   string
	Units       []ExecutionUnit
	SubmittedAt time.Time
	Results     []UnitResult
}

// NewExecutionBatch creates a batch for the given units
func NewExecutionBatch(sessionID uuid.UUID, problemID string, units []ExecutionUnit) *ExecutionBatch {
	return &ExecutionBatch{
		ID:          uuid.New(),
		SessionID:   sessionID,
		ProblemID:   problemID,
		Units:       units,
		SubmittedAt: time.Now(),
	}
}

// Resolved reports whether every unit has a terminal result.
func (b *ExecutionBatch) Resolved() bool {
	if len(b.Results) != len(b.Units) {
		return false
	}
	for _, r := range b.Results {
		if !r.Status.Terminal() {
			return false
		}
	}
	return true
}

// PassedCount returns the number of units that passed.
func (b *ExecutionBatch) PassedCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Passed {
			n++
		}
	}
	return n
}
