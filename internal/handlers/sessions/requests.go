package sessions

import "github.com/google/uuid"

// ScheduleSessionRequest represents a request to schedule a judging session
type ScheduleSessionRequest struct {
	ExpectedParticipants int    `json:"expectedParticipants"`
	EstimatedMinutes     int    `json:"estimatedMinutes"`
	ProblemSetID         string `json:"problemSetId"`
	InstanceClass        string `json:"instanceClass"`
}

// ScheduleSessionResponse represents the created session reference
type ScheduleSessionResponse struct {
	SessionID uuid.UUID `json:"sessionId"`
	State     string    `json:"state"`
}

// SubmissionRequest represents a participant submission for execution
type SubmissionRequest struct {
	ParticipantID string `json:"participantId"`
	ProblemID     string `json:"problemId"`
	Language      string `json:"language"`
	SourceCode    string `json:"sourceCode"`
}

// ShutdownRequest represents a manual shutdown request
type ShutdownRequest struct {
	Reason string `json:"reason,omitempty"`
}

// BatchResultResponse represents per-unit outcomes of an execution batch
type BatchResultResponse struct {
	BatchID     uuid.UUID            `json:"batchId"`
	Partial     bool                 `json:"partial"`
	PassedCount int                  `json:"passedCount"`
	TotalUnits  int                  `json:"totalUnits"`
	Results     []UnitResultResponse `json:"results"`
}

// UnitResultResponse is the outcome of one execution unit
type UnitResultResponse struct {
	Status   string `json:"status"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	TimeMs   int64  `json:"timeMs"`
	MemoryKB int64  `json:"memoryKb"`
	Passed   bool   `json:"passed"`
}
