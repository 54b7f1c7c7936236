package types

import (
	"time"

	"github.com/google/uuid"
)

// Trace event statuses. SKIPPED marks the final fallback record written
// after all attempts of a stage are exhausted.
const (
	TraceStatusSuccess = "SUCCESS"
	TraceStatusFailed  = "FAILED"
	TraceStatusSkipped = "SKIPPED"
)

// TraceEvent is an immutable audit record of one attempt of one stage for
// one candidate within a ranking run. Written once per attempt, including
// the final fallback attempt; never mutated.
type TraceEvent struct {
	RunID           uuid.UUID      `json:"run_id"`
	BatchID         int            `json:"batch_id"`
	CandidateID     string         `json:"candidate_id,omitempty"`
	AgentName       string         `json:"agent_name"`
	Stage           string         `json:"stage"`
	RequestPayload  map[string]any `json:"request_payload,omitempty"`
	ResponsePayload map[string]any `json:"response_payload,omitempty"`
	Status          string         `json:"status"`
	ErrorCode       string         `json:"error_code,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Attempt         int            `json:"attempt"`
	MaxAttempts     int            `json:"max_attempts"`
	FallbackApplied bool           `json:"fallback_applied"`
	LatencyMs       int64          `json:"latency_ms"`
	ModelName       string         `json:"model_name,omitempty"`
	TokenUsage      map[string]any `json:"token_usage,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}
