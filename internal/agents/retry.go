package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/jonathan/match-engine/internal/types"
)

// DefaultStageRetries is the default retry count per stage; a stage gets
// retries+1 attempts before its fallback applies.
const DefaultStageRetries = 2

// Error codes recorded on trace events.
const (
	ErrCodeStageError      = "AGENT_STAGE_ERROR"
	ErrCodeFallbackApplied = "STAGE_FALLBACK_APPLIED"
)

// TraceSink receives append-only stage trace events. Writes are
// order-independent across candidates.
type TraceSink interface {
	AppendTrace(ctx context.Context, event types.TraceEvent) error
}

// envelope identifies one stage execution for tracing.
type envelope struct {
	RunID          uuid.UUID
	BatchID        int
	CandidateID    string
	AgentName      string
	Stage          string
	RequestPayload map[string]any
	ModelName      string
}

// StageResult reports how a stage run concluded.
type StageResult[T any] struct {
	Output          T
	Attempts        int
	FallbackApplied bool
}

// Retries returns how many retries the stage consumed.
func (r StageResult[T]) Retries() int {
	if r.Attempts > 1 {
		return r.Attempts - 1
	}
	return 0
}

// runStage executes fn under up to maxAttempts attempts, persisting one
// trace event per attempt. When every attempt fails, the conservative
// fallback output is substituted and a final SKIPPED event records it. A
// stage failure never propagates: the pipeline always receives an output.
func runStage[T any](ctx context.Context, sink TraceSink, logger *zap.Logger, env envelope, maxAttempts int, fn func(context.Context) (T, error), fallback T) StageResult[T] {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var attemptErrs error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		started := time.Now()
		output, err := fn(ctx)
		completed := time.Now()

		event := newTraceEvent(env, attempt, maxAttempts, started, completed)
		if err == nil {
			event.Status = types.TraceStatusSuccess
			event.ResponsePayload = responsePayload(output, attempt, maxAttempts, false)
			writeTrace(ctx, sink, logger, event)
			return StageResult[T]{Output: output, Attempts: attempt}
		}

		attemptErrs = multierror.Append(attemptErrs, err)
		event.Status = types.TraceStatusFailed
		event.ErrorCode = ErrCodeStageError
		event.ErrorMessage = err.Error()
		event.ResponsePayload = responsePayload(struct{}{}, attempt, maxAttempts, false)
		writeTrace(ctx, sink, logger, event)
	}

	logger.Warn("stage exhausted all attempts, applying fallback",
		zap.String("stage", env.Stage),
		zap.String("candidate_id", env.CandidateID),
		zap.Int("attempts", maxAttempts),
		zap.Error(attemptErrs))

	now := time.Now()
	event := newTraceEvent(env, maxAttempts, maxAttempts, now, now)
	event.Status = types.TraceStatusSkipped
	event.ErrorCode = ErrCodeFallbackApplied
	event.ErrorMessage = fmt.Sprintf("All %d attempts failed.", maxAttempts)
	event.FallbackApplied = true
	event.ResponsePayload = responsePayload(fallback, maxAttempts, maxAttempts, true)
	writeTrace(ctx, sink, logger, event)

	return StageResult[T]{Output: fallback, Attempts: maxAttempts, FallbackApplied: true}
}

func newTraceEvent(env envelope, attempt, maxAttempts int, started, completed time.Time) types.TraceEvent {
	return types.TraceEvent{
		RunID:          env.RunID,
		BatchID:        env.BatchID,
		CandidateID:    env.CandidateID,
		AgentName:      env.AgentName,
		Stage:          env.Stage,
		RequestPayload: env.RequestPayload,
		Attempt:        attempt,
		MaxAttempts:    maxAttempts,
		LatencyMs:      completed.Sub(started).Milliseconds(),
		ModelName:      env.ModelName,
		StartedAt:      started,
		CompletedAt:    &completed,
	}
}

// responsePayload renders a stage output as the trace response blob plus
// the attempt bookkeeping fields.
func responsePayload(output any, attempt, maxAttempts int, fallback bool) map[string]any {
	payload := map[string]any{}
	if raw, err := json.Marshal(output); err == nil {
		_ = json.Unmarshal(raw, &payload)
	}
	payload["attempt"] = attempt
	payload["max_attempts"] = maxAttempts
	payload["fallback_applied"] = fallback
	return payload
}

// writeTrace appends a trace event. Trace persistence failures are logged
// and swallowed so audit trouble cannot abort a run.
func writeTrace(ctx context.Context, sink TraceSink, logger *zap.Logger, event types.TraceEvent) {
	if sink == nil {
		return
	}
	if err := sink.AppendTrace(ctx, event); err != nil {
		logger.Error("failed to append trace event",
			zap.String("stage", event.Stage),
			zap.String("candidate_id", event.CandidateID),
			zap.Error(err))
	}
}
