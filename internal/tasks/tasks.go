// Package tasks re-invokes pipeline runs with capped exponential backoff
// before giving up and marking the run failed.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Retry defaults. A task is attempted MaxRetries+1 times in total.
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 2 * time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// ErrCodeGiveUp is recorded on the run when every attempt has failed.
const ErrCodeGiveUp = "AGENT_PIPELINE_ERROR"

// RunFunc executes one pipeline run attempt.
type RunFunc func(ctx context.Context, runID uuid.UUID) error

// MarkFailedFunc records a terminal failure on the run after retry
// exhaustion. The pipeline marks its own semantic failures; this hook only
// fires when the pipeline itself could not run to a terminal state.
type MarkFailedFunc func(ctx context.Context, runID uuid.UUID, code, message string) error

// Task is one retryable pipeline invocation.
type Task struct {
	Name       string
	RunID      uuid.UUID
	Run        RunFunc
	MarkFailed MarkFailedFunc // optional
}

// Config tunes the retry policy. Zero values take the documented defaults.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Runner executes tasks under the retry policy.
type Runner struct {
	config Config
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRunner wires a runner. A nil logger falls back to a no-op logger.
func NewRunner(config Config, logger *zap.Logger) *Runner {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{config: config, logger: logger, sleep: sleepCtx}
}

// Execute runs the task, retrying transient failures with exponential
// backoff. On exhaustion it invokes MarkFailed and returns the accumulated
// attempt errors.
func (r *Runner) Execute(ctx context.Context, task Task) error {
	var attemptErrs *multierror.Error
	maxAttempts := r.config.MaxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := task.Run(ctx, task.RunID)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("task succeeded after retry",
					zap.String("task", task.Name),
					zap.String("run_id", task.RunID.String()),
					zap.Int("attempt", attempt))
			}
			return nil
		}
		attemptErrs = multierror.Append(attemptErrs, fmt.Errorf("attempt %d: %w", attempt, err))

		r.logger.Warn("task attempt failed",
			zap.String("task", task.Name),
			zap.String("run_id", task.RunID.String()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		if attempt == maxAttempts {
			break
		}
		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			attemptErrs = multierror.Append(attemptErrs, err)
			break
		}
	}

	combined := attemptErrs.ErrorOrNil()
	if task.MarkFailed != nil {
		message := fmt.Sprintf("%s exhausted %d attempts: %v", task.Name, maxAttempts, combined)
		if err := task.MarkFailed(ctx, task.RunID, ErrCodeGiveUp, message); err != nil {
			r.logger.Error("failed to mark run failed",
				zap.String("task", task.Name),
				zap.String("run_id", task.RunID.String()),
				zap.Error(err))
		}
	}
	return fmt.Errorf("task %s gave up: %w", task.Name, combined)
}

// backoff returns the delay before the next attempt: base doubled per
// failed attempt, capped at the configured maximum.
func (r *Runner) backoff(failedAttempts int) time.Duration {
	delay := r.config.BaseDelay << (failedAttempts - 1)
	if delay > r.config.MaxDelay || delay <= 0 {
		delay = r.config.MaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
