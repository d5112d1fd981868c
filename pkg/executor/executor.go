// Package executor runs host-supplied rule predicates under a deadline,
// classifying each execution as completed, failed, timed out or cancelled.
package executor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gridflow/gridval/pkg/types"
)

// Status classifies the outcome of one predicate execution
type Status string

const (
	// StatusCompleted means the predicate returned before the deadline
	StatusCompleted Status = "completed"

	// StatusFailed means the predicate returned an error or panicked
	StatusFailed Status = "failed"

	// StatusTimedOut means the deadline fired before the predicate returned
	StatusTimedOut Status = "timed_out"

	// StatusCancelled means the caller's context was cancelled first
	StatusCancelled Status = "cancelled"
)

// Predicate is a rule evaluation normalized to a single shape: zero or more
// results, or an error. Predicates are host-supplied black boxes; they are
// safe to invoke once and may be abandoned on timeout.
type Predicate func() ([]types.ValidationResult, error)

// Outcome is the classified result of running one predicate
type Outcome struct {
	// Status classifies the execution
	Status Status

	// Results holds the predicate's output when Status is StatusCompleted
	Results []types.ValidationResult

	// Err holds the failure when Status is StatusFailed, and the context
	// error when Status is StatusCancelled
	Err error
}

// payload crosses the goroutine boundary on a buffered channel so an
// abandoned predicate can still send without leaking its goroutine.
type payload struct {
	results []types.ValidationResult
	err     error
}

// Run executes the predicate in its own goroutine and races it against the
// deadline and the caller's context. The deadline applies to observing the
// result, not to forcibly stopping the predicate: on timeout the call
// returns immediately and the predicate's eventual output is discarded.
// Panics inside the predicate are recovered and reported as StatusFailed.
func Run(ctx context.Context, timeout time.Duration, fn Predicate) Outcome {
	ch := make(chan payload, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- payload{err: errors.Errorf("rule panicked: %v", p)}
			}
		}()
		results, err := fn()
		ch <- payload{results: results, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p := <-ch:
		if p.err != nil {
			return Outcome{Status: StatusFailed, Err: p.err}
		}
		return Outcome{Status: StatusCompleted, Results: p.results}
	case <-timer.C:
		return Outcome{Status: StatusTimedOut}
	case <-ctx.Done():
		return Outcome{Status: StatusCancelled, Err: ctx.Err()}
	}
}
