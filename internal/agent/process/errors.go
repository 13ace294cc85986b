package process

import (
	"errors"
	"fmt"
)

// Kind is the three-way classification applied to errors escaping a step.
// Classification happens at the step boundary only; orchestration code never
// sees an unclassified error.
type Kind int

const (
	// KindRecoverable errors are consumed by the retry loop.
	KindRecoverable Kind = iota
	// KindFailed errors are terminal: no retry, no further steps.
	KindFailed
	// KindRetry signals "not done yet, try again" without being an error,
	// e.g. polling an asynchronous external job. Scheduled like recoverable.
	KindRetry
)

// Failed is a terminal failure. Raising it aborts the remaining steps and
// always results in a FAILED status event.
type Failed struct {
	StepName string
	Reason   string
	Err      error
}

func (e *Failed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Failed) Unwrap() error { return e.Err }

// Fail wraps err as a terminal failure. Use when all recourse to recover has
// been exhausted and no further retries are desired.
func Fail(err error, reason string) error {
	return &Failed{Reason: reason, Err: err}
}

// Recoverable marks an error as explicitly retryable.
type Recoverable struct {
	Reason string
	Err    error
}

func (e *Recoverable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Recoverable) Unwrap() error { return e.Err }

// Recover wraps err as a recoverable error to be retried under the step's
// policy.
func Recover(err error, reason string) error {
	return &Recoverable{Reason: reason, Err: err}
}

// RetrySignal indicates the step is not complete and should run again.
type RetrySignal struct {
	Reason string
}

func (e *RetrySignal) Error() string { return e.Reason }

// Again signals that the step should be re-attempted without treating the
// current attempt as an error.
func Again(reason string) error {
	return &RetrySignal{Reason: reason}
}

// Classify resolves an error escaping a step into its retry classification.
// Anything unclassified is recoverable by default, never silently swallowed.
func Classify(err error) Kind {
	var failed *Failed
	if errors.As(err, &failed) {
		return KindFailed
	}
	var retry *RetrySignal
	if errors.As(err, &retry) {
		return KindRetry
	}
	return KindRecoverable
}
