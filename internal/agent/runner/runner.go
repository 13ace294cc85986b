// Package runner executes process instances: synchronously in the calling
// goroutine, or asynchronously as a chain of queue-backed step tasks. Both
// runners share the same step ordering, failure semantics, and retry delay
// computation.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/drblury/agentflow/internal/agent/domain"
	errspkg "github.com/drblury/agentflow/internal/agent/errors"
	"github.com/drblury/agentflow/internal/agent/logging"
	"github.com/drblury/agentflow/internal/agent/process"
	"github.com/drblury/agentflow/internal/agent/retry"
	"github.com/drblury/agentflow/internal/agent/store"
)

// Runner executes a process to completion in the calling goroutine. Retries
// block the caller for the computed delay; long-running processes belong on
// the AsyncRunner instead.
type Runner struct {
	store      store.Store
	logger     logging.ServiceLogger
	dispatcher *Dispatcher

	sleep func(context.Context, time.Duration) error
}

// NewRunner constructs a synchronous runner committing through the given
// store.
func NewRunner(st store.Store, logger logging.ServiceLogger) (*Runner, error) {
	if st == nil {
		return nil, errspkg.ErrStoreRequired
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{store: st, logger: logger, sleep: sleepContext}, nil
}

// BindDispatcher routes events committed during runs back through rule
// evaluation, so processes triggered by engine-emitted events fire. Rule
// conditions bound the resulting recursion.
func (r *Runner) BindDispatcher(d *Dispatcher) {
	r.dispatcher = d
}

// Run executes the instance's steps in order against the trigger. Status
// events and step-emitted events are committed after every step boundary.
// The returned Data carries one result per completed step; the error is the
// terminal step error, or nil when the process succeeded.
func (r *Runner) Run(ctx context.Context, inst process.Instance, trigger process.Trigger) (*process.Data, error) {
	data := process.NewData(inst.SubmissionID, inst.ProcessID, trigger)

	log := r.logger.With(logging.LogFields{
		"process_type":  inst.Name(),
		"process_id":    inst.ProcessID,
		"submission_id": inst.SubmissionID,
	})

	var pending []domain.Event
	emit := func(e domain.Event) { pending = append(pending, e) }
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		var before *domain.Submission
		if r.dispatcher != nil {
			var err error
			if before, err = snapshotFor(ctx, r.store, inst.SubmissionID); err != nil {
				return err
			}
		}
		after, applied, err := r.store.Commit(ctx, inst.SubmissionID, pending...)
		pending = pending[:0]
		if err != nil {
			return err
		}
		r.dispatcher.cascade(ctx, log, applied, before, after)
		return nil
	}

	inst.BeforeStart(emit)
	if err := flush(); err != nil {
		return data, err
	}
	log.Debug("process started", nil)

	for _, step := range inst.Steps() {
		result, err := r.runStep(ctx, log, step, data, emit)
		if err != nil {
			if isContextErr(err) {
				if ferr := flush(); ferr != nil {
					log.Error("flush after interruption failed", ferr, nil)
				}
				return data, err
			}

			log.Debug("step failed", logging.LogFields{"step": step.Name, "error": err.Error()})
			inst.OnFailure(step.Name, failureReason(err), emit)
			if ferr := flush(); ferr != nil {
				log.Error("commit of failure events failed", ferr, logging.LogFields{"step": step.Name})
			}
			return data, err
		}

		data.AddResult(result)
		inst.OnSuccess(step.Name, emit)
		if err := flush(); err != nil {
			return data, err
		}
		log.Debug("step succeeded", logging.LogFields{"step": step.Name})
	}

	return data, nil
}

// runStep retries the step under its policy until it succeeds, fails
// terminally, or exhausts its budget.
func (r *Runner) runStep(ctx context.Context, log logging.ServiceLogger, step process.Step, data *process.Data, emit process.EmitFunc) (any, error) {
	attempt := 0
	for {
		result, err := step.Run(ctx, data.LastResult(), &data.Trigger, emit)
		if err == nil {
			return result, nil
		}
		if process.Classify(err) == process.KindFailed {
			return nil, err
		}

		attempt++
		if step.Policy.Exhausted(attempt) {
			return nil, err
		}

		delay := retry.Delay(step.Policy, attempt)
		log.Debug("retrying step", logging.LogFields{
			"step":    step.Name,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		if serr := r.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

func failureReason(err error) string {
	var failed *process.Failed
	if errors.As(err, &failed) {
		return failed.Reason
	}
	return err.Error()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
