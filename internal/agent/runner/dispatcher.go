package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/drblury/agentflow/internal/agent/domain"
	errspkg "github.com/drblury/agentflow/internal/agent/errors"
	"github.com/drblury/agentflow/internal/agent/logging"
	"github.com/drblury/agentflow/internal/agent/process"
	"github.com/drblury/agentflow/internal/agent/rules"
	"github.com/drblury/agentflow/internal/agent/store"
)

// RunFunc executes one process instance against its trigger. AsyncRunner.Run
// satisfies it directly; the synchronous Runner adapts via Exec.
type RunFunc func(ctx context.Context, inst process.Instance, trigger process.Trigger) error

// Exec runs the process and discards the result carrier, for use as a
// dispatcher RunFunc.
func (r *Runner) Exec(ctx context.Context, inst process.Instance, trigger process.Trigger) error {
	_, err := r.Run(ctx, inst, trigger)
	return err
}

// Dispatcher is the event-side entry point: it commits incoming events,
// evaluates them against the rule registry, and hands every matching process
// to a runner.
type Dispatcher struct {
	store    store.Store
	registry *rules.Registry
	run      RunFunc
	logger   logging.ServiceLogger
}

// NewDispatcher wires the commit collaborator, rule registry, and runner.
func NewDispatcher(st store.Store, registry *rules.Registry, run RunFunc, logger logging.ServiceLogger) (*Dispatcher, error) {
	if st == nil {
		return nil, errspkg.ErrStoreRequired
	}
	if registry == nil || run == nil {
		return nil, errspkg.ErrRuleProcessMissing
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{store: st, registry: registry, run: run, logger: logger}, nil
}

// Dispatch matches one already-applied event against the registry and runs
// every process it triggers. Returns the number of processes dispatched;
// run errors are joined, and one failing process does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event, before, after *domain.Submission) (int, error) {
	dispatches := d.registry.Evaluate(event, before, after)

	var errs []error
	for _, dispatch := range dispatches {
		trigger := dispatch.Trigger(event, before, after)
		d.logger.Debug("event matched rule", logging.LogFields{
			"event_kind":    event.Kind(),
			"event_id":      event.Base().EventID,
			"process_type":  dispatch.Instance.Name(),
			"process_id":    dispatch.Instance.ProcessID,
			"submission_id": dispatch.Instance.SubmissionID,
		})
		if err := d.run(ctx, dispatch.Instance, trigger); err != nil {
			errs = append(errs, fmt.Errorf("process %s: %w", dispatch.Instance.Name(), err))
		}
	}
	return len(dispatches), errors.Join(errs...)
}

// cascade re-evaluates runner-committed events against the rules so
// processes triggered by engine-emitted events fire as well. Dispatch
// failures are logged and do not fail the run that emitted the event.
func (d *Dispatcher) cascade(ctx context.Context, log logging.ServiceLogger, applied []domain.Event, before, after *domain.Submission) {
	if d == nil {
		return
	}
	for _, event := range applied {
		if _, err := d.Dispatch(ctx, event, before, after); err != nil {
			log.Error("follow-up dispatch failed", err, logging.LogFields{
				"event_kind": event.Kind(),
				"event_id":   event.Base().EventID,
			})
		}
	}
}

// snapshotFor loads the pre-commit state of a submission, treating an
// unknown submission as an empty aggregate.
func snapshotFor(ctx context.Context, st store.Store, id int64) (*domain.Submission, error) {
	sub, err := st.Load(ctx, id)
	if errors.Is(err, errspkg.ErrUnknownSubmission) {
		return domain.NewSubmission(id), nil
	}
	return sub, err
}

// Apply commits incoming events one at a time and dispatches each applied
// event with its pre- and post-commit snapshots. Events skipped by the store
// as already committed are not dispatched again.
func (d *Dispatcher) Apply(ctx context.Context, events ...domain.Event) error {
	var errs []error
	for _, event := range events {
		id := event.Base().SubmissionID

		before, err := snapshotFor(ctx, d.store, id)
		if err != nil {
			return err
		}

		after, applied, err := d.store.Commit(ctx, id, event)
		if err != nil {
			return err
		}

		for _, appliedEvent := range applied {
			if _, err := d.Dispatch(ctx, appliedEvent, before, after); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
