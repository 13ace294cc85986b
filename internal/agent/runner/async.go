package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/agentflow/internal/agent/domain"
	errspkg "github.com/drblury/agentflow/internal/agent/errors"
	"github.com/drblury/agentflow/internal/agent/logging"
	"github.com/drblury/agentflow/internal/agent/process"
	"github.com/drblury/agentflow/internal/agent/retry"
	"github.com/drblury/agentflow/internal/agent/store"
	"github.com/drblury/agentflow/internal/agent/worker"
)

// TaskHost is the slice of the worker service the async runner needs:
// handler registration and a publisher. Satisfied by *worker.Service.
type TaskHost interface {
	AddHandler(name, consumeTopic string, handler message.NoPublishHandlerFunc) error
	Publisher() message.Publisher
}

// AsyncRunner executes processes as chains of queue-backed tasks, one topic
// per step. Prepare must be called for every process type before the worker
// starts, in both the dispatching and the consuming service.
type AsyncRunner struct {
	host       TaskHost
	store      store.Store
	logger     logging.ServiceLogger
	dispatcher *Dispatcher

	processes map[string]process.Definition

	// publishAfter schedules a delayed republish for step retries. Replaced
	// in tests to make delays observable.
	publishAfter func(delay time.Duration, topic string, msg *message.Message)
}

// NewAsyncRunner constructs a queue-backed runner on the given host.
func NewAsyncRunner(host TaskHost, st store.Store, logger logging.ServiceLogger) (*AsyncRunner, error) {
	if host == nil {
		return nil, errspkg.ErrServiceRequired
	}
	if st == nil {
		return nil, errspkg.ErrStoreRequired
	}
	if logger == nil {
		logger = logging.Nop()
	}
	r := &AsyncRunner{
		host:      host,
		store:     st,
		logger:    logger,
		processes: make(map[string]process.Definition),
	}
	r.publishAfter = func(delay time.Duration, topic string, msg *message.Message) {
		time.AfterFunc(delay, func() {
			if err := host.Publisher().Publish(topic, msg); err != nil {
				logger.Error("delayed republish failed", err, logging.LogFields{"topic": topic})
			}
		})
	}
	return r, nil
}

// BindDispatcher routes events committed by step handlers back through rule
// evaluation, so processes triggered by engine-emitted events fire. Rule
// conditions bound the resulting recursion.
func (r *AsyncRunner) BindDispatcher(d *Dispatcher) {
	r.dispatcher = d
}

// Prepare registers the process type for asynchronous execution: one handler
// per step consuming that step's topic, plus the failure handler recording
// the FAILED status.
func (r *AsyncRunner) Prepare(def process.Definition) error {
	if def.Name() == "" {
		return errspkg.ErrProcessRequired
	}
	if _, prepared := r.processes[def.Name()]; prepared {
		return nil
	}

	steps := def.Steps()
	if len(steps) == 0 {
		return errspkg.ErrNoSteps
	}

	for i := range steps {
		name := fmt.Sprintf("%s_%s", def.Name(), steps[i].Name)
		topic := StepTopic(def.Name(), steps[i].Name)
		if err := r.host.AddHandler(name, topic, r.stepHandler(def, i)); err != nil {
			return err
		}
	}

	failureName := fmt.Sprintf("%s_failed", def.Name())
	if err := r.host.AddHandler(failureName, FailureTopic(def.Name()), r.failureHandler(def)); err != nil {
		return err
	}

	r.processes[def.Name()] = def
	return nil
}

// Run dispatches the instance for asynchronous execution: the PENDING status
// is committed, then the initial task envelope is published to the first
// step's topic. The process type must have been prepared.
func (r *AsyncRunner) Run(ctx context.Context, inst process.Instance, trigger process.Trigger) error {
	def, prepared := r.processes[inst.Name()]
	if !prepared {
		return errspkg.ErrProcessNotPrepared
	}

	var pending []domain.Event
	inst.BeforeStart(func(e domain.Event) { pending = append(pending, e) })
	if _, _, err := r.store.Commit(ctx, inst.SubmissionID, pending...); err != nil {
		return err
	}

	data := process.NewData(inst.SubmissionID, inst.ProcessID, trigger)
	firstStep := def.Steps()[0].Name
	msg, err := taskMessage(data, taskMetadata(nil, data, def.Name(), firstStep, 0))
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	r.logger.Debug("dispatching process", logging.LogFields{
		"process_type":  inst.Name(),
		"process_id":    inst.ProcessID,
		"submission_id": inst.SubmissionID,
	})
	return r.host.Publisher().Publish(StepTopic(def.Name(), firstStep), msg)
}

func (r *AsyncRunner) stepHandler(def process.Definition, index int) message.NoPublishHandlerFunc {
	steps := def.Steps()
	step := steps[index]
	lastStep := index == len(steps)-1

	return func(msg *message.Message) error {
		ctx := msg.Context()

		data, err := decodeTask(msg.Payload)
		if err != nil {
			return &worker.UnprocessableTaskError{Payload: string(msg.Payload), Err: err}
		}

		inst := def.Resume(data.SubmissionID, data.ProcessID)
		log := r.logger.With(logging.LogFields{
			"process_type":  def.Name(),
			"process_id":    data.ProcessID,
			"submission_id": data.SubmissionID,
			"step":          step.Name,
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
				if before, err = snapshotFor(ctx, r.store, data.SubmissionID); err != nil {
					return err
				}
			}
			after, applied, err := r.store.Commit(ctx, data.SubmissionID, pending...)
			pending = pending[:0]
			if err != nil {
				return err
			}
			r.dispatcher.cascade(ctx, log, applied, before, after)
			return nil
		}

		result, stepErr := step.Run(ctx, data.LastResult(), &data.Trigger, emit)
		if stepErr != nil {
			// Events emitted before the failure are committed first.
			if err := flush(); err != nil {
				return err
			}

			if process.Classify(stepErr) == process.KindFailed {
				log.Debug("step failed terminally", logging.LogFields{"error": stepErr.Error()})
				return r.publishFailure(ctx, msg, def, data, step.Name, failureReason(stepErr))
			}

			attempt := attemptFrom(msg.Metadata) + 1
			if step.Policy.Exhausted(attempt) {
				log.Debug("retry budget exhausted", logging.LogFields{"error": stepErr.Error()})
				return r.publishFailure(ctx, msg, def, data, step.Name, failureReason(stepErr))
			}

			delay := retry.Delay(step.Policy, attempt)
			retryMsg, err := taskMessage(data, taskMetadata(msg, data, def.Name(), step.Name, attempt))
			if err != nil {
				return err
			}
			log.Debug("scheduling step retry", logging.LogFields{
				"attempt": attempt,
				"delay":   delay.String(),
				"error":   stepErr.Error(),
			})
			r.publishAfter(delay, StepTopic(def.Name(), step.Name), retryMsg)
			return nil
		}

		data.AddResult(result)
		inst.OnSuccess(step.Name, emit)
		if err := flush(); err != nil {
			return err
		}
		log.Debug("step succeeded", nil)

		if lastStep {
			return nil
		}

		nextStep := steps[index+1].Name
		nextMsg, err := taskMessage(data, taskMetadata(msg, data, def.Name(), nextStep, 0))
		if err != nil {
			return err
		}
		nextMsg.SetContext(ctx)
		return r.host.Publisher().Publish(StepTopic(def.Name(), nextStep), nextMsg)
	}
}

func (r *AsyncRunner) publishFailure(ctx context.Context, msg *message.Message, def process.Definition, data *process.Data, stepName, reason string) error {
	env := failureEnvelope{Data: data, Step: stepName, Reason: reason}
	failMsg, err := failureMessage(env, taskMetadata(msg, data, def.Name(), stepName, 0))
	if err != nil {
		return err
	}
	failMsg.SetContext(ctx)
	return r.host.Publisher().Publish(FailureTopic(def.Name()), failMsg)
}

func (r *AsyncRunner) failureHandler(def process.Definition) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		env, err := decodeFailure(msg.Payload)
		if err != nil {
			return &worker.UnprocessableTaskError{Payload: string(msg.Payload), Err: err}
		}
		if env.Data == nil {
			return &worker.UnprocessableTaskError{Payload: string(msg.Payload), Err: errspkg.ErrProcessRequired}
		}

		inst := def.Resume(env.Data.SubmissionID, env.Data.ProcessID)

		var pending []domain.Event
		inst.OnFailure(env.Step, env.Reason, func(e domain.Event) { pending = append(pending, e) })
		_, _, err = r.store.Commit(msg.Context(), env.Data.SubmissionID, pending...)
		return err
	}
}
