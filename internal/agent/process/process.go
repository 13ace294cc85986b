// Package process defines the Step/Process declaration model, the Trigger
// and ProcessData value objects, and the error taxonomy shared by both
// runners.
package process

import (
	"fmt"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/ids"
)

// Definition is an ordered, immutable sequence of steps plus identity
// metadata. Created once per process type at startup; steps are fixed per
// type. Persisted results arrays are positional, so reordering steps between
// releases requires an explicit migration.
type Definition struct {
	name  string
	steps []Step
}

// Define declares a process type from its steps in execution order. Step
// names must be unique within the process; violations panic because
// definitions are constructed once during startup.
func Define(name string, steps ...Step) Definition {
	if name == "" {
		panic("agentflow: process name is required")
	}
	if len(steps) == 0 {
		panic(fmt.Sprintf("agentflow: process %s has no steps", name))
	}
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s.Name == "" {
			panic(fmt.Sprintf("agentflow: process %s has an unnamed step", name))
		}
		if s.Run == nil {
			panic(fmt.Sprintf("agentflow: step %s.%s has no run function", name, s.Name))
		}
		if _, dup := seen[s.Name]; dup {
			panic(fmt.Sprintf("agentflow: duplicate step %s in process %s", s.Name, name))
		}
		seen[s.Name] = struct{}{}
	}
	return Definition{name: name, steps: append([]Step(nil), steps...)}
}

// Extend composes a derived process: the base's steps, in the base's order,
// followed by the newly declared steps.
func Extend(base Definition, name string, steps ...Step) Definition {
	combined := make([]Step, 0, len(base.steps)+len(steps))
	combined = append(combined, base.steps...)
	combined = append(combined, steps...)
	return Define(name, combined...)
}

// Name returns the process type name.
func (d Definition) Name() string { return d.name }

// Agent returns the system actor attributed to events this process emits.
func (d Definition) Agent() domain.Agent { return domain.System(d.name) }

// Steps returns the authoritative ordered step list.
func (d Definition) Steps() []Step {
	return append([]Step(nil), d.steps...)
}

// StepNames returns the step names in declaration order.
func (d Definition) StepNames() []string {
	names := make([]string, len(d.steps))
	for i, s := range d.steps {
		names[i] = s.Name
	}
	return names
}

// StepIndex returns the position of the named step, or -1.
func (d Definition) StepIndex(name string) int {
	for i, s := range d.steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Instance binds a definition to one execution: a submission and a generated
// process ID.
type Instance struct {
	Definition
	SubmissionID int64
	ProcessID    string
}

// Start instantiates the process for a submission with a fresh process ID.
func (d Definition) Start(submissionID int64) Instance {
	return Instance{
		Definition:   d,
		SubmissionID: submissionID,
		ProcessID:    ids.CreateULID(),
	}
}

// Resume rebinds a definition to an execution already in flight, preserving
// its process ID. Used by queue workers picking up mid-chain tasks.
func (d Definition) Resume(submissionID int64, processID string) Instance {
	return Instance{Definition: d, SubmissionID: submissionID, ProcessID: processID}
}

func (p Instance) status(step string, status domain.Status, reason string) domain.Event {
	return &domain.AddProcessStatus{
		EventBase: domain.NewBase(p.Agent(), p.SubmissionID),
		ProcessStatus: domain.ProcessStatus{
			ProcessID:   p.ProcessID,
			ProcessType: p.Name(),
			Step:        step,
			Status:      status,
			Reason:      reason,
			Creator:     p.Agent(),
		},
	}
}

// BeforeStart emits the PENDING status before any step runs.
func (p Instance) BeforeStart(emit EmitFunc) {
	emit(p.status("", domain.StatusPending, ""))
}

// OnSuccess emits the status for a completed step: SUCCEEDED for the last
// step, IN_PROGRESS otherwise.
func (p Instance) OnSuccess(stepName string, emit EmitFunc) {
	status := domain.StatusInProgress
	if p.StepIndex(stepName) == len(p.steps)-1 {
		status = domain.StatusSucceeded
	}
	emit(p.status(stepName, status, ""))
}

// OnFailure emits the FAILED status tagged with the failing step.
func (p Instance) OnFailure(stepName, reason string, emit EmitFunc) {
	emit(p.status(stepName, domain.StatusFailed, reason))
}
