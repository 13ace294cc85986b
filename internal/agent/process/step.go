package process

import (
	"context"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/retry"
)

// EmitFunc buffers a domain event produced by a step. The runner flushes
// buffered events through the store after every step, success or failure.
type EmitFunc func(domain.Event)

// StepFunc is one unit of work. It receives the previous step's result (nil
// for the first step) and returns its own, which becomes the next step's
// input. Errors are classified at the step boundary; see Classify.
type StepFunc func(ctx context.Context, previous any, trigger *Trigger, emit EmitFunc) (any, error)

// Step attaches retry metadata to a named unit of work. Immutable once
// declared onto a Definition.
type Step struct {
	Name   string
	Policy retry.Policy
	Run    StepFunc
}

// NewStep declares a step with the default retry policy.
func NewStep(name string, run StepFunc) Step {
	return Step{Name: name, Policy: retry.DefaultPolicy(), Run: run}
}

// WithPolicy returns a copy of the step carrying the given retry policy.
func (s Step) WithPolicy(p retry.Policy) Step {
	s.Policy = p
	return s
}
