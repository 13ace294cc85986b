// Package rules binds domain events to processes. A registry is constructed
// explicitly at startup and passed to the dispatch entry point; there is no
// import-time registration.
package rules

import (
	"github.com/drblury/agentflow/internal/agent/domain"
	errspkg "github.com/drblury/agentflow/internal/agent/errors"
	"github.com/drblury/agentflow/internal/agent/process"
)

// Condition decides whether a rule fires for an event, given the aggregate
// snapshots before and after the event was applied.
type Condition func(event domain.Event, before, after *domain.Submission) bool

// ParamFunc resolves the configuration parameters a fired rule passes into
// its process trigger. Pure: typically reads named keys from process-wide
// configuration.
type ParamFunc func(event domain.Event, before, after *domain.Submission) map[string]any

// Rule binds an event kind plus condition to a process and its parameter
// resolver.
type Rule struct {
	EventKind   string
	Condition   Condition
	Params      ParamFunc
	Process     process.Definition
	Description string
}

// Dispatch is one process run yielded by rule evaluation: a fresh instance
// plus its resolved parameters.
type Dispatch struct {
	Instance process.Instance
	Params   map[string]any
}

// Registry maps event kinds to the ordered list of rules declared for them.
// Registration order determines dispatch order; rules are independent and
// may all fire for one event.
type Registry struct {
	rules map[string][]Rule

	// Distinct process definitions in first-registration order. A queue
	// worker prepares every one of these before consuming events.
	processes []process.Definition
	seen      map[string]bool
}

// NewRegistry returns an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string][]Rule),
		seen:  make(map[string]bool),
	}
}

// Register appends a rule to its event kind's list. There is no
// deduplication; idempotent registration is the caller's responsibility.
func (r *Registry) Register(rule Rule) error {
	if rule.EventKind == "" {
		return errspkg.ErrRuleEventRequired
	}
	if rule.Process.Name() == "" {
		return errspkg.ErrRuleProcessMissing
	}
	if rule.Condition == nil {
		rule.Condition = Always
	}
	if rule.Params == nil {
		rule.Params = EmptyParams
	}
	r.rules[rule.EventKind] = append(r.rules[rule.EventKind], rule)
	if !r.seen[rule.Process.Name()] {
		r.seen[rule.Process.Name()] = true
		r.processes = append(r.processes, rule.Process)
	}
	return nil
}

// Processes returns every distinct process definition referenced by the
// registered rules, in first-registration order.
func (r *Registry) Processes() []process.Definition {
	return append([]process.Definition(nil), r.processes...)
}

// MustRegister registers a batch of rules, panicking on the first invalid
// one. Intended for the startup registration phase.
func (r *Registry) MustRegister(rules ...Rule) {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
}

// Rules returns the registered rules for an event kind, in registration
// order.
func (r *Registry) Rules(eventKind string) []Rule {
	return append([]Rule(nil), r.rules[eventKind]...)
}

// Evaluate matches an event against the registered rules for its kind. Each
// rule whose condition holds yields an independent process dispatch with its
// resolved parameters. Evaluation has no side effects beyond instantiation;
// running the dispatches is the caller's responsibility.
func (r *Registry) Evaluate(event domain.Event, before, after *domain.Submission) []Dispatch {
	if event == nil {
		return nil
	}

	var dispatches []Dispatch
	for _, rule := range r.rules[event.Kind()] {
		if !rule.Condition(event, before, after) {
			continue
		}
		dispatches = append(dispatches, Dispatch{
			Instance: rule.Process.Start(event.Base().SubmissionID),
			Params:   rule.Params(event, before, after),
		})
	}
	return dispatches
}

// Trigger builds the execution context for a dispatch produced by Evaluate.
func (d Dispatch) Trigger(event domain.Event, before, after *domain.Submission) process.Trigger {
	return process.Trigger{
		Event:  event,
		Before: before,
		After:  after,
		Actor:  event.Base().Creator,
		Params: d.Params,
	}
}
