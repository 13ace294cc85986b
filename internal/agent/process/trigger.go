package process

import (
	"encoding/json"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/jsoncodec"
)

// Trigger is the immutable execution context for one process run: the
// triggering event (optional), aggregate snapshots before and after the
// event, the actor that caused the run, and the resolved configuration
// parameters. Constructed once per dispatch and never mutated.
type Trigger struct {
	Event  domain.Event
	Before *domain.Submission
	After  *domain.Submission
	Actor  domain.Agent
	Params map[string]any
}

// Param returns a named configuration parameter, or nil.
func (t *Trigger) Param(key string) any {
	if t == nil || t.Params == nil {
		return nil
	}
	return t.Params[key]
}

// ParamFloat returns a numeric parameter. JSON round-trips deliver numbers
// as float64; typed ints from in-process dispatch are converted.
func (t *Trigger) ParamFloat(key string) (float64, bool) {
	switch v := t.Param(key).(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// ParamStrings returns a string-slice parameter.
func (t *Trigger) ParamStrings(key string) []string {
	switch v := t.Param(key).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ParamBool returns a boolean parameter.
func (t *Trigger) ParamBool(key string) bool {
	b, _ := t.Param(key).(bool)
	return b
}

type triggerWire struct {
	Event  json.RawMessage    `json:"event,omitempty"`
	Before *domain.Submission `json:"before,omitempty"`
	After  *domain.Submission `json:"after,omitempty"`
	Actor  domain.Agent       `json:"actor"`
	Params map[string]any     `json:"params,omitempty"`
}

// MarshalJSON encodes the trigger for queue transport. The event travels in
// its kind-discriminated envelope.
func (t Trigger) MarshalJSON() ([]byte, error) {
	wire := triggerWire{
		Before: t.Before,
		After:  t.After,
		Actor:  t.Actor,
		Params: t.Params,
	}
	if t.Event != nil {
		data, err := domain.MarshalEvent(t.Event)
		if err != nil {
			return nil, err
		}
		wire.Event = data
	}
	return jsoncodec.Marshal(wire)
}

// UnmarshalJSON decodes a trigger from its queue representation.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var wire triggerWire
	if err := jsoncodec.Unmarshal(data, &wire); err != nil {
		return err
	}
	t.Before = wire.Before
	t.After = wire.After
	t.Actor = wire.Actor
	t.Params = wire.Params
	t.Event = nil
	if len(wire.Event) > 0 {
		event, err := domain.UnmarshalEvent(wire.Event)
		if err != nil {
			return err
		}
		t.Event = event
	}
	return nil
}

// Data is the carrier threaded through a running process. Created at process
// start with empty results; grows by exactly one entry per successfully
// completed step and never shrinks. The last entry is the next step's input.
type Data struct {
	SubmissionID int64   `json:"submission_id"`
	ProcessID    string  `json:"process_id"`
	Trigger      Trigger `json:"trigger"`
	Results      []any   `json:"results"`
}

// NewData starts a carrier for one process run.
func NewData(submissionID int64, processID string, trigger Trigger) *Data {
	return &Data{SubmissionID: submissionID, ProcessID: processID, Trigger: trigger}
}

// LastResult returns the most recent step result, or nil when no step has
// completed yet.
func (d *Data) LastResult() any {
	if len(d.Results) == 0 {
		return nil
	}
	return d.Results[len(d.Results)-1]
}

// AddResult appends a completed step's return value.
func (d *Data) AddResult(result any) {
	d.Results = append(d.Results, result)
}
