package domain

import (
	"encoding/json"
	"fmt"

	"github.com/drblury/agentflow/internal/agent/jsoncodec"
)

// eventTypes maps event kinds to empty instances for decoding. New event
// kinds must be added here so triggers survive the queue round-trip.
var eventTypes = map[string]func() Event{
	KindSetTitle:             func() Event { return &SetTitle{} },
	KindSetAbstract:          func() Event { return &SetAbstract{} },
	KindSetUploadPackage:     func() Event { return &SetUploadPackage{} },
	KindUpdateUploadPackage:  func() Event { return &UpdateUploadPackage{} },
	KindConfirmPreview:       func() Event { return &ConfirmPreview{} },
	KindFinalizeSubmission:   func() Event { return &FinalizeSubmission{} },
	KindAddFeature:           func() Event { return &AddFeature{} },
	KindAddClassifierResults: func() Event { return &AddClassifierResults{} },
	KindAddProposal:          func() Event { return &AddProposal{} },
	KindAcceptProposal:       func() Event { return &AcceptProposal{} },
	KindAddHold:              func() Event { return &AddHold{} },
	KindRemoveHold:           func() Event { return &RemoveHold{} },
	KindAddMetadataFlag:      func() Event { return &AddMetadataFlag{} },
	KindAddContentFlag:       func() Event { return &AddContentFlag{} },
	KindRemoveFlag:           func() Event { return &RemoveFlag{} },
	KindAddProcessStatus:     func() Event { return &AddProcessStatus{} },
}

type eventEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalEvent encodes an event with its kind discriminator so it can be
// decoded back into the concrete type.
func MarshalEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("agentflow: cannot marshal nil event")
	}
	payload, err := jsoncodec.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}
	return jsoncodec.Marshal(eventEnvelope{Kind: e.Kind(), Payload: payload})
}

// UnmarshalEvent decodes an event envelope into its concrete type.
func UnmarshalEvent(data []byte) (Event, error) {
	var env eventEnvelope
	if err := jsoncodec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	newEvent, ok := eventTypes[env.Kind]
	if !ok {
		return nil, fmt.Errorf("agentflow: unknown event kind %q", env.Kind)
	}
	e := newEvent()
	if err := jsoncodec.Unmarshal(env.Payload, e); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", env.Kind, err)
	}
	return e, nil
}
