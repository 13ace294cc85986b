package domain

import (
	"time"

	"github.com/drblury/agentflow/internal/agent/ids"
)

// Event kinds, used as registry keys for rule dispatch and as the
// discriminator in the wire envelope.
const (
	KindSetTitle             = "set_title"
	KindSetAbstract          = "set_abstract"
	KindSetUploadPackage     = "set_upload_package"
	KindUpdateUploadPackage  = "update_upload_package"
	KindConfirmPreview       = "confirm_preview"
	KindFinalizeSubmission   = "finalize_submission"
	KindAddFeature           = "add_feature"
	KindAddClassifierResults = "add_classifier_results"
	KindAddProposal          = "add_proposal"
	KindAcceptProposal       = "accept_proposal"
	KindAddHold              = "add_hold"
	KindRemoveHold           = "remove_hold"
	KindAddMetadataFlag      = "add_metadata_flag"
	KindAddContentFlag       = "add_content_flag"
	KindRemoveFlag           = "remove_flag"
	KindAddProcessStatus     = "add_process_status"
)

// Event is an immutable fact about a submission. Applying an event mutates
// the aggregate; the Committed flag marks events already persisted by the
// store so a replayed commit never duplicates them.
type Event interface {
	Kind() string
	Base() *EventBase
	Apply(*Submission)
}

// EventBase carries the identity fields shared by every event.
type EventBase struct {
	EventID      string    `json:"event_id"`
	SubmissionID int64     `json:"submission_id"`
	Creator      Agent     `json:"creator"`
	CreatedAt    time.Time `json:"created_at"`
	Committed    bool      `json:"committed"`
}

// NewBase stamps a fresh event identity for the given creator and submission.
func NewBase(creator Agent, submissionID int64) EventBase {
	return EventBase{
		EventID:      ids.CreateULID(),
		SubmissionID: submissionID,
		Creator:      creator,
		CreatedAt:    time.Now().UTC(),
	}
}

type SetTitle struct {
	EventBase
	Title string `json:"title"`
}

func (e *SetTitle) Kind() string     { return KindSetTitle }
func (e *SetTitle) Base() *EventBase { return &e.EventBase }
func (e *SetTitle) Apply(s *Submission) {
	s.Title = e.Title
}

type SetAbstract struct {
	EventBase
	Abstract string `json:"abstract"`
}

func (e *SetAbstract) Kind() string     { return KindSetAbstract }
func (e *SetAbstract) Base() *EventBase { return &e.EventBase }
func (e *SetAbstract) Apply(s *Submission) {
	s.Abstract = e.Abstract
}

type SetUploadPackage struct {
	EventBase
	Source SourceContent `json:"source"`
}

func (e *SetUploadPackage) Kind() string     { return KindSetUploadPackage }
func (e *SetUploadPackage) Base() *EventBase { return &e.EventBase }
func (e *SetUploadPackage) Apply(s *Submission) {
	src := e.Source
	s.SourceContent = &src
}

type UpdateUploadPackage struct {
	EventBase
	Source SourceContent `json:"source"`
}

func (e *UpdateUploadPackage) Kind() string     { return KindUpdateUploadPackage }
func (e *UpdateUploadPackage) Base() *EventBase { return &e.EventBase }
func (e *UpdateUploadPackage) Apply(s *Submission) {
	src := e.Source
	s.SourceContent = &src
}

type ConfirmPreview struct {
	EventBase
}

func (e *ConfirmPreview) Kind() string     { return KindConfirmPreview }
func (e *ConfirmPreview) Base() *EventBase { return &e.EventBase }
func (e *ConfirmPreview) Apply(s *Submission) {
	s.PreviewConfirmed = true
}

type FinalizeSubmission struct {
	EventBase
}

func (e *FinalizeSubmission) Kind() string     { return KindFinalizeSubmission }
func (e *FinalizeSubmission) Base() *EventBase { return &e.EventBase }
func (e *FinalizeSubmission) Apply(s *Submission) {
	s.Finalized = true
	s.Submitted = e.CreatedAt
}

type AddFeature struct {
	EventBase
	Feature Feature `json:"feature"`
}

func (e *AddFeature) Kind() string     { return KindAddFeature }
func (e *AddFeature) Base() *EventBase { return &e.EventBase }
func (e *AddFeature) Apply(s *Submission) {
	s.Features = append(s.Features, e.Feature)
}

type AddClassifierResults struct {
	EventBase
	Results []ClassifierResult `json:"results"`
}

func (e *AddClassifierResults) Kind() string     { return KindAddClassifierResults }
func (e *AddClassifierResults) Base() *EventBase { return &e.EventBase }
func (e *AddClassifierResults) Apply(s *Submission) {
	s.ClassifierResults = append([]ClassifierResult(nil), e.Results...)
}

type AddProposal struct {
	EventBase
	ProposalKind ProposalKind `json:"proposal_kind"`
	Category     string       `json:"category"`
	Reason       string       `json:"reason,omitempty"`
}

func (e *AddProposal) Kind() string     { return KindAddProposal }
func (e *AddProposal) Base() *EventBase { return &e.EventBase }
func (e *AddProposal) Apply(s *Submission) {
	if s.Proposals == nil {
		s.Proposals = make(map[string]Proposal)
	}
	s.Proposals[e.EventID] = Proposal{
		Kind:     e.ProposalKind,
		Category: e.Category,
		Reason:   e.Reason,
		Creator:  e.Creator,
	}
}

type AcceptProposal struct {
	EventBase
	ProposalID string `json:"proposal_id"`
	Comment    string `json:"comment,omitempty"`
}

func (e *AcceptProposal) Kind() string     { return KindAcceptProposal }
func (e *AcceptProposal) Base() *EventBase { return &e.EventBase }
func (e *AcceptProposal) Apply(s *Submission) {
	p, ok := s.Proposals[e.ProposalID]
	if !ok || p.Accepted {
		return
	}
	p.Accepted = true
	s.Proposals[e.ProposalID] = p
	switch p.Kind {
	case ProposalSetPrimary:
		s.PrimaryCategory = p.Category
	case ProposalAddSecondary:
		s.SecondaryCategories = append(s.SecondaryCategories, p.Category)
	}
}

type AddHold struct {
	EventBase
	HoldKind HoldKind `json:"hold_kind"`
	Reason   string   `json:"reason,omitempty"`
}

func (e *AddHold) Kind() string     { return KindAddHold }
func (e *AddHold) Base() *EventBase { return &e.EventBase }
func (e *AddHold) Apply(s *Submission) {
	if s.Holds == nil {
		s.Holds = make(map[string]Hold)
	}
	s.Holds[e.EventID] = Hold{Kind: e.HoldKind, Reason: e.Reason, Creator: e.Creator}
}

type RemoveHold struct {
	EventBase
	HoldEventID string   `json:"hold_event_id"`
	HoldKind    HoldKind `json:"hold_kind"`
	Reason      string   `json:"reason,omitempty"`
}

func (e *RemoveHold) Kind() string     { return KindRemoveHold }
func (e *RemoveHold) Base() *EventBase { return &e.EventBase }
func (e *RemoveHold) Apply(s *Submission) {
	delete(s.Holds, e.HoldEventID)
}

type AddMetadataFlag struct {
	EventBase
	FlagKind FlagKind       `json:"flag_kind"`
	Field    string         `json:"field,omitempty"`
	Comment  string         `json:"comment,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func (e *AddMetadataFlag) Kind() string     { return KindAddMetadataFlag }
func (e *AddMetadataFlag) Base() *EventBase { return &e.EventBase }
func (e *AddMetadataFlag) Apply(s *Submission) {
	if s.Flags == nil {
		s.Flags = make(map[string]Flag)
	}
	s.Flags[e.EventID] = Flag{
		Kind:    e.FlagKind,
		Field:   e.Field,
		Comment: e.Comment,
		Data:    e.Data,
		Creator: e.Creator,
	}
}

type AddContentFlag struct {
	EventBase
	FlagKind FlagKind       `json:"flag_kind"`
	Comment  string         `json:"comment,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func (e *AddContentFlag) Kind() string     { return KindAddContentFlag }
func (e *AddContentFlag) Base() *EventBase { return &e.EventBase }
func (e *AddContentFlag) Apply(s *Submission) {
	if s.Flags == nil {
		s.Flags = make(map[string]Flag)
	}
	s.Flags[e.EventID] = Flag{Kind: e.FlagKind, Comment: e.Comment, Data: e.Data, Creator: e.Creator}
}

type RemoveFlag struct {
	EventBase
	FlagID string `json:"flag_id"`
}

func (e *RemoveFlag) Kind() string     { return KindRemoveFlag }
func (e *RemoveFlag) Base() *EventBase { return &e.EventBase }
func (e *RemoveFlag) Apply(s *Submission) {
	delete(s.Flags, e.FlagID)
}

// AddProcessStatus records a process lifecycle transition on the aggregate.
type AddProcessStatus struct {
	EventBase
	ProcessStatus ProcessStatus `json:"process_status"`
}

func (e *AddProcessStatus) Kind() string     { return KindAddProcessStatus }
func (e *AddProcessStatus) Base() *EventBase { return &e.EventBase }
func (e *AddProcessStatus) Apply(s *Submission) {
	status := e.ProcessStatus
	if status.CreatedAt.IsZero() {
		status.CreatedAt = e.CreatedAt
	}
	s.ProcessStatuses = append(s.ProcessStatuses, status)
}
