package errors

import sterrors "errors"

var (
	ErrServiceRequired    = sterrors.New("agentflow: worker service is required")
	ErrProcessRequired    = sterrors.New("agentflow: process definition is required")
	ErrProcessNotPrepared = sterrors.New("agentflow: process type has not been prepared")
	ErrNoSteps            = sterrors.New("agentflow: process has no steps")
	ErrStoreRequired      = sterrors.New("agentflow: event store is required")
	ErrPublisherRequired  = sterrors.New("agentflow: publisher is required")
	ErrTopicRequired      = sterrors.New("agentflow: topic is required")
	ErrRuleEventRequired  = sterrors.New("agentflow: rule event kind is required")
	ErrRuleProcessMissing = sterrors.New("agentflow: rule process definition is required")
	ErrUnknownSubmission  = sterrors.New("agentflow: unknown submission")
)
