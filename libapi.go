package agentflow

import (
	configpkg "github.com/drblury/agentflow/internal/agent/config"
	domainpkg "github.com/drblury/agentflow/internal/agent/domain"
	errspkg "github.com/drblury/agentflow/internal/agent/errors"
	idspkg "github.com/drblury/agentflow/internal/agent/ids"
	jsoncodec "github.com/drblury/agentflow/internal/agent/jsoncodec"
	loggingpkg "github.com/drblury/agentflow/internal/agent/logging"
	metadatapkg "github.com/drblury/agentflow/internal/agent/metadata"
	processpkg "github.com/drblury/agentflow/internal/agent/process"
	procspkg "github.com/drblury/agentflow/internal/agent/procs"
	retrypkg "github.com/drblury/agentflow/internal/agent/retry"
	rulespkg "github.com/drblury/agentflow/internal/agent/rules"
	runnerpkg "github.com/drblury/agentflow/internal/agent/runner"
	storepkg "github.com/drblury/agentflow/internal/agent/store"
	transportpkg "github.com/drblury/agentflow/internal/agent/transport"
	workerpkg "github.com/drblury/agentflow/internal/agent/worker"
)

type (
	Config              = configpkg.Config
	Service             = workerpkg.Service
	ServiceDependencies = workerpkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory
	TransportFunc       = transportpkg.FactoryFunc

	MiddlewareBuilder      = workerpkg.MiddlewareBuilder
	MiddlewareRegistration = workerpkg.MiddlewareRegistration
	RetryMiddlewareConfig  = workerpkg.RetryMiddlewareConfig
	UnprocessableTaskError = workerpkg.UnprocessableTaskError

	// Process model
	Definition  = processpkg.Definition
	Step        = processpkg.Step
	StepFunc    = processpkg.StepFunc
	EmitFunc    = processpkg.EmitFunc
	Instance    = processpkg.Instance
	Trigger     = processpkg.Trigger
	ProcessData = processpkg.Data

	// Error classification
	ErrorKind        = processpkg.Kind
	FailedError      = processpkg.Failed
	RecoverableError = processpkg.Recoverable
	RetrySignal      = processpkg.RetrySignal

	RetryPolicy = retrypkg.Policy

	// Rules
	Registry       = rulespkg.Registry
	Rule           = rulespkg.Rule
	RuleDispatch   = rulespkg.Dispatch
	Condition      = rulespkg.Condition
	ParamFunc      = rulespkg.ParamFunc
	ProcServices   = procspkg.Services
	DottedTaxonomy = procspkg.DottedTaxonomy

	// External collaborators for the standard processes
	PlainTextService  = procspkg.PlainTextService
	Classifier        = procspkg.Classifier
	Compiler          = procspkg.Compiler
	MailSender        = procspkg.MailSender
	TitleSource       = procspkg.TitleSource
	Taxonomy          = procspkg.Taxonomy
	ClassifierOutcome = procspkg.ClassifierOutcome
	ClassifierFlag    = procspkg.ClassifierFlag
	Suggestion        = procspkg.Suggestion
	Counts            = procspkg.Counts
	TitleCandidate    = procspkg.TitleCandidate

	// Runners
	Runner      = runnerpkg.Runner
	AsyncRunner = runnerpkg.AsyncRunner
	Dispatcher  = runnerpkg.Dispatcher
	RunFunc     = runnerpkg.RunFunc
	TaskHost    = runnerpkg.TaskHost

	// Event store
	Store       = storepkg.Store
	MemoryStore = storepkg.MemoryStore
	SQLiteStore = storepkg.SQLiteStore

	// Domain
	Submission = domainpkg.Submission
	Event      = domainpkg.Event
	EventBase  = domainpkg.EventBase
	Agent      = domainpkg.Agent

	// Domain events
	SetTitle             = domainpkg.SetTitle
	SetAbstract          = domainpkg.SetAbstract
	SetUploadPackage     = domainpkg.SetUploadPackage
	UpdateUploadPackage  = domainpkg.UpdateUploadPackage
	ConfirmPreview       = domainpkg.ConfirmPreview
	FinalizeSubmission   = domainpkg.FinalizeSubmission
	AddFeature           = domainpkg.AddFeature
	AddClassifierResults = domainpkg.AddClassifierResults
	AddProposal          = domainpkg.AddProposal
	AcceptProposal       = domainpkg.AcceptProposal
	AddHold              = domainpkg.AddHold
	RemoveHold           = domainpkg.RemoveHold
	AddMetadataFlag      = domainpkg.AddMetadataFlag
	AddContentFlag       = domainpkg.AddContentFlag
	RemoveFlag           = domainpkg.RemoveFlag
	AddProcessStatus     = domainpkg.AddProcessStatus

	// Domain value types
	SourceContent    = domainpkg.SourceContent
	Compilation      = domainpkg.Compilation
	Feature          = domainpkg.Feature
	Hold             = domainpkg.Hold
	Flag             = domainpkg.Flag
	ClassifierResult = domainpkg.ClassifierResult
	Proposal         = domainpkg.Proposal
	ProcessStatus    = domainpkg.ProcessStatus
	Status           = domainpkg.Status
	FeatureKind      = domainpkg.FeatureKind
	HoldKind         = domainpkg.HoldKind
	FlagKind         = domainpkg.FlagKind
	ProposalKind     = domainpkg.ProposalKind

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
)

var (
	NewService    = workerpkg.NewService
	FromEnv       = configpkg.FromEnv
	DefaultConfig = configpkg.Default

	DefaultMiddlewares      = workerpkg.DefaultMiddlewares
	CorrelationIDMiddleware = workerpkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = workerpkg.LogMessagesMiddleware
	TracerMiddleware        = workerpkg.TracerMiddleware
	MetricsMiddleware       = workerpkg.MetricsMiddleware
	RetryMiddleware         = workerpkg.RetryMiddleware
	PoisonQueueMiddleware   = workerpkg.PoisonQueueMiddleware
	RecovererMiddleware     = workerpkg.RecovererMiddleware

	DefaultTransportFactory = transportpkg.DefaultFactory

	// Process model
	Define  = processpkg.Define
	Extend  = processpkg.Extend
	NewStep = processpkg.NewStep

	// Error classification
	Fail          = processpkg.Fail
	Recover       = processpkg.Recover
	Again         = processpkg.Again
	ClassifyError = processpkg.Classify

	// Retry policy
	DefaultRetryPolicy = retrypkg.DefaultPolicy
	RetryDelay         = retrypkg.Delay

	// Standard process definitions
	PlainTextExtraction            = procspkg.PlainTextExtraction
	RunAutoclassifier              = procspkg.RunAutoclassifier
	CheckStopwordPercent           = procspkg.CheckStopwordPercent
	CheckStopwordCount             = procspkg.CheckStopwordCount
	CheckForSimilarTitles          = procspkg.CheckForSimilarTitles
	CheckTitleForUnicodeAbuse      = procspkg.CheckTitleForUnicodeAbuse
	CheckAbstractForUnicodeAbuse   = procspkg.CheckAbstractForUnicodeAbuse
	CheckSubmissionSourceSize      = procspkg.CheckSubmissionSourceSize
	CheckPDFSize                   = procspkg.CheckPDFSize
	SendConfirmationEmail          = procspkg.SendConfirmationEmail
	ProposeReclassification        = procspkg.ProposeReclassification
	ProposeCrossListFromPrimary    = procspkg.ProposeCrossListFromPrimaryCategory
	AcceptSystemCrossListProposals = procspkg.AcceptSystemCrossListProposals

	// Rules
	NewRegistry   = rulespkg.NewRegistry
	StandardRules = rulespkg.StandardRules
	Always        = rulespkg.Always
	UserEvent     = rulespkg.UserEvent
	SystemEvent   = rulespkg.SystemEvent
	FeatureTypeIs = rulespkg.FeatureTypeIs

	// Runners
	NewRunner      = runnerpkg.NewRunner
	NewAsyncRunner = runnerpkg.NewAsyncRunner
	NewDispatcher  = runnerpkg.NewDispatcher
	StepTopic      = runnerpkg.StepTopic
	FailureTopic   = runnerpkg.FailureTopic

	// Event store
	NewMemoryStore = storepkg.NewMemoryStore
	OpenSQLite     = storepkg.OpenSQLite

	// Domain
	NewSubmission  = domainpkg.NewSubmission
	NewEventBase   = domainpkg.NewBase
	UserAgent      = domainpkg.User
	SystemAgent    = domainpkg.System
	MarshalEvent   = domainpkg.MarshalEvent
	UnmarshalEvent = domainpkg.UnmarshalEvent

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	ErrServiceRequired    = errspkg.ErrServiceRequired
	ErrProcessRequired    = errspkg.ErrProcessRequired
	ErrProcessNotPrepared = errspkg.ErrProcessNotPrepared
	ErrNoSteps            = errspkg.ErrNoSteps
	ErrStoreRequired      = errspkg.ErrStoreRequired
	ErrPublisherRequired  = errspkg.ErrPublisherRequired
	ErrTopicRequired      = errspkg.ErrTopicRequired
	ErrRuleEventRequired  = errspkg.ErrRuleEventRequired
	ErrRuleProcessMissing = errspkg.ErrRuleProcessMissing
	ErrUnknownSubmission  = errspkg.ErrUnknownSubmission
	ErrExtractionFailed   = procspkg.ErrExtractionFailed

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// RetryUnlimited disables the retry budget for a step policy.
const RetryUnlimited = retrypkg.Unlimited

// Metadata keys for task messages.
const (
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyProcessID     = metadatapkg.KeyProcessID
	MetadataKeyProcessType   = metadatapkg.KeyProcessType
	MetadataKeyStepName      = metadatapkg.KeyStepName
	MetadataKeyAttempt       = metadatapkg.KeyAttempt
)

// Error kinds returned by ClassifyError.
const (
	KindRecoverable = processpkg.KindRecoverable
	KindFailed      = processpkg.KindFailed
	KindRetry       = processpkg.KindRetry
)

// Process status values recorded in the status history.
const (
	StatusPending    = domainpkg.StatusPending
	StatusInProgress = domainpkg.StatusInProgress
	StatusSucceeded  = domainpkg.StatusSucceeded
	StatusFailed     = domainpkg.StatusFailed
)
