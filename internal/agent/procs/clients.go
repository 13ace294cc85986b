// Package procs holds the concrete process definitions driven by the rule
// table: content classification, metadata checks, size limits, email
// notifications, and the reclassification proposal flow. External services
// are injected as interfaces so the definitions stay testable.
package procs

import (
	"context"
	"errors"
	"time"

	"github.com/drblury/agentflow/internal/agent/domain"
)

// ErrExtractionFailed is returned by a plain text service when extraction is
// permanently broken for a source. Steps treat it as terminal.
var ErrExtractionFailed = errors.New("agentflow: plain text extraction failed")

// PlainTextService extracts plain text from a compiled submission source.
// Extraction is asynchronous on the remote side: request it, poll until
// complete, then retrieve.
type PlainTextService interface {
	RequestExtraction(ctx context.Context, sourceID string) error
	ExtractionIsComplete(ctx context.Context, sourceID string) (bool, error)
	RetrieveContent(ctx context.Context, sourceID string) ([]byte, error)
}

// Suggestion is one category suggestion from the autoclassifier.
type Suggestion struct {
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
}

// ClassifierFlag is a content observation keyed by the classifier's own
// vocabulary ("language", "charset", "linenos", "%stop", "stops").
type ClassifierFlag struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Counts are the content statistics the classifier computes as a side
// effect.
type Counts struct {
	Chars int `json:"chars"`
	Pages int `json:"pages"`
	Stops int `json:"stops"`
	Words int `json:"words"`
}

// ClassifierOutcome is the full result of one classification call.
type ClassifierOutcome struct {
	Suggestions []Suggestion     `json:"suggestions"`
	Flags       []ClassifierFlag `json:"flags"`
	Counts      Counts           `json:"counts"`
}

// Classifier scores submission content against the category taxonomy.
type Classifier interface {
	Classify(ctx context.Context, content []byte) (*ClassifierOutcome, error)
}

// Compiler reports on compiled submission output.
type Compiler interface {
	OutputSize(ctx context.Context, sourceID, checksum, outputFormat string) (int64, error)
}

// MailSender delivers notification email to submitters.
type MailSender interface {
	SendConfirmation(ctx context.Context, recipient domain.Agent, submission *domain.Submission) error
}

// TitleCandidate is a previously announced or pending title to compare
// against.
type TitleCandidate struct {
	SubmissionID int64        `json:"submission_id"`
	Title        string       `json:"title"`
	Owner        domain.Agent `json:"owner"`
}

// TitleSource lists candidate titles submitted since a cutoff.
type TitleSource interface {
	Titles(ctx context.Context, since time.Time) ([]TitleCandidate, error)
}

// Taxonomy resolves categories to their parent archive. Categories are
// dotted ("cs.LG" belongs to archive "cs"); bare archive names map to
// themselves.
type Taxonomy interface {
	ArchiveOf(category string) string
}

// Services bundles the external collaborators the standard processes need.
type Services struct {
	PlainText PlainTextService
	Classify  Classifier
	Compiler  Compiler
	Mail      MailSender
	Titles    TitleSource
	Taxonomy  Taxonomy
}
