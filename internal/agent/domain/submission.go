package domain

import "time"

// Status enumerates the lifecycle states reported for a process run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// FeatureKind names a numeric feature extracted from submission content.
type FeatureKind string

const (
	FeatureStopwordPercent FeatureKind = "%stop"
	FeatureStopwordCount   FeatureKind = "stops"
	FeatureWordCount       FeatureKind = "words"
	FeaturePageCount       FeatureKind = "pages"
	FeatureCharacterCount  FeatureKind = "chars"
)

// HoldKind names a reason a submission is blocked from announcement.
type HoldKind string

const (
	HoldSourceOversize HoldKind = "source_oversize"
	HoldPDFOversize    HoldKind = "pdf_oversize"
)

// FlagKind names an annotation attached by an automated check.
type FlagKind string

const (
	FlagPossibleDuplicateTitle FlagKind = "possible_duplicate_title"
	FlagLowStopwordPercent     FlagKind = "low_stop_percent"
	FlagLowStopwordCount       FlagKind = "low_stop"
	FlagLanguage               FlagKind = "language"
	FlagCharacterSet           FlagKind = "character_set"
	FlagLineNumbers            FlagKind = "line_numbers"
)

// SourceContent describes the uploaded source package.
type SourceContent struct {
	Identifier       string `json:"identifier"`
	Checksum         string `json:"checksum"`
	UncompressedSize int64  `json:"uncompressed_size"`
	CompressedSize   int64  `json:"compressed_size"`
}

// Compilation describes the most recent compiled output for a submission.
type Compilation struct {
	SourceID     string `json:"source_id"`
	Checksum     string `json:"checksum"`
	OutputFormat string `json:"output_format"`
}

// Feature is a numeric feature attached to a submission.
type Feature struct {
	Kind  FeatureKind `json:"kind"`
	Value float64     `json:"value"`
}

// Hold blocks a submission from announcement until removed.
type Hold struct {
	Kind    HoldKind `json:"kind"`
	Reason  string   `json:"reason"`
	Creator Agent    `json:"creator"`
}

// Flag is an annotation attached to a submission by an automated check.
type Flag struct {
	Kind    FlagKind       `json:"kind"`
	Field   string         `json:"field,omitempty"`
	Comment string         `json:"comment,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Creator Agent          `json:"creator"`
}

// ClassifierResult is one category suggestion from the autoclassifier.
type ClassifierResult struct {
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
}

// ProposalKind names the classification change a proposal suggests.
type ProposalKind string

const (
	ProposalSetPrimary   ProposalKind = "set_primary_classification"
	ProposalAddSecondary ProposalKind = "add_secondary_classification"
)

// Proposal suggests a classification change for a submission.
type Proposal struct {
	Kind     ProposalKind `json:"kind"`
	Category string       `json:"category"`
	Reason   string       `json:"reason,omitempty"`
	Creator  Agent        `json:"creator"`
	Accepted bool         `json:"accepted"`
}

// ProcessStatus records one lifecycle transition of a process run. It is an
// output artifact of the engine, persisted on the aggregate but never read
// back by the engine itself.
type ProcessStatus struct {
	ProcessID   string    `json:"process_id"`
	ProcessType string    `json:"process_type"`
	Step        string    `json:"step,omitempty"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Creator     Agent     `json:"creator"`
	CreatedAt   time.Time `json:"created_at"`
}

// Submission is the long-lived aggregate the engine reacts to. Events are
// applied in commit order; the struct itself carries no behaviour beyond
// queries used by rule conditions and steps.
type Submission struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title,omitempty"`
	Abstract            string              `json:"abstract,omitempty"`
	PrimaryCategory     string              `json:"primary_category,omitempty"`
	SecondaryCategories []string            `json:"secondary_categories,omitempty"`
	SourceContent       *SourceContent      `json:"source_content,omitempty"`
	LatestCompilation   *Compilation        `json:"latest_compilation,omitempty"`
	Holds               map[string]Hold     `json:"holds,omitempty"`
	Flags               map[string]Flag     `json:"flags,omitempty"`
	Features            []Feature           `json:"features,omitempty"`
	Proposals           map[string]Proposal `json:"proposals,omitempty"`
	ClassifierResults   []ClassifierResult  `json:"classifier_results,omitempty"`
	ProcessStatuses     []ProcessStatus     `json:"process_statuses,omitempty"`
	PreviewConfirmed    bool                `json:"preview_confirmed"`
	Finalized           bool                `json:"finalized"`
	Submitted           time.Time           `json:"submitted,omitempty"`
}

// NewSubmission returns an empty aggregate for the given ID.
func NewSubmission(id int64) *Submission {
	return &Submission{
		ID:        id,
		Holds:     make(map[string]Hold),
		Flags:     make(map[string]Flag),
		Proposals: make(map[string]Proposal),
	}
}

// Clone returns a deep copy so rule evaluation can hold pre/post snapshots
// without aliasing the live aggregate.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	if s.SourceContent != nil {
		sc := *s.SourceContent
		c.SourceContent = &sc
	}
	if s.LatestCompilation != nil {
		lc := *s.LatestCompilation
		c.LatestCompilation = &lc
	}
	c.SecondaryCategories = append([]string(nil), s.SecondaryCategories...)
	c.Features = append([]Feature(nil), s.Features...)
	c.ClassifierResults = append([]ClassifierResult(nil), s.ClassifierResults...)
	c.ProcessStatuses = append([]ProcessStatus(nil), s.ProcessStatuses...)
	c.Holds = make(map[string]Hold, len(s.Holds))
	for k, v := range s.Holds {
		c.Holds[k] = v
	}
	c.Flags = make(map[string]Flag, len(s.Flags))
	for k, v := range s.Flags {
		c.Flags[k] = v
	}
	c.Proposals = make(map[string]Proposal, len(s.Proposals))
	for k, v := range s.Proposals {
		c.Proposals[k] = v
	}
	return &c
}

// HasHold reports whether any active hold has the given kind.
func (s *Submission) HasHold(kind HoldKind) bool {
	for _, h := range s.Holds {
		if h.Kind == kind {
			return true
		}
	}
	return false
}

// FlagsOfKind returns the IDs of active flags with the given kind.
func (s *Submission) FlagsOfKind(kind FlagKind) []string {
	var ids []string
	for id, f := range s.Flags {
		if f.Kind == kind {
			ids = append(ids, id)
		}
	}
	return ids
}
