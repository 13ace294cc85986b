// Package store persists submission events. Commit is the engine's "save"
// collaborator: it applies uncommitted events to the aggregate and appends
// them to the event log. Events already flagged committed are skipped, so
// replaying a commit never duplicates anything.
package store

import (
	"context"

	"github.com/drblury/agentflow/internal/agent/domain"
)

// Store is the persistence contract consumed by both runners.
type Store interface {
	// Commit applies and persists the given events for a submission,
	// returning the updated aggregate and the events actually applied.
	// Committing zero uncommitted events is not an error.
	Commit(ctx context.Context, submissionID int64, events ...domain.Event) (*domain.Submission, []domain.Event, error)

	// Load replays the event log into the current aggregate state.
	Load(ctx context.Context, submissionID int64) (*domain.Submission, error)
}
