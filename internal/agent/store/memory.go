package store

import (
	"context"
	"sync"

	"github.com/drblury/agentflow/internal/agent/domain"
	errspkg "github.com/drblury/agentflow/internal/agent/errors"
)

// MemoryStore keeps submissions and their event logs in process memory.
// Used by tests and by the synchronous examples.
type MemoryStore struct {
	mu          sync.Mutex
	submissions map[int64]*domain.Submission
	logs        map[int64][]domain.Event
	seen        map[string]struct{}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[int64]*domain.Submission),
		logs:        make(map[int64][]domain.Event),
		seen:        make(map[string]struct{}),
	}
}

// Seed installs an aggregate directly, bypassing the event log. Intended for
// test fixtures.
func (m *MemoryStore) Seed(sub *domain.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[sub.ID] = sub.Clone()
}

func (m *MemoryStore) Commit(_ context.Context, submissionID int64, events ...domain.Event) (*domain.Submission, []domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.submissions[submissionID]
	if !ok {
		sub = domain.NewSubmission(submissionID)
		m.submissions[submissionID] = sub
	}

	var applied []domain.Event
	for _, e := range events {
		base := e.Base()
		if base.Committed {
			continue
		}
		if _, dup := m.seen[base.EventID]; dup {
			continue
		}
		e.Apply(sub)
		base.Committed = true
		m.seen[base.EventID] = struct{}{}
		m.logs[submissionID] = append(m.logs[submissionID], e)
		applied = append(applied, e)
	}

	return sub.Clone(), applied, nil
}

func (m *MemoryStore) Load(_ context.Context, submissionID int64) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.submissions[submissionID]
	if !ok {
		return nil, errspkg.ErrUnknownSubmission
	}
	return sub.Clone(), nil
}

// Events returns the committed event log for a submission, in commit order.
func (m *MemoryStore) Events(submissionID int64) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.logs[submissionID]...)
}
