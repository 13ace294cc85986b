package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drblury/agentflow/internal/agent/domain"
	errspkg "github.com/drblury/agentflow/internal/agent/errors"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	submitter := domain.User("jdoe", "jdoe@example.com")

	t.Run("commit applies and flags events", func(t *testing.T) {
		st := NewMemoryStore()
		e := &domain.SetTitle{EventBase: domain.NewBase(submitter, 1), Title: "T"}

		sub, applied, err := st.Commit(ctx, 1, e)
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		if sub.Title != "T" {
			t.Fatalf("aggregate not updated: %+v", sub)
		}
		if len(applied) != 1 {
			t.Fatalf("got %d applied events, want 1", len(applied))
		}
		if !e.Committed {
			t.Fatal("event should be flagged committed")
		}
	})

	t.Run("replaying a commit is idempotent", func(t *testing.T) {
		st := NewMemoryStore()
		e := &domain.AddHold{
			EventBase: domain.NewBase(domain.System("check"), 1),
			HoldKind:  domain.HoldSourceOversize,
		}
		if _, _, err := st.Commit(ctx, 1, e); err != nil {
			t.Fatalf("first commit: %v", err)
		}

		// Same event again, with the committed flag reset to simulate a
		// redelivered task.
		e.Committed = false
		sub, applied, err := st.Commit(ctx, 1, e)
		if err != nil {
			t.Fatalf("second commit: %v", err)
		}
		if len(applied) != 0 {
			t.Fatalf("got %d applied events, want 0", len(applied))
		}
		if len(sub.Holds) != 1 {
			t.Fatalf("got %d holds, want 1", len(sub.Holds))
		}
	})

	t.Run("commit with zero events succeeds", func(t *testing.T) {
		st := NewMemoryStore()
		sub, applied, err := st.Commit(ctx, 5)
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		if sub.ID != 5 || len(applied) != 0 {
			t.Fatalf("unexpected result %+v %v", sub, applied)
		}
	})

	t.Run("load of unknown submission errors", func(t *testing.T) {
		st := NewMemoryStore()
		if _, err := st.Load(ctx, 404); !errors.Is(err, errspkg.ErrUnknownSubmission) {
			t.Fatalf("got %v, want ErrUnknownSubmission", err)
		}
	})

	t.Run("load returns a snapshot", func(t *testing.T) {
		st := NewMemoryStore()
		if _, _, err := st.Commit(ctx, 1, &domain.SetTitle{
			EventBase: domain.NewBase(submitter, 1), Title: "T",
		}); err != nil {
			t.Fatalf("commit: %v", err)
		}
		snap, err := st.Load(ctx, 1)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		snap.Title = "mutated"
		again, _ := st.Load(ctx, 1)
		if again.Title != "T" {
			t.Fatal("load must not alias the live aggregate")
		}
	})

	t.Run("event log preserves commit order", func(t *testing.T) {
		st := NewMemoryStore()
		first := &domain.SetTitle{EventBase: domain.NewBase(submitter, 1), Title: "a"}
		second := &domain.SetTitle{EventBase: domain.NewBase(submitter, 1), Title: "b"}
		if _, _, err := st.Commit(ctx, 1, first, second); err != nil {
			t.Fatalf("commit: %v", err)
		}
		log := st.Events(1)
		if len(log) != 2 {
			t.Fatalf("got %d events", len(log))
		}
		if log[0].Base().EventID != first.EventID {
			t.Fatal("log out of order")
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	submitter := domain.User("jdoe", "jdoe@example.com")

	open := func(t *testing.T) *SQLiteStore {
		t.Helper()
		st, err := OpenSQLite(":memory:")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		return st
	}

	t.Run("commit then load replays the log", func(t *testing.T) {
		st := open(t)
		if _, _, err := st.Commit(ctx, 1,
			&domain.SetTitle{EventBase: domain.NewBase(submitter, 1), Title: "T"},
			&domain.SetAbstract{EventBase: domain.NewBase(submitter, 1), Abstract: "A"},
		); err != nil {
			t.Fatalf("commit: %v", err)
		}
		sub, err := st.Load(ctx, 1)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if sub.Title != "T" || sub.Abstract != "A" {
			t.Fatalf("unexpected aggregate %+v", sub)
		}
	})

	t.Run("duplicate event ids are ignored", func(t *testing.T) {
		st := open(t)
		e := &domain.AddHold{
			EventBase: domain.NewBase(domain.System("check"), 2),
			HoldKind:  domain.HoldPDFOversize,
		}
		if _, _, err := st.Commit(ctx, 2, e); err != nil {
			t.Fatalf("first commit: %v", err)
		}
		e.Committed = false
		_, applied, err := st.Commit(ctx, 2, e)
		if err != nil {
			t.Fatalf("second commit: %v", err)
		}
		if len(applied) != 0 {
			t.Fatalf("got %d applied events, want 0", len(applied))
		}
		sub, _ := st.Load(ctx, 2)
		if len(sub.Holds) != 1 {
			t.Fatalf("got %d holds, want 1", len(sub.Holds))
		}
	})

	t.Run("replay preserves commit order within a second", func(t *testing.T) {
		st := open(t)

		base := time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC)
		first := &domain.SetTitle{EventBase: domain.NewBase(submitter, 4), Title: "first"}
		first.CreatedAt = base
		second := &domain.SetTitle{EventBase: domain.NewBase(submitter, 4), Title: "second"}
		second.CreatedAt = base.Add(500 * time.Millisecond)

		if _, _, err := st.Commit(ctx, 4, first); err != nil {
			t.Fatalf("first commit: %v", err)
		}
		if _, _, err := st.Commit(ctx, 4, second); err != nil {
			t.Fatalf("second commit: %v", err)
		}

		events, err := st.ListEvents(ctx, 4)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		if events[0].Base().EventID != first.EventID || events[1].Base().EventID != second.EventID {
			t.Fatal("log out of order")
		}

		sub, err := st.Load(ctx, 4)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if sub.Title != "second" {
			t.Fatalf("title = %q, want the later event to win", sub.Title)
		}
	})

	t.Run("list events marks them committed", func(t *testing.T) {
		st := open(t)
		if _, _, err := st.Commit(ctx, 3, &domain.SetTitle{
			EventBase: domain.NewBase(submitter, 3), Title: "T",
		}); err != nil {
			t.Fatalf("commit: %v", err)
		}
		events, err := st.ListEvents(ctx, 3)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 1 || !events[0].Base().Committed {
			t.Fatalf("unexpected events %v", events)
		}
	})
}
