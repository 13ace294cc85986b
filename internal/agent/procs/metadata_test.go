package procs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/process"
)

type fixedTitles struct {
	candidates []TitleCandidate
	err        error
	since      time.Time
}

func (s *fixedTitles) Titles(_ context.Context, since time.Time) ([]TitleCandidate, error) {
	s.since = since
	return s.candidates, s.err
}

func titleTrigger(title string, params map[string]any) *process.Trigger {
	after := domain.NewSubmission(7)
	after.Title = title
	return &process.Trigger{After: after, Params: params}
}

func titleParams() map[string]any {
	return map[string]any{
		"TITLE_SIMILARITY_WINDOW":    91.25,
		"TITLE_SIMILARITY_THRESHOLD": 0.7,
	}
}

func TestCheckForSimilarTitles(t *testing.T) {
	t.Parallel()

	t.Run("flags a near-duplicate", func(t *testing.T) {
		titles := &fixedTitles{candidates: []TitleCandidate{
			{SubmissionID: 8, Title: "Learning Models From Data", Owner: domain.User("other", "")},
			{SubmissionID: 9, Title: "Unrelated Particle Physics", Owner: domain.User("other", "")},
		}}
		trigger := titleTrigger("Learning Models From Data", titleParams())
		events, _, err := runSteps(t, CheckForSimilarTitles(titles), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		flag := events[0].(*domain.AddMetadataFlag)
		if flag.FlagKind != domain.FlagPossibleDuplicateTitle || flag.Field != "title" {
			t.Fatalf("unexpected flag %+v", flag)
		}
		if flag.Data["submission_id"] != int64(8) {
			t.Fatalf("unexpected flag data %v", flag.Data)
		}
	})

	t.Run("own submission is skipped", func(t *testing.T) {
		titles := &fixedTitles{candidates: []TitleCandidate{
			{SubmissionID: 7, Title: "Learning Models From Data"},
		}}
		trigger := titleTrigger("Learning Models From Data", titleParams())
		events, _, err := runSteps(t, CheckForSimilarTitles(titles), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("got %d events, want 0", len(events))
		}
	})

	t.Run("stale duplicate flags are cleared first", func(t *testing.T) {
		titles := &fixedTitles{}
		trigger := titleTrigger("A Fresh Unique Title", titleParams())
		stale := &domain.AddMetadataFlag{
			EventBase: domain.NewBase(domain.System("CheckForSimilarTitles"), 7),
			FlagKind:  domain.FlagPossibleDuplicateTitle,
			Field:     "title",
		}
		stale.Apply(trigger.After)

		events, _, err := runSteps(t, CheckForSimilarTitles(titles), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		removed, ok := events[0].(*domain.RemoveFlag)
		if !ok || removed.FlagID != stale.EventID {
			t.Fatalf("unexpected event %#v", events[0])
		}
	})

	t.Run("window is computed from the parameter", func(t *testing.T) {
		titles := &fixedTitles{}
		params := titleParams()
		params["TITLE_SIMILARITY_WINDOW"] = 2.0
		_, _, err := runSteps(t, CheckForSimilarTitles(titles), titleTrigger("A Unique Title", params))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		want := time.Now().Add(-48 * time.Hour)
		if titles.since.Before(want.Add(-time.Minute)) || titles.since.After(want.Add(time.Minute)) {
			t.Fatalf("got since %v, want about %v", titles.since, want)
		}
	})

	t.Run("stopword-only title is terminal", func(t *testing.T) {
		_, _, err := runSteps(t, CheckForSimilarTitles(&fixedTitles{}),
			titleTrigger("the and of", titleParams()))
		if process.Classify(err) != process.KindFailed {
			t.Fatalf("got %v, want terminal failure", err)
		}
	})

	t.Run("query errors are recoverable", func(t *testing.T) {
		titles := &fixedTitles{err: errors.New("index offline")}
		_, _, err := runSteps(t, CheckForSimilarTitles(titles),
			titleTrigger("A Unique Title", titleParams()))
		if process.Classify(err) != process.KindRecoverable {
			t.Fatalf("got %v, want recoverable", err)
		}
	})
}

func TestUnicodeAbuseChecks(t *testing.T) {
	t.Parallel()

	params := map[string]any{"METADATA_ASCII_THRESHOLD": 0.5}

	t.Run("mostly non-ascii title is flagged", func(t *testing.T) {
		trigger := titleTrigger("你好世界ok", params)
		events, _, err := runSteps(t, CheckTitleForUnicodeAbuse(), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		flag := events[0].(*domain.AddMetadataFlag)
		if flag.FlagKind != domain.FlagCharacterSet || flag.Field != "title" {
			t.Fatalf("unexpected flag %+v", flag)
		}
	})

	t.Run("ascii title emits nothing", func(t *testing.T) {
		events, _, err := runSteps(t, CheckTitleForUnicodeAbuse(),
			titleTrigger("A Plain Title", params))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("got %d events, want 0", len(events))
		}
	})

	t.Run("previous character-set flags for the field are cleared", func(t *testing.T) {
		trigger := titleTrigger("A Plain Title", params)
		stale := &domain.AddMetadataFlag{
			EventBase: domain.NewBase(domain.System("CheckTitleForUnicodeAbuse"), 7),
			FlagKind:  domain.FlagCharacterSet,
			Field:     "title",
		}
		stale.Apply(trigger.After)
		other := &domain.AddMetadataFlag{
			EventBase: domain.NewBase(domain.System("CheckAbstractForUnicodeAbuse"), 7),
			FlagKind:  domain.FlagCharacterSet,
			Field:     "abstract",
		}
		other.Apply(trigger.After)

		events, _, err := runSteps(t, CheckTitleForUnicodeAbuse(), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		removed := events[0].(*domain.RemoveFlag)
		if removed.FlagID != stale.EventID {
			t.Fatal("the abstract flag must be left alone")
		}
	})

	t.Run("abstract check reads the abstract", func(t *testing.T) {
		after := domain.NewSubmission(7)
		after.Abstract = "你好世界ok"
		trigger := &process.Trigger{After: after, Params: params}
		events, _, err := runSteps(t, CheckAbstractForUnicodeAbuse(), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 1 || events[0].(*domain.AddMetadataFlag).Field != "abstract" {
			t.Fatalf("unexpected events %v", events)
		}
	})

	t.Run("missing title is terminal", func(t *testing.T) {
		trigger := &process.Trigger{After: domain.NewSubmission(7), Params: params}
		_, _, err := runSteps(t, CheckTitleForUnicodeAbuse(), trigger)
		if process.Classify(err) != process.KindFailed {
			t.Fatalf("got %v, want terminal failure", err)
		}
	})
}

type recordingMailer struct {
	recipient domain.Agent
	sent      int
	err       error
}

func (m *recordingMailer) SendConfirmation(_ context.Context, recipient domain.Agent, _ *domain.Submission) error {
	m.recipient = recipient
	m.sent++
	return m.err
}

func TestSendConfirmationEmail(t *testing.T) {
	t.Parallel()

	submitter := domain.User("jdoe", "jdoe@example.com")

	finalizeTrigger := func(creator domain.Agent) *process.Trigger {
		return &process.Trigger{
			Event: &domain.FinalizeSubmission{EventBase: domain.NewBase(creator, 7)},
			After: domain.NewSubmission(7),
			Actor: creator,
		}
	}

	t.Run("sends to the event creator", func(t *testing.T) {
		mailer := &recordingMailer{}
		_, _, err := runSteps(t, SendConfirmationEmail(mailer), finalizeTrigger(submitter))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if mailer.sent != 1 || mailer.recipient.Email != "jdoe@example.com" {
			t.Fatalf("unexpected delivery %+v", mailer)
		}
	})

	t.Run("no email address is terminal", func(t *testing.T) {
		mailer := &recordingMailer{}
		_, _, err := runSteps(t, SendConfirmationEmail(mailer),
			finalizeTrigger(domain.User("anon", "")))
		if process.Classify(err) != process.KindFailed {
			t.Fatalf("got %v, want terminal failure", err)
		}
		if mailer.sent != 0 {
			t.Fatal("nothing should be sent")
		}
	})

	t.Run("delivery errors are recoverable", func(t *testing.T) {
		mailer := &recordingMailer{err: errors.New("smtp timeout")}
		_, _, err := runSteps(t, SendConfirmationEmail(mailer), finalizeTrigger(submitter))
		if process.Classify(err) != process.KindRecoverable {
			t.Fatalf("got %v, want recoverable", err)
		}
	})
}
