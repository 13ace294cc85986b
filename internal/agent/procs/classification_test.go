package procs

import (
	"context"
	"errors"
	"testing"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/process"
)

type fakeTextService struct {
	completeAfter int
	polls         int
	content       []byte
	requestErr    error
	retrieveErr   error
}

func (s *fakeTextService) RequestExtraction(context.Context, string) error {
	return s.requestErr
}

func (s *fakeTextService) ExtractionIsComplete(context.Context, string) (bool, error) {
	s.polls++
	return s.polls > s.completeAfter, nil
}

func (s *fakeTextService) RetrieveContent(context.Context, string) ([]byte, error) {
	return s.content, s.retrieveErr
}

type fakeClassifier struct {
	outcome *ClassifierOutcome
	err     error
	gotText string
}

func (c *fakeClassifier) Classify(_ context.Context, content []byte) (*ClassifierOutcome, error) {
	c.gotText = string(content)
	return c.outcome, c.err
}

func contentTrigger() *process.Trigger {
	after := domain.NewSubmission(5)
	after.SourceContent = &domain.SourceContent{Identifier: "src-5"}
	return &process.Trigger{
		After: after,
		Actor: domain.User("jdoe", "jdoe@example.com"),
	}
}

func TestPlainTextExtraction(t *testing.T) {
	t.Parallel()

	t.Run("returns the content as a string", func(t *testing.T) {
		svc := &fakeTextService{content: []byte("extracted text")}
		_, result, err := runSteps(t, PlainTextExtraction(svc), contentTrigger())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if result != "extracted text" {
			t.Fatalf("got %v", result)
		}
	})

	t.Run("incomplete extraction signals retry", func(t *testing.T) {
		svc := &fakeTextService{completeAfter: 2}
		_, _, err := runSteps(t, PlainTextExtraction(svc), contentTrigger())
		if process.Classify(err) != process.KindRetry {
			t.Fatalf("got %v, want a retry signal", err)
		}
	})

	t.Run("broken extraction is terminal", func(t *testing.T) {
		svc := &fakeTextService{requestErr: ErrExtractionFailed}
		_, _, err := runSteps(t, PlainTextExtraction(svc), contentTrigger())
		if process.Classify(err) != process.KindFailed {
			t.Fatalf("got %v, want terminal failure", err)
		}
	})

	t.Run("transient errors are recoverable", func(t *testing.T) {
		svc := &fakeTextService{retrieveErr: errors.New("socket closed")}
		_, _, err := runSteps(t, PlainTextExtraction(svc), contentTrigger())
		if process.Classify(err) != process.KindRecoverable {
			t.Fatalf("got %v, want recoverable", err)
		}
	})

	t.Run("missing source content is terminal", func(t *testing.T) {
		trigger := &process.Trigger{After: domain.NewSubmission(5)}
		_, _, err := runSteps(t, PlainTextExtraction(&fakeTextService{}), trigger)
		if process.Classify(err) != process.KindFailed {
			t.Fatalf("got %v, want terminal failure", err)
		}
	})
}

func TestRunAutoclassifier(t *testing.T) {
	t.Parallel()

	outcome := &ClassifierOutcome{
		Suggestions: []Suggestion{
			{Category: "cs.LG", Probability: 0.72},
			{Category: "stat.ML", Probability: 0.21},
		},
		Flags: []ClassifierFlag{
			{Key: "language", Value: "fr"},
			{Key: "%stop", Value: 0.01},
		},
		Counts: Counts{Chars: 900, Pages: 4, Stops: 20, Words: 200},
	}

	svc := &fakeTextService{content: []byte("extracted text")}
	classifier := &fakeClassifier{outcome: outcome}

	events, _, err := runSteps(t, RunAutoclassifier(svc, classifier), contentTrigger())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if classifier.gotText != "extracted text" {
		t.Fatalf("classifier saw %q", classifier.gotText)
	}

	var (
		results  *domain.AddClassifierResults
		flags    []*domain.AddContentFlag
		features []*domain.AddFeature
	)
	for _, e := range events {
		switch typed := e.(type) {
		case *domain.AddClassifierResults:
			results = typed
		case *domain.AddContentFlag:
			flags = append(flags, typed)
		case *domain.AddFeature:
			features = append(features, typed)
		}
	}

	if results == nil || len(results.Results) != 2 || results.Results[0].Category != "cs.LG" {
		t.Fatalf("unexpected classifier results %+v", results)
	}
	if !results.Creator.IsUser() {
		t.Fatal("classifier results should be attributed to the triggering actor")
	}

	// The language flag maps to a content flag; the %stop key is handled by
	// the dedicated feature checks instead.
	if len(flags) != 1 || flags[0].FlagKind != domain.FlagLanguage {
		t.Fatalf("unexpected flags %+v", flags)
	}

	// chars, pages, stops, words plus the derived stopword percentage.
	if len(features) != 5 {
		t.Fatalf("got %d feature events, want 5", len(features))
	}
	byKind := make(map[domain.FeatureKind]float64, len(features))
	for _, f := range features {
		byKind[f.Feature.Kind] = f.Feature.Value
	}
	if byKind[domain.FeatureWordCount] != 200 || byKind[domain.FeatureStopwordPercent] != 0.1 {
		t.Fatalf("unexpected feature values %v", byKind)
	}
}

func stopwordTrigger(kind domain.FeatureKind, value float64, params map[string]any) *process.Trigger {
	after := domain.NewSubmission(5)
	after.Features = []domain.Feature{{Kind: kind, Value: value}}
	return &process.Trigger{After: after, Params: params}
}

func TestStopwordChecks(t *testing.T) {
	t.Parallel()

	t.Run("low percentage is flagged", func(t *testing.T) {
		trigger := stopwordTrigger(domain.FeatureStopwordPercent, 0.02,
			map[string]any{"LOW_STOP_PERCENT": 0.10})
		events, _, err := runSteps(t, CheckStopwordPercent(), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		flag := events[0].(*domain.AddContentFlag)
		if flag.FlagKind != domain.FlagLowStopwordPercent {
			t.Fatalf("unexpected flag %+v", flag)
		}
		if !flag.Creator.IsSystem() {
			t.Fatal("flag should be attributed to the checking process")
		}
	})

	t.Run("healthy percentage emits nothing", func(t *testing.T) {
		trigger := stopwordTrigger(domain.FeatureStopwordPercent, 0.20,
			map[string]any{"LOW_STOP_PERCENT": 0.10})
		events, _, err := runSteps(t, CheckStopwordPercent(), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("got %d events, want 0", len(events))
		}
	})

	t.Run("low count is flagged", func(t *testing.T) {
		trigger := stopwordTrigger(domain.FeatureStopwordCount, 12,
			map[string]any{"LOW_STOP": 400})
		events, _, err := runSteps(t, CheckStopwordCount(), trigger)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		if events[0].(*domain.AddContentFlag).FlagKind != domain.FlagLowStopwordCount {
			t.Fatalf("unexpected flag %+v", events[0])
		}
	})

	t.Run("missing feature is terminal", func(t *testing.T) {
		trigger := &process.Trigger{
			After:  domain.NewSubmission(5),
			Params: map[string]any{"LOW_STOP": 400},
		}
		_, _, err := runSteps(t, CheckStopwordCount(), trigger)
		if process.Classify(err) != process.KindFailed {
			t.Fatalf("got %v, want terminal failure", err)
		}
	})

	t.Run("missing threshold is terminal", func(t *testing.T) {
		trigger := stopwordTrigger(domain.FeatureStopwordCount, 12, nil)
		_, _, err := runSteps(t, CheckStopwordCount(), trigger)
		if process.Classify(err) != process.KindFailed {
			t.Fatalf("got %v, want terminal failure", err)
		}
	})
}
