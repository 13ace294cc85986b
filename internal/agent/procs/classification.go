package procs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/process"
	"github.com/drblury/agentflow/internal/agent/retry"
)

// classifierFlags maps the classifier's flag vocabulary onto content flag
// kinds. Stopword keys are handled by dedicated feature checks instead.
var classifierFlags = map[string]domain.FlagKind{
	"language": domain.FlagLanguage,
	"charset":  domain.FlagCharacterSet,
	"linenos":  domain.FlagLineNumbers,
}

func sourceID(trigger *process.Trigger) (string, error) {
	if trigger.After == nil || trigger.After.SourceContent == nil {
		return "", process.Fail(nil, "no source content identifier on post-event state")
	}
	return trigger.After.SourceContent.Identifier, nil
}

// PlainTextExtraction extracts plain text from a compiled submission: start
// the extraction, poll until the remote job completes, then retrieve the
// content as the step result.
func PlainTextExtraction(svc PlainTextService) process.Definition {
	return process.Define("PlainTextExtraction", plainTextSteps(svc)...)
}

func plainTextSteps(svc PlainTextService) []process.Step {
	unlimited := retry.DefaultPolicy()
	unlimited.MaxRetries = retry.Unlimited

	pollPolicy := retry.Policy{
		MaxRetries: retry.Unlimited,
		Delay:      time.Second,
		Backoff:    1,
		JitterMax:  time.Second,
	}

	return []process.Step{
		process.NewStep("start_extraction",
			func(ctx context.Context, _ any, trigger *process.Trigger, _ process.EmitFunc) (any, error) {
				id, err := sourceID(trigger)
				if err != nil {
					return nil, err
				}
				if err := svc.RequestExtraction(ctx, id); err != nil {
					if errors.Is(err, ErrExtractionFailed) {
						return nil, process.Fail(err, "extraction service failed to extract text")
					}
					return nil, process.Recover(err, "extraction request failed; try again")
				}
				return nil, nil
			}).WithPolicy(unlimited),

		process.NewStep("poll_extraction",
			func(ctx context.Context, _ any, trigger *process.Trigger, _ process.EmitFunc) (any, error) {
				id, err := sourceID(trigger)
				if err != nil {
					return nil, err
				}
				complete, err := svc.ExtractionIsComplete(ctx, id)
				if err != nil {
					if errors.Is(err, ErrExtractionFailed) {
						return nil, process.Fail(err, "extraction service failed to extract text")
					}
					return nil, process.Recover(err, "status request failed; try again")
				}
				if !complete {
					return nil, process.Again("not complete; try again")
				}
				return nil, nil
			}).WithPolicy(pollPolicy),

		process.NewStep("retrieve_content",
			func(ctx context.Context, _ any, trigger *process.Trigger, _ process.EmitFunc) (any, error) {
				id, err := sourceID(trigger)
				if err != nil {
					return nil, err
				}
				content, err := svc.RetrieveContent(ctx, id)
				if err != nil {
					if errors.Is(err, ErrExtractionFailed) {
						return nil, process.Fail(err, "extraction service failed to extract text")
					}
					return nil, process.Recover(err, "content request failed; try again")
				}
				return string(content), nil
			}).WithPolicy(unlimited),
	}
}

// RunAutoclassifier runs plain text extraction and sends the text to the
// autoclassifier. Besides category suggestions, the classifier yields content
// flags (language, character set, line numbers) and feature counts, all of
// which are emitted as events.
func RunAutoclassifier(text PlainTextService, classifier Classifier) process.Definition {
	unlimited := retry.DefaultPolicy()
	unlimited.MaxRetries = retry.Unlimited

	callClassifier := process.NewStep("call_classifier",
		func(ctx context.Context, previous any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
			content, ok := previous.(string)
			if !ok {
				return nil, process.Fail(nil, "no extracted content to classify")
			}
			outcome, err := classifier.Classify(ctx, []byte(content))
			if err != nil {
				return nil, process.Recover(err, "classifier request failed; try again")
			}
			emitClassifierOutcome(outcome, trigger, emit)
			return nil, nil
		}).WithPolicy(unlimited)

	base := process.Define("base", plainTextSteps(text)...)
	return process.Extend(base, "RunAutoclassifier", callClassifier)
}

func emitClassifierOutcome(outcome *ClassifierOutcome, trigger *process.Trigger, emit process.EmitFunc) {
	agent := domain.System("RunAutoclassifier")
	submissionID := trigger.After.ID

	results := make([]domain.ClassifierResult, len(outcome.Suggestions))
	for i, s := range outcome.Suggestions {
		results[i] = domain.ClassifierResult{Category: s.Category, Probability: s.Probability}
	}
	emit(&domain.AddClassifierResults{
		EventBase: domain.NewBase(trigger.Actor, submissionID),
		Results:   results,
	})

	for _, flag := range outcome.Flags {
		kind, ok := classifierFlags[flag.Key]
		if !ok {
			continue
		}
		comment := fmt.Sprintf("flag from classification succeeded at %s",
			time.Now().UTC().Format(time.RFC3339))
		emit(&domain.AddContentFlag{
			EventBase: domain.NewBase(agent, submissionID),
			FlagKind:  kind,
			Comment:   comment,
			Data:      map[string]any{"value": flag.Value},
		})
	}

	counts := outcome.Counts
	features := []domain.Feature{
		{Kind: domain.FeatureCharacterCount, Value: float64(counts.Chars)},
		{Kind: domain.FeaturePageCount, Value: float64(counts.Pages)},
		{Kind: domain.FeatureStopwordCount, Value: float64(counts.Stops)},
		{Kind: domain.FeatureWordCount, Value: float64(counts.Words)},
	}
	if counts.Words > 0 {
		features = append(features, domain.Feature{
			Kind:  domain.FeatureStopwordPercent,
			Value: float64(counts.Stops) / float64(counts.Words),
		})
	}
	for _, feature := range features {
		emit(&domain.AddFeature{
			EventBase: domain.NewBase(agent, submissionID),
			Feature:   feature,
		})
	}
}

// CheckStopwordPercent flags the submission when the percentage of stopwords
// in its content is below the configured threshold.
func CheckStopwordPercent() process.Definition {
	agent := domain.System("CheckStopwordPercent")
	return process.Define("CheckStopwordPercent",
		process.NewStep("check_stop_percent",
			func(_ context.Context, _ any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
				return nil, checkStopwordFeature(agent, trigger, emit,
					domain.FeatureStopwordPercent, "LOW_STOP_PERCENT", domain.FlagLowStopwordPercent)
			}),
	)
}

// CheckStopwordCount flags the submission when the absolute number of
// stopwords in its content is below the configured threshold.
func CheckStopwordCount() process.Definition {
	agent := domain.System("CheckStopwordCount")
	return process.Define("CheckStopwordCount",
		process.NewStep("check_stop_count",
			func(_ context.Context, _ any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
				return nil, checkStopwordFeature(agent, trigger, emit,
					domain.FeatureStopwordCount, "LOW_STOP", domain.FlagLowStopwordCount)
			}),
	)
}

func checkStopwordFeature(agent domain.Agent, trigger *process.Trigger, emit process.EmitFunc,
	feature domain.FeatureKind, paramKey string, flag domain.FlagKind) error {
	var value float64
	var found bool
	for _, f := range trigger.After.Features {
		if f.Kind == feature {
			value, found = f.Value, true
			break
		}
	}
	if !found {
		return process.Fail(nil, fmt.Sprintf("no %s feature on submission", feature))
	}

	threshold, ok := trigger.ParamFloat(paramKey)
	if !ok {
		return process.Fail(nil, fmt.Sprintf("missing %s parameter", paramKey))
	}

	if value < threshold {
		emit(&domain.AddContentFlag{
			EventBase: domain.NewBase(agent, trigger.After.ID),
			FlagKind:  flag,
			Comment:   "classifier reports low stops or %stop",
			Data:      map[string]any{"value": value},
		})
	}
	return nil
}
