package procs

import (
	"context"
	"fmt"
	"time"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/process"
	"github.com/drblury/agentflow/internal/agent/retry"
)

func submissionTitle(trigger *process.Trigger) (string, error) {
	if trigger.After == nil || trigger.After.Title == "" {
		return "", process.Fail(nil, "missing title or post-event state")
	}
	return trigger.After.Title, nil
}

// CheckForSimilarTitles compares the submission title against titles
// submitted within a configured window. Stale duplicate flags are cleared
// and a fresh flag is added for every candidate whose Jaccard similarity
// exceeds the configured threshold.
func CheckForSimilarTitles(titles TitleSource) process.Definition {
	agent := domain.System("CheckForSimilarTitles")

	unlimited := retry.DefaultPolicy()
	unlimited.MaxRetries = retry.Unlimited

	getCandidates := process.NewStep("get_candidates",
		func(ctx context.Context, _ any, trigger *process.Trigger, _ process.EmitFunc) (any, error) {
			title, err := submissionTitle(trigger)
			if err != nil {
				return nil, err
			}
			if len(tokenized(title)) == 0 {
				return nil, process.Fail(nil, "no usable tokens in title")
			}
			days, ok := trigger.ParamFloat("TITLE_SIMILARITY_WINDOW")
			if !ok {
				return nil, process.Fail(nil, "missing TITLE_SIMILARITY_WINDOW parameter")
			}
			since := time.Now().Add(-time.Duration(days * 24 * float64(time.Hour)))
			candidates, err := titles.Titles(ctx, since)
			if err != nil {
				return nil, process.Recover(err, "title query failed; try again")
			}
			return candidates, nil
		}).WithPolicy(unlimited)

	checkForDuplicates := process.NewStep("check_for_duplicates",
		func(_ context.Context, previous any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
			title, err := submissionTitle(trigger)
			if err != nil {
				return nil, err
			}
			candidates, err := decodePrevious[[]TitleCandidate](previous)
			if err != nil {
				return nil, process.Fail(err, "candidate titles are unreadable")
			}

			threshold, ok := trigger.ParamFloat("TITLE_SIMILARITY_THRESHOLD")
			if !ok {
				return nil, process.Fail(nil, "missing TITLE_SIMILARITY_THRESHOLD parameter")
			}

			for _, flagID := range trigger.After.FlagsOfKind(domain.FlagPossibleDuplicateTitle) {
				emit(&domain.RemoveFlag{
					EventBase: domain.NewBase(agent, trigger.After.ID),
					FlagID:    flagID,
				})
			}

			for _, candidate := range candidates {
				if candidate.SubmissionID == trigger.After.ID {
					continue
				}
				similarity := jaccard(title, candidate.Title)
				if similarity > threshold {
					emit(&domain.AddMetadataFlag{
						EventBase: domain.NewBase(agent, trigger.After.ID),
						FlagKind:  domain.FlagPossibleDuplicateTitle,
						Field:     "title",
						Comment:   "possible duplicate title",
						Data: map[string]any{
							"submission_id": candidate.SubmissionID,
							"title":         candidate.Title,
							"owner":         candidate.Owner.Name,
							"similarity":    similarity,
						},
					})
				}
			}
			return nil, nil
		})

	return process.Define("CheckForSimilarTitles", getCandidates, checkForDuplicates)
}

// CheckTitleForUnicodeAbuse flags titles whose proportion of ASCII
// characters falls below the configured threshold. Unicode in titles is
// supported, but it can get out of hand.
func CheckTitleForUnicodeAbuse() process.Definition {
	return metadataASCIICheck("CheckTitleForUnicodeAbuse", "check_title", "title",
		func(trigger *process.Trigger) (string, error) {
			return submissionTitle(trigger)
		})
}

// CheckAbstractForUnicodeAbuse is the abstract counterpart of
// CheckTitleForUnicodeAbuse.
func CheckAbstractForUnicodeAbuse() process.Definition {
	return metadataASCIICheck("CheckAbstractForUnicodeAbuse", "check_abstract", "abstract",
		func(trigger *process.Trigger) (string, error) {
			if trigger.After == nil || trigger.After.Abstract == "" {
				return "", process.Fail(nil, "missing abstract or post-event state")
			}
			return trigger.After.Abstract, nil
		})
}

func metadataASCIICheck(name, stepName, field string,
	value func(*process.Trigger) (string, error)) process.Definition {
	agent := domain.System(name)
	return process.Define(name,
		process.NewStep(stepName,
			func(_ context.Context, _ any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
				phrase, err := value(trigger)
				if err != nil {
					return nil, err
				}

				for flagID, flag := range trigger.After.Flags {
					if flag.Kind == domain.FlagCharacterSet && flag.Field == field {
						emit(&domain.RemoveFlag{
							EventBase: domain.NewBase(agent, trigger.After.ID),
							FlagID:    flagID,
						})
					}
				}

				threshold, ok := trigger.ParamFloat("METADATA_ASCII_THRESHOLD")
				if !ok {
					return nil, process.Fail(nil, "missing METADATA_ASCII_THRESHOLD parameter")
				}
				level := proportionASCII(phrase)
				if level < threshold {
					emit(&domain.AddMetadataFlag{
						EventBase: domain.NewBase(agent, trigger.After.ID),
						FlagKind:  domain.FlagCharacterSet,
						Field:     field,
						Comment:   fmt.Sprintf("possible excessive use of non-ASCII characters in %s", field),
						Data:      map[string]any{"ascii": level},
					})
				}
				return nil, nil
			}),
	)
}
