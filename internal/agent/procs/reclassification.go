package procs

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/process"
)

// DottedTaxonomy resolves a category's archive from its dotted name:
// "cs.LG" belongs to "cs", a bare archive name maps to itself.
type DottedTaxonomy struct{}

func (DottedTaxonomy) ArchiveOf(category string) string {
	archive, _, _ := strings.Cut(category, ".")
	return archive
}

// ProposeReclassification evaluates classifier results against the
// submitter's primary category. When the chosen primary ranks poorly and a
// suggestion clears the proposal threshold, a primary reclassification is
// proposed, preferring suggestions within the same archive.
func ProposeReclassification(taxonomy Taxonomy) process.Definition {
	agent := domain.System("ProposeReclassification")
	return process.Define("ProposeReclassification",
		process.NewStep("propose_primary",
			func(_ context.Context, _ any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
				if trigger.After == nil {
					return nil, process.Fail(nil, "missing post-event state")
				}
				results := trigger.After.ClassifierResults
				if len(results) == 0 {
					return nil, nil
				}

				primary := trigger.After.PrimaryCategory
				if skipReclassification(taxonomy, trigger, primary) {
					return nil, nil
				}

				probs := make(map[string]float64, len(results))
				for _, r := range results {
					probs[r.Category] = r.Probability
				}

				// A confidently ranked user selection needs no proposal.
				if p, ok := probs[primary]; ok && p >= 0.5 {
					return nil, nil
				}

				threshold, ok := trigger.ParamFloat("RECLASSIFY_PROPOSAL_THRESHOLD")
				if !ok {
					return nil, process.Fail(nil, "missing RECLASSIFY_PROPOSAL_THRESHOLD parameter")
				}
				suggested := findCandidate(taxonomy, results, primary, threshold)
				if suggested == "" {
					return nil, nil
				}

				reason := fmt.Sprintf("selected primary %s", primary)
				if p, ok := probs[primary]; ok {
					reason += fmt.Sprintf(" has probability %.3f", p)
				} else {
					reason += " not found in classifier scores"
				}
				emit(&domain.AddProposal{
					EventBase:    domain.NewBase(agent, trigger.After.ID),
					ProposalKind: domain.ProposalSetPrimary,
					Category:     suggested,
					Reason:       reason,
				})
				return nil, nil
			}),
	)
}

func skipReclassification(taxonomy Taxonomy, trigger *process.Trigger, primary string) bool {
	if slices.Contains(trigger.ParamStrings("NO_RECLASSIFY_CATEGORIES"), primary) {
		return true
	}
	return slices.Contains(trigger.ParamStrings("NO_RECLASSIFY_ARCHIVES"),
		taxonomy.ArchiveOf(primary))
}

// findCandidate picks the best suggestion above the threshold, preferring
// the highest-probability result inside the primary's archive over any
// result outside it.
func findCandidate(taxonomy Taxonomy, results []domain.ClassifierResult,
	primary string, threshold float64) string {
	var within, without *domain.ClassifierResult
	primaryArchive := taxonomy.ArchiveOf(primary)

	for i := range results {
		result := &results[i]
		if taxonomy.ArchiveOf(result.Category) == primaryArchive {
			if within == nil || result.Probability > within.Probability {
				within = result
			}
		} else if without == nil || result.Probability > without.Probability {
			without = result
		}
	}

	if within != nil && within.Probability >= threshold {
		return within.Category
	}
	if without != nil && without.Probability >= threshold {
		return without.Category
	}
	return ""
}

// ProposeCrossListFromPrimaryCategory proposes a secondary category paired
// with the user's primary, per the configured auto-cross table.
func ProposeCrossListFromPrimaryCategory() process.Definition {
	agent := domain.System("ProposeCrossListFromPrimaryCategory")
	return process.Define("ProposeCrossListFromPrimaryCategory",
		process.NewStep("propose",
			func(_ context.Context, _ any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
				if trigger.After == nil || trigger.After.PrimaryCategory == "" {
					return nil, process.Fail(nil, "missing primary category or post-event state")
				}
				primary := trigger.After.PrimaryCategory

				crossMap := crossTable(trigger.Param("AUTO_CROSS_FOR_PRIMARY"))
				suggested, ok := crossMap[primary]
				if !ok || suggested == "" {
					return nil, nil
				}
				if slices.Contains(trigger.After.SecondaryCategories, suggested) {
					return nil, nil
				}
				emit(&domain.AddProposal{
					EventBase:    domain.NewBase(agent, trigger.After.ID),
					ProposalKind: domain.ProposalAddSecondary,
					Category:     suggested,
					Reason:       fmt.Sprintf("%s is primary", primary),
				})
				return nil, nil
			}),
	)
}

// crossTable normalizes the auto-cross parameter, which arrives typed from
// in-process dispatch and as map[string]any after queue transport.
func crossTable(param any) map[string]string {
	switch v := param.(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for key, value := range v {
			if s, ok := value.(string); ok {
				out[key] = s
			}
		}
		return out
	}
	return nil
}

// AcceptSystemCrossListProposals accepts pending cross-list proposals that
// the system itself generated. Odd as it sounds to accept our own proposal,
// the legacy moderation system does exactly this.
func AcceptSystemCrossListProposals() process.Definition {
	agent := domain.System("AcceptSystemCrossListProposals")
	return process.Define("AcceptSystemCrossListProposals",
		process.NewStep("accept",
			func(_ context.Context, _ any, trigger *process.Trigger, emit process.EmitFunc) (any, error) {
				if trigger.After == nil {
					return nil, process.Fail(nil, "missing proposals or post-event state")
				}
				for eventID, proposal := range trigger.After.Proposals {
					if proposal.Kind != domain.ProposalAddSecondary {
						continue
					}
					if proposal.Accepted || !proposal.Creator.IsSystem() {
						continue
					}
					emit(&domain.AcceptProposal{
						EventBase:  domain.NewBase(agent, trigger.After.ID),
						ProposalID: eventID,
						Comment:    "accept cross-list proposal from system",
					})
				}
				return nil, nil
			}),
	)
}
