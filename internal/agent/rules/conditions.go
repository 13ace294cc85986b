package rules

import "github.com/drblury/agentflow/internal/agent/domain"

// Always fires for every event of the rule's kind.
func Always(domain.Event, *domain.Submission, *domain.Submission) bool {
	return true
}

// UserEvent fires only when the event's creator is an end user. This keeps
// system-emitted events from re-triggering their own rules.
func UserEvent(event domain.Event, _, _ *domain.Submission) bool {
	return event.Base().Creator.IsUser()
}

// SystemEvent fires only for events emitted by an automated agent.
func SystemEvent(event domain.Event, _, _ *domain.Submission) bool {
	return event.Base().Creator.IsSystem()
}

// FeatureTypeIs fires for AddFeature events carrying the given feature kind.
func FeatureTypeIs(kind domain.FeatureKind) Condition {
	return func(event domain.Event, _, _ *domain.Submission) bool {
		add, ok := event.(*domain.AddFeature)
		return ok && add.Feature.Kind == kind
	}
}

// And combines conditions, firing only when all of them hold.
func And(conditions ...Condition) Condition {
	return func(event domain.Event, before, after *domain.Submission) bool {
		for _, condition := range conditions {
			if !condition(event, before, after) {
				return false
			}
		}
		return true
	}
}
