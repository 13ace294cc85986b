package rules

import (
	"github.com/drblury/agentflow/internal/agent/config"
	"github.com/drblury/agentflow/internal/agent/domain"
)

// EmptyParams resolves to no parameters.
func EmptyParams(domain.Event, *domain.Submission, *domain.Submission) map[string]any {
	return map[string]any{}
}

// ConfigParams resolves the named configuration keys into the trigger
// parameter map. Unknown keys resolve to nil so a misnamed binding surfaces
// in the consuming step rather than silently narrowing the map.
func ConfigParams(cfg *config.Config, keys ...string) ParamFunc {
	return func(domain.Event, *domain.Submission, *domain.Submission) map[string]any {
		params := make(map[string]any, len(keys))
		for _, key := range keys {
			params[key] = cfg.Param(key)
		}
		return params
	}
}
