// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decision

import (
	"fmt"
	"strings"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// explain builds the justification for a recommended candidate. It only
// restates the score and the user's own constraints.
func explain(uc types.UserContext, s types.CandidateScore) string {
	var reasons []string

	switch {
	case len(uc.TechStack) == 0:
	case s.LanguageScore >= 1.0:
		reasons = append(reasons, fmt.Sprintf("fully supports your stack (%s)", strings.Join(uc.TechStack, ", ")))
	case s.LanguageScore == languageUnknown:
		reasons = append(reasons, "language support not documented")
	case s.LanguageScore > languageFloor:
		reasons = append(reasons, fmt.Sprintf("partially supports your stack (%.0f%%)", s.LanguageScore*100))
	default:
		reasons = append(reasons, "limited support for your stack")
	}

	switch {
	case len(uc.Workflows) == 0:
	case s.WorkflowScore >= 1.0:
		reasons = append(reasons, fmt.Sprintf("covers required workflows (%s)", joinWorkflows(uc.Workflows)))
	case s.WorkflowScore > 0.5:
		reasons = append(reasons, fmt.Sprintf("covers some required workflows (%.0f%%)", s.WorkflowScore*100))
	default:
		reasons = append(reasons, "weak fit for required workflows")
	}

	switch {
	case len(uc.Integrations) == 0:
	case s.IntegrationScore >= 1.0:
		reasons = append(reasons, "offers every required integration")
	case s.IntegrationScore == integrationUnknown:
		reasons = append(reasons, "integrations not documented")
	default:
		reasons = append(reasons, "offers some required integrations")
	}

	if s.MonthlyCost != nil {
		monthly := *s.MonthlyCost
		reasons = append(reasons, fmt.Sprintf("costs $%.0f/month ($%.0f/year)", monthly, monthly*12))
		if uc.HasBudget() && s.PriceScore >= 1.0 {
			reasons = append(reasons, "well within budget")
		} else if uc.HasBudget() {
			reasons = append(reasons, "within budget")
		}
	}

	if uc.SecurityRequired && s.SecurityScore >= 1.0 {
		reasons = append(reasons, "keeps code inside your environment")
	}

	if len(reasons) == 0 {
		return "meets the basic requirements"
	}
	return strings.Join(reasons, "; ")
}

func joinWorkflows(ws []types.WorkflowType) string {
	names := make([]string, len(ws))
	for i, w := range ws {
		names[i] = string(w)
	}
	return strings.Join(names, ", ")
}
