// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// Sub-score defaults and floors.
const (
	languageUnknown    = 0.7
	languageFloor      = 0.5
	integrationUnknown = 0.6
	integrationFloor   = 0.5
	workflowNeutral    = 0.8
	workflowFloor      = 0.4

	reviewFallbackFactor = 0.6
	reviewFallbackFloor  = 0.4
	reviewMissingFactor  = 0.3
	reviewMissingFloor   = 0.2

	securityOptOut = 0.5

	// priceAtCeiling is the price score of a cost exactly at the budget.
	priceAtCeiling = 0.75
)

func (e *Engine) score(uc types.UserContext, f types.CandidateFact) types.CandidateScore {
	s := types.CandidateScore{
		Name:             f.Name,
		LanguageScore:    languageScore(uc.TechStack, f.SupportedLanguages),
		IntegrationScore: integrationScore(uc.Integrations, f.Integrations),
		WorkflowScore:    workflowScore(uc, f),
		PriceScore:       1.0,
		SecurityScore:    1.0,
	}

	if cost, ok := monthlyCost(uc, f); ok {
		s.MonthlyCost = &cost
		if uc.HasBudget() {
			s.PriceScore = budgetScore(cost, *uc.BudgetMax)
			if s.PriceScore == 0 {
				s.ExclusionReason = fmt.Sprintf("over budget: $%.2f/month > $%.2f/month", cost, *uc.BudgetMax)
			}
		}
	}

	if uc.SecurityRequired {
		switch {
		case f.SecurityPolicy.Isolated():
			s.SecurityScore = 1.0
		case f.SecurityPolicy == types.SecurityOptOut:
			s.SecurityScore = securityOptOut
		default:
			s.SecurityScore = 0
			if s.ExclusionReason == "" {
				s.ExclusionReason = "does not meet the security isolation requirement"
			}
		}
	}

	s.Total = e.total(s)
	return s
}

// matchFraction returns the share of required tokens that some offered token
// contains, or is contained by, ignoring case.
func matchFraction(required, offered []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	matched := 0
	for _, req := range required {
		r := foldName(req)
		if r == "" {
			continue
		}
		for _, off := range offered {
			o := foldName(off)
			if o != "" && (strings.Contains(o, r) || strings.Contains(r, o)) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(required))
}

func languageScore(required, offered []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	if len(offered) == 0 {
		return languageUnknown
	}
	return math.Max(matchFraction(required, offered), languageFloor)
}

func integrationScore(required, offered []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	if len(offered) == 0 {
		return integrationUnknown
	}
	return math.Max(matchFraction(required, offered), integrationFloor)
}

func workflowScore(uc types.UserContext, f types.CandidateFact) float64 {
	if len(uc.Workflows) == 0 {
		return workflowNeutral
	}
	matched := 0
	for _, w := range uc.Workflows {
		if f.SupportsWorkflow(w) {
			matched++
		}
	}
	s := math.Max(float64(matched)/float64(len(uc.Workflows)), workflowFloor)

	if uc.RequiresWorkflow(types.WorkflowReview) && !f.SupportsWorkflow(types.WorkflowReview) {
		if f.SupportsWorkflow(types.WorkflowGeneration) || f.SupportsWorkflow(types.WorkflowCompletion) {
			s = math.Max(s*reviewFallbackFactor, reviewFallbackFloor)
		} else {
			s = math.Max(s*reviewMissingFactor, reviewMissingFloor)
		}
	}
	return s
}

// monthlyCost resolves what the user would pay per month: the cheapest team
// or enterprise plan for the whole team when a team size is known, else the
// cheapest individual plan.
func monthlyCost(uc types.UserContext, f types.CandidateFact) (float64, bool) {
	best, found := math.Inf(1), false
	consider := func(v float64) {
		if v < best {
			best, found = v, true
		}
	}

	if uc.HasTeamSize() {
		seats := float64(*uc.TeamSize)
		for _, p := range f.PricingPlans {
			if p.Kind != types.PlanTeam && p.Kind != types.PlanEnterprise {
				continue
			}
			if v, ok := p.PerUserMonthly(); ok {
				consider(v * seats)
			} else if v, ok := p.Monthly(); ok {
				consider(v)
			}
		}
		return best, found
	}

	for _, p := range f.PricingPlans {
		if p.Kind != types.PlanIndividual {
			continue
		}
		if v, ok := p.Monthly(); ok {
			consider(v)
		}
	}
	return best, found
}

// budgetScore is 1.0 up to half the budget, then falls linearly to
// priceAtCeiling at the budget, and is 0 above it.
func budgetScore(cost, budget float64) float64 {
	if cost > budget {
		return 0
	}
	if budget <= 0 {
		return 1.0
	}
	ratio := cost / budget
	if ratio <= 0.5 {
		return 1.0
	}
	return 1.0 - (ratio-0.5)*2*(1.0-priceAtCeiling)
}
