// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// UserContext holds the user's constraints for one turn. Optional numeric
// constraints are nil when the user did not state them.
type UserContext struct {
	// TeamSize is the number of seats to price.
	TeamSize *int `json:"team_size,omitempty" yaml:"team_size,omitempty"`

	// BudgetMax is the monthly ceiling in USD for the whole team.
	BudgetMax *float64 `json:"budget_max,omitempty" yaml:"budget_max,omitempty"`

	TechStack        []string       `json:"tech_stack" yaml:"tech_stack"`
	Integrations     []string       `json:"required_integrations" yaml:"required_integrations"`
	Workflows        []WorkflowType `json:"workflow_type" yaml:"workflow_type"`
	SecurityRequired bool           `json:"security_required" yaml:"security_required"`
	Excluded         []string       `json:"excluded_tools" yaml:"excluded_tools"`
}

// HasBudget reports whether a budget ceiling is set.
func (c UserContext) HasBudget() bool { return c.BudgetMax != nil }

// HasTeamSize reports whether a positive team size is set.
func (c UserContext) HasTeamSize() bool { return c.TeamSize != nil && *c.TeamSize > 0 }

// RequiresWorkflow reports whether w is among the required workflows.
func (c UserContext) RequiresWorkflow(w WorkflowType) bool {
	for _, have := range c.Workflows {
		if have == w {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the context carries no constraint at all.
func (c UserContext) IsEmpty() bool {
	return c.TeamSize == nil && c.BudgetMax == nil && len(c.TechStack) == 0 &&
		len(c.Integrations) == 0 && len(c.Workflows) == 0 &&
		!c.SecurityRequired && len(c.Excluded) == 0
}

// Clone returns a deep copy of c.
func (c UserContext) Clone() UserContext {
	out := c
	if c.TeamSize != nil {
		v := *c.TeamSize
		out.TeamSize = &v
	}
	if c.BudgetMax != nil {
		v := *c.BudgetMax
		out.BudgetMax = &v
	}
	out.TechStack = append([]string(nil), c.TechStack...)
	out.Integrations = append([]string(nil), c.Integrations...)
	out.Workflows = append([]WorkflowType(nil), c.Workflows...)
	out.Excluded = append([]string(nil), c.Excluded...)
	return out
}

// CandidateScore is the scoring breakdown for one candidate.
type CandidateScore struct {
	Name string `json:"tool_name" yaml:"tool_name"`

	LanguageScore    float64 `json:"language_score" yaml:"language_score"`
	IntegrationScore float64 `json:"integration_score" yaml:"integration_score"`
	WorkflowScore    float64 `json:"workflow_score" yaml:"workflow_score"`
	PriceScore       float64 `json:"price_score" yaml:"price_score"`
	SecurityScore    float64 `json:"security_score" yaml:"security_score"`

	Total float64 `json:"total_score" yaml:"total_score"`

	// MonthlyCost is the resolved monthly cost used for price scoring, nil
	// when no price could be resolved.
	MonthlyCost *float64 `json:"monthly_cost,omitempty" yaml:"monthly_cost,omitempty"`

	// ExclusionReason is set exactly when a disqualifying condition fired.
	ExclusionReason string `json:"exclusion_reason,omitempty" yaml:"exclusion_reason,omitempty"`
}

// Excluded reports whether the score disqualifies the candidate.
func (s CandidateScore) Excluded() bool {
	return s.ExclusionReason != "" || s.Total <= 0
}

// DecisionResult is the output of the decision engine.
type DecisionResult struct {
	Recommended []string          `json:"recommended_tools" yaml:"recommended_tools"`
	Excluded    []string          `json:"excluded_tools" yaml:"excluded_tools"`
	Scores      []CandidateScore  `json:"tool_scores" yaml:"tool_scores"`
	Reasoning   map[string]string `json:"reasoning" yaml:"reasoning"`
}

// ScoreFor returns the score recorded for name.
func (r DecisionResult) ScoreFor(name string) (CandidateScore, bool) {
	for _, s := range r.Scores {
		if s.Name == name {
			return s, true
		}
	}
	return CandidateScore{}, false
}
