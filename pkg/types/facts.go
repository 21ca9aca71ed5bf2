// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// SecurityPolicy describes how a tool handles the user's source code.
type SecurityPolicy string

const (
	// SecurityUnknown is the zero value: the evidence did not say.
	SecurityUnknown          SecurityPolicy = ""
	SecurityFullTransmission SecurityPolicy = "full-transmission"
	SecurityOptOut           SecurityPolicy = "opt-out"
	SecurityOnPremise        SecurityPolicy = "on-premise"
	SecurityNoTransmission   SecurityPolicy = "no-transmission"
)

// ParseSecurityPolicy maps a free-form label to a SecurityPolicy. Labels that
// match nothing map to SecurityUnknown.
func ParseSecurityPolicy(s string) SecurityPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full-transmission", "full_transmission", "opt-in", "opt_in":
		return SecurityFullTransmission
	case "opt-out", "opt_out", "transmission-with-opt-out":
		return SecurityOptOut
	case "on-premise", "on_premise", "on-premise-only", "self-hosted":
		return SecurityOnPremise
	case "no-transmission", "no_transmission", "local-only":
		return SecurityNoTransmission
	default:
		return SecurityUnknown
	}
}

// Isolated reports whether the policy keeps code inside the user's
// environment.
func (p SecurityPolicy) Isolated() bool {
	return p == SecurityOnPremise || p == SecurityNoTransmission
}

// WorkflowType is a development activity a tool supports.
type WorkflowType string

const (
	WorkflowCompletion    WorkflowType = "completion"
	WorkflowGeneration    WorkflowType = "generation"
	WorkflowReview        WorkflowType = "review"
	WorkflowRefactoring   WorkflowType = "refactoring"
	WorkflowDebugging     WorkflowType = "debugging"
	WorkflowDocumentation WorkflowType = "documentation"
)

// ParseWorkflowType maps a label such as "code_review" or "review" to a
// WorkflowType. The second return is false for unrecognized labels.
func ParseWorkflowType(s string) (WorkflowType, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "code_")
	v = strings.TrimPrefix(v, "code-")
	switch WorkflowType(v) {
	case WorkflowCompletion, WorkflowGeneration, WorkflowReview,
		WorkflowRefactoring, WorkflowDebugging, WorkflowDocumentation:
		return WorkflowType(v), true
	}
	return "", false
}

// PlanKind classifies a PricingPlan.
type PlanKind string

const (
	PlanIndividual PlanKind = "individual"
	PlanTeam       PlanKind = "team"
	PlanEnterprise PlanKind = "enterprise"
	PlanUsageBased PlanKind = "usage-based"
)

// PricingPlan is one published price point of a tool. Absent prices are nil,
// which is distinct from a free (zero) price.
type PricingPlan struct {
	Name string   `json:"name" yaml:"name"`
	Kind PlanKind `json:"plan_type" yaml:"plan_type"`

	PricePerUserPerMonth *float64 `json:"price_per_user_per_month,omitempty" yaml:"price_per_user_per_month,omitempty"`
	PricePerMonth        *float64 `json:"price_per_month,omitempty" yaml:"price_per_month,omitempty"`
	PricePerUserPerYear  *float64 `json:"price_per_user_per_year,omitempty" yaml:"price_per_user_per_year,omitempty"`
	PricePerYear         *float64 `json:"price_per_year,omitempty" yaml:"price_per_year,omitempty"`

	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}

// PerUserMonthly returns the per-seat monthly price, deriving it from the
// yearly per-seat price when only that is published.
func (p PricingPlan) PerUserMonthly() (float64, bool) {
	if p.PricePerUserPerMonth != nil {
		return *p.PricePerUserPerMonth, true
	}
	if p.PricePerUserPerYear != nil {
		return *p.PricePerUserPerYear / 12, true
	}
	return 0, false
}

// Monthly returns the price of one subscription for one month. Flat prices
// win over per-seat prices; yearly prices are spread over twelve months.
func (p PricingPlan) Monthly() (float64, bool) {
	if p.PricePerMonth != nil {
		return *p.PricePerMonth, true
	}
	if p.PricePerYear != nil {
		return *p.PricePerYear / 12, true
	}
	return p.PerUserMonthly()
}

// HasPrice reports whether any price field is populated.
func (p PricingPlan) HasPrice() bool {
	return p.PricePerUserPerMonth != nil || p.PricePerMonth != nil ||
		p.PricePerUserPerYear != nil || p.PricePerYear != nil
}

// Price returns a pointer to v, for populating PricingPlan fields.
func Price(v float64) *float64 {
	return &v
}

// CandidateFact is the structured description of one tool, extracted from
// research findings. Facts are read-only once extraction finishes.
type CandidateFact struct {
	Name               string         `json:"name" yaml:"name"`
	PricingPlans       []PricingPlan  `json:"pricing_plans" yaml:"pricing_plans"`
	Integrations       []string       `json:"integrations" yaml:"integrations"`
	SupportedLanguages []string       `json:"supported_languages" yaml:"supported_languages"`
	SecurityPolicy     SecurityPolicy `json:"security_policy,omitempty" yaml:"security_policy,omitempty"`
	SecurityDetails    string         `json:"security_details,omitempty" yaml:"security_details,omitempty"`
	Workflows          []WorkflowType `json:"workflow_support" yaml:"workflow_support"`
	Features           []string       `json:"primary_features" yaml:"primary_features"`
	Category           string         `json:"feature_category" yaml:"feature_category"`
	SourceURLs         []string       `json:"source_urls" yaml:"source_urls"`
}

// SupportsWorkflow reports whether w is in the fact's workflow set.
func (f CandidateFact) SupportsWorkflow(w WorkflowType) bool {
	for _, have := range f.Workflows {
		if have == w {
			return true
		}
	}
	return false
}
