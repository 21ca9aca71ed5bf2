// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns free-text research findings into validated
// candidate facts. The backend is best effort: malformed or empty output
// yields no candidates rather than an error, and every LLM-sourced value is
// validated here before it reaches the decision engine.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// MinFindingsLength is the shortest findings text worth extracting from.
const MinFindingsLength = 50

// defaultCategory is assigned when the backend names no feature category.
const defaultCategory = "code_completion"

// AIBackend abstracts the Generative AI API so tests can supply a mock.
// It returns the model's raw text for one findings document.
type AIBackend interface {
	Extract(ctx context.Context, findings string) (string, error)
}

// Extractor validates backend output into CandidateFacts.
type Extractor struct {
	backend AIBackend
	logger  *zap.Logger
}

// New returns an Extractor over backend. A nil logger discards output.
func New(backend AIBackend, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{backend: backend, logger: logger}
}

// Extract returns the candidate facts found in findings. Findings shorter
// than MinFindingsLength, or equal to the no-findings marker, produce no
// call. A backend error is returned; unusable output is not an error.
func (e *Extractor) Extract(ctx context.Context, findings string) ([]types.CandidateFact, error) {
	findings = strings.TrimSpace(findings)
	if len(findings) < MinFindingsLength || findings == types.NoFindingsMarker {
		return nil, nil
	}

	raw, err := e.backend.Extract(ctx, findings)
	if err != nil {
		return nil, fmt.Errorf("extracting facts: %w", err)
	}

	facts, problems := Parse(raw)
	for _, p := range problems {
		e.logger.Debug("extraction item dropped", zap.String("reason", p))
	}
	e.logger.Info("facts extracted",
		zap.Int("facts", len(facts)),
		zap.Int("dropped", len(problems)),
	)
	return facts, nil
}

// Parse decodes raw model output and validates it. It accepts a JSON array
// of facts, an object wrapping one under "tools", "results" or "facts", a
// single fact object, or an array truncated mid-element. The second return
// lists the reasons items were dropped.
func Parse(raw string) ([]types.CandidateFact, []string) {
	items, ok := decode(llm.StripFences(raw))
	if !ok {
		return nil, []string{"output is not valid JSON"}
	}
	return convertFacts(items)
}

func decode(payload string) ([]rawFact, bool) {
	if payload == "" {
		return nil, false
	}

	var list []rawFact
	if err := json.Unmarshal([]byte(payload), &list); err == nil {
		return list, true
	}

	var wrapped struct {
		Tools   []rawFact `json:"tools"`
		Results []rawFact `json:"results"`
		Facts   []rawFact `json:"facts"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapped); err == nil {
		switch {
		case len(wrapped.Tools) > 0:
			return wrapped.Tools, true
		case len(wrapped.Results) > 0:
			return wrapped.Results, true
		case len(wrapped.Facts) > 0:
			return wrapped.Facts, true
		}
		var single rawFact
		if err := json.Unmarshal([]byte(payload), &single); err == nil && single.Name != "" {
			return []rawFact{single}, true
		}
		return nil, true
	}

	// Truncated array: keep every complete element.
	if strings.HasPrefix(payload, "[") {
		if i := strings.LastIndex(payload, "}"); i > 0 {
			if err := json.Unmarshal([]byte(payload[:i+1]+"]"), &list); err == nil {
				return list, true
			}
		}
	}
	return nil, false
}

// convertFacts validates raw facts. Duplicate names merge into the first
// occurrence, which keeps every field it already set.
func convertFacts(items []rawFact) ([]types.CandidateFact, []string) {
	var facts []types.CandidateFact
	var problems []string
	index := make(map[string]int)

	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("item %d: missing name", i))
			continue
		}
		fact := convertFact(name, item)

		key := strings.ToLower(name)
		if at, ok := index[key]; ok {
			mergeFact(&facts[at], fact)
			problems = append(problems, fmt.Sprintf("item %d: duplicate of %q merged", i, facts[at].Name))
			continue
		}
		index[key] = len(facts)
		facts = append(facts, fact)
	}
	return facts, problems
}

func convertFact(name string, item rawFact) types.CandidateFact {
	category := strings.ToLower(strings.TrimSpace(item.FeatureCategory))
	if category == "" {
		category = defaultCategory
	}

	fact := types.CandidateFact{
		Name:               name,
		Integrations:       cleanList(item.Integrations),
		SupportedLanguages: cleanList(item.SupportedLanguages),
		SecurityPolicy:     types.ParseSecurityPolicy(item.SecurityPolicy),
		SecurityDetails:    strings.TrimSpace(item.SecurityDetails),
		Features:           cleanList(item.PrimaryFeatures),
		Category:           category,
		SourceURLs:         cleanList(item.SourceURLs),
	}
	for _, p := range item.PricingPlans {
		if plan, ok := convertPlan(p, name); ok {
			fact.PricingPlans = append(fact.PricingPlans, plan)
		}
	}
	fact.Workflows = workflows(item.WorkflowSupport, category, name)
	return fact
}

// mergeFact fills fields of dst that are still empty from src.
func mergeFact(dst *types.CandidateFact, src types.CandidateFact) {
	if len(dst.PricingPlans) == 0 {
		dst.PricingPlans = src.PricingPlans
	}
	if len(dst.Integrations) == 0 {
		dst.Integrations = src.Integrations
	}
	if len(dst.SupportedLanguages) == 0 {
		dst.SupportedLanguages = src.SupportedLanguages
	}
	if dst.SecurityPolicy == types.SecurityUnknown {
		dst.SecurityPolicy = src.SecurityPolicy
	}
	if dst.SecurityDetails == "" {
		dst.SecurityDetails = src.SecurityDetails
	}
	if len(dst.Features) == 0 {
		dst.Features = src.Features
	}
	if len(dst.SourceURLs) == 0 {
		dst.SourceURLs = src.SourceURLs
	}
}

var (
	usageKeywords  = []string{"usage-based", "usage based", "per api call", "per token", "per million tokens", "pay as you go", "pay-as-you-go", "사용량 기반", "토큰 기반"}
	teamKeywords   = []string{"team", "business", "organization"}
	reviewKeywords = []string{"review", "coderabbit", "code-rabbit", "codacy", "sonarqube", "qodo", "greptile"}
)

func convertPlan(p rawPlan, toolName string) (types.PricingPlan, bool) {
	plan := types.PricingPlan{
		Name:                 strings.TrimSpace(p.Name),
		PricePerUserPerMonth: p.PricePerUserPerMonth.value(),
		PricePerMonth:        p.PricePerMonth.value(),
		PricePerUserPerYear:  p.PricePerUserPerYear.value(),
		PricePerYear:         p.PricePerYear.value(),
		SourceURL:            strings.TrimSpace(p.SourceURL),
	}
	if plan.Name == "" && !plan.HasPrice() {
		return types.PricingPlan{}, false
	}
	plan.Kind = parsePlanKind(p.PlanType)
	if plan.Kind == "" {
		plan.Kind = inferPlanKind(plan, toolName)
	}
	return plan, true
}

func parsePlanKind(s string) types.PlanKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual", "personal":
		return types.PlanIndividual
	case "team", "business":
		return types.PlanTeam
	case "enterprise":
		return types.PlanEnterprise
	case "usage-based", "usage_based", "usage":
		return types.PlanUsageBased
	}
	return ""
}

// inferPlanKind classifies a plan with no usable kind from its name and
// which price fields are populated.
func inferPlanKind(plan types.PricingPlan, toolName string) types.PlanKind {
	name := strings.ToLower(plan.Name)
	if containsAny(name+" "+strings.ToLower(toolName), usageKeywords) {
		return types.PlanUsageBased
	}
	if strings.Contains(name, "enterprise") {
		return types.PlanEnterprise
	}
	if containsAny(name, teamKeywords) {
		return types.PlanTeam
	}
	perSeat := plan.PricePerUserPerMonth != nil || plan.PricePerUserPerYear != nil
	flat := plan.PricePerMonth != nil || plan.PricePerYear != nil
	if perSeat && !flat {
		return types.PlanTeam
	}
	return types.PlanIndividual
}

// workflows validates labels and, when none survive, derives the set from
// the feature category and tool name. Code-generation tools always carry
// the generation workflow.
func workflows(labels []string, category, name string) []types.WorkflowType {
	var out []types.WorkflowType
	seen := make(map[types.WorkflowType]bool)
	add := func(w types.WorkflowType) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, l := range labels {
		if w, ok := types.ParseWorkflowType(l); ok {
			add(w)
		}
	}

	lname := strings.ToLower(name)
	generation := strings.Contains(category, "generation") ||
		strings.Contains(lname, "generat") || strings.Contains(lname, "codex")

	if len(out) == 0 {
		if strings.Contains(category, "review") || containsAny(lname, reviewKeywords) {
			add(types.WorkflowReview)
		}
		if strings.Contains(category, "completion") || strings.Contains(lname, "autocomplete") {
			add(types.WorkflowCompletion)
		}
		if generation {
			add(types.WorkflowGeneration)
		}
		if len(out) == 0 {
			add(types.WorkflowCompletion)
		}
	}
	if generation && !seen[types.WorkflowGeneration] {
		out = append([]types.WorkflowType{types.WorkflowGeneration}, out...)
	}
	return out
}

// cleanList trims entries and drops empties and case-insensitive repeats.
func cleanList(in []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
