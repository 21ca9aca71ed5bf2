// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"strings"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// Markdown renders a decision result as a ranked list, a score table, and
// the exclusions. Output is a pure function of its inputs.
func Markdown(uc types.UserContext, res types.DecisionResult) string {
	var b strings.Builder

	b.WriteString("## Recommended tools\n\n")
	for i, name := range res.Recommended {
		fmt.Fprintf(&b, "%d. **%s**", i+1, name)
		if s, ok := res.ScoreFor(name); ok {
			fmt.Fprintf(&b, " (score %.2f)", s.Total)
		}
		b.WriteString("\n")
		if why := res.Reasoning[name]; why != "" {
			fmt.Fprintf(&b, "   - %s\n", why)
		}
	}

	b.WriteString("\n| Tool | Total | Language | Integration | Workflow | Price | Security | Monthly | Annual |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, name := range res.Recommended {
		s, ok := res.ScoreFor(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f | %s | %s | %s |\n",
			name, s.Total, s.LanguageScore, s.IntegrationScore, s.WorkflowScore, s.PriceScore,
			securityCell(uc, s), costCell(s.MonthlyCost, 1), costCell(s.MonthlyCost, 12))
	}

	if len(res.Excluded) > 0 {
		b.WriteString("\n### Excluded\n\n")
		for _, name := range res.Excluded {
			reason := "excluded by your constraints"
			if s, ok := res.ScoreFor(name); ok && s.ExclusionReason != "" {
				reason = s.ExclusionReason
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, reason)
		}
	}

	if note := contextNote(uc); note != "" {
		b.WriteString("\n")
		b.WriteString(note)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func securityCell(uc types.UserContext, s types.CandidateScore) string {
	if !uc.SecurityRequired {
		return "-"
	}
	return fmt.Sprintf("%.2f", s.SecurityScore)
}

func costCell(monthly *float64, months float64) string {
	if monthly == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.0f", *monthly*months)
}

// contextNote restates the constraints the ranking used.
func contextNote(uc types.UserContext) string {
	var parts []string
	if uc.HasTeamSize() {
		parts = append(parts, fmt.Sprintf("team of %d", *uc.TeamSize))
	}
	if uc.HasBudget() {
		parts = append(parts, fmt.Sprintf("budget $%.0f/month", *uc.BudgetMax))
	}
	if len(uc.TechStack) > 0 {
		parts = append(parts, "stack: "+strings.Join(uc.TechStack, ", "))
	}
	if len(uc.Integrations) > 0 {
		parts = append(parts, "integrations: "+strings.Join(uc.Integrations, ", "))
	}
	if uc.SecurityRequired {
		parts = append(parts, "code must stay in your environment")
	}
	if len(parts) == 0 {
		return ""
	}
	return "_Ranked for: " + strings.Join(parts, "; ") + "._"
}
