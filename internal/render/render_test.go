// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

func intPtr(v int) *int { return &v }

func sampleDecision() types.DecisionResult {
	return types.DecisionResult{
		Recommended: []string{"Cursor", "Copilot"},
		Excluded:    []string{"Tabnine", "Legacy"},
		Scores: []types.CandidateScore{
			{Name: "Cursor", Total: 0.9, LanguageScore: 1, IntegrationScore: 1, WorkflowScore: 0.8, PriceScore: 1, MonthlyCost: types.Price(100)},
			{Name: "Copilot", Total: 0.8, LanguageScore: 1, IntegrationScore: 0.5, WorkflowScore: 0.8, PriceScore: 1, MonthlyCost: types.Price(50)},
			{Name: "Tabnine", ExclusionReason: "over budget ($195/month > $150)"},
		},
		Reasoning: map[string]string{"Cursor": "fully supports your stack (Go)"},
	}
}

func turn(messages ...types.Message) *types.TurnState {
	return &types.TurnState{Messages: messages}
}

func user(text string) types.Message { return types.Message{Role: types.RoleUser, Content: text} }

// --- markdown ---

func TestMarkdown(t *testing.T) {
	uc := types.UserContext{TeamSize: intPtr(5), BudgetMax: types.Price(150), TechStack: []string{"Go"}}
	md := Markdown(uc, sampleDecision())

	assert.Contains(t, md, "1. **Cursor** (score 0.90)")
	assert.Contains(t, md, "   - fully supports your stack (Go)")
	assert.Contains(t, md, "2. **Copilot** (score 0.80)")
	assert.Contains(t, md, "| Cursor | 0.90 | 1.00 | 1.00 | 0.80 | 1.00 | - | $100 | $1200 |")
	assert.Contains(t, md, "- Tabnine: over budget ($195/month > $150)")
	assert.Contains(t, md, "- Legacy: excluded by your constraints")
	assert.Contains(t, md, "_Ranked for: team of 5; budget $150/month; stack: Go._")
	assert.Less(t, strings.Index(md, "Cursor"), strings.Index(md, "Copilot"))
}

func TestMarkdownDeterministic(t *testing.T) {
	uc := types.UserContext{SecurityRequired: true}
	assert.Equal(t, Markdown(uc, sampleDecision()), Markdown(uc, sampleDecision()))
	assert.Contains(t, Markdown(uc, sampleDecision()), "| 0.00 | $100 |")
}

func TestMarkdownMissingCost(t *testing.T) {
	res := types.DecisionResult{
		Recommended: []string{"Free"},
		Scores:      []types.CandidateScore{{Name: "Free", Total: 0.7}},
	}
	md := Markdown(types.UserContext{}, res)
	assert.Contains(t, md, "| n/a | n/a |")
	assert.NotContains(t, md, "### Excluded")
}

// --- lead-in ---

func TestFallbackLead(t *testing.T) {
	assert.Equal(t, "No tool met all of your requirements.", FallbackLead(nil))
	assert.Equal(t, "Based on your requirements, **A** is the best fit.", FallbackLead([]string{"A"}))
	assert.Equal(t, "Based on your requirements, **A** is the best fit, followed by **B** and **C**.",
		FallbackLead([]string{"A", "B", "C"}))
}

func TestLeadInRetriesUntilAccepted(t *testing.T) {
	calls := 0
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
		calls++
		if calls == 1 {
			return "Too short.", nil
		}
		return "Cursor leads for your Go team, with Copilot close behind.", nil
	})
	r := New(WithClient(client))
	got := r.LeadIn(context.Background(), "best tool?", []string{"Cursor", "Copilot"})
	assert.Equal(t, "Cursor leads for your Go team, with Copilot close behind.", got)
	assert.Equal(t, 2, calls)
}

func TestLeadInFallsBack(t *testing.T) {
	client := llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("unavailable")
	})
	r := New(WithClient(client), WithAttempts(2))
	got := r.LeadIn(context.Background(), "q", []string{"Cursor"})
	assert.Equal(t, FallbackLead([]string{"Cursor"}), got)
}

func TestStructured(t *testing.T) {
	d := sampleDecision()
	st := turn(user("best tool for 5 Go devs under $150?"))
	st.Decision = &d
	got := New().Structured(context.Background(), st)
	assert.Equal(t, types.PathStructured, got.Path)
	assert.Equal(t, FallbackLead(d.Recommended), got.Lead)
	assert.True(t, strings.HasPrefix(got.Body, "## Recommended tools"))
}

// --- free-form ---

func TestFreeFormAcceptsLongAnswer(t *testing.T) {
	long := strings.Repeat("Copilot supports Go and integrates with GitHub. ", 6)
	var got llm.Request
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return long, nil
	})
	st := turn(user("earlier"), types.Message{Role: types.RoleAssistant, Content: "earlier answer"}, user("what about Copilot?"))
	st.Findings = types.Findings{Compressed: []string{"Copilot: $10/month"}}

	r := New(WithClient(client)).FreeForm(context.Background(), st)
	assert.Equal(t, types.PathFreeForm, r.Path)
	assert.Equal(t, strings.TrimSpace(long), r.Body)
	assert.Contains(t, got.Prompt, "Copilot: $10/month")
	assert.Contains(t, got.Prompt, "assistant: earlier answer")
	assert.Contains(t, got.Prompt, "what about Copilot?")
}

func TestFreeFormFallback(t *testing.T) {
	client := llm.ClientFunc(func(context.Context, llm.Request) (string, error) { return "short", nil })
	st := turn(user("q"))
	st.Findings = types.Findings{Compressed: []string{"Note A"}}

	r := New(WithClient(client)).FreeForm(context.Background(), st)
	assert.Equal(t, "Here is what I found:\n\nNote A", r.Body)

	empty := New().FreeForm(context.Background(), turn(user("q")))
	assert.Contains(t, empty.Body, "could not gather enough information")
}

// --- clarify / cannot-answer ---

func TestClarify(t *testing.T) {
	st := turn(user("recommend a tool"))
	r := Clarify(st)
	assert.Equal(t, types.PathClarify, r.Path)
	assert.Contains(t, r.Body, "How many people")
	assert.Contains(t, r.Body, "monthly budget")
	assert.Equal(t, "Sure, let me look into that.", r.Lead)

	st.Context.TeamSize = intPtr(3)
	r = Clarify(st)
	assert.NotContains(t, r.Body, "How many people")
	assert.Contains(t, r.Body, "monthly budget")

	st.Context.BudgetMax = types.Price(50)
	r = Clarify(st)
	assert.Contains(t, r.Body, "could not find enough tool information")
}

func TestCannotAnswer(t *testing.T) {
	st := turn(user("q"), types.Message{Role: types.RoleAssistant, Content: "a"}, user("tools for 5 people?"))
	st.Brief = &types.Brief{Text: "AI code review tools for a 5 person team"}
	r := CannotAnswer(st)
	assert.Equal(t, types.PathCannotAnswer, r.Path)
	assert.Contains(t, r.Body, "I searched for: AI code review tools for a 5 person team")
	assert.Equal(t, "Sure, let me look at that against your requirements.", r.Lead)
}

func TestCanned(t *testing.T) {
	assert.Equal(t, types.PathGreeting, Greeting().Path)
	assert.Equal(t, types.PathOffTopic, OffTopic().Path)
	assert.Equal(t, types.PathApology, Apology().Path)
	assert.NotEmpty(t, Apology().Text())
}

// --- history ---

func TestHistorySortByPriceFallback(t *testing.T) {
	d := sampleDecision()
	st := turn(
		user("best tool?"),
		types.Message{Role: types.RoleAssistant, Content: "ranked", Recommended: d.Recommended, Scores: d.Scores[:2]},
		user("sort those by price"),
	)
	r := New().History(context.Background(), st, true)
	require.Equal(t, types.PathHistory, r.Path)
	assert.Less(t, strings.Index(r.Body, "Copilot"), strings.Index(r.Body, "Cursor"))
	assert.Contains(t, r.Body, "1. **Copilot**: $50/month, $600/year")
}

func TestHistoryEchoFallback(t *testing.T) {
	st := turn(
		user("best tool?"),
		types.Message{Role: types.RoleAssistant, Content: "Cursor is best.", Recommended: []string{"Cursor"}},
		user("why?"),
	)
	assert.Equal(t, "Cursor is best.", New().History(context.Background(), st, false).Body)
	assert.Contains(t, New().History(context.Background(), turn(user("why?")), false).Body, "earlier answer")
}

func TestHistoryUsesModel(t *testing.T) {
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
		if !strings.Contains(req.Prompt, "assistant: Cursor is best.") {
			return "", errors.New("missing history")
		}
		return "Cursor ranked first because it fully supports your stack.", nil
	})
	st := turn(
		user("best tool?"),
		types.Message{Role: types.RoleAssistant, Content: "Cursor is best.", Recommended: []string{"Cursor"}},
		user("why that one?"),
	)
	r := New(WithClient(client)).History(context.Background(), st, false)
	assert.Equal(t, "Cursor ranked first because it fully supports your stack.", r.Body)
}

func TestSortByPriceMissingCostsLast(t *testing.T) {
	out := SortByPrice([]types.CandidateScore{
		{Name: "Unknown"},
		{Name: "Pricey", MonthlyCost: types.Price(90)},
		{Name: "Cheap", MonthlyCost: types.Price(10)},
	})
	iCheap, iPricey, iUnknown := strings.Index(out, "Cheap"), strings.Index(out, "Pricey"), strings.Index(out, "Unknown")
	assert.Less(t, iCheap, iPricey)
	assert.Less(t, iPricey, iUnknown)
	assert.Contains(t, out, "**Unknown**: n/a/month")
}
