// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// --- mock backend ---

type mockAIBackend struct {
	response string
	err      error
	calls    int
	got      string
}

func (m *mockAIBackend) Extract(_ context.Context, findings string) (string, error) {
	m.calls++
	m.got = findings
	return m.response, m.err
}

const longFindings = "Cursor Pro costs $20 per month. Cursor Business costs $40 per user per month and integrates with GitHub."

// --- Extract ---

func TestExtractSkipsShortFindings(t *testing.T) {
	for _, findings := range []string{"", "too short", types.NoFindingsMarker} {
		m := &mockAIBackend{response: `[{"name":"X"}]`}
		facts, err := New(m, nil).Extract(context.Background(), findings)
		if err != nil {
			t.Fatalf("Extract(%q): %v", findings, err)
		}
		if facts != nil || m.calls != 0 {
			t.Errorf("Extract(%q) = %v with %d calls, want no call", findings, facts, m.calls)
		}
	}
}

func TestExtractBackendError(t *testing.T) {
	m := &mockAIBackend{err: errors.New("quota")}
	_, err := New(m, nil).Extract(context.Background(), longFindings)
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("err = %v, want wrapped backend error", err)
	}
}

func TestExtractMalformedIsNotError(t *testing.T) {
	m := &mockAIBackend{response: "I could not find any tools, sorry."}
	facts, err := New(m, nil).Extract(context.Background(), longFindings)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("got %d facts, want 0", len(facts))
	}
}

func TestExtractPassesFindings(t *testing.T) {
	m := &mockAIBackend{response: `[{"name":"Cursor"}]`}
	facts, err := New(m, nil).Extract(context.Background(), "  "+longFindings+"\n")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if m.got != longFindings {
		t.Errorf("backend got %q, want trimmed findings", m.got)
	}
	if len(facts) != 1 || facts[0].Name != "Cursor" {
		t.Errorf("facts = %+v", facts)
	}
}

// --- Parse shapes ---

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNames []string
	}{
		{"array", `[{"name":"A"},{"name":"B"}]`, []string{"A", "B"}},
		{"fenced", "```json\n[{\"name\":\"A\"}]\n```", []string{"A"}},
		{"tools wrapper", `{"tools":[{"name":"A"}]}`, []string{"A"}},
		{"results wrapper", `{"results":[{"name":"B"}]}`, []string{"B"}},
		{"single object", `{"name":"Solo","feature_category":"code_review"}`, []string{"Solo"}},
		{"truncated array", `[{"name":"A"},{"name":"B"},{"name":"C","integr`, []string{"A", "B"}},
		{"empty array", `[]`, nil},
		{"empty object", `{}`, nil},
		{"prose", `no json here`, nil},
		{"empty", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, _ := Parse(tt.raw)
			var got []string
			for _, f := range facts {
				got = append(got, f.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.wantNames, ",") {
				t.Errorf("names = %v, want %v", got, tt.wantNames)
			}
		})
	}
}

// --- boundary validation ---

func TestParseTrimsAndDropsNamelessItems(t *testing.T) {
	facts, problems := Parse(`[{"name":"  Cursor  "},{"name":"   "},{"pricing_plans":[]}]`)
	if len(facts) != 1 || facts[0].Name != "Cursor" {
		t.Fatalf("facts = %+v", facts)
	}
	if len(problems) != 2 {
		t.Errorf("problems = %v, want 2", problems)
	}
}

func TestParseMergesDuplicatesFirstWins(t *testing.T) {
	facts, _ := Parse(`[
		{"name":"Cursor","supported_languages":["Go"],"security_policy":"opt-out"},
		{"name":"cursor","supported_languages":["Rust"],"integrations":["GitHub"],"security_policy":"on-premise"}
	]`)
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
	f := facts[0]
	if f.Name != "Cursor" {
		t.Errorf("name = %q", f.Name)
	}
	if len(f.SupportedLanguages) != 1 || f.SupportedLanguages[0] != "Go" {
		t.Errorf("languages = %v, want first occurrence", f.SupportedLanguages)
	}
	if len(f.Integrations) != 1 || f.Integrations[0] != "GitHub" {
		t.Errorf("integrations = %v, want filled from duplicate", f.Integrations)
	}
	if f.SecurityPolicy != types.SecurityOptOut {
		t.Errorf("security = %q, want first occurrence", f.SecurityPolicy)
	}
}

func TestParseSecurityPolicy(t *testing.T) {
	tests := []struct {
		label string
		want  types.SecurityPolicy
	}{
		{"opt-in", types.SecurityFullTransmission},
		{"opt-out", types.SecurityOptOut},
		{"on-premise", types.SecurityOnPremise},
		{"no-transmission", types.SecurityNoTransmission},
		{"something else", types.SecurityUnknown},
		{"", types.SecurityUnknown},
	}
	for _, tt := range tests {
		facts, _ := Parse(`[{"name":"T","security_policy":"` + tt.label + `"}]`)
		if facts[0].SecurityPolicy != tt.want {
			t.Errorf("security_policy %q = %q, want %q", tt.label, facts[0].SecurityPolicy, tt.want)
		}
	}
}

func TestParsePricing(t *testing.T) {
	facts, _ := Parse(`[{"name":"Copilot","pricing_plans":[
		{"name":"Pro","plan_type":"individual","price_per_month":10},
		{"name":"Business","price_per_user_per_month":"$19"},
		{"name":"Enterprise","price_per_user_per_month":39},
		{"name":"API","price_per_month":null},
		{"name":"Seats","price_per_user_per_year":"1,200"},
		{"name":"Broken","plan_type":"individual","price_per_month":-5},
		{"name":"Weird","plan_type":"galactic","price_per_month":7},
		{"plan_type":"team"}
	]}]`)
	plans := facts[0].PricingPlans
	if len(plans) != 7 {
		t.Fatalf("got %d plans, want 7 (nameless priceless plan dropped)", len(plans))
	}

	checks := []struct {
		idx  int
		kind types.PlanKind
	}{
		{0, types.PlanIndividual},
		{1, types.PlanTeam},
		{2, types.PlanEnterprise},
		{3, types.PlanIndividual},
		{4, types.PlanTeam},
		{5, types.PlanIndividual},
		{6, types.PlanIndividual},
	}
	for _, c := range checks {
		if plans[c.idx].Kind != c.kind {
			t.Errorf("plan %q kind = %q, want %q", plans[c.idx].Name, plans[c.idx].Kind, c.kind)
		}
	}

	if v := plans[1].PricePerUserPerMonth; v == nil || *v != 19 {
		t.Errorf("Business per-user price = %v, want 19", v)
	}
	if v := plans[4].PricePerUserPerYear; v == nil || *v != 1200 {
		t.Errorf("Seats per-user yearly = %v, want 1200", v)
	}
	if plans[5].PricePerMonth != nil {
		t.Errorf("negative price kept: %v", *plans[5].PricePerMonth)
	}
	if plans[3].HasPrice() {
		t.Errorf("null price should be absent")
	}
}

func TestParseUsageBasedInference(t *testing.T) {
	facts, _ := Parse(`[{"name":"Some API","pricing_plans":[{"name":"Input $1.50 per million tokens"}]}]`)
	if got := facts[0].PricingPlans[0].Kind; got != types.PlanUsageBased {
		t.Errorf("kind = %q, want usage-based", got)
	}
}

func TestParseWorkflows(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []types.WorkflowType
	}{
		{
			name: "labels validated and deduplicated",
			raw:  `{"name":"T","workflow_support":["code_completion","completion","teleport","code_review"]}`,
			want: []types.WorkflowType{types.WorkflowCompletion, types.WorkflowReview},
		},
		{
			name: "review category default",
			raw:  `{"name":"T","feature_category":"code_review"}`,
			want: []types.WorkflowType{types.WorkflowReview},
		},
		{
			name: "review tool name default",
			raw:  `{"name":"CodeRabbit","feature_category":"security_scan"}`,
			want: []types.WorkflowType{types.WorkflowReview},
		},
		{
			name: "completion default",
			raw:  `{"name":"T"}`,
			want: []types.WorkflowType{types.WorkflowCompletion},
		},
		{
			name: "generation category adds generation",
			raw:  `{"name":"T","feature_category":"code_generation","workflow_support":["debugging"]}`,
			want: []types.WorkflowType{types.WorkflowGeneration, types.WorkflowDebugging},
		},
		{
			name: "codex name implies generation",
			raw:  `{"name":"OpenAI Codex"}`,
			want: []types.WorkflowType{types.WorkflowCompletion, types.WorkflowGeneration},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, _ := Parse(tt.raw)
			if len(facts) != 1 {
				t.Fatalf("got %d facts", len(facts))
			}
			got := facts[0].Workflows
			if len(got) != len(tt.want) {
				t.Fatalf("workflows = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("workflows = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestParseCategoryAndLists(t *testing.T) {
	facts, _ := Parse(`[{"name":"T","feature_category":"  Code_Review ",
		"integrations":"GitHub, Slack","supported_languages":["Go","go"," ",null,3],
		"source_urls":null}]`)
	f := facts[0]
	if f.Category != "code_review" {
		t.Errorf("category = %q", f.Category)
	}
	if strings.Join(f.Integrations, "|") != "GitHub|Slack" {
		t.Errorf("integrations = %v", f.Integrations)
	}
	if strings.Join(f.SupportedLanguages, "|") != "Go" {
		t.Errorf("languages = %v", f.SupportedLanguages)
	}
	if f.SourceURLs == nil || len(f.SourceURLs) != 0 {
		t.Errorf("source urls = %#v, want empty non-nil", f.SourceURLs)
	}

	facts, _ = Parse(`[{"name":"U"}]`)
	if facts[0].Category != defaultCategory {
		t.Errorf("default category = %q", facts[0].Category)
	}
}

// --- LLM backend ---

func TestLLMBackend(t *testing.T) {
	var got llm.Request
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return `[{"name":"Tabnine","security_policy":"on-premise"}]`, nil
	})

	facts, err := New(&LLMBackend{Client: client, MaxTokens: 2048}, nil).Extract(context.Background(), longFindings)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !got.JSON || got.MaxTokens != 2048 || got.System == "" {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(got.Prompt, longFindings) {
		t.Errorf("prompt does not contain findings")
	}
	if len(facts) != 1 || facts[0].SecurityPolicy != types.SecurityOnPremise {
		t.Errorf("facts = %+v", facts)
	}
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := renderPrompt("Findings body")
	if err != nil {
		t.Fatalf("renderPrompt: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(prompt), "Findings body") {
		t.Errorf("prompt should end with the findings")
	}
}
