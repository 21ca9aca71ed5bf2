// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"text/template"

	"github.com/pdiddy/advisor-engine/internal/llm"
)

const systemPrompt = "You extract structured facts about software tools from research notes. Respond with JSON only. Every tool must have a name."

// extractionPromptTmpl is the prompt sent to the model for one findings
// document.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Extract every tool described in the research findings below.

For each tool return:
- name: the product name
- pricing_plans: each plan with name, plan_type ("individual", "team", "enterprise" or "usage-based"),
  price_per_user_per_month, price_per_month, price_per_user_per_year, price_per_year (USD numbers or null)
  and source_url. Keep individual and team plans separate. Per-seat prices belong in the per_user fields.
- integrations: services the tool integrates with (GitHub, GitLab, Slack, Jira, ...)
- supported_languages: programming languages; include the language implied by a framework (React implies JavaScript and TypeScript)
- security_policy: "full-transmission", "opt-out", "on-premise" or "no-transmission", or null when unknown
- security_details: one sentence on data handling
- workflow_support: any of "code_completion", "code_generation", "code_review", "refactoring", "debugging", "documentation"
- primary_features: short feature names
- feature_category: the tool's main category, for example "code_completion", "code_review" or "security_scan"
- source_urls: pages the facts came from

Use only facts stated in the findings. Do not guess prices.
Respond with a JSON array, one object per tool.

Research findings:
{{.Findings}}
`))

// LLMBackend calls a completion collaborator with the extraction prompt.
type LLMBackend struct {
	Client    llm.Client
	MaxTokens int
}

// Extract renders the prompt for findings and returns the raw model output.
func (b *LLMBackend) Extract(ctx context.Context, findings string) (string, error) {
	prompt, err := renderPrompt(findings)
	if err != nil {
		return "", err
	}
	return b.Client.Complete(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		JSON:      true,
		MaxTokens: b.MaxTokens,
	})
}

// renderPrompt executes the extraction prompt template with the given findings.
func renderPrompt(findings string) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, struct{ Findings string }{Findings: findings}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
