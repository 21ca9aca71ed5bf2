// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// maxPlannedTopics bounds how many topics one planner answer may add.
const maxPlannedTopics = 6

// BriefPlanner researches the brief itself in round one and nothing after.
type BriefPlanner struct{}

// Plan returns the brief text as the only topic of round one.
func (BriefPlanner) Plan(_ context.Context, req PlanRequest) (Plan, error) {
	if req.Round > 1 || strings.TrimSpace(req.Brief.Text) == "" {
		return Plan{}, nil
	}
	return Plan{Topics: []string{req.Brief.Text}}, nil
}

var planPromptTmpl = template.Must(template.New("plan").Parse(`You coordinate research for a software tool recommendation.

Research brief:
{{.Brief.Text}}

Question type: {{.Brief.QuestionType}}
{{- if .Pending}}

Topics already queued:
{{- range .Pending}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Results}}

Findings so far (round {{.Round}}):
{{- range .Results}}
## {{.Topic}}
{{.Compressed}}
{{- end}}
{{- end}}

Choose up to {{.Max}} focused web research topics that are still missing, such as one topic per candidate tool
covering its pricing, supported languages, integrations and data security.
Return an empty list when the findings already cover the brief. Set research_complete to true when nothing more is needed.
Respond with JSON: {"topics": ["..."], "research_complete": false}
`))

// LLMPlanner asks the completion collaborator for the next topics.
type LLMPlanner struct {
	Client llm.Client
}

// Plan renders the planning prompt and decodes the model's answer.
func (p *LLMPlanner) Plan(ctx context.Context, req PlanRequest) (Plan, error) {
	var buf bytes.Buffer
	data := struct {
		PlanRequest
		Max int
	}{req, maxPlannedTopics}
	if err := planPromptTmpl.Execute(&buf, data); err != nil {
		return Plan{}, fmt.Errorf("rendering plan prompt: %w", err)
	}

	var plan Plan
	if err := llm.CompleteJSON(ctx, p.Client, llm.Request{Prompt: buf.String(), MaxTokens: 1024}, &plan); err != nil {
		return Plan{}, fmt.Errorf("planning round %d: %w", req.Round, err)
	}
	if len(plan.Topics) > maxPlannedTopics {
		plan.Topics = plan.Topics[:maxPlannedTopics]
	}
	return plan, nil
}

var compressPromptTmpl = template.Must(template.New("compress").Parse(`Condense the research notes below about "{{.Topic}}" into concise factual notes.
Keep every tool name, price, plan name, supported language, integration, security or data-retention statement, and source URL.
Drop marketing language. Do not add facts that are not in the notes.

Notes:
{{- range .Evidence}}
- {{.Text}}{{if .URL}} ({{.URL}}){{end}}
{{- end}}
`))

// LLMCompressor condenses evidence with the completion collaborator.
type LLMCompressor struct {
	Client llm.Client
	Policy llm.RetryPolicy
}

// Compress returns the model's notes for topic. An output the policy never
// accepts is an error so the worker falls back to its digest.
func (c *LLMCompressor) Compress(ctx context.Context, topic string, evidence []types.Evidence) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Topic    string
		Evidence []types.Evidence
	}{topic, evidence}
	if err := compressPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering compress prompt: %w", err)
	}

	out, ok, err := c.Policy.Run(ctx, c.Client, llm.Request{Prompt: buf.String(), MaxTokens: 2048})
	if err != nil {
		return "", fmt.Errorf("compressing %q: %w", topic, err)
	}
	if !ok {
		return "", fmt.Errorf("compressing %q: output rejected", topic)
	}
	return out, nil
}
