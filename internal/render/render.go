// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns a resolved turn into the response shown to the user.
// Structured answers are deterministic markdown; narrative parts come from
// the completion collaborator under a retry policy and fall back to fixed
// text when it is unavailable or its output is rejected.
package render

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// Acceptance floors for narrative output.
const (
	MinLeadLength     = 30
	MinFreeFormLength = 200
	defaultAttempts   = 3
)

// Canned responses.
const (
	GreetingText = "Hello! Tell me about your team and what you need, and I will recommend a tool. " +
		"For example: \"We are 5 backend developers on Go and GitHub with a $100/month budget.\""
	OffTopicText = "I can only help with choosing software development tools. " +
		"Ask me to compare or recommend a tool for your team."
	ApologyText = "Sorry, something went wrong while preparing your answer. Please try again."
)

// Renderer builds Render values for every path.
type Renderer struct {
	client llm.Client
	lead   llm.RetryPolicy
	body   llm.RetryPolicy
	logger *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClient sets the completion collaborator. Without one every narrative
// part uses its fallback.
func WithClient(c llm.Client) Option {
	return func(r *Renderer) { r.client = c }
}

// WithAttempts sets the retry budget for narrative output.
func WithAttempts(n int) Option {
	return func(r *Renderer) {
		r.lead.MaxAttempts = n
		r.body.MaxAttempts = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New returns a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		lead:   llm.RetryPolicy{MaxAttempts: defaultAttempts, Accept: llm.MinLength(MinLeadLength)},
		body:   llm.RetryPolicy{MaxAttempts: defaultAttempts, Accept: llm.MinLength(MinFreeFormLength)},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Greeting returns the canned greeting.
func Greeting() types.Render {
	return types.Render{Path: types.PathGreeting, Body: GreetingText}
}

// OffTopic returns the canned off-topic response.
func OffTopic() types.Render {
	return types.Render{Path: types.PathOffTopic, Body: OffTopicText}
}

// Apology is the last-resort response when a turn fails.
func Apology() types.Render {
	return types.Render{Path: types.PathApology, Body: ApologyText}
}

// Structured renders a ranked recommendation. The body is deterministic; the
// lead-in comes from the model when it produces an acceptable one.
func (r *Renderer) Structured(ctx context.Context, st *types.TurnState) types.Render {
	if st.Decision == nil {
		return r.FreeForm(ctx, st)
	}
	return types.Render{
		Path: types.PathStructured,
		Lead: r.LeadIn(ctx, st.LastUserMessage(), st.Decision.Recommended),
		Body: Markdown(st.Context, *st.Decision),
	}
}

// LeadIn writes the sentence that introduces a ranking. Cached answers get a
// fresh lead-in for the current question.
func (r *Renderer) LeadIn(ctx context.Context, question string, recommended []string) string {
	fallback := FallbackLead(recommended)
	if r.client == nil || len(recommended) == 0 {
		return fallback
	}
	prompt, err := execute(leadPromptTmpl, struct {
		Question    string
		Recommended []string
	}{question, recommended})
	if err != nil {
		r.logger.Warn("rendering lead-in prompt", zap.Error(err))
		return fallback
	}
	out, ok, err := r.lead.Run(ctx, r.client, llm.Request{Prompt: prompt, MaxTokens: 256})
	if err != nil || !ok {
		r.logger.Debug("lead-in rejected, using fallback", zap.Int("length", len(out)), zap.Error(err))
		return fallback
	}
	return out
}

// FallbackLead is the deterministic lead-in.
func FallbackLead(recommended []string) string {
	switch len(recommended) {
	case 0:
		return "No tool met all of your requirements."
	case 1:
		return "Based on your requirements, **" + recommended[0] + "** is the best fit."
	}
	rest := make([]string, 0, len(recommended)-1)
	for _, n := range recommended[1:] {
		rest = append(rest, "**"+n+"**")
	}
	return "Based on your requirements, **" + recommended[0] + "** is the best fit, followed by " +
		joinAnd(rest) + "."
}

// FreeForm renders a narrative answer from the findings and history.
func (r *Renderer) FreeForm(ctx context.Context, st *types.TurnState) types.Render {
	fallback := types.Render{Path: types.PathFreeForm, Body: fallbackFreeForm(st)}
	if r.client == nil {
		return fallback
	}
	prompt, err := execute(freeFormPromptTmpl, struct {
		Question string
		History  []types.Message
		Findings string
		Facts    []types.CandidateFact
	}{st.LastUserMessage(), priorTurns(st.Messages), st.Findings.Text(), st.Facts})
	if err != nil {
		r.logger.Warn("rendering free-form prompt", zap.Error(err))
		return fallback
	}
	out, ok, err := r.body.Run(ctx, r.client, llm.Request{System: systemPrompt, Prompt: prompt})
	if err != nil || !ok {
		r.logger.Warn("free-form answer rejected, using fallback", zap.Int("length", len(out)), zap.Error(err))
		return fallback
	}
	return types.Render{Path: types.PathFreeForm, Body: out}
}

func fallbackFreeForm(st *types.TurnState) string {
	var b strings.Builder
	if st.Findings.Empty() {
		b.WriteString("I could not gather enough information to answer this in detail. ")
		b.WriteString("Try naming the tools you are considering or describing your team and budget.")
		return b.String()
	}
	b.WriteString("Here is what I found:\n\n")
	b.WriteString(st.Findings.Text())
	return b.String()
}

// Clarify asks for the constraints a ranking needs.
func Clarify(st *types.TurnState) types.Render {
	var missing []string
	if !st.Context.HasTeamSize() {
		missing = append(missing, "- How many people will use the tool? (just you, or a team of N)")
	}
	if !st.Context.HasBudget() {
		missing = append(missing, "- What is your monthly budget? (free only / ~$20 / ~$50 / no limit)")
	}

	var b strings.Builder
	if len(missing) == 0 {
		b.WriteString("I could not find enough tool information for an accurate comparison. ")
		b.WriteString("More detail about what you need would help me recommend something.")
		return types.Render{Path: types.PathClarify, Lead: greetingFor(st), Body: b.String()}
	}
	b.WriteString("To recommend the right tool I need a bit more information:\n\n")
	b.WriteString(strings.Join(missing, "\n"))
	b.WriteString("\n\nThese also help if you know them:\n\n")
	b.WriteString("- Is sending code to an external service allowed? (security requirements)\n")
	b.WriteString("- Which integrations are required? (e.g. GitHub, GitLab, Slack)\n")
	b.WriteString("- What will you mostly use it for? (writing code, code review, refactoring)")
	return types.Render{Path: types.PathClarify, Lead: greetingFor(st), Body: b.String()}
}

// CannotAnswer explains that research found nothing usable.
func CannotAnswer(st *types.TurnState) types.Render {
	searched := st.LastUserMessage()
	if st.Brief != nil && strings.TrimSpace(st.Brief.Text) != "" {
		searched = st.Brief.Text
	}
	body := "I could not find reliable information about tools that match your requirements, " +
		"so I cannot give a recommendation."
	if s := strings.TrimSpace(searched); s != "" {
		body += "\n\nI searched for: " + s
	}
	return types.Render{Path: types.PathCannotAnswer, Lead: greetingFor(st), Body: body}
}

func greetingFor(st *types.TurnState) string {
	if st.IsFollowUp() {
		return "Sure, let me look at that against your requirements."
	}
	return "Sure, let me look into that."
}

func priorTurns(msgs []types.Message) []types.Message {
	if len(msgs) == 0 {
		return nil
	}
	// The last message is the current question.
	return msgs[:len(msgs)-1]
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
