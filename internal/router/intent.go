// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/internal/textsim"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// Intent is the classification of an inbound message.
type Intent string

const (
	IntentOnTopic  Intent = "on_topic"
	IntentGreeting Intent = "greeting"
	IntentOffTopic Intent = "off_topic"
)

// Classifier decides whether a message is on topic.
type Classifier interface {
	Classify(ctx context.Context, message string, history []types.Message) (Intent, error)
}

// Normalized is the canonical form of a question used for cache keys.
type Normalized struct {
	Text     string   `json:"normalized_text"`
	Keywords []string `json:"keywords"`
	Intent   string   `json:"intent"`
}

// Normalizer produces the canonical form of a question.
type Normalizer interface {
	Normalize(ctx context.Context, message string) (Normalized, error)
}

// BriefWriter scopes the conversation into a research brief.
type BriefWriter interface {
	Write(ctx context.Context, messages []types.Message) (types.Brief, error)
}

// CacheKey derives the answer cache key from a normalized question. Case
// and keyword order do not change the key.
func CacheKey(domain string, n Normalized) string {
	kws := make([]string, 0, len(n.Keywords))
	for _, k := range n.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}
	slices.Sort(kws)
	kws = slices.Compact(kws)
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(n.Text)) + ":" + strings.Join(kws, ":")))
	return "final:" + domain + ":" + hex.EncodeToString(sum[:])
}

// LexicalNormalize is the normalization used when the model is unavailable.
func LexicalNormalize(message string) Normalized {
	return Normalized{Text: textsim.Normalize(message), Keywords: textsim.Keywords(message)}
}

// RuleClassifier recognizes bare greetings and treats everything else as on
// topic.
type RuleClassifier struct{}

// Classify implements Classifier.
func (RuleClassifier) Classify(_ context.Context, message string, _ []types.Message) (Intent, error) {
	if IsGreeting(message) {
		return IntentGreeting, nil
	}
	return IntentOnTopic, nil
}

// RawBriefWriter uses the latest user message as the brief.
type RawBriefWriter struct{}

// Write implements BriefWriter.
func (RawBriefWriter) Write(_ context.Context, messages []types.Message) (types.Brief, error) {
	return fallbackBrief(messages), nil
}

func fallbackBrief(messages []types.Message) types.Brief {
	st := types.TurnState{Messages: messages}
	return types.Brief{Text: st.LastUserMessage(), QuestionType: types.QuestionComparison}
}

var classifyPromptTmpl = template.Must(template.New("classify").Parse(`You route messages for an assistant that recommends software development tools
(AI coding assistants, code review bots, IDE plugins and similar).
{{- if .History}}

Conversation so far:
{{- range .History}}
{{.Role}}: {{.Content}}
{{- end}}
{{- end}}

Message:
{{.Message}}

Classify the message as "greeting" (a hello or thanks with no question), "off_topic" (unrelated to choosing or
using development tools) or "on_topic". Follow-up questions about an earlier answer are on_topic.
Respond with JSON: {"intent": "on_topic"}`))

// LLMClassifier classifies with the completion collaborator.
type LLMClassifier struct {
	Client llm.Client
}

// Classify implements Classifier. Unknown labels count as on topic.
func (c *LLMClassifier) Classify(ctx context.Context, message string, history []types.Message) (Intent, error) {
	prompt, err := execute(classifyPromptTmpl, struct {
		Message string
		History []types.Message
	}{message, history})
	if err != nil {
		return IntentOnTopic, err
	}
	var out struct {
		Intent string `json:"intent"`
	}
	if err := llm.CompleteJSON(ctx, c.Client, llm.Request{Prompt: prompt, MaxTokens: 64}, &out); err != nil {
		return IntentOnTopic, fmt.Errorf("classifying message: %w", err)
	}
	switch Intent(strings.ToLower(strings.TrimSpace(out.Intent))) {
	case IntentGreeting:
		return IntentGreeting, nil
	case IntentOffTopic:
		return IntentOffTopic, nil
	}
	return IntentOnTopic, nil
}

var normalizePromptTmpl = template.Must(template.New("normalize").Parse(`Rewrite the question below into a short canonical form so that questions with the same meaning
produce the same text. Keep tool names, team size, budget, languages and integrations. Drop greetings and filler.
Also list the key terms as lower-case keywords and name the intent in one or two words.

Question:
{{.}}

Respond with JSON: {"normalized_text": "...", "keywords": ["..."], "intent": "..."}`))

// LLMNormalizer normalizes with the completion collaborator.
type LLMNormalizer struct {
	Client llm.Client
}

// ErrEmptyNormalization is returned when the model produced no canonical text.
var ErrEmptyNormalization = errors.New("normalization produced no text")

// Normalize implements Normalizer.
func (n *LLMNormalizer) Normalize(ctx context.Context, message string) (Normalized, error) {
	prompt, err := execute(normalizePromptTmpl, message)
	if err != nil {
		return Normalized{}, err
	}
	var out Normalized
	if err := llm.CompleteJSON(ctx, n.Client, llm.Request{Prompt: prompt, MaxTokens: 256}, &out); err != nil {
		return Normalized{}, fmt.Errorf("normalizing question: %w", err)
	}
	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		return Normalized{}, ErrEmptyNormalization
	}
	return out, nil
}

var briefPromptTmpl = template.Must(template.New("brief").Parse(`Turn the conversation below into a research brief for finding and comparing software development tools.

Conversation:
{{- range .}}
{{.Role}}: {{.Content}}
{{- end}}

Write a specific research question covering the latest request, using earlier messages for context.
Classify question_type as one of: decision, comparison, explanation, information, guide
("guide" for setup or how-to questions).
Extract hard constraints the user stated: monthly budget in USD, whether code must stay private,
tools to exclude, team size, required IDEs and required programming languages. Leave unknown values null or empty.
Respond with JSON:
{"research_brief": "...", "question_type": "comparison",
 "hard_constraints": {"budget_max": null, "security_required": false, "excluded_tools": [], "team_size": null,
 "must_support_ide": [], "must_support_language": []}}`))

type rawBrief struct {
	Brief        string `json:"research_brief"`
	QuestionType string `json:"question_type"`
	Constraints  struct {
		BudgetMax        *float64 `json:"budget_max"`
		SecurityRequired bool     `json:"security_required"`
		Excluded         []string `json:"excluded_tools"`
		TeamSize         *int     `json:"team_size"`
		IDEs             []string `json:"must_support_ide"`
		Languages        []string `json:"must_support_language"`
	} `json:"hard_constraints"`
}

// LLMBriefWriter writes briefs with the completion collaborator.
type LLMBriefWriter struct {
	Client llm.Client
}

// Write implements BriefWriter. The model's constraints are validated here:
// non-positive team sizes and negative budgets are dropped and an unknown
// question type becomes comparison.
func (w *LLMBriefWriter) Write(ctx context.Context, messages []types.Message) (types.Brief, error) {
	prompt, err := execute(briefPromptTmpl, messages)
	if err != nil {
		return types.Brief{}, err
	}
	var raw rawBrief
	if err := llm.CompleteJSON(ctx, w.Client, llm.Request{Prompt: prompt, MaxTokens: 1024}, &raw); err != nil {
		return types.Brief{}, fmt.Errorf("writing research brief: %w", err)
	}
	return validateBrief(raw)
}

func validateBrief(raw rawBrief) (types.Brief, error) {
	text := strings.TrimSpace(raw.Brief)
	if text == "" {
		return types.Brief{}, errors.New("research brief is empty")
	}
	b := types.Brief{
		Text:         text,
		QuestionType: parseQuestionType(raw.QuestionType),
		Constraints: types.HardConstraints{
			SecurityRequired: raw.Constraints.SecurityRequired,
			Excluded:         cleanNames(raw.Constraints.Excluded),
			Languages:        cleanNames(raw.Constraints.Languages),
			IDEs:             cleanNames(raw.Constraints.IDEs),
		},
	}
	if v := raw.Constraints.TeamSize; v != nil && *v > 0 {
		n := *v
		b.Constraints.TeamSize = &n
	}
	if v := raw.Constraints.BudgetMax; v != nil && *v >= 0 {
		f := *v
		b.Constraints.BudgetMax = &f
	}
	return b, nil
}

func parseQuestionType(s string) types.QuestionType {
	switch qt := types.QuestionType(strings.ToLower(strings.TrimSpace(s))); qt {
	case types.QuestionDecision, types.QuestionComparison, types.QuestionExplanation,
		types.QuestionInformation, types.QuestionGuide:
		return qt
	}
	return types.QuestionComparison
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
