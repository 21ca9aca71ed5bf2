// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// NoFindingsMarker is the findings text produced when research gathered
// nothing.
const NoFindingsMarker = "No research findings were gathered."

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`

	// Recommended holds the ranked candidate names an assistant turn
	// presented. Empty for user messages and unranked answers.
	Recommended []string `json:"recommended,omitempty" yaml:"recommended,omitempty"`

	// Scores holds the score rows behind Recommended, in the same order.
	Scores []CandidateScore `json:"scores,omitempty" yaml:"scores,omitempty"`

	At time.Time `json:"at" yaml:"at"`
}

// RenderPath names the branch that produced a response.
type RenderPath string

const (
	PathGreeting     RenderPath = "greeting"
	PathOffTopic     RenderPath = "off_topic"
	PathCached       RenderPath = "cached"
	PathStructured   RenderPath = "structured"
	PathFreeForm     RenderPath = "free_form"
	PathClarify      RenderPath = "clarify"
	PathCannotAnswer RenderPath = "cannot_answer"
	PathHistory      RenderPath = "history"
	PathApology      RenderPath = "apology"
)

// Render is the response shown to the user.
type Render struct {
	Path RenderPath `json:"path" yaml:"path"`
	Lead string     `json:"lead,omitempty" yaml:"lead,omitempty"`
	Body string     `json:"body" yaml:"body"`
}

// Text joins the lead-in and body.
func (r Render) Text() string {
	if r.Lead == "" {
		return r.Body
	}
	if r.Body == "" {
		return r.Lead
	}
	return r.Lead + "\n\n" + r.Body
}

// QuestionType is the intent classification of a research brief.
type QuestionType string

const (
	QuestionDecision    QuestionType = "decision"
	QuestionComparison  QuestionType = "comparison"
	QuestionExplanation QuestionType = "explanation"
	QuestionInformation QuestionType = "information"
	QuestionGuide       QuestionType = "guide"
)

// HardConstraints are the constraints the research brief extracted from the
// user's message.
type HardConstraints struct {
	TeamSize         *int     `json:"team_size,omitempty" yaml:"team_size,omitempty"`
	BudgetMax        *float64 `json:"budget_max,omitempty" yaml:"budget_max,omitempty"`
	SecurityRequired bool     `json:"security_required" yaml:"security_required"`
	Excluded         []string `json:"excluded_tools" yaml:"excluded_tools"`
	Languages        []string `json:"languages" yaml:"languages"`
	IDEs             []string `json:"ides" yaml:"ides"`
}

// Brief is the scoped research request handed to the coordinator.
type Brief struct {
	Text         string          `json:"research_brief" yaml:"research_brief"`
	QuestionType QuestionType    `json:"question_type" yaml:"question_type"`
	Constraints  HardConstraints `json:"hard_constraints" yaml:"hard_constraints"`
}

// Findings is the aggregated output of a research run.
type Findings struct {
	Compressed []string `json:"compressed" yaml:"compressed"`
	Raw        []string `json:"raw" yaml:"raw"`
	Rounds     int      `json:"rounds" yaml:"rounds"`
}

// Empty reports whether no topic produced anything.
func (f Findings) Empty() bool {
	return len(f.Compressed) == 0
}

// Text returns the compressed findings joined for downstream extraction, or
// NoFindingsMarker when there are none.
func (f Findings) Text() string {
	if f.Empty() {
		return NoFindingsMarker
	}
	return strings.Join(f.Compressed, "\n\n")
}

// TurnState carries everything the pipeline resolves during one turn.
type TurnState struct {
	ID         string          `json:"id" yaml:"id"`
	Domain     string          `json:"domain" yaml:"domain"`
	Messages   []Message       `json:"messages" yaml:"messages"`
	Normalized string          `json:"normalized,omitempty" yaml:"normalized,omitempty"`
	Keywords   []string        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	CacheKey   string          `json:"cache_key,omitempty" yaml:"cache_key,omitempty"`
	Brief      *Brief          `json:"brief,omitempty" yaml:"brief,omitempty"`
	Context    UserContext     `json:"user_context" yaml:"user_context"`
	Findings   Findings        `json:"findings" yaml:"findings"`
	Facts      []CandidateFact `json:"facts,omitempty" yaml:"facts,omitempty"`
	Decision   *DecisionResult `json:"decision,omitempty" yaml:"decision,omitempty"`
	Previous   []string        `json:"previous_recommended,omitempty" yaml:"previous_recommended,omitempty"`
	Researched bool            `json:"researched" yaml:"researched"`
}

// LastUserMessage returns the content of the most recent user message.
func (s *TurnState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// IsFollowUp reports whether an assistant has already answered in this
// conversation.
func (s *TurnState) IsFollowUp() bool {
	for _, m := range s.Messages {
		if m.Role == RoleAssistant {
			return true
		}
	}
	return false
}

// PreviouslyReferenced returns every candidate name presented by earlier
// assistant turns, in first-seen order.
func (s *TurnState) PreviouslyReferenced() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range s.Messages {
		if m.Role != RoleAssistant {
			continue
		}
		for _, n := range m.Recommended {
			k := strings.ToLower(n)
			if !seen[k] {
				seen[k] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// LastRecommended returns the ranked names of the most recent assistant turn
// that presented a ranking.
func (s *TurnState) LastRecommended() []string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == RoleAssistant && len(m.Recommended) > 0 {
			return append([]string(nil), m.Recommended...)
		}
	}
	return nil
}

// TurnInput is the inbound request for one turn.
type TurnInput struct {
	Domain  string    `json:"domain" yaml:"domain"`
	Message string    `json:"message" yaml:"message"`
	History []Message `json:"history" yaml:"history"`
}

// TurnOutcome is the result of handling one turn.
type TurnOutcome struct {
	TurnID   string          `json:"turn_id" yaml:"turn_id"`
	Render   Render          `json:"render" yaml:"render"`
	Decision *DecisionResult `json:"decision,omitempty" yaml:"decision,omitempty"`
	CacheKey string          `json:"cache_key,omitempty" yaml:"cache_key,omitempty"`
	Messages []Message       `json:"messages" yaml:"messages"`
}

// CachedAnswer is a persisted final answer.
type CachedAnswer struct {
	Render      Render           `json:"render" yaml:"render"`
	Recommended []string         `json:"recommended" yaml:"recommended"`
	Scores      []CandidateScore `json:"scores,omitempty" yaml:"scores,omitempty"`
	StoredAt    time.Time        `json:"stored_at" yaml:"stored_at"`
}

// SimilarMatch is the nearest neighbor returned by the similarity index.
type SimilarMatch struct {
	Text       string  `json:"text" yaml:"text"`
	CacheKey   string  `json:"cache_key" yaml:"cache_key"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}
