// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// History answers a follow-up from earlier assistant turns only. When the
// model is unavailable, a price re-sort of the last ranking is produced
// deterministically; any other question echoes the last answer.
func (r *Renderer) History(ctx context.Context, st *types.TurnState, byPrice bool) types.Render {
	fallback := types.Render{Path: types.PathHistory, Body: fallbackHistory(st, byPrice)}
	if r.client == nil {
		return fallback
	}
	prompt, err := execute(historyPromptTmpl, struct {
		Question string
		History  []types.Message
	}{st.LastUserMessage(), priorTurns(st.Messages)})
	if err != nil {
		r.logger.Warn("rendering history prompt", zap.Error(err))
		return fallback
	}
	out, ok, err := r.lead.Run(ctx, r.client, llm.Request{System: systemPrompt, Prompt: prompt})
	if err != nil || !ok {
		r.logger.Warn("history answer rejected, using fallback", zap.Error(err))
		return fallback
	}
	return types.Render{Path: types.PathHistory, Body: out}
}

func fallbackHistory(st *types.TurnState, byPrice bool) string {
	last, ok := lastRanking(st.Messages)
	if !ok {
		for i := len(st.Messages) - 1; i >= 0; i-- {
			if st.Messages[i].Role == types.RoleAssistant {
				return st.Messages[i].Content
			}
		}
		return "I do not have an earlier answer to refer to yet."
	}
	if byPrice && len(last.Scores) > 0 {
		return SortByPrice(last.Scores)
	}
	return last.Content
}

func lastRanking(msgs []types.Message) (types.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleAssistant && len(msgs[i].Recommended) > 0 {
			return msgs[i], true
		}
	}
	return types.Message{}, false
}

// SortByPrice lists the scored candidates from cheapest to most expensive.
// Candidates without a resolved cost come last in their original order.
func SortByPrice(scores []types.CandidateScore) string {
	sorted := append([]types.CandidateScore(nil), scores...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].MonthlyCost, sorted[j].MonthlyCost
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a < *b
	})

	var b strings.Builder
	b.WriteString("Sorted by price, cheapest first:\n\n")
	for i, s := range sorted {
		fmt.Fprintf(&b, "%d. **%s**: %s/month, %s/year (score %.2f)\n",
			i+1, s.Name, costCell(s.MonthlyCost, 1), costCell(s.MonthlyCost, 12), s.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}
