// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import "github.com/pdiddy/advisor-engine/pkg/types"

// SelectRender picks the response path for a researched turn.
//
//   - not a ranking question: free-form
//   - something recommended: structured
//   - no facts, team size or budget known: cannot-answer
//   - no facts, only a stack or team framing known: free-form
//   - no facts and no constraints: clarify
//   - facts but nothing recommended: free-form
func SelectRender(st *types.TurnState, ranking bool) types.RenderPath {
	if !ranking {
		return types.PathFreeForm
	}
	if st.Decision != nil && len(st.Decision.Recommended) > 0 {
		return types.PathStructured
	}
	if len(st.Facts) > 0 {
		return types.PathFreeForm
	}
	switch {
	case st.Context.HasTeamSize() || st.Context.HasBudget():
		return types.PathCannotAnswer
	case len(st.Context.TechStack) > 0 || HasTeamFraming(st.LastUserMessage()):
		return types.PathFreeForm
	}
	return types.PathClarify
}
