// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package decision ranks candidate tools against a user's constraints.
//
// Decide runs a fixed pipeline: hard filtering, per-criterion scoring,
// relative price re-ranking, exclusion bookkeeping, category deduplication,
// ranking, follow-up order stabilization, and reasoning. The engine is pure:
// identical inputs always produce identical results and nothing is written.
package decision

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// ErrWeights is returned when the configured weights do not sum to the basis.
var ErrWeights = errors.New("decision weights do not sum to basis")

const weightTolerance = 1e-9

// Weights are the per-criterion multipliers applied to sub-scores.
type Weights struct {
	Language    float64
	Integration float64
	Workflow    float64
	Price       float64
	Security    float64

	// Basis is the value the five weights sum to. Totals are divided by it
	// so they stay in [0, 1].
	Basis float64
}

// DefaultWeights returns language 0.30, integration 0.20, workflow 0.20,
// price 0.15, security 0.15 on a basis of 1.0.
func DefaultWeights() Weights {
	return Weights{
		Language:    0.30,
		Integration: 0.20,
		Workflow:    0.20,
		Price:       0.15,
		Security:    0.15,
		Basis:       1.0,
	}
}

// WeightsFromConfig converts a DecisionConfig. An all-zero config yields
// DefaultWeights; a zero basis defaults to the sum of the weights.
func WeightsFromConfig(cfg types.DecisionConfig) Weights {
	w := Weights{
		Language:    cfg.LanguageWeight,
		Integration: cfg.IntegrationWeight,
		Workflow:    cfg.WorkflowWeight,
		Price:       cfg.PriceWeight,
		Security:    cfg.SecurityWeight,
		Basis:       cfg.Basis,
	}
	if w.sum() == 0 {
		return DefaultWeights()
	}
	if w.Basis == 0 {
		w.Basis = w.sum()
	}
	return w
}

func (w Weights) sum() float64 {
	return w.Language + w.Integration + w.Workflow + w.Price + w.Security
}

// Validate checks that every weight is non-negative and that they sum to
// a positive basis.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Language, w.Integration, w.Workflow, w.Price, w.Security} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: negative or NaN weight %v", ErrWeights, v)
		}
	}
	if w.Basis <= 0 {
		return fmt.Errorf("%w: basis %v must be positive", ErrWeights, w.Basis)
	}
	if math.Abs(w.sum()-w.Basis) > weightTolerance {
		return fmt.Errorf("%w: sum %v, basis %v", ErrWeights, w.sum(), w.Basis)
	}
	return nil
}

// Engine scores and ranks Candidate Facts.
type Engine struct {
	weights Weights
}

// NewEngine returns an Engine using w. It fails when the weights are invalid.
func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w}, nil
}

// Weights returns the engine's weights.
func (e *Engine) Weights() Weights { return e.weights }

// candidate pairs a fact with its score and input position.
type candidate struct {
	fact  types.CandidateFact
	score types.CandidateScore
	index int
}

// Decide ranks facts against uc. previous is the recommended order shown in
// the prior turn, or nil. Decide never fails: empty input yields a result
// with empty, non-nil lists.
func (e *Engine) Decide(uc types.UserContext, facts []types.CandidateFact, previous []string) types.DecisionResult {
	uc = uc.Clone()
	result := types.DecisionResult{
		Recommended: []string{},
		Excluded:    []string{},
		Scores:      []types.CandidateScore{},
		Reasoning:   map[string]string{},
	}

	// Stage A: hard filters.
	excludedSet := make(map[string]bool, len(uc.Excluded))
	for _, name := range uc.Excluded {
		excludedSet[foldName(name)] = true
	}
	var survivors []candidate
	for i, f := range facts {
		if excludedSet[foldName(f.Name)] {
			result.Excluded = append(result.Excluded, f.Name)
			continue
		}
		if uc.SecurityRequired && !f.SecurityPolicy.Isolated() {
			result.Excluded = append(result.Excluded, f.Name)
			continue
		}
		survivors = append(survivors, candidate{fact: f, index: i})
	}

	// Stage B: scoring.
	for i := range survivors {
		survivors[i].score = e.score(uc, survivors[i].fact)
	}

	// Stage C: relative price when only a team size is known.
	if !uc.HasBudget() && uc.HasTeamSize() {
		e.rerankByRelativePrice(survivors)
	}

	// Stage D: exclusion bookkeeping.
	var scored []candidate
	var dropped []candidate
	for _, c := range survivors {
		if c.score.Excluded() {
			dropped = append(dropped, c)
			result.Excluded = append(result.Excluded, c.fact.Name)
			continue
		}
		scored = append(scored, c)
	}

	// Stage E: one survivor per feature category.
	kept, losers := dedupByCategory(scored)
	for _, c := range losers {
		result.Excluded = append(result.Excluded, c.fact.Name)
	}
	dropped = append(dropped, losers...)

	// Stage F: rank by total, ties by input order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score.Total > kept[j].score.Total
	})

	// Stage G: keep the order the user has already seen.
	kept = stabilize(kept, previous)

	// Stage H: reasoning.
	for _, c := range kept {
		result.Recommended = append(result.Recommended, c.fact.Name)
		result.Scores = append(result.Scores, c.score)
		result.Reasoning[c.fact.Name] = explain(uc, c.score)
	}

	sort.SliceStable(dropped, func(i, j int) bool { return dropped[i].index < dropped[j].index })
	for _, c := range dropped {
		result.Scores = append(result.Scores, c.score)
	}

	return result
}

// total applies the weights to the five sub-scores.
func (e *Engine) total(s types.CandidateScore) float64 {
	w := e.weights
	sum := s.LanguageScore*w.Language +
		s.IntegrationScore*w.Integration +
		s.WorkflowScore*w.Workflow +
		s.PriceScore*w.Price +
		s.SecurityScore*w.Security
	return sum / w.Basis
}

// rerankByRelativePrice averages each priced candidate's price score with
// its position on the cost range: 1.0 for the cheapest down to 0.5 for the
// most expensive.
func (e *Engine) rerankByRelativePrice(cands []candidate) {
	minCost, maxCost := math.Inf(1), math.Inf(-1)
	priced := 0
	for _, c := range cands {
		if c.score.MonthlyCost == nil {
			continue
		}
		priced++
		minCost = math.Min(minCost, *c.score.MonthlyCost)
		maxCost = math.Max(maxCost, *c.score.MonthlyCost)
	}
	if priced == 0 {
		return
	}
	spread := maxCost - minCost
	for i := range cands {
		s := &cands[i].score
		if s.MonthlyCost == nil {
			continue
		}
		relative := 1.0
		if spread > 0 {
			relative = 1.0 - 0.5*(*s.MonthlyCost-minCost)/spread
		}
		s.PriceScore = (s.PriceScore + relative) / 2
		if s.ExclusionReason == "" {
			s.Total = e.total(*s)
		}
	}
}

// dedupByCategory keeps the highest-total candidate of each non-empty
// feature category. Ties keep the earlier candidate.
func dedupByCategory(cands []candidate) (kept, losers []candidate) {
	best := make(map[string]int)
	for i, c := range cands {
		cat := foldName(c.fact.Category)
		if cat == "" {
			continue
		}
		j, seen := best[cat]
		if !seen || c.score.Total > cands[j].score.Total {
			best[cat] = i
		}
	}
	for i, c := range cands {
		cat := foldName(c.fact.Category)
		if cat == "" || best[cat] == i {
			kept = append(kept, c)
			continue
		}
		losers = append(losers, c)
	}
	return kept, losers
}

// stabilize emits candidates named in previous first, in previous order,
// followed by the rest in their current order.
func stabilize(ranked []candidate, previous []string) []candidate {
	if len(previous) == 0 || len(ranked) == 0 {
		return ranked
	}
	pos := make(map[string]int, len(ranked))
	for i, c := range ranked {
		pos[foldName(c.fact.Name)] = i
	}
	out := make([]candidate, 0, len(ranked))
	used := make(map[int]bool, len(ranked))
	for _, name := range previous {
		i, ok := pos[foldName(name)]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, ranked[i])
	}
	for i, c := range ranked {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
