// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/advisor-engine/internal/decision"
	"github.com/pdiddy/advisor-engine/internal/render"
	"github.com/pdiddy/advisor-engine/internal/research"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// --- fakes ---

type fakeCache struct {
	entries map[string]types.CachedAnswer
	getErr  error
	gets    []string
	sets    []string
}

func newFakeCache() *fakeCache { return &fakeCache{entries: make(map[string]types.CachedAnswer)} }

func (c *fakeCache) Get(_ context.Context, key string) (types.CachedAnswer, bool, error) {
	c.gets = append(c.gets, key)
	if c.getErr != nil {
		return types.CachedAnswer{}, false, c.getErr
	}
	a, ok := c.entries[key]
	return a, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, a types.CachedAnswer, _ time.Duration) error {
	c.sets = append(c.sets, key)
	c.entries[key] = a
	return nil
}

type fakeIndex struct {
	matches  map[string]types.SimilarMatch
	err      error
	failOn   map[string]error
	searched []string
	mapped   []string
}

func (x *fakeIndex) Search(_ context.Context, text, _ string, threshold float64) (types.SimilarMatch, bool, error) {
	x.searched = append(x.searched, text)
	if x.err != nil {
		return types.SimilarMatch{}, false, x.err
	}
	if err := x.failOn[text]; err != nil {
		return types.SimilarMatch{}, false, err
	}
	m, ok := x.matches[text]
	if !ok || m.Similarity < threshold {
		return types.SimilarMatch{}, false, nil
	}
	return m, true, nil
}

func (x *fakeIndex) AddMapping(_ context.Context, text, _, _ string, _ time.Duration) error {
	x.mapped = append(x.mapped, text)
	return nil
}

type fakeCoordinator struct {
	findings types.Findings
	panics   bool
	briefs   []types.Brief
}

func (c *fakeCoordinator) Run(_ context.Context, brief types.Brief) (types.Findings, []research.TopicResult, research.StopReason) {
	if c.panics {
		panic("coordinator exploded")
	}
	c.briefs = append(c.briefs, brief)
	return c.findings, nil, research.StopNoTopics
}

type fakeExtractor struct {
	responses [][]types.CandidateFact
	calls     int
}

func (e *fakeExtractor) Extract(context.Context, string) ([]types.CandidateFact, error) {
	e.calls++
	if e.calls > len(e.responses) {
		return nil, nil
	}
	return e.responses[e.calls-1], nil
}

type stubClassifier struct {
	intent Intent
	err    error
}

func (s stubClassifier) Classify(context.Context, string, []types.Message) (Intent, error) {
	return s.intent, s.err
}

type stubBriefs struct{ qt types.QuestionType }

func (s stubBriefs) Write(_ context.Context, msgs []types.Message) (types.Brief, error) {
	b := fallbackBrief(msgs)
	b.QuestionType = s.qt
	return b, nil
}

type recordingCheckpoints struct{ stages []string }

func (r *recordingCheckpoints) Checkpoint(_ context.Context, stage string, _ *types.TurnState) error {
	r.stages = append(r.stages, stage)
	return nil
}

// --- fixtures ---

const question = "Which tool is best for 5 Go developers under $200?"

var researchFindings = types.Findings{Compressed: []string{
	"Cursor Business costs $40 per user per month and supports Go. Copilot Business costs $19 per user per month.",
}}

func teamFacts() []types.CandidateFact {
	return []types.CandidateFact{
		{
			Name: "Cursor", SupportedLanguages: []string{"Go"}, Category: "ide",
			Workflows:    []types.WorkflowType{types.WorkflowCompletion},
			PricingPlans: []types.PricingPlan{{Name: "Business", Kind: types.PlanTeam, PricePerUserPerMonth: types.Price(40)}},
		},
		{
			Name: "Copilot", SupportedLanguages: []string{"Go"}, Category: "code_completion",
			Workflows:    []types.WorkflowType{types.WorkflowCompletion},
			PricingPlans: []types.PricingPlan{{Name: "Business", Kind: types.PlanTeam, PricePerUserPerMonth: types.Price(19)}},
		},
	}
}

type harness struct {
	cache       *fakeCache
	index       *fakeIndex
	coordinator *fakeCoordinator
	extractor   *fakeExtractor
	checkpoints *recordingCheckpoints
	router      *Router
}

func newHarness(t *testing.T, mod func(*Components)) *harness {
	t.Helper()
	engine, err := decision.NewEngine(decision.DefaultWeights())
	require.NoError(t, err)

	h := &harness{
		cache:       newFakeCache(),
		index:       &fakeIndex{matches: map[string]types.SimilarMatch{}},
		coordinator: &fakeCoordinator{findings: researchFindings},
		extractor:   &fakeExtractor{responses: [][]types.CandidateFact{teamFacts()}},
		checkpoints: &recordingCheckpoints{},
	}
	c := Components{
		Cache:       h.cache,
		Index:       h.index,
		Coordinator: h.coordinator,
		Extractor:   h.extractor,
		Decider:     engine,
		Checkpoints: h.checkpoints,
	}
	if mod != nil {
		mod(&c)
	}
	h.router = New(c, types.RouterConfig{}, nil)
	return h
}

func longBody(names ...string) string {
	return "## Recommended tools\n\n" + strings.Join(names, "\n") + "\n" + strings.Repeat("cached detail line. ", 15)
}

func keyFor(msg string) string {
	return CacheKey(defaultDomain, LexicalNormalize(msg))
}

func assistant(content string, recommended ...string) types.Message {
	return types.Message{Role: types.RoleAssistant, Content: content, Recommended: recommended}
}

// --- short circuits ---

func TestGreetingTouchesNothing(t *testing.T) {
	h := newHarness(t, nil)
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: "Hello!"})

	assert.Equal(t, types.PathGreeting, out.Render.Path)
	assert.Empty(t, h.cache.gets)
	assert.Empty(t, h.index.searched)
	assert.Empty(t, h.coordinator.briefs)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, types.RoleAssistant, out.Messages[1].Role)
}

func TestOffTopic(t *testing.T) {
	h := newHarness(t, func(c *Components) { c.Classifier = stubClassifier{intent: IntentOffTopic} })
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: "What is the weather?"})

	assert.Equal(t, types.PathOffTopic, out.Render.Path)
	assert.Empty(t, h.cache.gets)
	assert.Empty(t, h.coordinator.briefs)
}

func TestClassifierFailureProceeds(t *testing.T) {
	h := newHarness(t, func(c *Components) { c.Classifier = stubClassifier{err: errors.New("down")} })
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})

	assert.Equal(t, types.PathStructured, out.Render.Path)
	assert.Len(t, h.coordinator.briefs, 1)
}

// --- cache and similarity ---

func TestExactCacheHit(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.entries[keyFor(question)] = types.CachedAnswer{
		Render:      types.Render{Path: types.PathStructured, Lead: "old lead", Body: longBody("Copilot", "Cursor")},
		Recommended: []string{"Copilot", "Cursor"},
	}

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})

	assert.Equal(t, types.PathCached, out.Render.Path)
	assert.Equal(t, render.FallbackLead([]string{"Copilot", "Cursor"}), out.Render.Lead)
	assert.Equal(t, keyFor(question), out.CacheKey)
	assert.Empty(t, h.coordinator.briefs)
	assert.Empty(t, h.cache.sets, "lookups never write")
	assert.Empty(t, h.index.mapped)
	assert.Equal(t, []string{"Copilot", "Cursor"}, out.Messages[len(out.Messages)-1].Recommended)
}

func TestShortCachedBodyIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.entries[keyFor(question)] = types.CachedAnswer{Render: types.Render{Body: "too short"}}

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})
	assert.Equal(t, types.PathStructured, out.Render.Path)
	assert.Len(t, h.coordinator.briefs, 1)
}

func TestFollowUpConsistency(t *testing.T) {
	const followUp = "Which one is better for code review?"
	history := []types.Message{
		{Role: types.RoleUser, Content: question},
		assistant("ranked", "Cursor", "Copilot"),
	}

	tests := []struct {
		name         string
		cached       []string
		wantCached   bool
		wantResearch int
	}{
		{"subset rejected", []string{"Cursor"}, false, 1},
		{"superset accepted", []string{"copilot", "Cody", "cursor"}, true, 0},
		{"unranked rejected", nil, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.cache.entries[keyFor(followUp)] = types.CachedAnswer{
				Render:      types.Render{Body: longBody(tt.cached...)},
				Recommended: tt.cached,
			}
			out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: followUp, History: history})
			assert.Equal(t, tt.wantCached, out.Render.Path == types.PathCached)
			assert.Len(t, h.coordinator.briefs, tt.wantResearch)
		})
	}
}

func TestSimilarityFallback(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.entries["final:coding_tools:neighbor"] = types.CachedAnswer{
		Render:      types.Render{Body: longBody("Copilot")},
		Recommended: []string{"Copilot"},
	}
	normalized := LexicalNormalize(question).Text
	h.index.matches[normalized] = types.SimilarMatch{Text: "neighbor", CacheKey: "final:coding_tools:neighbor", Similarity: 0.9}

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})

	assert.Equal(t, types.PathCached, out.Render.Path)
	assert.Equal(t, []string{question, normalized}, h.index.searched, "raw text first, then normalized")
	assert.Empty(t, h.coordinator.briefs)
}

func TestSimilarityErrorOnRawTextTriesNormalized(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.entries["final:coding_tools:neighbor"] = types.CachedAnswer{
		Render:      types.Render{Body: longBody("Copilot")},
		Recommended: []string{"Copilot"},
	}
	normalized := LexicalNormalize(question).Text
	require.NotEqual(t, question, normalized)
	h.index.failOn = map[string]error{question: errors.New("embedding timeout")}
	h.index.matches[normalized] = types.SimilarMatch{Text: "neighbor", CacheKey: "final:coding_tools:neighbor", Similarity: 0.9}

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})

	assert.Equal(t, types.PathCached, out.Render.Path)
	assert.Equal(t, []string{question, normalized}, h.index.searched)
	assert.Empty(t, h.coordinator.briefs)
}

func TestSimilarityBelowThresholdMisses(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.entries["k"] = types.CachedAnswer{Render: types.Render{Body: longBody("X")}, Recommended: []string{"X"}}
	h.index.matches[question] = types.SimilarMatch{CacheKey: "k", Similarity: 0.8}

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})
	assert.Equal(t, types.PathStructured, out.Render.Path)
}

func TestLookupFailuresDegradeToResearch(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.getErr = errors.New("disk gone")
	h.index.err = errors.New("index gone")

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})
	assert.Equal(t, types.PathStructured, out.Render.Path)
	assert.Len(t, h.coordinator.briefs, 1)
}

// --- research path ---

func TestResearchStructuredPersists(t *testing.T) {
	h := newHarness(t, nil)
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})

	require.Equal(t, types.PathStructured, out.Render.Path)
	require.NotNil(t, out.Decision)
	assert.Equal(t, []string{"Copilot", "Cursor"}, out.Decision.Recommended)

	key := keyFor(question)
	assert.Equal(t, []string{key}, h.cache.sets)
	stored := h.cache.entries[key]
	assert.Equal(t, []string{"Copilot", "Cursor"}, stored.Recommended)
	require.Len(t, stored.Scores, 2)
	assert.Equal(t, "Copilot", stored.Scores[0].Name)
	assert.Contains(t, h.index.mapped, question)

	last := out.Messages[len(out.Messages)-1]
	assert.Equal(t, []string{"Copilot", "Cursor"}, last.Recommended)
	assert.Equal(t, out.Render.Text(), last.Content)
	assert.Equal(t, []string{StagePostResearch, StagePreRender}, h.checkpoints.stages)

	brief := h.coordinator.briefs[0]
	assert.Equal(t, question, brief.Text)
	assert.Equal(t, types.QuestionComparison, brief.QuestionType)
}

func TestFollowUpKeepsPreviousOrder(t *testing.T) {
	h := newHarness(t, nil)
	history := []types.Message{
		{Role: types.RoleUser, Content: "earlier question"},
		assistant("ranked", "Cursor", "Copilot"),
	}
	out := h.router.HandleTurn(context.Background(), types.TurnInput{
		Message: "Which is best for 5 Go developers with GitHub, under $200?", History: history,
	})
	require.NotNil(t, out.Decision)
	assert.Equal(t, []string{"Cursor", "Copilot"}, out.Decision.Recommended)
}

func TestExtractionRetriedOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.extractor.responses = [][]types.CandidateFact{nil, teamFacts()}

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})
	assert.Equal(t, 2, h.extractor.calls)
	assert.Equal(t, types.PathStructured, out.Render.Path)
}

func TestCannotAnswerNotPersisted(t *testing.T) {
	h := newHarness(t, nil)
	h.extractor.responses = nil

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})
	assert.Equal(t, types.PathCannotAnswer, out.Render.Path)
	assert.Equal(t, 2, h.extractor.calls)
	assert.Empty(t, h.cache.sets)
	assert.Empty(t, h.index.mapped)
}

func TestClarifyNotPersisted(t *testing.T) {
	h := newHarness(t, nil)
	h.coordinator.findings = types.Findings{}

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: "recommend a tool"})
	assert.Equal(t, types.PathClarify, out.Render.Path)
	assert.Zero(t, h.extractor.calls, "no findings, no extraction")
	assert.Empty(t, h.cache.sets)
}

func TestFreeFormPersisted(t *testing.T) {
	h := newHarness(t, func(c *Components) { c.Briefs = stubBriefs{qt: types.QuestionGuide} })
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: "How do I set up Copilot in VS Code?"})
	assert.Equal(t, types.PathFreeForm, out.Render.Path)
	assert.Nil(t, out.Decision)
	assert.Len(t, h.cache.sets, 1)
}

func TestHistoryAnswerNotPersisted(t *testing.T) {
	h := newHarness(t, nil)
	history := []types.Message{
		{Role: types.RoleUser, Content: question},
		{
			Role: types.RoleAssistant, Content: "ranked", Recommended: []string{"Cursor", "Copilot"},
			Scores: []types.CandidateScore{
				{Name: "Cursor", Total: 0.9, MonthlyCost: types.Price(200)},
				{Name: "Copilot", Total: 0.8, MonthlyCost: types.Price(95)},
			},
		},
	}
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: "Can you sort those by price?", History: history})

	assert.Equal(t, types.PathHistory, out.Render.Path)
	assert.Less(t, strings.Index(out.Render.Body, "Copilot"), strings.Index(out.Render.Body, "Cursor"))
	assert.Empty(t, h.coordinator.briefs)
	assert.Empty(t, h.cache.sets)
	last := out.Messages[len(out.Messages)-1]
	assert.Equal(t, []string{"Cursor", "Copilot"}, last.Recommended)
	assert.Len(t, last.Scores, 2)
}

func TestPanicBecomesApology(t *testing.T) {
	h := newHarness(t, nil)
	h.coordinator.panics = true

	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question})
	assert.Equal(t, types.PathApology, out.Render.Path)
	assert.NotEmpty(t, out.TurnID)
	assert.Empty(t, h.cache.sets)
}

func TestEmptyMessageClarifies(t *testing.T) {
	h := newHarness(t, nil)
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: "   "})
	assert.Equal(t, types.PathClarify, out.Render.Path)
	assert.Empty(t, h.cache.gets)
}

func TestDomainInCacheKey(t *testing.T) {
	h := newHarness(t, nil)
	out := h.router.HandleTurn(context.Background(), types.TurnInput{Message: question, Domain: "design_tools"})
	assert.True(t, strings.HasPrefix(out.CacheKey, "final:design_tools:"))
}
