// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router handles one conversation turn: it classifies the message,
// reuses a prior answer when an equivalent question was already answered,
// answers from history when no research is needed, and otherwise runs
// research, extraction and the decision engine before choosing how to
// render the result.
package router

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/extract"
	"github.com/pdiddy/advisor-engine/internal/render"
	"github.com/pdiddy/advisor-engine/internal/research"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

const (
	defaultDomain              = "coding_tools"
	defaultSimilarityThreshold = 0.85
	defaultAnswerTTL           = 24 * time.Hour
	defaultExtractionRetries   = 1

	// minCachedBody is the shortest cached body worth reusing.
	minCachedBody = 200
)

// Checkpoint stages.
const (
	StagePostResearch = "post_research"
	StagePreRender    = "pre_render"
)

// Cache stores final answers by key.
type Cache interface {
	Get(ctx context.Context, key string) (types.CachedAnswer, bool, error)
	Set(ctx context.Context, key string, answer types.CachedAnswer, ttl time.Duration) error
}

// SimilarityIndex maps question texts to cache keys by meaning.
type SimilarityIndex interface {
	Search(ctx context.Context, text, domain string, threshold float64) (types.SimilarMatch, bool, error)
	AddMapping(ctx context.Context, text, key, domain string, ttl time.Duration) error
}

// Coordinator runs research for a brief.
type Coordinator interface {
	Run(ctx context.Context, brief types.Brief) (types.Findings, []research.TopicResult, research.StopReason)
}

// Extractor turns findings into candidate facts.
type Extractor interface {
	Extract(ctx context.Context, findings string) ([]types.CandidateFact, error)
}

// Decider ranks candidate facts against the user's context.
type Decider interface {
	Decide(uc types.UserContext, facts []types.CandidateFact, previous []string) types.DecisionResult
}

// Checkpointer persists turn state at fixed stages.
type Checkpointer interface {
	Checkpoint(ctx context.Context, stage string, st *types.TurnState) error
}

// Components are the collaborators of a Router. Coordinator, Extractor and
// Decider are required; the rest fall back to rule-based or no-op
// behavior when nil.
type Components struct {
	Classifier  Classifier
	Normalizer  Normalizer
	Briefs      BriefWriter
	Cache       Cache
	Index       SimilarityIndex
	Coordinator Coordinator
	Extractor   Extractor
	Decider     Decider
	Renderer    *render.Renderer
	Checkpoints Checkpointer
	Now         func() time.Time
}

// Router is the turn state machine.
type Router struct {
	c      Components
	cfg    types.RouterConfig
	logger *zap.Logger
}

// New returns a Router. Zero config values take defaults.
func New(c Components, cfg types.RouterConfig, logger *zap.Logger) *Router {
	if cfg.Domain == "" {
		cfg.Domain = defaultDomain
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaultSimilarityThreshold
	}
	if cfg.AnswerTTL <= 0 {
		cfg.AnswerTTL = defaultAnswerTTL
	}
	if cfg.ExtractionRetries <= 0 {
		cfg.ExtractionRetries = defaultExtractionRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Classifier == nil {
		c.Classifier = RuleClassifier{}
	}
	if c.Briefs == nil {
		c.Briefs = RawBriefWriter{}
	}
	if c.Renderer == nil {
		c.Renderer = render.New(render.WithLogger(logger))
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Router{c: c, cfg: cfg, logger: logger}
}

// turn carries what HandleTurn resolves beyond the shared TurnState.
type turn struct {
	state       *types.TurnState
	render      types.Render
	recommended []string
	scores      []types.CandidateScore
}

// HandleTurn answers one message. It never fails: a panic or unexpected
// error anywhere in the pipeline produces an apology render.
func (r *Router) HandleTurn(ctx context.Context, in types.TurnInput) (out types.TurnOutcome) {
	domain := in.Domain
	if domain == "" {
		domain = r.cfg.Domain
	}
	st := &types.TurnState{
		ID:       uuid.NewString(),
		Domain:   domain,
		Messages: append(append([]types.Message(nil), in.History...), types.Message{Role: types.RoleUser, Content: in.Message, At: r.c.Now()}),
	}
	logger := r.logger.With(zap.String("turn_id", st.ID))

	defer func() {
		if p := recover(); p != nil {
			logger.Error("turn failed", zap.Any("panic", p), zap.Stack("stack"))
			out = r.finish(ctx, logger, &turn{state: st, render: render.Apology()})
		}
	}()

	if strings.TrimSpace(in.Message) == "" {
		return r.finish(ctx, logger, &turn{state: st, render: render.Clarify(st)})
	}
	return r.finish(ctx, logger, r.route(ctx, logger, st))
}

func (r *Router) route(ctx context.Context, logger *zap.Logger, st *types.TurnState) *turn {
	msg := st.LastUserMessage()

	intent, err := r.c.Classifier.Classify(ctx, msg, st.Messages[:len(st.Messages)-1])
	if err != nil {
		logger.Warn("classification failed, treating as on topic", zap.Error(err))
		intent = IntentOnTopic
	}
	switch intent {
	case IntentGreeting:
		return &turn{state: st, render: render.Greeting()}
	case IntentOffTopic:
		return &turn{state: st, render: render.OffTopic()}
	}

	n := r.normalize(ctx, logger, msg)
	st.Normalized = n.Text
	st.Keywords = n.Keywords
	st.CacheKey = CacheKey(st.Domain, n)
	st.Previous = st.LastRecommended()
	logger = logger.With(zap.String("cache_key", st.CacheKey))

	if t, ok := r.lookup(ctx, logger, st); ok {
		return t
	}

	if ok, byPrice := HistoryAnswerable(st); ok {
		logger.Info("answering from history", zap.Bool("by_price", byPrice))
		return &turn{
			state:       st,
			render:      r.c.Renderer.History(ctx, st, byPrice),
			recommended: st.Previous,
			scores:      lastScores(st.Messages),
		}
	}

	return r.research(ctx, logger, st)
}

func (r *Router) normalize(ctx context.Context, logger *zap.Logger, msg string) Normalized {
	if r.c.Normalizer != nil {
		n, err := r.c.Normalizer.Normalize(ctx, msg)
		if err == nil && strings.TrimSpace(n.Text) != "" {
			return n
		}
		logger.Warn("normalization failed, using lexical form", zap.Error(err))
	}
	return LexicalNormalize(msg)
}

// lookup tries the exact cache key, then the similarity index with the raw
// and normalized texts. It never writes.
func (r *Router) lookup(ctx context.Context, logger *zap.Logger, st *types.TurnState) (*turn, bool) {
	if r.c.Cache == nil {
		return nil, false
	}
	referenced := st.PreviouslyReferenced()

	if ans, ok := r.cached(ctx, logger, st.CacheKey, referenced); ok {
		logger.Info("cache hit")
		return r.fromCache(ctx, st, ans), true
	}
	if r.c.Index == nil {
		return nil, false
	}

	texts := []string{st.LastUserMessage()}
	if st.Normalized != "" && st.Normalized != texts[0] {
		texts = append(texts, st.Normalized)
	}
	for _, text := range texts {
		m, ok, err := r.c.Index.Search(ctx, text, st.Domain, r.cfg.SimilarityThreshold)
		if err != nil {
			logger.Warn("similarity search failed", zap.String("text", text), zap.Error(err))
			continue
		}
		if !ok || m.CacheKey == "" {
			continue
		}
		if ans, ok := r.cached(ctx, logger, m.CacheKey, referenced); ok {
			logger.Info("similar question hit",
				zap.String("neighbor_key", m.CacheKey), zap.Float64("similarity", m.Similarity))
			return r.fromCache(ctx, st, ans), true
		}
	}
	return nil, false
}

// cached fetches key and applies the reuse rules: the body must be
// substantial, and a follow-up must not lose any candidate the conversation
// already referenced.
func (r *Router) cached(ctx context.Context, logger *zap.Logger, key string, referenced []string) (types.CachedAnswer, bool) {
	ans, ok, err := r.c.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		return types.CachedAnswer{}, false
	}
	if !ok {
		return types.CachedAnswer{}, false
	}
	if utf8.RuneCountInString(strings.TrimSpace(ans.Render.Body)) < minCachedBody {
		logger.Debug("ignoring short cached answer", zap.String("key", key))
		return types.CachedAnswer{}, false
	}
	if missing := missingFrom(ans.Recommended, referenced); len(missing) > 0 {
		logger.Info("cached answer inconsistent with conversation",
			zap.String("key", key), zap.Strings("missing", missing))
		return types.CachedAnswer{}, false
	}
	return ans, true
}

// fromCache reuses a cached body with a lead-in written for this question.
func (r *Router) fromCache(ctx context.Context, st *types.TurnState, ans types.CachedAnswer) *turn {
	lead := ans.Render.Lead
	if len(ans.Recommended) > 0 {
		lead = r.c.Renderer.LeadIn(ctx, st.LastUserMessage(), ans.Recommended)
	}
	return &turn{
		state:       st,
		render:      types.Render{Path: types.PathCached, Lead: lead, Body: ans.Render.Body},
		recommended: ans.Recommended,
		scores:      ans.Scores,
	}
}

func (r *Router) research(ctx context.Context, logger *zap.Logger, st *types.TurnState) *turn {
	brief, err := r.c.Briefs.Write(ctx, st.Messages)
	if err != nil {
		logger.Warn("brief writing failed, researching the raw message", zap.Error(err))
		brief = fallbackBrief(st.Messages)
	}
	st.Brief = &brief
	st.Context = BuildContext(brief, st.Messages)

	findings, topics, reason := r.c.Coordinator.Run(ctx, brief)
	st.Findings = findings
	st.Researched = true
	logger.Info("research done",
		zap.String("stop_reason", string(reason)), zap.Int("topics", len(topics)), zap.Int("rounds", findings.Rounds))

	st.Facts = r.extractFacts(ctx, logger, findings)
	r.checkpoint(ctx, logger, StagePostResearch, st)

	ranking := IsRankingQuestion(brief.QuestionType, st.LastUserMessage())
	if ranking && len(st.Facts) > 0 {
		res := r.c.Decider.Decide(st.Context.Clone(), st.Facts, st.Previous)
		st.Decision = &res
	}

	t := &turn{state: st}
	switch path := SelectRender(st, ranking); path {
	case types.PathStructured:
		t.render = r.c.Renderer.Structured(ctx, st)
		t.recommended = st.Decision.Recommended
		t.scores = recommendedScores(*st.Decision)
	case types.PathCannotAnswer:
		t.render = render.CannotAnswer(st)
	case types.PathClarify:
		t.render = render.Clarify(st)
	default:
		t.render = r.c.Renderer.FreeForm(ctx, st)
	}

	if p := t.render.Path; p == types.PathStructured || p == types.PathFreeForm {
		r.persist(ctx, logger, t)
	}
	return t
}

// extractFacts runs the extractor and retries empty results.
func (r *Router) extractFacts(ctx context.Context, logger *zap.Logger, findings types.Findings) []types.CandidateFact {
	text := findings.Text()
	if findings.Empty() || len(strings.TrimSpace(text)) < extract.MinFindingsLength {
		return nil
	}
	for attempt := 0; attempt <= r.cfg.ExtractionRetries; attempt++ {
		facts, err := r.c.Extractor.Extract(ctx, text)
		if err != nil {
			logger.Warn("fact extraction failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		if len(facts) > 0 {
			logger.Info("facts extracted", zap.Int("count", len(facts)))
			return facts
		}
		logger.Debug("extraction returned no facts", zap.Int("attempt", attempt+1))
	}
	return nil
}

// persist writes a research-backed answer to the cache and the similarity
// index. Failures are logged; the answer is still returned.
func (r *Router) persist(ctx context.Context, logger *zap.Logger, t *turn) {
	st := t.state
	if !st.Researched || r.c.Cache == nil {
		return
	}
	ans := types.CachedAnswer{
		Render:      t.render,
		Recommended: t.recommended,
		Scores:      t.scores,
		StoredAt:    r.c.Now(),
	}
	if err := r.c.Cache.Set(ctx, st.CacheKey, ans, r.cfg.AnswerTTL); err != nil {
		logger.Warn("caching answer failed", zap.Error(err))
		return
	}
	if r.c.Index == nil {
		return
	}
	texts := []string{st.LastUserMessage()}
	if st.Normalized != "" && st.Normalized != texts[0] {
		texts = append(texts, st.Normalized)
	}
	for _, text := range texts {
		if err := r.c.Index.AddMapping(ctx, text, st.CacheKey, st.Domain, r.cfg.AnswerTTL); err != nil {
			logger.Warn("indexing question failed", zap.Error(err))
		}
	}
	logger.Info("answer persisted", zap.String("path", string(t.render.Path)))
}

func (r *Router) checkpoint(ctx context.Context, logger *zap.Logger, stage string, st *types.TurnState) {
	if r.c.Checkpoints == nil {
		return
	}
	if err := r.c.Checkpoints.Checkpoint(ctx, stage, st); err != nil {
		logger.Warn("checkpoint failed", zap.String("stage", stage), zap.Error(err))
	}
}

// finish appends the assistant message and writes the pre-render
// checkpoint.
func (r *Router) finish(ctx context.Context, logger *zap.Logger, t *turn) types.TurnOutcome {
	st := t.state
	st.Messages = append(st.Messages, types.Message{
		Role:        types.RoleAssistant,
		Content:     t.render.Text(),
		Recommended: t.recommended,
		Scores:      t.scores,
		At:          r.c.Now(),
	})
	r.checkpoint(ctx, logger, StagePreRender, st)
	logger.Info("turn answered", zap.String("path", string(t.render.Path)))

	return types.TurnOutcome{
		TurnID:   st.ID,
		Render:   t.render,
		Decision: st.Decision,
		CacheKey: st.CacheKey,
		Messages: st.Messages,
	}
}

func recommendedScores(res types.DecisionResult) []types.CandidateScore {
	out := make([]types.CandidateScore, 0, len(res.Recommended))
	for _, name := range res.Recommended {
		if s, ok := res.ScoreFor(name); ok {
			out = append(out, s)
		}
	}
	return out
}

func lastScores(msgs []types.Message) []types.CandidateScore {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleAssistant && len(msgs[i].Recommended) > 0 {
			return msgs[i].Scores
		}
	}
	return nil
}

// missingFrom returns the names in want that have lacks, compared
// case-insensitively.
func missingFrom(have, want []string) []string {
	var missing []string
	for _, w := range want {
		if !containsFold(have, w) {
			missing = append(missing, w)
		}
	}
	return missing
}
