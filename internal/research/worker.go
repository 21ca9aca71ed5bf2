// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/knowledge"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

const (
	defaultMaxToolCalls   = 3
	defaultStoreTopK      = 5
	defaultStoreThreshold = 0.65
	defaultSufficientHits = 3
	defaultEvidenceTTL    = 30 * 24 * time.Hour
	defaultSearchResults  = 5
	defaultSearchDepth    = "advanced"

	// digestLimit caps each evidence line in the fallback digest.
	digestLimit = 400
)

// FactStore is the retrieval layer over previously gathered evidence.
type FactStore interface {
	Search(ctx context.Context, text string, topK int, threshold float64) ([]types.Evidence, error)
	Add(ctx context.Context, evidence []types.Evidence, ttl time.Duration) error
}

// LiveSearch is the web search collaborator.
type LiveSearch interface {
	Search(ctx context.Context, query string, maxResults int, depth string) (types.SearchResponse, error)
}

// Compressor condenses a topic's evidence into notes.
type Compressor interface {
	Compress(ctx context.Context, topic string, evidence []types.Evidence) (string, error)
}

// QueryPlanner returns the query for a given iteration of a topic.
type QueryPlanner func(topic string, iteration int) string

// FacetQueries cycles through the topic itself, its pricing, and its
// integrations and security.
func FacetQueries(topic string, iteration int) string {
	facets := []string{"", " pricing plans", " integrations security"}
	return topic + facets[iteration%len(facets)]
}

// Worker resolves one sub-topic.
type Worker struct {
	store      FactStore
	search     LiveSearch
	compressor Compressor
	queries    QueryPlanner
	cfg        types.ResearchConfig
	maxResults int
	depth      string
	logger     *zap.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithCompressor sets the compressor. Without one, the worker produces a
// deterministic digest.
func WithCompressor(c Compressor) WorkerOption {
	return func(w *Worker) { w.compressor = c }
}

// WithQueryPlanner replaces FacetQueries.
func WithQueryPlanner(q QueryPlanner) WorkerOption {
	return func(w *Worker) { w.queries = q }
}

// WithSearchParams sets the live search result count and depth.
func WithSearchParams(maxResults int, depth string) WorkerOption {
	return func(w *Worker) {
		w.maxResults = maxResults
		w.depth = depth
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

// NewWorker returns a Worker over store and search.
func NewWorker(store FactStore, search LiveSearch, cfg types.ResearchConfig, opts ...WorkerOption) *Worker {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = defaultMaxToolCalls
	}
	if cfg.StoreTopK <= 0 {
		cfg.StoreTopK = defaultStoreTopK
	}
	if cfg.StoreThreshold <= 0 {
		cfg.StoreThreshold = defaultStoreThreshold
	}
	if cfg.SufficientHits <= 0 {
		cfg.SufficientHits = defaultSufficientHits
	}
	if cfg.EvidenceTTL <= 0 {
		cfg.EvidenceTTL = defaultEvidenceTTL
	}
	w := &Worker{
		store:   store,
		search:  search,
		queries: FacetQueries,
		cfg:     cfg,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.maxResults <= 0 {
		w.maxResults = defaultSearchResults
	}
	if w.depth == "" {
		w.depth = defaultSearchDepth
	}
	return w
}

// Research runs the store-then-search loop for topic. Each iteration
// queries the fact store; enough hits end the loop. Otherwise a live search
// runs and every result is written back with provenance. The loop stops at
// the tool-call budget or when ctx is done, returning whatever evidence it
// has.
func (w *Worker) Research(ctx context.Context, topic string) (TopicResult, error) {
	res := TopicResult{Topic: topic}
	seen := make(map[string]bool)
	add := func(ev types.Evidence) {
		id := ev.ID
		if id == "" {
			id = knowledge.EvidenceID(ev.Text, ev.URL)
		}
		if seen[id] {
			return
		}
		seen[id] = true
		res.Evidence = append(res.Evidence, ev)
	}

	for i := 0; i < w.cfg.MaxToolCalls; i++ {
		if ctx.Err() != nil {
			w.logger.Debug("topic budget expired", zap.String("topic", topic), zap.Int("iteration", i))
			break
		}
		res.Iterations = i + 1
		query := w.queries(topic, i)

		hits, err := w.store.Search(ctx, query, w.cfg.StoreTopK, w.cfg.StoreThreshold)
		if err != nil {
			w.logger.Warn("fact store search failed", zap.String("query", query), zap.Error(err))
			hits = nil
		}
		for _, h := range hits {
			add(h)
		}
		if len(hits) >= w.cfg.SufficientHits {
			w.logger.Debug("fact store sufficient",
				zap.String("topic", topic), zap.Int("hits", len(hits)))
			break
		}

		resp, err := w.search.Search(ctx, query, w.maxResults, w.depth)
		if err != nil {
			w.logger.Warn("live search failed", zap.String("query", query), zap.Error(err))
			continue
		}
		if resp.Answer != "" {
			res.Raw = append(res.Raw, resp.Answer)
		}

		fresh := provenance(query, resp.Results)
		for _, ev := range fresh {
			add(ev)
		}
		if len(fresh) > 0 {
			if err := w.store.Add(ctx, fresh, w.cfg.EvidenceTTL); err != nil {
				w.logger.Warn("fact store write failed", zap.Int("results", len(fresh)), zap.Error(err))
			}
		}
	}

	for _, ev := range res.Evidence {
		res.Raw = append(res.Raw, rawNote(ev))
	}
	res.Compressed = w.compress(ctx, topic, res.Evidence)
	return res, nil
}

func (w *Worker) compress(ctx context.Context, topic string, evidence []types.Evidence) string {
	if len(evidence) == 0 {
		return ""
	}
	if w.compressor != nil && ctx.Err() == nil {
		out, err := w.compressor.Compress(ctx, topic, evidence)
		if err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out)
		}
		w.logger.Warn("compression failed, using digest", zap.String("topic", topic), zap.Error(err))
	}
	return Digest(topic, evidence)
}

// provenance converts search results to evidence carrying URL, origin and
// the official flag.
func provenance(query string, results []types.SearchResult) []types.Evidence {
	var out []types.Evidence
	for _, r := range results {
		text := strings.TrimSpace(r.Content)
		if title := strings.TrimSpace(r.Title); title != "" {
			text = strings.TrimSpace(title + "\n" + text)
		}
		if text == "" {
			continue
		}
		source := r.Source
		if source == "" {
			source = "tavily"
		}
		out = append(out, types.Evidence{
			ID:     knowledge.EvidenceID(text, r.URL),
			Text:   text,
			Source: source,
			URL:    r.URL,
			Score:  r.Score,
			Metadata: map[string]string{
				"query":       query,
				"title":       r.Title,
				"score":       strconv.FormatFloat(r.Score, 'f', 3, 64),
				"is_official": strconv.FormatBool(r.Official),
			},
		})
	}
	return out
}

func rawNote(ev types.Evidence) string {
	if ev.URL == "" {
		return ev.Text
	}
	return fmt.Sprintf("%s\nSource: %s", ev.Text, ev.URL)
}

// Digest is the deterministic compression: one bullet per evidence item,
// official sources first.
func Digest(topic string, evidence []types.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	for _, official := range []bool{true, false} {
		for _, ev := range evidence {
			if isOfficial(ev) != official {
				continue
			}
			text := strings.Join(strings.Fields(ev.Text), " ")
			if len(text) > digestLimit {
				n := digestLimit
				for n > 0 && !utf8.RuneStart(text[n]) {
					n--
				}
				text = text[:n] + "..."
			}
			b.WriteString("- ")
			b.WriteString(text)
			if ev.URL != "" {
				fmt.Fprintf(&b, " (%s)", ev.URL)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func isOfficial(ev types.Evidence) bool {
	return ev.Metadata["is_official"] == "true"
}
