// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries web search APIs and returns unified, deduplicated
// results with vendor-site provenance.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// ErrNoBackends is returned when a Searcher has nothing to query.
var ErrNoBackends = errors.New("no search backends configured")

// Backend searches a single web search API.
type Backend interface {
	Name() string
	Search(ctx context.Context, q Query) (types.SearchResponse, error)
}

// Query holds the search parameters.
type Query struct {
	Text       string
	MaxResults int
	Depth      string
}

// Score multipliers applied during merging.
const (
	officialBoost = 1.5
	pricingBoost  = 1.2
)

var pricingTerms = []string{"pricing", "price", "cost", "subscription", "plan", "per user", "per month", "$"}

// defaultOfficialDomains are vendor documentation hosts. Config may add more.
var defaultOfficialDomains = []string{
	"github.com", "docs.github.com", "openai.com", "anthropic.com", "google.com",
	"jetbrains.com", "tabnine.com", "cursor.com", "sourcegraph.com", "codeium.com",
	"aws.amazon.com", "coderabbit.ai", "qodo.ai", "sonarsource.com", "codacy.com",
}

// Searcher fans a query out to every backend and merges the results.
type Searcher struct {
	backends []Backend
	cfg      types.SearchConfig
	official []string
	logger   *zap.Logger
}

// New returns a Searcher over backends. A nil logger discards output.
func New(cfg types.SearchConfig, logger *zap.Logger, backends ...Backend) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	official := append(append([]string(nil), defaultOfficialDomains...), cfg.OfficialDomains...)
	return &Searcher{backends: backends, cfg: cfg, official: official, logger: logger}
}

// Search queries all backends concurrently, deduplicates by URL, boosts
// official and pricing pages, and returns the top maxResults. Backend
// failures are logged; Search fails only when every backend fails.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int, depth string) (types.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.SearchResponse{}, fmt.Errorf("query is empty")
	}
	if len(s.backends) == 0 {
		return types.SearchResponse{}, ErrNoBackends
	}
	if maxResults <= 0 {
		maxResults = s.cfg.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if depth == "" {
		depth = s.cfg.Depth
	}
	q := Query{Text: query, MaxResults: maxResults, Depth: depth}

	var (
		mu      sync.Mutex
		all     []types.SearchResult
		answers []string
		errs    []error
	)
	var g errgroup.Group
	for _, b := range s.backends {
		g.Go(func() error {
			resp, err := b.Search(ctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("search backend failed", zap.String("backend", b.Name()), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
				return nil
			}
			for i := range resp.Results {
				if resp.Results[i].Source == "" {
					resp.Results[i].Source = b.Name()
				}
			}
			all = append(all, resp.Results...)
			if resp.Answer != "" {
				answers = append(answers, resp.Answer)
			}
			return nil
		})
	}
	g.Wait()

	if len(errs) == len(s.backends) {
		return types.SearchResponse{}, fmt.Errorf("all search backends failed: %w", errors.Join(errs...))
	}

	merged, removed := deduplicate(all)
	for i := range merged {
		s.rescore(&merged[i])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}

	s.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("results", len(merged)),
		zap.Int("duplicates", removed),
	)

	out := types.SearchResponse{Query: query, Results: merged}
	if len(answers) > 0 {
		sort.Strings(answers)
		out.Answer = answers[0]
	}
	return out, nil
}

// rescore marks vendor pages official and boosts them and pricing pages.
func (s *Searcher) rescore(r *types.SearchResult) {
	if !r.Official {
		r.Official = s.isOfficial(r.URL)
	}
	score := r.Score
	if score <= 0 {
		score = 0.5
	}
	if r.Official {
		score *= officialBoost
	}
	text := strings.ToLower(r.Title + " " + r.Content)
	for _, term := range pricingTerms {
		if strings.Contains(text, term) {
			score *= pricingBoost
			break
		}
	}
	r.Score = math.Min(score, 1.0)
}

func (s *Searcher) isOfficial(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, d := range s.official {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return true
		}
	}
	return false
}

// deduplicate merges results that share a normalized URL.
func deduplicate(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int)
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		key := normalizeURL(r.URL)
		if key == "" {
			key = "title:" + strings.ToLower(strings.TrimSpace(r.Title))
		}
		if idx, ok := seen[key]; ok {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// mergeInto fills empty fields of dst from src, keeps the longer content
// and the higher score.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if len(src.Content) > len(dst.Content) {
		dst.Content = src.Content
	}
	if src.Score > dst.Score {
		dst.Score = src.Score
	}
	dst.Official = dst.Official || src.Official
	if dst.Source != src.Source && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// normalizeURL strips scheme, "www.", query, fragment, and trailing slash.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host + strings.TrimSuffix(u.EscapedPath(), "/")
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(resp types.SearchResponse, w io.Writer) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-40s  %-6s  %-8s  %s\n",
		"Rank", "Title", "URL", "Score", "Official", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 124))

	for i, r := range resp.Results {
		official := ""
		if r.Official {
			official = "yes"
		}
		fmt.Fprintf(w, "%-4d  %-50s  %-40s  %-6.2f  %-8s  %s\n",
			i+1, truncate(r.Title, 50), truncate(r.URL, 40), r.Score, official, r.Source)
	}

	fmt.Fprintf(w, "\n%d results\n", len(resp.Results))
	if resp.Answer != "" {
		fmt.Fprintf(w, "\nAnswer: %s\n", resp.Answer)
	}
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp types.SearchResponse, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
