// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/httputil"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

const (
	tavilyBaseURL = "https://api.tavily.com/search"

	// tavilyRecencyDays limits results to recent pages; pricing goes stale.
	tavilyRecencyDays = 90
)

// Tavily implements Backend for the Tavily search API.
type Tavily struct {
	apiKey  string
	baseURL string
	retrier httputil.Retrier
}

// NewTavily returns a Tavily backend configured from cfg.
func NewTavily(cfg types.SearchConfig, logger *zap.Logger) *Tavily {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = tavilyBaseURL
	}
	return &Tavily{
		apiKey:  cfg.APIKey,
		baseURL: base,
		retrier: httputil.Retrier{
			Client: &http.Client{Timeout: timeout},
			Logger: logger,
		},
	}
}

// Name returns "tavily".
func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	Days              int    `json:"days"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search sends q to Tavily.
func (t *Tavily) Search(ctx context.Context, q Query) (types.SearchResponse, error) {
	if t.apiKey == "" {
		return types.SearchResponse{}, fmt.Errorf("tavily: missing API key")
	}
	depth := q.Depth
	if depth == "" {
		depth = "advanced"
	}
	body, err := json.Marshal(tavilyRequest{
		Query:         q.Text,
		MaxResults:    q.MaxResults,
		SearchDepth:   depth,
		IncludeAnswer: true,
		Days:          tavilyRecencyDays,
	})
	if err != nil {
		return types.SearchResponse{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return types.SearchResponse{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.retrier.Do(ctx, req)
	if err != nil {
		return types.SearchResponse{}, fmt.Errorf("tavily request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.SearchResponse{}, fmt.Errorf("tavily: HTTP %d: %s", resp.StatusCode, httputil.ReadBody(resp, 512))
	}
	defer resp.Body.Close()

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return types.SearchResponse{}, fmt.Errorf("decoding tavily response: %w", err)
	}

	out := types.SearchResponse{Query: q.Text, Answer: tr.Answer}
	for _, r := range tr.Results {
		out.Results = append(out.Results, types.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
			Source:  t.Name(),
		})
	}
	return out, nil
}
