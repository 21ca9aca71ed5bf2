// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data contracts shared by the advisor-engine
// pipeline: candidate facts, user context, decision results, turn state,
// evidence, and configuration.
package types

import "time"

// SearchResult is one hit returned by a live web search backend.
type SearchResult struct {
	// Title is the page title as returned by the backend.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical page URL.
	URL string `json:"url" yaml:"url"`

	// Content is the extracted snippet or page text.
	Content string `json:"content" yaml:"content"`

	// Score is the backend's relevance score in [0, 1].
	Score float64 `json:"score" yaml:"score"`

	// Source identifies which backend found this result (e.g. "tavily").
	Source string `json:"source" yaml:"source"`

	// Official is set when the URL belongs to the vendor's own site or docs.
	Official bool `json:"is_official" yaml:"is_official"`
}

// SearchResponse is the outcome of one live search query.
type SearchResponse struct {
	Query   string         `json:"query" yaml:"query"`
	Answer  string         `json:"answer,omitempty" yaml:"answer,omitempty"`
	Results []SearchResult `json:"results" yaml:"results"`
}

// Evidence is a persisted piece of research text with provenance.
type Evidence struct {
	ID        string            `json:"id" yaml:"id"`
	Text      string            `json:"text" yaml:"text"`
	Source    string            `json:"source" yaml:"source"`
	URL       string            `json:"url,omitempty" yaml:"url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Score     float64           `json:"score,omitempty" yaml:"score,omitempty"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	ExpiresAt time.Time         `json:"expires_at" yaml:"expires_at"`
}
