// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by collaborators that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "advisor-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the live search collaborator.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the Tavily API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the Tavily endpoint (tests point it at httptest).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxResults is the number of results requested per query (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Depth is the search depth: "basic" or "advanced" (default "advanced").
	Depth string `json:"depth" yaml:"depth"`

	// OfficialDomains lists host suffixes treated as vendor documentation.
	OfficialDomains []string `json:"official_domains,omitempty" yaml:"official_domains,omitempty"`
}

// AIConfig holds shared settings for collaborators that call a Generative
// AI API.
type AIConfig struct {
	// Model is the completion model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// EmbeddingModel is the embedding model identifier
	// (e.g. "gemini-embedding-001"). Empty selects the lexical embedder.
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxOutputTokens caps each completion (default 4096).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// ResearchConfig holds settings for the coordinator and its workers.
type ResearchConfig struct {
	// MaxConcurrent is the number of topics dispatched per round (default 3).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// MaxRounds bounds coordinator iterations (default 2).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// RoundTimeout is the best-effort deadline for one round (default 90s).
	RoundTimeout time.Duration `json:"round_timeout" yaml:"round_timeout"`

	// MaxToolCalls bounds worker iterations per topic (default 3).
	MaxToolCalls int `json:"max_tool_calls" yaml:"max_tool_calls"`

	// StoreTopK is the number of fact store hits requested (default 5).
	StoreTopK int `json:"store_top_k" yaml:"store_top_k"`

	// StoreThreshold is the fact store similarity floor (default 0.65).
	StoreThreshold float64 `json:"store_threshold" yaml:"store_threshold"`

	// SufficientHits is the hit count that ends a topic early (default 3).
	SufficientHits int `json:"sufficient_hits" yaml:"sufficient_hits"`

	// EvidenceTTL is how long written-back search results live (default 30 days).
	EvidenceTTL time.Duration `json:"evidence_ttl" yaml:"evidence_ttl"`
}

// RouterConfig holds settings for the turn router.
type RouterConfig struct {
	// Domain is the default answer domain used in cache keys (default "coding_tools").
	Domain string `json:"domain" yaml:"domain"`

	// SimilarityThreshold is the floor for reusing a neighbor's answer (default 0.85).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// AnswerTTL is how long final answers stay cached (default 24h).
	AnswerTTL time.Duration `json:"answer_ttl" yaml:"answer_ttl"`

	// ExtractionRetries is the number of extra extraction attempts on empty output (default 1).
	ExtractionRetries int `json:"extraction_retries" yaml:"extraction_retries"`
}

// DecisionConfig holds the decision engine weights. The five weights must
// sum to Basis.
type DecisionConfig struct {
	LanguageWeight    float64 `json:"language_weight" yaml:"language_weight"`
	IntegrationWeight float64 `json:"integration_weight" yaml:"integration_weight"`
	WorkflowWeight    float64 `json:"workflow_weight" yaml:"workflow_weight"`
	PriceWeight       float64 `json:"price_weight" yaml:"price_weight"`
	SecurityWeight    float64 `json:"security_weight" yaml:"security_weight"`
	Basis             float64 `json:"basis" yaml:"basis"`
}

// CacheConfig selects and sizes the evidence cache.
type CacheConfig struct {
	// Backend is "memory" or "sqlite" (default "sqlite").
	Backend string `json:"backend" yaml:"backend"`

	// Size bounds the in-memory cache (default 1024 entries).
	Size int `json:"size" yaml:"size"`

	// Path is the SQLite database file for the persistent cache.
	Path string `json:"path" yaml:"path"`
}

// KnowledgeConfig holds settings for the fact store and similarity index.
type KnowledgeConfig struct {
	// Dir is the directory holding the knowledge databases (contains index/).
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// AdvisorConfig groups all component configurations.
type AdvisorConfig struct {
	Router    RouterConfig    `json:"router" yaml:"router"`
	Research  ResearchConfig  `json:"research" yaml:"research"`
	Decision  DecisionConfig  `json:"decision" yaml:"decision"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Knowledge KnowledgeConfig `json:"knowledge" yaml:"knowledge"`
	Search    SearchConfig    `json:"search" yaml:"search"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
}

// DefaultAdvisorConfig returns the configuration used when no config file
// or environment override is present.
func DefaultAdvisorConfig() AdvisorConfig {
	return AdvisorConfig{
		Router: RouterConfig{
			Domain:              "coding_tools",
			SimilarityThreshold: 0.85,
			AnswerTTL:           24 * time.Hour,
			ExtractionRetries:   1,
		},
		Research: ResearchConfig{
			MaxConcurrent:  3,
			MaxRounds:      2,
			RoundTimeout:   90 * time.Second,
			MaxToolCalls:   3,
			StoreTopK:      5,
			StoreThreshold: 0.65,
			SufficientHits: 3,
			EvidenceTTL:    30 * 24 * time.Hour,
		},
		Decision: DecisionConfig{
			LanguageWeight:    0.30,
			IntegrationWeight: 0.20,
			WorkflowWeight:    0.20,
			PriceWeight:       0.15,
			SecurityWeight:    0.15,
			Basis:             1.0,
		},
		Cache: CacheConfig{
			Backend: "sqlite",
			Size:    1024,
			Path:    "knowledge/index/answers.db",
		},
		Knowledge: KnowledgeConfig{
			Dir:        "knowledge",
			MaxResults: 20,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "advisor-engine/0.1"},
			MaxResults: 5,
			Depth:      "advanced",
		},
		AI: AIConfig{
			Model:           "gemini-2.5-flash",
			MaxRetries:      3,
			MaxOutputTokens: 4096,
		},
	}
}
