// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/advisor-engine/internal/cache"
	"github.com/pdiddy/advisor-engine/internal/decision"
	"github.com/pdiddy/advisor-engine/internal/extract"
	"github.com/pdiddy/advisor-engine/internal/knowledge"
	"github.com/pdiddy/advisor-engine/internal/llm"
	"github.com/pdiddy/advisor-engine/internal/render"
	"github.com/pdiddy/advisor-engine/internal/research"
	"github.com/pdiddy/advisor-engine/internal/router"
	"github.com/pdiddy/advisor-engine/internal/search"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

// errNoModel is returned by the extraction backend when no completion model
// is configured.
var errNoModel = errors.New("no completion model configured: set gemini-api-key")

// answerCache is the evidence cache surface the CLI needs.
type answerCache interface {
	router.Cache
	Stats(ctx context.Context) (cache.Stats, error)
	Clear(ctx context.Context) error
}

// app holds the collaborators built from configuration.
type app struct {
	cfg     types.AdvisorConfig
	client  llm.Client
	store   *knowledge.Store
	cache   answerCache
	closers []io.Closer
}

// newApp opens the stores and, when a Gemini key is present, the completion
// client. Without a key every model-backed stage uses its rule-based
// fallback.
func newApp(ctx context.Context, cfg types.AdvisorConfig) (*app, error) {
	a := &app{cfg: cfg}

	var storeOpts []knowledge.Option
	storeOpts = append(storeOpts, knowledge.WithLogger(logger))
	if cfg.AI.APIKey != "" {
		g, err := llm.NewGemini(ctx, cfg.AI, logger)
		if err != nil {
			return nil, err
		}
		a.client = g
		if cfg.AI.EmbeddingModel != "" {
			emb, err := llm.NewGeminiEmbedder(ctx, cfg.AI)
			if err != nil {
				return nil, err
			}
			storeOpts = append(storeOpts, knowledge.WithEmbedder(emb))
		}
	} else {
		logger.Warn("no gemini-api-key found; using rule-based fallbacks")
	}

	store, err := knowledge.NewStore(cfg.Knowledge, storeOpts...)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store)

	c, err := openCache(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = c
	if cl, ok := c.(io.Closer); ok {
		a.closers = append(a.closers, cl)
	}
	return a, nil
}

func openCache(cfg types.AdvisorConfig) (answerCache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cfg.Cache.Size, cfg.Router.AnswerTTL), nil
	case "sqlite", "":
		return cache.NewSQLiteCache(cfg.Cache.Path)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q: use memory or sqlite", cfg.Cache.Backend)
	}
}

// Close releases every opened store.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// searcher returns the live search collaborator.
func (a *app) searcher() *search.Searcher {
	return search.New(a.cfg.Search, logger, search.NewTavily(a.cfg.Search, logger))
}

// completion returns the configured client, or one that always fails.
func (a *app) completion() llm.Client {
	if a.client != nil {
		return a.client
	}
	return llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
		return "", errNoModel
	})
}

// newRouter wires a turn router over the app's collaborators. checkpoints may
// be nil.
func (a *app) newRouter(checkpoints router.Checkpointer) (*router.Router, error) {
	engine, err := decision.NewEngine(decision.WeightsFromConfig(a.cfg.Decision))
	if err != nil {
		return nil, err
	}

	workerOpts := []research.WorkerOption{
		research.WithSearchParams(a.cfg.Search.MaxResults, a.cfg.Search.Depth),
		research.WithWorkerLogger(logger),
	}
	var planner research.Planner = research.BriefPlanner{}
	renderOpts := []render.Option{render.WithLogger(logger)}
	c := router.Components{
		Cache:       a.cache,
		Index:       a.store.Similarity(),
		Extractor:   extract.New(&extract.LLMBackend{Client: a.completion(), MaxTokens: a.cfg.AI.MaxOutputTokens}, logger),
		Decider:     engine,
		Checkpoints: checkpoints,
	}
	if a.client != nil {
		c.Classifier = &router.LLMClassifier{Client: a.client}
		c.Normalizer = &router.LLMNormalizer{Client: a.client}
		c.Briefs = &router.LLMBriefWriter{Client: a.client}
		planner = &research.LLMPlanner{Client: a.client}
		workerOpts = append(workerOpts, research.WithCompressor(&research.LLMCompressor{
			Client: a.client,
			Policy: llm.RetryPolicy{MaxAttempts: 2, Accept: llm.MinLength(extract.MinFindingsLength)},
		}))
		renderOpts = append(renderOpts, render.WithClient(a.client))
	}

	worker := research.NewWorker(a.store, a.searcher(), a.cfg.Research, workerOpts...)
	c.Coordinator = research.NewCoordinator(planner, worker, a.cfg.Research, logger)
	c.Renderer = render.New(renderOpts...)

	return router.New(c, a.cfg.Router, logger.Named("router")), nil
}

// withApp loads configuration, builds the app, runs fn and closes it.
func withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing stores", zap.Error(err))
		}
	}()
	return fn(a)
}
