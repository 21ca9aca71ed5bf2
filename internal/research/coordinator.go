// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research gathers evidence for a research brief. A Coordinator
// plans sub-topics and dispatches them to Workers in bounded rounds; each
// Worker consults the fact store before searching the web and writes what
// it finds back for later turns.
package research

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

const (
	defaultMaxConcurrent = 3
	defaultMaxRounds     = 2
	defaultRoundTimeout  = 90 * time.Second
)

// PlanRequest is what the planner sees before each round.
type PlanRequest struct {
	Brief   types.Brief
	Round   int
	Results []TopicResult
	Pending []string
}

// Plan is the planner's answer. Complete ends research immediately.
type Plan struct {
	Topics   []string `json:"topics"`
	Complete bool     `json:"research_complete"`
}

// Planner chooses the sub-topics for the next round.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (Plan, error)
}

// Researcher resolves one sub-topic. Worker is the production implementation.
type Researcher interface {
	Research(ctx context.Context, topic string) (TopicResult, error)
}

// TopicResult is the outcome of researching one sub-topic.
type TopicResult struct {
	Topic      string           `json:"topic" yaml:"topic"`
	Compressed string           `json:"compressed" yaml:"compressed"`
	Raw        []string         `json:"raw" yaml:"raw"`
	Evidence   []types.Evidence `json:"evidence" yaml:"evidence"`
	Iterations int              `json:"iterations" yaml:"iterations"`
}

// StopReason records why a research run ended.
type StopReason string

const (
	StopMaxRounds StopReason = "max_rounds"
	StopNoTopics  StopReason = "no_topics"
	StopComplete  StopReason = "complete"
	StopCancelled StopReason = "cancelled"
)

// Coordinator runs research rounds under a concurrency cap.
type Coordinator struct {
	planner    Planner
	researcher Researcher
	cfg        types.ResearchConfig
	logger     *zap.Logger
}

// NewCoordinator returns a Coordinator. Zero config values take defaults.
func NewCoordinator(planner Planner, researcher Researcher, cfg types.ResearchConfig, logger *zap.Logger) *Coordinator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = defaultRoundTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{planner: planner, researcher: researcher, cfg: cfg, logger: logger}
}

// Run researches brief and returns the aggregated findings. Each round asks
// the planner for topics, queues them, and dispatches at most MaxConcurrent;
// the rest wait for the next round. Run stops when MaxRounds is exceeded,
// when the planner asks for nothing and the queue is empty, or when the
// planner reports completion. It never fails: planner and worker errors
// degrade to fewer findings.
func (c *Coordinator) Run(ctx context.Context, brief types.Brief) (types.Findings, []TopicResult, StopReason) {
	var (
		queue       []string
		results     []TopicResult
		queued      = make(map[string]bool)
		planning    = true
		reason      StopReason
		roundsSpent int
	)

	enqueue := func(topics []string) {
		for _, t := range topics {
			t = strings.TrimSpace(t)
			k := strings.ToLower(t)
			if t == "" || queued[k] {
				continue
			}
			queued[k] = true
			queue = append(queue, t)
		}
	}

	for round := 1; ; round++ {
		if round > c.cfg.MaxRounds {
			reason = StopMaxRounds
			break
		}
		if ctx.Err() != nil {
			reason = StopCancelled
			break
		}

		if planning {
			plan, err := c.planner.Plan(ctx, PlanRequest{
				Brief:   brief,
				Round:   round,
				Results: results,
				Pending: append([]string(nil), queue...),
			})
			switch {
			case err != nil && round == 1:
				c.logger.Warn("planner failed, researching the brief directly", zap.Error(err))
				plan = Plan{Topics: []string{brief.Text}}
			case err != nil:
				c.logger.Warn("planner failed, finalizing", zap.Int("round", round), zap.Error(err))
				plan = Plan{}
				planning = false
			}
			if plan.Complete {
				reason = StopComplete
				if len(queue) > 0 {
					c.logger.Info("research complete with topics still queued", zap.Strings("abandoned", queue))
				}
				break
			}
			if len(plan.Topics) == 0 {
				planning = false
			}
			enqueue(plan.Topics)
		}

		if len(queue) == 0 {
			reason = StopNoTopics
			break
		}

		n := min(len(queue), c.cfg.MaxConcurrent)
		batch := queue[:n]
		queue = queue[n:]

		results = append(results, c.dispatch(ctx, round, batch)...)
		roundsSpent = round
	}

	findings := aggregate(results)
	findings.Rounds = roundsSpent
	c.logger.Info("research finished",
		zap.String("reason", string(reason)),
		zap.Int("rounds", roundsSpent),
		zap.Int("topics", len(results)),
		zap.Bool("empty", findings.Empty()),
	)
	return findings, results, reason
}

// dispatch runs one round's topics in parallel and joins them. The round
// context carries the best-effort timeout; workers return what they have
// when it expires.
func (c *Coordinator) dispatch(ctx context.Context, round int, topics []string) []TopicResult {
	roundCtx, cancel := context.WithTimeout(ctx, c.cfg.RoundTimeout)
	defer cancel()

	c.logger.Debug("dispatching round", zap.Int("round", round), zap.Strings("topics", topics))

	var (
		mu  sync.Mutex
		out []TopicResult
	)
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.MaxConcurrent)
	for _, topic := range topics {
		g.Go(func() error {
			res, err := c.researcher.Research(roundCtx, topic)
			if err != nil {
				c.logger.Warn("topic research failed", zap.String("topic", topic), zap.Error(err))
				return nil
			}
			mu.Lock()
			out = append(out, res)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}

// aggregate collects compressed and raw notes from every topic.
func aggregate(results []TopicResult) types.Findings {
	var f types.Findings
	for _, r := range results {
		if s := strings.TrimSpace(r.Compressed); s != "" {
			f.Compressed = append(f.Compressed, s)
		}
		f.Raw = append(f.Raw, r.Raw...)
	}
	return f
}
