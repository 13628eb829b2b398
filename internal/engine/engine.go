// Package engine orchestrates a matching run: normalize the population, block
// it into buckets, score every in-bucket pair, and commit qualifying
// candidates to the ledger. The engine reads the population and writes only
// the ledger and the review queue.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kindred/internal/audit"
	"kindred/internal/engine/metrics"
	"kindred/internal/identity"
	"kindred/internal/ledger"
	"kindred/internal/match"
	"kindred/internal/review"
	"kindred/pkg/domain"
)

// Source produces the population to match: a lazy, finite, restartable
// sequence. The engine never assumes the records fit any particular storage.
type Source interface {
	Each(ctx context.Context, fn func(identity.PatientIdentity) error) error
}

// SliceSource adapts an in-memory slice to Source; used by tests and small
// incremental runs.
type SliceSource []identity.PatientIdentity

func (s SliceSource) Each(ctx context.Context, fn func(identity.PatientIdentity) error) error {
	for _, p := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// RunSummary reports what a run did.
type RunSummary struct {
	RunID       uuid.UUID                       `json:"run_id"`
	Records     int                             `json:"records"`
	Buckets     int                             `json:"buckets"`
	Comparisons int                             `json:"comparisons"`
	Candidates  map[match.ConfidenceLevel]int   `json:"candidates"`
	Written     int                             `json:"written"`
	Skipped     int                             `json:"skipped"`
	Superseded  int                             `json:"superseded"`
	Flagged     int                             `json:"flagged"`
	StartedAt   time.Time                       `json:"started_at"`
	FinishedAt  time.Time                       `json:"finished_at"`
}

// Engine wires the matching pipeline together. Construct once at startup;
// Run may be called repeatedly and concurrently-safely from a scheduler.
type Engine struct {
	cfg     match.Config
	norm    *identity.Normalizer
	scorer  *match.Scorer
	blocker *match.Blocker
	store   ledger.Store
	reviews review.Queue
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithAudit attaches an audit publisher.
func WithAudit(p *audit.Publisher) Option {
	return func(e *Engine) { e.audit = p }
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New validates the config and constructs the engine. Configuration errors
// surface here, before any matching runs.
func New(cfg match.Config, store ledger.Store, reviews review.Queue, opts ...Option) (*Engine, error) {
	scorer, err := match.NewScorer(cfg)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		norm:    identity.NewNormalizer(cfg.LocaleFolding),
		scorer:  scorer,
		blocker: match.NewBlocker(cfg),
		store:   store,
		reviews: reviews,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Run executes one matching run over the source population. Buckets are
// scored by a bounded worker pool; each bucket's candidates commit
// atomically, so cancelling mid-run leaves the ledger consistent and the run
// re-runnable from scratch.
func (e *Engine) Run(ctx context.Context, src Source) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:      uuid.New(),
		Candidates: make(map[match.ConfidenceLevel]int),
		StartedAt:  time.Now(),
	}

	e.audit.TryEmit(ctx, audit.Event{Action: audit.ActionRunStarted, RunID: summary.RunID})
	if e.logger != nil {
		e.logger.InfoContext(ctx, "matching run started", "run_id", summary.RunID)
	}

	err := e.run(ctx, src, summary)
	summary.FinishedAt = time.Now()
	elapsed := summary.FinishedAt.Sub(summary.StartedAt)

	if err != nil {
		status := "failed"
		if ctx.Err() != nil {
			status = "cancelled"
		}
		e.metrics.ObserveRun(status, elapsed)
		e.audit.TryEmit(ctx, audit.Event{Action: audit.ActionRunFailed, RunID: summary.RunID, Detail: err.Error()})
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "matching run failed",
				"run_id", summary.RunID,
				"status", status,
				"error", err,
			)
		}
		return nil, err
	}

	e.metrics.ObserveRun("completed", elapsed)
	e.audit.TryEmit(ctx, audit.Event{Action: audit.ActionRunCompleted, RunID: summary.RunID})
	if e.logger != nil {
		e.logger.InfoContext(ctx, "matching run completed",
			"run_id", summary.RunID,
			"records", summary.Records,
			"buckets", summary.Buckets,
			"comparisons", summary.Comparisons,
			"written", summary.Written,
			"flagged", summary.Flagged,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return summary, nil
}

func (e *Engine) run(ctx context.Context, src Source, summary *RunSummary) error {
	var records []identity.NormalizedIdentity
	err := src.Each(ctx, func(p identity.PatientIdentity) error {
		records = append(records, e.norm.Normalize(p))
		return nil
	})
	if err != nil {
		return err
	}
	summary.Records = len(records)

	part := e.blocker.Partition(records)
	if len(part.Overflow) > 0 {
		if err := e.flagOverflow(ctx, summary.RunID, part.Overflow); err != nil {
			return err
		}
		summary.Flagged = len(part.Overflow)
		e.metrics.AddFlagged(len(part.Overflow))
	}

	// Buckets are disjoint within a pass, but a pair can reappear across
	// passes; the claim set makes sure each canonical pair is scored and
	// committed once per run.
	claims := newPairClaims()
	var mu sync.Mutex // guards summary counters below

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for _, pass := range part.Passes {
		for _, bucket := range pass.Buckets {
			summary.Buckets++
			e.metrics.ObserveBucket(len(bucket.Records))
			g.Go(func() error {
				comparisons, candidates, err := e.scoreBucket(gctx, summary.RunID, bucket, claims)
				if err != nil {
					return err
				}

				result, err := e.store.CommitBucket(gctx, candidates, e.cfg.RerunPolicy)
				if err != nil {
					return err
				}

				mu.Lock()
				summary.Comparisons += comparisons
				summary.Written += result.Inserted + result.Superseded
				summary.Skipped += result.Skipped
				summary.Superseded += result.Superseded
				for _, c := range candidates {
					summary.Candidates[c.Confidence]++
				}
				mu.Unlock()

				e.metrics.AddComparisons(comparisons)
				for _, c := range candidates {
					e.metrics.IncCandidate(string(c.Confidence))
				}
				return nil
			})
		}
	}

	return g.Wait()
}

// scoreBucket compares every unclaimed pair within one bucket.
func (e *Engine) scoreBucket(ctx context.Context, runID uuid.UUID, bucket match.Bucket, claims *pairClaims) (int, []*ledger.MatchCandidate, error) {
	var comparisons int
	var candidates []*ledger.MatchCandidate

	now := time.Now()
	for i := 0; i < len(bucket.Records); i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		for j := i + 1; j < len(bucket.Records); j++ {
			a, b := bucket.Records[i], bucket.Records[j]
			pair, err := domain.NewPairKey(a.ID, b.ID)
			if err != nil {
				// Same record surfaced twice by the source; nothing to compare.
				continue
			}
			if !claims.claim(pair) {
				continue
			}

			results := match.CompareAll(a, b)
			score, level := e.scorer.Score(results)
			comparisons++

			if !e.scorer.Reportable(score) {
				continue
			}
			candidates = append(candidates, ledger.NewCandidate(pair, runID, results, score, level, now))
		}
	}
	return comparisons, candidates, nil
}

func (e *Engine) flagOverflow(ctx context.Context, runID uuid.UUID, ids []domain.PatientID) error {
	now := time.Now()
	flags := make([]review.Flag, 0, len(ids))
	for _, id := range ids {
		flags = append(flags, review.Flag{RecordID: id, Reason: review.ReasonCatchAllOverflow, FlaggedAt: now})
	}
	if err := e.reviews.Push(ctx, flags); err != nil {
		return err
	}
	e.audit.TryEmit(ctx, audit.Event{
		Action: audit.ActionRecordsFlagged,
		RunID:  runID,
		Detail: review.ReasonCatchAllOverflow,
	})
	if e.logger != nil {
		e.logger.WarnContext(ctx, "records flagged for manual review",
			"run_id", runID,
			"count", len(ids),
			"reason", review.ReasonCatchAllOverflow,
		)
	}
	return nil
}

// pairClaims is the per-run set of canonical pairs already scored.
type pairClaims struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newPairClaims() *pairClaims {
	return &pairClaims{seen: make(map[string]struct{})}
}

// claim returns true exactly once per canonical pair.
func (c *pairClaims) claim(pair domain.PairKey) bool {
	key := pair.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	return true
}
