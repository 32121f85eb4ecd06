// Package audit turns a queued audit into executed platform queries and a
// persisted analytics snapshot. The executor fans one question set out
// across every platform the audit names, records each response as a query
// record, and finishes by scoring whatever completed.
package audit

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/config"
	"github.com/halosight/presence-cli/internal/cost"
	"github.com/halosight/presence-cli/internal/metrics"
	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/resilience"
	"github.com/halosight/presence-cli/internal/store"
	"github.com/halosight/presence-cli/pkg/platform"
)

const (
	// defaultConcurrency bounds parallel platform calls when the config
	// leaves max_concurrent_queries unset.
	defaultConcurrency = 5

	// dlqMaxRetries and dlqRetryDelay shape dead letter entries for
	// failed queries; the retry command honors both.
	dlqMaxRetries = 3
	dlqRetryDelay = 5 * time.Minute
)

// Executor runs the platform queries for an audit and records everything
// the analytics engine needs.
type Executor struct {
	store    store.Store
	registry *platform.Registry
	calc     *cost.Calculator
	cfg      config.AuditConfig
	dlq      store.DLQStore
}

// Option configures an Executor.
type Option func(*Executor)

// WithDLQ routes failed queries to a dead letter queue for later retry.
func WithDLQ(dlq store.DLQStore) Option {
	return func(e *Executor) { e.dlq = dlq }
}

// NewExecutor creates an executor over the given store, runner registry,
// and cost calculator.
func NewExecutor(st store.Store, registry *platform.Registry, calc *cost.Calculator, cfg config.AuditConfig, opts ...Option) *Executor {
	e := &Executor{
		store:    st,
		registry: registry,
		calc:     calc,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes an audit end to end: start, fan out the platform queries,
// then analyze and record the outcome. Individual query failures don't
// stop the audit; it fails only when no query succeeds.
func (e *Executor) Run(ctx context.Context, auditID string) error {
	records, err := e.Start(ctx, auditID)
	if err != nil {
		return err
	}

	concurrency := e.cfg.MaxConcurrentQueries
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			if err := e.ExecuteQuery(gctx, rec); err != nil {
				failed.Add(1)
				return nil // a failed query doesn't abort the audit
			}
			succeeded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrapf(err, "audit: run queries for audit %s", auditID)
	}

	if err := ctx.Err(); err != nil {
		// The caller's context is gone; record the terminal status on a
		// fresh one so the audit doesn't stay running forever.
		fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if ferr := e.store.FailAudit(fctx, auditID, "audit cancelled"); ferr != nil {
			zap.L().Warn("failed to record audit cancellation",
				zap.String("audit_id", auditID), zap.Error(ferr))
		}
		return eris.Wrapf(err, "audit: audit %s cancelled", auditID)
	}

	zap.L().Info("platform queries finished",
		zap.String("audit_id", auditID),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()))

	return e.Finalize(ctx, auditID)
}

// Start transitions an audit to running and creates one pending query
// record per platform/question pair. An audit that already has records
// resumes instead: the existing records come back with completed ones
// filtered out, so an interrupted run doesn't redo finished work or
// insert duplicates.
func (e *Executor) Start(ctx context.Context, auditID string) ([]model.QueryRecord, error) {
	aud, err := e.store.GetAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}
	switch aud.Status {
	case model.AuditStatusQueued, model.AuditStatusRunning:
	default:
		return nil, eris.Errorf("audit: audit %s is already %s", auditID, aud.Status)
	}

	existing, err := e.store.ListQueryRecords(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		if aud.Status != model.AuditStatusRunning {
			if err := e.store.UpdateAuditStatus(ctx, auditID, model.AuditStatusRunning); err != nil {
				return nil, err
			}
		}
		var remaining []model.QueryRecord
		for _, rec := range existing {
			if rec.Status != model.QueryStatusCompleted {
				remaining = append(remaining, rec)
			}
		}
		zap.L().Info("audit resumed",
			zap.String("audit_id", auditID),
			zap.Int("remaining", len(remaining)),
			zap.Int("records", len(existing)))
		return remaining, nil
	}

	entity, err := e.store.GetEntity(ctx, aud.EntityID)
	if err != nil {
		return nil, err
	}

	queries := GenerateQueries(*entity)
	records := make([]model.QueryRecord, 0, len(aud.Platforms)*len(queries))
	for _, p := range aud.Platforms {
		for _, q := range queries {
			records = append(records, model.QueryRecord{
				AuditID:   auditID,
				Platform:  p,
				QueryText: q,
			})
		}
	}

	if err := e.store.CreateQueryRecords(ctx, records); err != nil {
		return nil, err
	}
	if err := e.store.UpdateAuditStatus(ctx, auditID, model.AuditStatusRunning); err != nil {
		return nil, err
	}

	zap.L().Info("audit started",
		zap.String("audit_id", auditID),
		zap.String("entity", entity.Name),
		zap.Int("platforms", len(aud.Platforms)),
		zap.Int("queries", len(records)))
	return records, nil
}

// ExecuteQuery runs one query against its platform and records the
// outcome on the record. Failures are written to the store (and the dead
// letter queue when configured) before the error is returned, so callers
// only decide whether a failure stops anything.
func (e *Executor) ExecuteQuery(ctx context.Context, rec *model.QueryRecord) error {
	log := zap.L().With(
		zap.String("audit_id", rec.AuditID),
		zap.String("query_id", rec.ID),
		zap.String("platform", rec.Platform))

	runner, err := e.registry.Resolve(rec.Platform)
	if err != nil {
		e.recordFailure(ctx, rec, err)
		log.Warn("no runner for platform", zap.Error(err))
		return err
	}

	if err := e.store.UpdateQueryStatus(ctx, rec.ID, model.QueryStatusRunning); err != nil {
		return err
	}

	qctx := ctx
	if e.cfg.QueryTimeoutSecs > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.QueryTimeoutSecs)*time.Second)
		defer cancel()
	}

	base := model.BasePlatform(rec.Platform)
	started := time.Now()
	answer, err := runner.Run(qctx, platform.Prompt{
		Text:   rec.QueryText,
		Search: model.IsSearchVariant(rec.Platform),
	})
	metrics.QueryDuration.WithLabelValues(base).Observe(time.Since(started).Seconds())
	if err != nil {
		e.recordFailure(ctx, rec, err)
		log.Warn("platform query failed",
			zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return err
	}

	rec.ResponseText = &answer.Text
	rec.InputTokens = answer.InputTokens
	rec.OutputTokens = answer.OutputTokens
	rec.CostUSD = e.calc.Query(rec.Platform, answer.InputTokens, answer.OutputTokens)
	if len(answer.Citations) > 0 {
		data, merr := json.Marshal(answer.Citations)
		if merr != nil {
			return eris.Wrapf(merr, "audit: marshal citations for query %s", rec.ID)
		}
		rec.Citations = data
	}

	if err := e.store.CompleteQuery(ctx, rec); err != nil {
		return err
	}

	metrics.QueryTotal.WithLabelValues(base, "completed").Inc()
	metrics.TokensUsed.WithLabelValues(base, "input").Add(float64(answer.InputTokens))
	metrics.TokensUsed.WithLabelValues(base, "output").Add(float64(answer.OutputTokens))
	metrics.QueryCost.WithLabelValues(base).Add(rec.CostUSD)

	log.Debug("platform query completed",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("input_tokens", answer.InputTokens),
		zap.Int("output_tokens", answer.OutputTokens),
		zap.Int("citations", len(answer.Citations)))
	return nil
}

// Finalize computes and persists the analytics snapshot for an audit and
// moves it to its terminal status. Partial results still produce a
// snapshot; the audit fails only when nothing completed.
func (e *Executor) Finalize(ctx context.Context, auditID string) error {
	aud, err := e.store.GetAudit(ctx, auditID)
	if err != nil {
		return err
	}
	entity, err := e.store.GetEntity(ctx, aud.EntityID)
	if err != nil {
		return err
	}
	records, err := e.store.ListQueryRecords(ctx, auditID)
	if err != nil {
		return err
	}

	var completed, totalTokens int
	var totalCost float64
	for i := range records {
		if records[i].Status != model.QueryStatusCompleted {
			continue
		}
		completed++
		totalTokens += records[i].InputTokens + records[i].OutputTokens
		totalCost += records[i].CostUSD
	}

	if completed == 0 {
		if err := e.store.FailAudit(ctx, auditID, "all platform queries failed"); err != nil {
			return err
		}
		metrics.AuditsTotal.WithLabelValues(string(model.AuditStatusFailed)).Inc()
		return eris.Errorf("audit: all platform queries failed for audit %s", auditID)
	}

	result := analytics.Analyze(records, entity.Kind, entity.Industry)
	if err := e.store.SaveAnalytics(ctx, auditID, result); err != nil {
		return err
	}
	if err := e.store.CompleteAudit(ctx, auditID, totalTokens, totalCost); err != nil {
		return err
	}
	metrics.AuditsTotal.WithLabelValues(string(model.AuditStatusComplete)).Inc()

	zap.L().Info("audit complete",
		zap.String("audit_id", auditID),
		zap.String("entity", entity.Name),
		zap.Int("completed", completed),
		zap.Int("records", len(records)),
		zap.Float64("overall_score", result.OverallScore),
		zap.Int("total_tokens", totalTokens),
		zap.Float64("total_cost_usd", totalCost))
	return nil
}

// recordFailure marks the record failed and, when a dead letter queue is
// configured, enqueues it keyed by record ID so repeated failures upsert
// instead of piling up.
func (e *Executor) recordFailure(ctx context.Context, rec *model.QueryRecord, cause error) {
	metrics.QueryTotal.WithLabelValues(model.BasePlatform(rec.Platform), "failed").Inc()
	if err := e.store.UpdateQueryStatus(ctx, rec.ID, model.QueryStatusFailed); err != nil {
		zap.L().Warn("failed to mark query failed",
			zap.String("query_id", rec.ID), zap.Error(err))
	}
	if e.dlq == nil {
		return
	}
	now := time.Now().UTC()
	entry := resilience.DLQEntry{
		ID:           rec.ID,
		Record:       *rec,
		Platform:     rec.Platform,
		Error:        cause.Error(),
		ErrorType:    resilience.ClassifyError(cause),
		MaxRetries:   dlqMaxRetries,
		NextRetryAt:  now.Add(dlqRetryDelay),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if err := e.dlq.EnqueueDLQ(ctx, entry); err != nil {
		zap.L().Warn("failed to enqueue dead letter entry",
			zap.String("query_id", rec.ID), zap.Error(err))
	}
}
