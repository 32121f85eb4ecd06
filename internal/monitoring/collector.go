package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Audit metrics (within lookback window).
	AuditTotal     int     `json:"audit_total"`
	AuditComplete  int     `json:"audit_complete"`
	AuditFailed    int     `json:"audit_failed"`
	AuditQueued    int     `json:"audit_queued"`
	AuditRunning   int     `json:"audit_running"`
	AuditFailRate  float64 `json:"audit_fail_rate"`
	AuditCostUSD   float64 `json:"audit_cost_usd"`
	AuditAvgTokens int     `json:"audit_avg_tokens"`

	// DLQ depth.
	DLQDepth int `json:"dlq_depth"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store and, when available, the
// dead letter queue.
type Collector struct {
	store store.Store
	dlq   store.DLQStore
}

// NewCollector creates a new metrics collector. dlq may be nil for
// store drivers without a dead letter queue.
func NewCollector(st store.Store, dlq store.DLQStore) *Collector {
	return &Collector{store: st, dlq: dlq}
}

// Collect gathers a snapshot of system metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	audits, err := c.store.ListAudits(ctx, store.AuditFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list audits")
	}

	snap.AuditTotal = len(audits)
	var totalCost float64
	var totalTokens int

	for _, a := range audits {
		switch a.Status {
		case model.AuditStatusComplete:
			snap.AuditComplete++
		case model.AuditStatusFailed:
			snap.AuditFailed++
		case model.AuditStatusQueued:
			snap.AuditQueued++
		case model.AuditStatusRunning:
			snap.AuditRunning++
		}
		totalCost += a.TotalCost
		totalTokens += a.TotalTokens
	}

	snap.AuditCostUSD = totalCost
	if snap.AuditTotal > 0 {
		snap.AuditAvgTokens = totalTokens / snap.AuditTotal
	}
	finished := snap.AuditComplete + snap.AuditFailed
	if finished > 0 {
		snap.AuditFailRate = float64(snap.AuditFailed) / float64(finished)
	}

	if c.dlq != nil {
		depth, err := c.dlq.CountDLQ(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: count dlq")
		}
		snap.DLQDepth = depth
	}

	return snap, nil
}
