// Package queue runs audits through Temporal. The workflow decomposes an
// audit into one activity per platform query so a worker crash mid-audit
// resumes where it left off instead of re-querying every vendor.
package queue

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/halosight/presence-cli/internal/model"
)

const (
	startTimeout = 1 * time.Minute
	// queryTimeout bounds one platform query including rate limiter waits
	// and the vendor client's internal retries.
	queryTimeout    = 5 * time.Minute
	finalizeTimeout = 2 * time.Minute
)

// AuditWorkflowInput identifies the audit to execute.
type AuditWorkflowInput struct {
	AuditID string `json:"audit_id"`
}

// AuditWorkflowResult summarizes the executed audit.
type AuditWorkflowResult struct {
	AuditID   string `json:"audit_id"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// AuditWorkflow executes one audit: start it, fan out every platform
// query as its own activity, then finalize with the analytics snapshot.
// Query activities run a single attempt because the vendor clients retry
// transient errors themselves and terminal failures land in the dead
// letter queue for manual replay.
func AuditWorkflow(ctx workflow.Context, input AuditWorkflowInput) (AuditWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting audit workflow", "audit_id", input.AuditID)

	var a *Activities
	result := AuditWorkflowResult{AuditID: input.AuditID}

	startCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: startTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var records []model.QueryRecord
	if err := workflow.ExecuteActivity(startCtx, a.StartAudit, input.AuditID).Get(startCtx, &records); err != nil {
		logger.Error("audit start failed", "audit_id", input.AuditID, "error", err)
		return result, err
	}

	queryCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: queryTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	futures := make([]workflow.Future, 0, len(records))
	for _, rec := range records {
		futures = append(futures, workflow.ExecuteActivity(queryCtx, a.ExecuteAuditQuery, rec))
	}
	for _, f := range futures {
		if err := f.Get(queryCtx, nil); err != nil {
			result.Failed++
			continue // recorded on the query; the audit keeps going
		}
		result.Succeeded++
	}

	finalizeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: finalizeTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	if err := workflow.ExecuteActivity(finalizeCtx, a.FinalizeAudit, input.AuditID).Get(finalizeCtx, nil); err != nil {
		logger.Error("audit finalize failed", "audit_id", input.AuditID, "error", err)
		return result, err
	}

	logger.Info("audit workflow complete",
		"audit_id", input.AuditID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}
