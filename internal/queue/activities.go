package queue

import (
	"context"

	"github.com/halosight/presence-cli/internal/audit"
	"github.com/halosight/presence-cli/internal/model"
)

// Activities exposes the audit executor's lifecycle steps as Temporal
// activities. All logic lives in the executor; these wrappers exist so
// the same code serves both the synchronous CLI path and the worker.
type Activities struct {
	exec *audit.Executor
}

// NewActivities wraps an executor for worker registration.
func NewActivities(exec *audit.Executor) *Activities {
	return &Activities{exec: exec}
}

// StartAudit marks the audit running and returns its pending query records.
func (a *Activities) StartAudit(ctx context.Context, auditID string) ([]model.QueryRecord, error) {
	return a.exec.Start(ctx, auditID)
}

// ExecuteAuditQuery runs one platform query and records the outcome.
func (a *Activities) ExecuteAuditQuery(ctx context.Context, rec model.QueryRecord) error {
	return a.exec.ExecuteQuery(ctx, &rec)
}

// FinalizeAudit analyzes completed records and closes out the audit.
func (a *Activities) FinalizeAudit(ctx context.Context, auditID string) error {
	return a.exec.Finalize(ctx, auditID)
}
