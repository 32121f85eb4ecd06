package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/resilience"
)

// ErrNotFound reports that a requested row does not exist. Both store
// implementations wrap it, so callers can tell a missing record from a
// database failure with eris.Is.
var ErrNotFound = eris.New("not found")

// AuditFilter specifies criteria for listing audits.
type AuditFilter struct {
	EntityID     string            `json:"entity_id,omitempty"`
	Status       model.AuditStatus `json:"status,omitempty"`
	CreatedAfter time.Time         `json:"created_after,omitempty"`
	Limit        int               `json:"limit,omitempty"`
	Offset       int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for entities, audits, query
// records, and analytics results.
type Store interface {
	// Entities
	CreateEntity(ctx context.Context, entity model.Entity) (*model.Entity, error)
	GetEntity(ctx context.Context, id string) (*model.Entity, error)
	ListEntities(ctx context.Context, kind model.EntityKind, limit, offset int) ([]model.Entity, error)
	ImportEntities(ctx context.Context, entities []model.Entity) (int, error)

	// Audits
	CreateAudit(ctx context.Context, entityID string, platforms []string) (*model.Audit, error)
	UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error
	CompleteAudit(ctx context.Context, auditID string, totalTokens int, totalCost float64) error
	FailAudit(ctx context.Context, auditID string, reason string) error
	GetAudit(ctx context.Context, auditID string) (*model.Audit, error)
	ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error)

	// Query records
	CreateQueryRecords(ctx context.Context, records []model.QueryRecord) error
	UpdateQueryStatus(ctx context.Context, queryID string, status model.QueryStatus) error
	CompleteQuery(ctx context.Context, record *model.QueryRecord) error
	ListQueryRecords(ctx context.Context, auditID string) ([]model.QueryRecord, error)

	// Analytics results
	SaveAnalytics(ctx context.Context, auditID string, result *analytics.Result) error
	GetAnalytics(ctx context.Context, auditID string) (*analytics.Result, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// DLQStore holds the dead letter queue operations for failed platform
// queries. Both stores implement it; it is kept out of Store so callers
// that never retry don't depend on it.
type DLQStore interface {
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)
}
