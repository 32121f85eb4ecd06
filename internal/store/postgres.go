package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/db"
	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_audit":        `INSERT INTO audits (id, entity_id, status, platforms, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_audit_status": `UPDATE audits SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_audit":           `SELECT id, entity_id, status, platforms, total_tokens, total_cost, error, created_at, updated_at FROM audits WHERE id = $1`,
	"update_query_status": `UPDATE query_records SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_query":      `UPDATE query_records SET response_text = $1, citations = $2, status = $3, input_tokens = $4, output_tokens = $5, cost_usd = $6, updated_at = $7 WHERE id = $8`,
	"list_queries":        `SELECT id, audit_id, platform, query_text, response_text, citations, status, input_tokens, output_tokens, cost_usd, created_at, updated_at FROM query_records WHERE audit_id = $1 ORDER BY created_at ASC, id ASC`,
	"save_analytics":      `INSERT INTO analytics_results (audit_id, result, table_version, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (audit_id) DO UPDATE SET result = $2, table_version = $3, created_at = $4`,
	"get_analytics":       `SELECT result FROM analytics_results WHERE audit_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	industry   TEXT NOT NULL DEFAULT '',
	websites   JSONB,
	aliases    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_kind_name ON entities(kind, name);

CREATE TABLE IF NOT EXISTS audits (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	entity_id    TEXT NOT NULL REFERENCES entities(id),
	status       TEXT NOT NULL DEFAULT 'queued',
	platforms    JSONB NOT NULL,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	total_cost   DOUBLE PRECISION NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audits_entity_id ON audits(entity_id);
CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);

CREATE TABLE IF NOT EXISTS query_records (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	audit_id      TEXT NOT NULL REFERENCES audits(id),
	platform      TEXT NOT NULL,
	query_text    TEXT NOT NULL,
	response_text TEXT,
	citations     JSONB,
	status        TEXT NOT NULL DEFAULT 'pending',
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_query_records_audit_id ON query_records(audit_id);
CREATE INDEX IF NOT EXISTS idx_query_records_status ON query_records(status);
CREATE INDEX IF NOT EXISTS idx_query_records_platform ON query_records(audit_id, platform);

CREATE TABLE IF NOT EXISTS analytics_results (
	audit_id      TEXT PRIMARY KEY REFERENCES audits(id),
	result        JSONB NOT NULL,
	table_version TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	record         JSONB NOT NULL,
	platform       TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dlq_error_type ON dead_letter_queue(error_type);
CREATE INDEX IF NOT EXISTS idx_dlq_platform ON dead_letter_queue(platform);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateEntity(ctx context.Context, entity model.Entity) (*model.Entity, error) {
	if !entity.Kind.Valid() {
		return nil, eris.Errorf("postgres: invalid entity kind: %s", entity.Kind)
	}

	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	websitesJSON, err := json.Marshal(entity.Websites)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal websites")
	}
	aliasesJSON, err := json.Marshal(entity.Aliases)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal aliases")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO entities (id, kind, name, industry, websites, aliases, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entity.ID, string(entity.Kind), entity.Name, entity.Industry,
		websitesJSON, aliasesJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert entity %s", entity.Name)
	}
	return &entity, nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	var e model.Entity
	var websitesJSON, aliasesJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, name, industry, websites, aliases, created_at, updated_at FROM entities WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Kind, &e.Name, &e.Industry, &websitesJSON, &aliasesJSON, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "entity %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get entity %s", id)
	}

	if len(websitesJSON) > 0 {
		if err := json.Unmarshal(websitesJSON, &e.Websites); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal websites")
		}
	}
	if len(aliasesJSON) > 0 {
		if err := json.Unmarshal(aliasesJSON, &e.Aliases); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal aliases")
		}
	}
	return &e, nil
}

func (s *PostgresStore) ListEntities(ctx context.Context, kind model.EntityKind, limit, offset int) ([]model.Entity, error) {
	query := `SELECT id, kind, name, industry, websites, aliases, created_at, updated_at FROM entities WHERE true`
	args := []any{}
	argIdx := 1

	if kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(kind))
		argIdx++
	}
	query += ` ORDER BY name ASC`

	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entities")
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		var e model.Entity
		var websitesJSON, aliasesJSON []byte

		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.Industry, &websitesJSON, &aliasesJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entity")
		}
		if len(websitesJSON) > 0 {
			if err := json.Unmarshal(websitesJSON, &e.Websites); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal websites")
			}
		}
		if len(aliasesJSON) > 0 {
			if err := json.Unmarshal(aliasesJSON, &e.Aliases); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal aliases")
			}
		}
		entities = append(entities, e)
	}
	return entities, eris.Wrap(rows.Err(), "postgres: list entities iterate")
}

// entityColumns is the column order used for bulk entity import.
var entityColumns = []string{"id", "kind", "name", "industry", "websites", "aliases", "created_at", "updated_at"}

// ImportEntities upserts entities keyed on (kind, name), assigning IDs in
// place when unset. Existing rows keep their original id and created_at.
func (s *PostgresStore) ImportEntities(ctx context.Context, entities []model.Entity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(entities))
	for i := range entities {
		if !entities[i].Kind.Valid() {
			return 0, eris.Errorf("postgres: invalid entity kind: %s", entities[i].Kind)
		}
		if entities[i].ID == "" {
			entities[i].ID = uuid.New().String()
		}
		websitesJSON, err := json.Marshal(entities[i].Websites)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal websites")
		}
		aliasesJSON, err := json.Marshal(entities[i].Aliases)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal aliases")
		}
		rows = append(rows, []any{
			entities[i].ID, string(entities[i].Kind), entities[i].Name, entities[i].Industry,
			websitesJSON, aliasesJSON, now, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "entities",
		Columns:      entityColumns,
		ConflictKeys: []string{"kind", "name"},
		UpdateCols:   []string{"industry", "websites", "aliases", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import entities")
	}
	return int(n), nil
}

func (s *PostgresStore) CreateAudit(ctx context.Context, entityID string, platforms []string) (*model.Audit, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	platformsJSON, err := json.Marshal(platforms)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal platforms")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audits (id, entity_id, status, platforms, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, entityID, string(model.AuditStatusQueued), platformsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert audit for entity %s", entityID)
	}

	return &model.Audit{
		ID:        id,
		EntityID:  entityID,
		Status:    model.AuditStatusQueued,
		Platforms: platforms,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update audit status %s", auditID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "audit %s", auditID)
	}
	return nil
}

func (s *PostgresStore) CompleteAudit(ctx context.Context, auditID string, totalTokens int, totalCost float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, total_tokens = $2, total_cost = $3, updated_at = $4 WHERE id = $5`,
		string(model.AuditStatusComplete), totalTokens, totalCost, time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete audit %s", auditID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "audit %s", auditID)
	}
	return nil
}

func (s *PostgresStore) FailAudit(ctx context.Context, auditID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.AuditStatusFailed), reason, time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail audit %s", auditID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "audit %s", auditID)
	}
	return nil
}

func (s *PostgresStore) GetAudit(ctx context.Context, auditID string) (*model.Audit, error) {
	var a model.Audit
	var platformsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, entity_id, status, platforms, total_tokens, total_cost, error, created_at, updated_at FROM audits WHERE id = $1`,
		auditID,
	).Scan(&a.ID, &a.EntityID, &a.Status, &platformsJSON, &a.TotalTokens, &a.TotalCost, &a.Error, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "audit %s", auditID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get audit %s", auditID)
	}

	if err := json.Unmarshal(platformsJSON, &a.Platforms); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal platforms")
	}
	return &a, nil
}

func (s *PostgresStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error) {
	query := `SELECT id, entity_id, status, platforms, total_tokens, total_cost, error, created_at, updated_at FROM audits WHERE true`
	args := []any{}
	argIdx := 1

	if filter.EntityID != "" {
		query += fmt.Sprintf(` AND entity_id = $%d`, argIdx)
		args = append(args, filter.EntityID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audits")
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		var a model.Audit
		var platformsJSON []byte

		if err := rows.Scan(&a.ID, &a.EntityID, &a.Status, &platformsJSON, &a.TotalTokens, &a.TotalCost, &a.Error, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		if err := json.Unmarshal(platformsJSON, &a.Platforms); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal platforms")
		}
		audits = append(audits, a)
	}
	return audits, eris.Wrap(rows.Err(), "postgres: list audits iterate")
}

// queryRecordColumns is the column order used for the bulk COPY insert.
var queryRecordColumns = []string{
	"id", "audit_id", "platform", "query_text", "response_text", "citations",
	"status", "input_tokens", "output_tokens", "cost_usd", "created_at", "updated_at",
}

// CreateQueryRecords bulk-inserts the given records via COPY, assigning IDs,
// pending status, and timestamps in place when unset.
func (s *PostgresStore) CreateQueryRecords(ctx context.Context, records []model.QueryRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.New().String()
		}
		if records[i].Status == "" {
			records[i].Status = model.QueryStatusPending
		}
		records[i].CreatedAt = now
		records[i].UpdatedAt = now

		var citations []byte
		if len(records[i].Citations) > 0 {
			citations = records[i].Citations
		}
		rows = append(rows, []any{
			records[i].ID, records[i].AuditID, records[i].Platform, records[i].QueryText,
			records[i].ResponseText, citations, string(records[i].Status),
			records[i].InputTokens, records[i].OutputTokens, records[i].CostUSD, now, now,
		})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "query_records", queryRecordColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: bulk insert query records")
	}
	return nil
}

func (s *PostgresStore) UpdateQueryStatus(ctx context.Context, queryID string, status model.QueryStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE query_records SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), queryID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update query status %s", queryID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "query %s", queryID)
	}
	return nil
}

func (s *PostgresStore) CompleteQuery(ctx context.Context, record *model.QueryRecord) error {
	now := time.Now().UTC()
	record.Status = model.QueryStatusCompleted
	record.UpdatedAt = now

	var citations []byte
	if len(record.Citations) > 0 {
		citations = record.Citations
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE query_records SET response_text = $1, citations = $2, status = $3, input_tokens = $4, output_tokens = $5, cost_usd = $6, updated_at = $7 WHERE id = $8`,
		record.ResponseText, citations, string(record.Status),
		record.InputTokens, record.OutputTokens, record.CostUSD, now, record.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete query %s", record.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "query %s", record.ID)
	}
	return nil
}

func (s *PostgresStore) ListQueryRecords(ctx context.Context, auditID string) ([]model.QueryRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, audit_id, platform, query_text, response_text, citations, status, input_tokens, output_tokens, cost_usd, created_at, updated_at FROM query_records WHERE audit_id = $1 ORDER BY created_at ASC, id ASC`,
		auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list query records")
	}
	defer rows.Close()

	var records []model.QueryRecord
	for rows.Next() {
		var r model.QueryRecord
		var citations []byte

		if err := rows.Scan(&r.ID, &r.AuditID, &r.Platform, &r.QueryText, &r.ResponseText, &citations,
			&r.Status, &r.InputTokens, &r.OutputTokens, &r.CostUSD, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan query record")
		}
		if len(citations) > 0 {
			r.Citations = json.RawMessage(citations)
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list query records iterate")
}

func (s *PostgresStore) SaveAnalytics(ctx context.Context, auditID string, result *analytics.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analytics result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analytics_results (audit_id, result, table_version, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (audit_id) DO UPDATE SET result = $2, table_version = $3, created_at = $4`,
		auditID, resultJSON, result.TableVersion, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save analytics for audit %s", auditID)
}

func (s *PostgresStore) GetAnalytics(ctx context.Context, auditID string) (*analytics.Result, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM analytics_results WHERE audit_id = $1`,
		auditID,
	).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get analytics")
	}

	var result analytics.Result
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analytics result")
	}
	return &result, nil
}

// Dead letter queue methods

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	recordJSON, err := json.Marshal(entry.Record)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dlq record")
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Platform == "" {
		entry.Platform = entry.Record.Platform
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO dead_letter_queue
		 (id, record, platform, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   error = $4, error_type = $5, retry_count = $6,
		   next_retry_at = $8, last_failed_at = $10`,
		entry.ID, recordJSON, entry.Platform, entry.Error, entry.ErrorType,
		entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue dlq")
}

func (s *PostgresStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, record, platform, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= now() AND retry_count < max_retries`
	args := []any{}
	argIdx := 1

	if filter.ErrorType != "" {
		query += fmt.Sprintf(` AND error_type = $%d`, argIdx)
		args = append(args, filter.ErrorType)
		argIdx++
	}
	if filter.Platform != "" {
		query += fmt.Sprintf(` AND platform = $%d`, argIdx)
		args = append(args, filter.Platform)
		argIdx++
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var recordJSON []byte
		if err := rows.Scan(&e.ID, &recordJSON, &e.Platform, &e.Error, &e.ErrorType,
			&e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		if err := json.Unmarshal(recordJSON, &e.Record); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal dlq record")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: dequeue dlq iterate")
}

func (s *PostgresStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = $1, error = $2, last_failed_at = now()
		 WHERE id = $3`,
		nextRetryAt, lastErr, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment dlq retry %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "dlq entry %s", id)
	}
	return nil
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_queue WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove dlq")
}

func (s *PostgresStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count dlq")
}
