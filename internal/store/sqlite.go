package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	industry   TEXT NOT NULL DEFAULT '',
	websites   TEXT,
	aliases    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audits (
	id           TEXT PRIMARY KEY,
	entity_id    TEXT NOT NULL REFERENCES entities(id),
	status       TEXT NOT NULL DEFAULT 'queued',
	platforms    TEXT NOT NULL,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	total_cost   REAL NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS query_records (
	id            TEXT PRIMARY KEY,
	audit_id      TEXT NOT NULL REFERENCES audits(id),
	platform      TEXT NOT NULL,
	query_text    TEXT NOT NULL,
	response_text TEXT,
	citations     TEXT,
	status        TEXT NOT NULL DEFAULT 'pending',
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd      REAL NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analytics_results (
	audit_id      TEXT PRIMARY KEY REFERENCES audits(id),
	result        TEXT NOT NULL,
	table_version TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	record         TEXT NOT NULL,
	platform       TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_kind_name ON entities(kind, name);
CREATE INDEX IF NOT EXISTS idx_audits_entity_id ON audits(entity_id);
CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
CREATE INDEX IF NOT EXISTS idx_query_records_audit_id ON query_records(audit_id);
CREATE INDEX IF NOT EXISTS idx_query_records_status ON query_records(status);
CREATE INDEX IF NOT EXISTS idx_query_records_platform ON query_records(audit_id, platform);
CREATE INDEX IF NOT EXISTS idx_dlq_error_type ON dead_letter_queue(error_type);
CREATE INDEX IF NOT EXISTS idx_dlq_platform ON dead_letter_queue(platform);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateEntity(ctx context.Context, entity model.Entity) (*model.Entity, error) {
	if !entity.Kind.Valid() {
		return nil, eris.Errorf("sqlite: invalid entity kind: %s", entity.Kind)
	}

	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	websitesJSON, err := json.Marshal(entity.Websites)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal websites")
	}
	aliasesJSON, err := json.Marshal(entity.Aliases)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal aliases")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, kind, name, industry, websites, aliases, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID, string(entity.Kind), entity.Name, entity.Industry,
		string(websitesJSON), string(aliasesJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert entity %s", entity.Name)
	}
	return &entity, nil
}

func (s *SQLiteStore) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, industry, websites, aliases, created_at, updated_at FROM entities WHERE id = ?`,
		id,
	)
	return scanEntity(row)
}

func (s *SQLiteStore) ListEntities(ctx context.Context, kind model.EntityKind, limit, offset int) ([]model.Entity, error) {
	query := `SELECT id, kind, name, industry, websites, aliases, created_at, updated_at FROM entities WHERE 1=1`
	var args []any

	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name ASC`

	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if offset > 0 {
		query += ` OFFSET ?`
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	return entities, eris.Wrap(rows.Err(), "sqlite: list entities iterate")
}

// ImportEntities upserts entities keyed on (kind, name), assigning IDs in
// place when unset. Existing rows keep their original id and created_at.
func (s *SQLiteStore) ImportEntities(ctx context.Context, entities []model.Entity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range entities {
		if !entities[i].Kind.Valid() {
			return 0, eris.Errorf("sqlite: invalid entity kind: %s", entities[i].Kind)
		}
		if entities[i].ID == "" {
			entities[i].ID = uuid.New().String()
		}
		websitesJSON, err := json.Marshal(entities[i].Websites)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal websites")
		}
		aliasesJSON, err := json.Marshal(entities[i].Aliases)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal aliases")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entities (id, kind, name, industry, websites, aliases, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(kind, name) DO UPDATE SET
			   industry = excluded.industry, websites = excluded.websites,
			   aliases = excluded.aliases, updated_at = excluded.updated_at`,
			entities[i].ID, string(entities[i].Kind), entities[i].Name, entities[i].Industry,
			string(websitesJSON), string(aliasesJSON), now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import entity %s", entities[i].Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return len(entities), nil
}

func (s *SQLiteStore) CreateAudit(ctx context.Context, entityID string, platforms []string) (*model.Audit, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	platformsJSON, err := json.Marshal(platforms)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal platforms")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audits (id, entity_id, status, platforms, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, entityID, string(model.AuditStatusQueued), string(platformsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert audit for entity %s", entityID)
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

func (s *SQLiteStore) UpdateAuditStatus(ctx context.Context, auditID string, status model.AuditStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update audit status %s", auditID)
	}
	return checkRowsAffected(res, "audit", auditID)
}

func (s *SQLiteStore) CompleteAudit(ctx context.Context, auditID string, totalTokens int, totalCost float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, total_tokens = ?, total_cost = ?, updated_at = ? WHERE id = ?`,
		string(model.AuditStatusComplete), totalTokens, totalCost, time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete audit %s", auditID)
	}
	return checkRowsAffected(res, "audit", auditID)
}

func (s *SQLiteStore) FailAudit(ctx context.Context, auditID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.AuditStatusFailed), reason, time.Now().UTC(), auditID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail audit %s", auditID)
	}
	return checkRowsAffected(res, "audit", auditID)
}

func (s *SQLiteStore) GetAudit(ctx context.Context, auditID string) (*model.Audit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, entity_id, status, platforms, total_tokens, total_cost, error, created_at, updated_at
		 FROM audits WHERE id = ?`,
		auditID,
	)
	return scanAudit(row)
}

func (s *SQLiteStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error) {
	query := `SELECT id, entity_id, status, platforms, total_tokens, total_cost, error, created_at, updated_at
	          FROM audits WHERE 1=1`
	var args []any

	if filter.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, filter.EntityID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audits")
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "sqlite: list audits iterate")
}

// CreateQueryRecords inserts the given records in one transaction, assigning
// IDs, pending status, and timestamps in place when unset.
func (s *SQLiteStore) CreateQueryRecords(ctx context.Context, records []model.QueryRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert query records")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.New().String()
		}
		if records[i].Status == "" {
			records[i].Status = model.QueryStatusPending
		}
		records[i].CreatedAt = now
		records[i].UpdatedAt = now

		var citations any
		if len(records[i].Citations) > 0 {
			citations = string(records[i].Citations)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO query_records
			 (id, audit_id, platform, query_text, response_text, citations, status, input_tokens, output_tokens, cost_usd, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			records[i].ID, records[i].AuditID, records[i].Platform, records[i].QueryText,
			records[i].ResponseText, citations, string(records[i].Status),
			records[i].InputTokens, records[i].OutputTokens, records[i].CostUSD, now, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert query record for audit %s", records[i].AuditID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit query records")
}

func (s *SQLiteStore) UpdateQueryStatus(ctx context.Context, queryID string, status model.QueryStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE query_records SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), queryID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update query status %s", queryID)
	}
	return checkRowsAffected(res, "query", queryID)
}

func (s *SQLiteStore) CompleteQuery(ctx context.Context, record *model.QueryRecord) error {
	now := time.Now().UTC()
	record.Status = model.QueryStatusCompleted
	record.UpdatedAt = now

	var citations any
	if len(record.Citations) > 0 {
		citations = string(record.Citations)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE query_records
		 SET response_text = ?, citations = ?, status = ?, input_tokens = ?, output_tokens = ?, cost_usd = ?, updated_at = ?
		 WHERE id = ?`,
		record.ResponseText, citations, string(record.Status),
		record.InputTokens, record.OutputTokens, record.CostUSD, now, record.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete query %s", record.ID)
	}
	return checkRowsAffected(res, "query", record.ID)
}

func (s *SQLiteStore) ListQueryRecords(ctx context.Context, auditID string) ([]model.QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, audit_id, platform, query_text, response_text, citations, status, input_tokens, output_tokens, cost_usd, created_at, updated_at
		 FROM query_records WHERE audit_id = ? ORDER BY created_at ASC, id ASC`,
		auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list query records")
	}
	defer rows.Close()

	var records []model.QueryRecord
	for rows.Next() {
		r, err := scanQueryRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list query records iterate")
}

func (s *SQLiteStore) SaveAnalytics(ctx context.Context, auditID string, result *analytics.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analytics result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analytics_results (audit_id, result, table_version, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(audit_id) DO UPDATE SET
		   result = excluded.result, table_version = excluded.table_version, created_at = excluded.created_at`,
		auditID, string(resultJSON), result.TableVersion, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save analytics for audit %s", auditID)
}

func (s *SQLiteStore) GetAnalytics(ctx context.Context, auditID string) (*analytics.Result, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM analytics_results WHERE audit_id = ?`,
		auditID,
	).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get analytics")
	}

	var result analytics.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analytics result")
	}
	return &result, nil
}

// Dead letter queue methods

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	recordJSON, err := json.Marshal(entry.Record)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dlq record")
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Platform == "" {
		entry.Platform = entry.Record.Platform
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letter_queue
		 (id, record, platform, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type, retry_count = excluded.retry_count,
		   next_retry_at = excluded.next_retry_at, last_failed_at = excluded.last_failed_at`,
		entry.ID, string(recordJSON), entry.Platform, entry.Error, entry.ErrorType,
		entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, record, platform, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= datetime('now') AND retry_count < max_retries`
	var args []any

	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	if filter.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, filter.Platform)
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var recordJSON string
		if err := rows.Scan(&e.ID, &recordJSON, &e.Platform, &e.Error, &e.ErrorType,
			&e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		if err := json.Unmarshal([]byte(recordJSON), &e.Record); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal dlq record")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: dequeue dlq iterate")
}

func (s *SQLiteStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = ?, error = ?, last_failed_at = ?
		 WHERE id = ?`,
		nextRetryAt, lastErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment dlq retry %s", id)
	}
	return checkRowsAffected(res, "dlq_entry", id)
}

func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dlq")
}

func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dlq")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntity(row scannable) (*model.Entity, error) {
	var e model.Entity
	var websitesJSON, aliasesJSON sql.NullString

	err := row.Scan(&e.ID, &e.Kind, &e.Name, &e.Industry, &websitesJSON, &aliasesJSON, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "entity")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan entity")
	}

	if websitesJSON.Valid {
		if err := json.Unmarshal([]byte(websitesJSON.String), &e.Websites); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal websites")
		}
	}
	if aliasesJSON.Valid {
		if err := json.Unmarshal([]byte(aliasesJSON.String), &e.Aliases); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal aliases")
		}
	}
	return &e, nil
}

func scanAudit(row scannable) (*model.Audit, error) {
	var a model.Audit
	var platformsJSON string

	err := row.Scan(&a.ID, &a.EntityID, &a.Status, &platformsJSON, &a.TotalTokens, &a.TotalCost, &a.Error, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "audit")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan audit")
	}

	if err := json.Unmarshal([]byte(platformsJSON), &a.Platforms); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal platforms")
	}
	return &a, nil
}

func scanQueryRecord(row scannable) (*model.QueryRecord, error) {
	var r model.QueryRecord
	var responseText, citations sql.NullString

	err := row.Scan(&r.ID, &r.AuditID, &r.Platform, &r.QueryText, &responseText, &citations,
		&r.Status, &r.InputTokens, &r.OutputTokens, &r.CostUSD, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "query record")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan query record")
	}

	if responseText.Valid {
		text := responseText.String
		r.ResponseText = &text
	}
	if citations.Valid && citations.String != "" {
		r.Citations = json.RawMessage(citations.String)
	}
	return &r, nil
}
