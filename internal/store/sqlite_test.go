package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testEntity(name string) model.Entity {
	return model.Entity{
		Kind:     model.EntityKindCompany,
		Name:     name,
		Industry: "technology",
		Websites: []string{"https://" + name + ".example.com"},
		Aliases:  []string{name + " Inc"},
	}
}

// --- Entities ---

func TestSQLite_CreateEntity_And_GetEntity(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	fetched, err := st.GetEntity(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, model.EntityKindCompany, fetched.Kind)
	assert.Equal(t, "acme", fetched.Name)
	assert.Equal(t, "technology", fetched.Industry)
	assert.Equal(t, []string{"https://acme.example.com"}, fetched.Websites)
	assert.Equal(t, []string{"acme Inc"}, fetched.Aliases)
}

func TestSQLite_CreateEntity_InvalidKind(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.CreateEntity(context.Background(), model.Entity{Kind: "robot", Name: "R2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid entity kind")
}

func TestSQLite_GetEntity_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetEntity(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListEntities(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateEntity(ctx, testEntity("zenith"))
	require.NoError(t, err)
	_, err = st.CreateEntity(ctx, testEntity("apex"))
	require.NoError(t, err)
	_, err = st.CreateEntity(ctx, model.Entity{Kind: model.EntityKindPerson, Name: "Jordan Vale"})
	require.NoError(t, err)

	all, err := st.ListEntities(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Ordered by name ascending.
	assert.Equal(t, "Jordan Vale", all[0].Name)
	assert.Equal(t, "apex", all[1].Name)
	assert.Equal(t, "zenith", all[2].Name)

	people, err := st.ListEntities(ctx, model.EntityKindPerson, 10, 0)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Jordan Vale", people[0].Name)
}

func TestSQLite_ImportEntities_UpsertsByKindName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)

	updated := testEntity("acme")
	updated.Industry = "finance"
	fresh := testEntity("globex")

	n, err := st.ImportEntities(ctx, []model.Entity{updated, fresh})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The colliding entity keeps its original id but picks up the new industry.
	fetched, err := st.GetEntity(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "finance", fetched.Industry)

	all, err := st.ListEntities(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// --- Audits ---

func TestSQLite_CreateAudit_And_GetAudit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)

	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt", "claude"})
	require.NoError(t, err)
	assert.NotEmpty(t, audit.ID)
	assert.Equal(t, model.AuditStatusQueued, audit.Status)

	fetched, err := st.GetAudit(ctx, audit.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.ID, fetched.ID)
	assert.Equal(t, entity.ID, fetched.EntityID)
	assert.Equal(t, []string{"chatgpt", "claude"}, fetched.Platforms)
}

func TestSQLite_GetAudit_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetAudit(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateAuditStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	require.NoError(t, st.UpdateAuditStatus(ctx, audit.ID, model.AuditStatusRunning))

	fetched, err := st.GetAudit(ctx, audit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusRunning, fetched.Status)
}

func TestSQLite_UpdateAuditStatus_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateAuditStatus(context.Background(), "nonexistent", model.AuditStatusRunning)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_CompleteAudit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	require.NoError(t, st.CompleteAudit(ctx, audit.ID, 12345, 0.42))

	fetched, err := st.GetAudit(ctx, audit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusComplete, fetched.Status)
	assert.Equal(t, 12345, fetched.TotalTokens)
	assert.InDelta(t, 0.42, fetched.TotalCost, 1e-9)
}

func TestSQLite_FailAudit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	require.NoError(t, st.FailAudit(ctx, audit.ID, "all platforms unavailable"))

	fetched, err := st.GetAudit(ctx, audit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusFailed, fetched.Status)
	assert.Equal(t, "all platforms unavailable", fetched.Error)
}

func TestSQLite_ListAudits_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	e1, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	e2, err := st.CreateEntity(ctx, testEntity("globex"))
	require.NoError(t, err)

	a1, err := st.CreateAudit(ctx, e1.ID, []string{"chatgpt"})
	require.NoError(t, err)
	_, err = st.CreateAudit(ctx, e2.ID, []string{"claude"})
	require.NoError(t, err)

	require.NoError(t, st.UpdateAuditStatus(ctx, a1.ID, model.AuditStatusComplete))

	all, err := st.ListAudits(ctx, AuditFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byEntity, err := st.ListAudits(ctx, AuditFilter{EntityID: e1.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, byEntity, 1)
	assert.Equal(t, a1.ID, byEntity[0].ID)

	complete, err := st.ListAudits(ctx, AuditFilter{Status: model.AuditStatusComplete, Limit: 10})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, a1.ID, complete[0].ID)

	recent, err := st.ListAudits(ctx, AuditFilter{CreatedAfter: time.Now().UTC().Add(-time.Hour), Limit: 10})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	none, err := st.ListAudits(ctx, AuditFilter{CreatedAfter: time.Now().UTC().Add(time.Hour), Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- Query records ---

func TestSQLite_CreateQueryRecords_AssignsIDs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	records := []model.QueryRecord{
		{AuditID: audit.ID, Platform: "chatgpt", QueryText: "What is acme?"},
		{AuditID: audit.ID, Platform: "claude", QueryText: "Who founded acme?"},
		{AuditID: audit.ID, Platform: "perplexity", QueryText: "Is acme reputable?"},
	}
	require.NoError(t, st.CreateQueryRecords(ctx, records))

	for _, r := range records {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, model.QueryStatusPending, r.Status)
	}

	listed, err := st.ListQueryRecords(ctx, audit.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	texts := make([]string, 0, len(listed))
	for _, r := range listed {
		texts = append(texts, r.QueryText)
		assert.Nil(t, r.ResponseText)
		assert.Nil(t, r.Citations)
	}
	assert.ElementsMatch(t, []string{"What is acme?", "Who founded acme?", "Is acme reputable?"}, texts)
}

func TestSQLite_CompleteQuery_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	records := []model.QueryRecord{{AuditID: audit.ID, Platform: "chatgpt", QueryText: "What is acme?"}}
	require.NoError(t, st.CreateQueryRecords(ctx, records))

	response := "acme is a leading widget manufacturer."
	records[0].ResponseText = &response
	records[0].Citations = json.RawMessage(`[{"url":"https://wikipedia.org/wiki/acme"}]`)
	records[0].InputTokens = 120
	records[0].OutputTokens = 340
	records[0].CostUSD = 0.0037
	require.NoError(t, st.CompleteQuery(ctx, &records[0]))

	listed, err := st.ListQueryRecords(ctx, audit.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	got := listed[0]
	assert.Equal(t, model.QueryStatusCompleted, got.Status)
	require.NotNil(t, got.ResponseText)
	assert.Equal(t, response, *got.ResponseText)
	assert.JSONEq(t, `[{"url":"https://wikipedia.org/wiki/acme"}]`, string(got.Citations))
	assert.Equal(t, 120, got.InputTokens)
	assert.Equal(t, 340, got.OutputTokens)
	assert.InDelta(t, 0.0037, got.CostUSD, 1e-9)
}

func TestSQLite_UpdateQueryStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	records := []model.QueryRecord{{AuditID: audit.ID, Platform: "chatgpt", QueryText: "q"}}
	require.NoError(t, st.CreateQueryRecords(ctx, records))

	require.NoError(t, st.UpdateQueryStatus(ctx, records[0].ID, model.QueryStatusFailed))

	listed, err := st.ListQueryRecords(ctx, audit.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, model.QueryStatusFailed, listed[0].Status)
}

func TestSQLite_UpdateQueryStatus_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateQueryStatus(context.Background(), "nonexistent", model.QueryStatusRunning)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Analytics results ---

func TestSQLite_SaveAnalytics_And_GetAnalytics(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	result := analytics.Analyze(nil, model.EntityKindCompany, "technology")
	require.NoError(t, st.SaveAnalytics(ctx, audit.ID, result))

	fetched, err := st.GetAnalytics(ctx, audit.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.InDelta(t, result.OverallScore, fetched.OverallScore, 1e-9)
	assert.Equal(t, result.TableVersion, fetched.TableVersion)
	assert.Equal(t, "technology", fetched.Benchmark.Industry)
}

func TestSQLite_SaveAnalytics_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entity, err := st.CreateEntity(ctx, testEntity("acme"))
	require.NoError(t, err)
	audit, err := st.CreateAudit(ctx, entity.ID, []string{"chatgpt"})
	require.NoError(t, err)

	first := analytics.Analyze(nil, model.EntityKindCompany, "technology")
	require.NoError(t, st.SaveAnalytics(ctx, audit.ID, first))

	second := analytics.Analyze(nil, model.EntityKindCompany, "finance")
	require.NoError(t, st.SaveAnalytics(ctx, audit.ID, second))

	fetched, err := st.GetAnalytics(ctx, audit.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "finance", fetched.Benchmark.Industry)
}

func TestSQLite_GetAnalytics_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	result, err := st.GetAnalytics(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, result)
}

// --- Migrate ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrate was already called in newTestSQLiteStore; calling again should not error.
	err := st.Migrate(context.Background())
	require.NoError(t, err)
}
