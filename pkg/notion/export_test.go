package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
)

func exportFixture() (*model.Entity, *model.Audit, *analytics.Result) {
	entity := &model.Entity{
		ID:       "ent-1",
		Kind:     model.EntityKindCompany,
		Name:     "Acme Robotics",
		Industry: "technology",
		Websites: []string{"https://acme.dev"},
	}
	aud := &model.Audit{
		ID:        "aud-1",
		EntityID:  "ent-1",
		Status:    model.AuditStatusComplete,
		TotalCost: 0.0525,
		UpdatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	result := &analytics.Result{
		OverallScore: 72.5,
		Scores: analytics.DimensionScores{
			Visibility:    72.1,
			Authority:     55,
			Sentiment:     20.4,
			Completeness:  61,
			SourceQuality: 58.2,
			Optimization:  49.9,
		},
		Benchmark:      analytics.Benchmark{Industry: "technology", AverageScore: 72, Percentile: 50},
		SourceAnalysis: analytics.SourceAnalysis{TotalSources: 12},
		TableVersion:   "v1",
	}
	return entity, aud, result
}

func TestAuditProperties(t *testing.T) {
	t.Parallel()

	entity, aud, result := exportFixture()
	props := AuditProperties(entity, aud, result)

	title, ok := props[propTitle].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "Acme Robotics", title.Title[0].Text.Content)

	auditID, ok := props[propAuditID].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "aud-1", auditID.RichText[0].Text.Content)

	overall, ok := props["Overall"].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.InDelta(t, 72.5, overall.Number, 0.001)

	grade, ok := props["Grade"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "B", grade.Select.Name)

	sentiment, ok := props["Sentiment"].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.InDelta(t, 20.4, sentiment.Number, 0.001)

	industry, ok := props["Industry"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "technology", industry.Select.Name)

	website, ok := props["Website"].(notionapi.URLProperty)
	require.True(t, ok)
	assert.Equal(t, "https://acme.dev", website.URL)

	version, ok := props["Table Version"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "v1", version.Select.Name)
}

func TestAuditProperties_OptionalColumns(t *testing.T) {
	t.Parallel()

	entity, aud, result := exportFixture()
	entity.Industry = ""
	entity.Websites = nil

	props := AuditProperties(entity, aud, result)

	assert.NotContains(t, props, "Industry")
	assert.NotContains(t, props, "Website")
}

func TestExportAudit_CreatesWhenMissing(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	entity, aud, result := exportFixture()

	mc.On("QueryDatabase", ctx, "db-1", auditFilterMatcher("aud-1")).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{}}, nil).Once()

	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		if req.Parent.DatabaseID != notionapi.DatabaseID("db-1") {
			return false
		}
		id, ok := req.Properties[propAuditID].(notionapi.RichTextProperty)
		return ok && id.RichText[0].Text.Content == "aud-1"
	})).Return(&notionapi.Page{ID: "page-new"}, nil).Once()

	pageID, created, err := ExportAudit(ctx, mc, "db-1", entity, aud, result)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "page-new", pageID)
	mc.AssertExpectations(t)
}

func TestExportAudit_RefreshesExisting(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	entity, aud, result := exportFixture()

	mc.On("QueryDatabase", ctx, "db-1", auditFilterMatcher("aud-1")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "page-9"}},
		}, nil).Once()

	mc.On("UpdatePage", ctx, "page-9", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		overall, ok := req.Properties["Overall"].(notionapi.NumberProperty)
		return ok && overall.Number == 72.5
	})).Return(&notionapi.Page{ID: "page-9"}, nil).Once()

	pageID, created, err := ExportAudit(ctx, mc, "db-1", entity, aud, result)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "page-9", pageID)
	mc.AssertExpectations(t)
}

func TestExportAuditAt_KnownPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	entity, aud, result := exportFixture()

	mc.On("UpdatePage", ctx, "page-7", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "page-7"}, nil).Once()

	pageID, created, err := ExportAuditAt(ctx, mc, "db-1", "page-7", entity, aud, result)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "page-7", pageID)
	// No lookup when the caller already resolved the page.
	mc.AssertNotCalled(t, "QueryDatabase", mock.Anything, mock.Anything, mock.Anything)
	mc.AssertExpectations(t)
}

func TestExportAuditAt_NilResult(t *testing.T) {
	mc := new(MockClient)
	entity, aud, _ := exportFixture()

	_, _, err := ExportAuditAt(context.Background(), mc, "db-1", "", entity, aud, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no analytics result")
}

func TestExportAudit_LookupError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	entity, aud, result := exportFixture()

	mc.On("QueryDatabase", ctx, "db-1", auditFilterMatcher("aud-1")).
		Return(nil, assert.AnError).Once()

	_, _, err := ExportAudit(ctx, mc, "db-1", entity, aud, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notion: find audit page aud-1")
	mc.AssertExpectations(t)
}
