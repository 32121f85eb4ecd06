package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func auditFilterMatcher(auditID string) any {
	return mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		if !ok {
			return false
		}
		return pf.Property == propAuditID && pf.RichText != nil && pf.RichText.Equals == auditID
	})
}

func TestQueryAll_NilFilter(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.Filter == nil
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p1"}},
		HasMore: false,
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	assert.NoError(t, err)
	assert.Len(t, pages, 1)
	mc.AssertExpectations(t)
}

func TestQueryAll_FollowsCursor(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-paged", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}, {ID: "p2"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-xyz"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-paged", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-xyz")
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p3"}},
		HasMore: false,
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-paged", nil)
	assert.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, notionapi.ObjectID("p1"), pages[0].ID)
	assert.Equal(t, notionapi.ObjectID("p3"), pages[2].ID)
	mc.AssertExpectations(t)
}

func TestQueryAll_ErrorOnSecondPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-err", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-next"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-err", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-next")
	})).Return(nil, assert.AnError).Once()

	pages, err := QueryAll(ctx, mc, "db-err", nil)
	assert.Error(t, err)
	assert.Nil(t, pages)
	assert.Contains(t, err.Error(), "notion: query all page")
	mc.AssertExpectations(t)
}

func TestFindAuditPage_Found(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", auditFilterMatcher("aud-1")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "page-9"}},
			HasMore: false,
		}, nil).Once()

	page, err := FindAuditPage(ctx, mc, "db-1", "aud-1")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, notionapi.ObjectID("page-9"), page.ID)
	mc.AssertExpectations(t)
}

func TestFindAuditPage_Missing(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", auditFilterMatcher("aud-gone")).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{}}, nil).Once()

	page, err := FindAuditPage(ctx, mc, "db-1", "aud-gone")
	require.NoError(t, err)
	assert.Nil(t, page)
	mc.AssertExpectations(t)
}

func TestFindAuditPage_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", auditFilterMatcher("aud-1")).
		Return(nil, assert.AnError).Once()

	page, err := FindAuditPage(ctx, mc, "db-1", "aud-1")
	assert.Error(t, err)
	assert.Nil(t, page)
	assert.Contains(t, err.Error(), "notion: find audit page aud-1")
	mc.AssertExpectations(t)
}

func TestExistingAuditPages(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	pages := []notionapi.Page{
		{
			ID: "page-1",
			Properties: notionapi.Properties{
				// The API decodes properties as pointers with PlainText set.
				propAuditID: &notionapi.RichTextProperty{
					RichText: []notionapi.RichText{{PlainText: "aud-1"}},
				},
			},
		},
		{
			ID: "page-2",
			Properties: notionapi.Properties{
				propAuditID: notionapi.RichTextProperty{
					RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: "aud-2"}}},
				},
			},
		},
		{
			// A row added by hand, with no audit ID: skipped.
			ID:         "page-3",
			Properties: notionapi.Properties{},
		},
	}

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{Results: pages}, nil).Once()

	ids, err := ExistingAuditPages(ctx, mc, "db-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"aud-1": "page-1",
		"aud-2": "page-2",
	}, ids)
	mc.AssertExpectations(t)
}
