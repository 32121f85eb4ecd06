package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halosight/presence-cli/internal/model"
)

func TestComparePlatformsOmitsAbsentPlatforms(t *testing.T) {
	records := []model.QueryRecord{
		completedRecord("claude", "Acme", "Acme builds robots and the company ships a solid product line today.", ""),
		completedRecord("gemini", "Acme", "Acme is a trusted robotics firm founded a decade ago in Austin.", ""),
	}

	stats := New().ComparePlatforms(records)

	require.Len(t, stats, 2)
	assert.Equal(t, "claude", stats[0].Platform)
	assert.Equal(t, "gemini", stats[1].Platform)
}

func TestComparePlatformsCanonicalOrder(t *testing.T) {
	// Insertion order is scrambled on purpose; rows come back in the
	// canonical platform order.
	records := []model.QueryRecord{
		completedRecord("grok", "Acme", "Acme grok answer with enough length to pass the visibility gate.", ""),
		completedRecord("chatgpt", "Acme", "Acme chatgpt answer with enough length to pass the visibility gate.", ""),
		completedRecord("perplexity", "Acme", "Acme perplexity answer with enough length to pass the gate.", ""),
	}

	stats := New().ComparePlatforms(records)

	require.Len(t, stats, 3)
	assert.Equal(t, "chatgpt", stats[0].Platform)
	assert.Equal(t, "perplexity", stats[1].Platform)
	assert.Equal(t, "grok", stats[2].Platform)
}

func TestComparePlatformsMergesSearchVariant(t *testing.T) {
	records := []model.QueryRecord{
		completedRecord("perplexity", "Acme", "Acme direct answer long enough to clear the short-response gate.", `["https://a.com/x"]`),
		completedRecord("perplexity-search", "Acme", "Acme search-grounded answer long enough to clear the gate too.", `["https://b.com/y","https://c.com/z"]`),
	}

	stats := New().ComparePlatforms(records)

	require.Len(t, stats, 1)
	assert.Equal(t, "perplexity", stats[0].Platform)
	assert.Equal(t, 2, stats[0].QueryCount)
	assert.Equal(t, 3, stats[0].SourceCount)
}

func TestComparePlatformsResponseQualityBlend(t *testing.T) {
	records := []model.QueryRecord{
		completedRecord("claude", "Acme",
			"Acme is a trusted company. Founded by its current CEO, the product line and industry reach keep growing.",
			`["https://en.wikipedia.org/wiki/Acme"]`),
	}

	stats := New().ComparePlatforms(records)
	require.Len(t, stats, 1)

	row := stats[0]
	want := (row.Visibility + (row.Sentiment+100)/2 + row.Completeness) / 3
	assert.InDelta(t, want, row.ResponseQuality, 0.01)
}

func TestComparePlatformsUsesCompanyChecklist(t *testing.T) {
	// Platform rows always score completeness against the company
	// checklist, even when the audited entity is a person.
	response := "The company name is Acme. Founded in 1999 by founder Jane, " +
		"its product leads the industry from headquarters in Austin today."
	records := []model.QueryRecord{
		completedRecord("chatgpt", "Jane Doe", response, ""),
	}

	a := New()
	personResult := a.Analyze(records, model.EntityKindPerson, "technology")

	require.Len(t, personResult.PlatformComparison, 1)
	assert.InDelta(t,
		a.Completeness(records, model.EntityKindCompany),
		personResult.PlatformComparison[0].Completeness, 0.001)
	assert.NotEqual(t,
		personResult.Scores.Completeness,
		personResult.PlatformComparison[0].Completeness)
}

func TestComparePlatformsUnknownPlatformIgnored(t *testing.T) {
	records := []model.QueryRecord{
		completedRecord("copilot", "Acme", "An answer from a platform outside the canonical five entirely.", ""),
	}
	assert.Len(t, New().ComparePlatforms(records), 0)
}
