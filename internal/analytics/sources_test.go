package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func refs(urls ...string) []SourceRef {
	out := make([]SourceRef, len(urls))
	for i, u := range urls {
		out[i] = SourceRef{URL: u}
	}
	return out
}

func TestDomainNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.example.com/page", "example.com"},
		{"HTTPS://WWW.EXAMPLE.COM/Page", "example.com"},
		{"https://en.wikipedia.org/wiki/Acme", "en.wikipedia.org"},
		{"http://sub.domain.co.uk/a?b=c", "sub.domain.co.uk"},
		// No host to extract: the raw string passes through verbatim.
		{"reuters.com", "reuters.com"},
		{"not a url at all", "not a url at all"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.raw))
		})
	}
}

func TestTierClassification(t *testing.T) {
	tables := DefaultTables()

	tests := []struct {
		domain string
		want   int
	}{
		{"wikipedia.org", 1},
		{"en.wikipedia.org", 1},
		{"news.mit.edu", 1},
		{"sec.gov", 1},
		{"crunchbase.com", 2},
		{"github.com", 2},
		{"randomblog.net", 3},
		{"", 3},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.want, tables.Tier(tt.domain))
		})
	}
}

func TestTierWeights(t *testing.T) {
	assert.InDelta(t, 100, TierWeight(1), 0.001)
	assert.InDelta(t, 60, TierWeight(2), 0.001)
	assert.InDelta(t, 30, TierWeight(3), 0.001)
	assert.InDelta(t, 30, TierWeight(0), 0.001)
}

func TestDiversitySingleDomainIsZero(t *testing.T) {
	analysis := New().AnalyzeSourceDistribution(refs(
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	))
	assert.Zero(t, analysis.DiversityScore)
	assert.Equal(t, 3, analysis.TotalSources)
}

func TestDiversityAllDistinctIsHundred(t *testing.T) {
	analysis := New().AnalyzeSourceDistribution(refs(
		"https://a.com/x",
		"https://b.com/x",
		"https://c.com/x",
		"https://d.com/x",
	))
	assert.InDelta(t, 100, analysis.DiversityScore, 0.001)
}

func TestDiversitySkewLowersScore(t *testing.T) {
	a := New()

	balanced := a.AnalyzeSourceDistribution(refs(
		"https://a.com/1", "https://b.com/1",
	))
	skewed := a.AnalyzeSourceDistribution(refs(
		"https://a.com/1", "https://a.com/2", "https://a.com/3", "https://b.com/1",
	))

	assert.InDelta(t, 100, balanced.DiversityScore, 0.001)
	assert.Less(t, skewed.DiversityScore, balanced.DiversityScore)
	assert.Positive(t, skewed.DiversityScore)
}

func TestAnalyzeSourceDistributionCounts(t *testing.T) {
	analysis := New().AnalyzeSourceDistribution(refs(
		"https://en.wikipedia.org/wiki/Acme",
		"https://reuters.com/acme",
		"https://crunchbase.com/org/acme",
		"https://wikidata.org/wiki/Q1",
		"https://randomblog.net/acme",
	))

	assert.Equal(t, 5, analysis.TotalSources)
	assert.Equal(t, 2, analysis.Tier1Sources)
	assert.Equal(t, 2, analysis.Tier2Sources)
	assert.Equal(t, 1, analysis.Tier3Sources)
	// crunchbase and wikidata both carry structured markers.
	assert.Equal(t, 2, analysis.StructuredDataSources)
}

func TestTopDomainsRankingAndTruncation(t *testing.T) {
	var sources []SourceRef
	// 12 distinct domains; domain-00 cited three times, domain-01 twice.
	for i := 0; i < 12; i++ {
		sources = append(sources, SourceRef{URL: fmt.Sprintf("https://domain-%02d.com/x", i)})
	}
	sources = append(sources,
		SourceRef{URL: "https://domain-00.com/y"},
		SourceRef{URL: "https://domain-00.com/z"},
		SourceRef{URL: "https://domain-01.com/y"},
	)

	analysis := New().AnalyzeSourceDistribution(sources)

	assert.Len(t, analysis.TopDomains, 10)
	assert.Equal(t, "domain-00.com", analysis.TopDomains[0].Domain)
	assert.Equal(t, 3, analysis.TopDomains[0].Count)
	assert.Equal(t, "domain-01.com", analysis.TopDomains[1].Domain)
	assert.Equal(t, 2, analysis.TopDomains[1].Count)
	assert.Equal(t, 3, analysis.TopDomains[0].Tier)
	assert.InDelta(t, 30, analysis.TopDomains[0].AuthorityWeight, 0.001)

	// Ties resolve alphabetically so the ranking is reproducible.
	for i := 2; i < 9; i++ {
		assert.Less(t, analysis.TopDomains[i].Domain, analysis.TopDomains[i+1].Domain)
	}
}

func TestAnalyzeSourceDistributionEmpty(t *testing.T) {
	analysis := New().AnalyzeSourceDistribution(nil)

	assert.Zero(t, analysis.TotalSources)
	assert.Zero(t, analysis.DiversityScore)
	assert.NotNil(t, analysis.TopDomains)
	assert.Len(t, analysis.TopDomains, 0)
}
