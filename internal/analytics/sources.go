package analytics

import (
	"math"
	"sort"
)

// AnalyzeSourceDistribution aggregates a flat source list into tier
// counts, a structured-data count, a normalized-entropy diversity score,
// and a top-10 domain ranking. Zero sources yields a zero-valued
// analysis, never an error.
func (a *Analyzer) AnalyzeSourceDistribution(sources []SourceRef) SourceAnalysis {
	analysis := SourceAnalysis{TopDomains: []DomainStat{}}
	if len(sources) == 0 {
		return analysis
	}

	counts := make(map[string]int)
	for _, src := range sources {
		domain := Domain(src.URL)
		counts[domain]++

		switch a.tables.Tier(domain) {
		case 1:
			analysis.Tier1Sources++
		case 2:
			analysis.Tier2Sources++
		default:
			analysis.Tier3Sources++
		}
		if a.tables.structured(domain) {
			analysis.StructuredDataSources++
		}
	}

	analysis.TotalSources = len(sources)
	analysis.DiversityScore = diversityScore(counts, len(sources))
	analysis.TopDomains = topDomains(counts, a.tables, 10)
	return analysis
}

// diversityScore is the Shannon entropy of the domain distribution,
// normalized by the maximum entropy for the distinct-domain count and
// scaled to 0-100. A single distinct domain scores 0: log2(1) would
// otherwise divide by zero.
func diversityScore(counts map[string]int, total int) float64 {
	if total == 0 || len(counts) <= 1 {
		return 0
	}

	var entropy float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return round2(entropy / math.Log2(float64(len(counts))) * 100)
}

// topDomains ranks domains by citation count, descending, breaking ties
// alphabetically so the ranking is stable across runs.
func topDomains(counts map[string]int, tables *Tables, n int) []DomainStat {
	stats := make([]DomainStat, 0, len(counts))
	for domain, count := range counts {
		tier := tables.Tier(domain)
		stats = append(stats, DomainStat{
			Domain:          domain,
			Count:           count,
			Tier:            tier,
			AuthorityWeight: TierWeight(tier),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Domain < stats[j].Domain
	})

	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}
