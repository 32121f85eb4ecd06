package analytics

import (
	"math"
	"strings"
)

// Composite blend weights. Sentiment enters rescaled from -100..100 to
// 0..100. Changing any of these breaks comparability with every stored
// score, so they are constants rather than table entries.
const (
	visibilityWeight    = 0.25
	authorityWeight     = 0.20
	sentimentWeight     = 0.15
	completenessWeight  = 0.15
	sourceQualityWeight = 0.15
	optimizationWeight  = 0.10
)

// OverallScore blends the six dimensions into the 0-100 composite.
func OverallScore(s DimensionScores) float64 {
	score := visibilityWeight*s.Visibility +
		authorityWeight*s.Authority +
		sentimentWeight*(s.Sentiment+100)/2 +
		completenessWeight*s.Completeness +
		sourceQualityWeight*s.SourceQuality +
		optimizationWeight*s.Optimization
	return round2(score)
}

// Grade maps an overall score onto the letter grade used in reports and
// CRM exports.
func Grade(overall float64) string {
	switch {
	case overall >= 85:
		return "A"
	case overall >= 70:
		return "B"
	case overall >= 55:
		return "C"
	case overall >= 40:
		return "D"
	default:
		return "F"
	}
}

// BenchmarkFor resolves the expected industry average and a percentile
// position for the overall score. Industries match case-insensitively
// and unknown ones fall back to the default benchmark. The percentile is
// the documented linear approximation: (overall / average) * 50, rounded
// and clamped to [1, 99].
func (a *Analyzer) BenchmarkFor(industry string, overall float64) Benchmark {
	avg, ok := a.tables.IndustryBenchmarks[strings.ToLower(industry)]
	if !ok || avg <= 0 {
		avg = a.tables.DefaultBenchmark
	}

	percentile := int(math.Round(overall / avg * 50))
	if percentile < 1 {
		percentile = 1
	}
	if percentile > 99 {
		percentile = 99
	}

	return Benchmark{
		Industry:     industry,
		AverageScore: avg,
		Percentile:   percentile,
	}
}
