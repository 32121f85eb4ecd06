// Package analytics turns the recorded query/response set of one audit
// into dimension scores, a weighted composite, a benchmark position,
// SWOT insights, prioritized recommendations, a source-distribution
// analysis, and a per-platform comparison.
//
// Everything in this package is a pure transformation over in-memory
// records: no I/O, no mutation of inputs, and identical inputs always
// produce identical results, so an Analyzer is safe for concurrent use.
package analytics

import (
	"math"
	"regexp"

	"github.com/halosight/presence-cli/internal/model"
)

// Analyzer computes analytics results against one table set. Keyword
// and marker patterns are compiled once at construction.
type Analyzer struct {
	tables       *Tables
	posPatterns  []*regexp.Regexp
	negPatterns  []*regexp.Regexp
	entityInfoRE *regexp.Regexp
	freshnessRE  *regexp.Regexp
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTables substitutes the default lookup tables, usually one loaded
// from an override file via LoadTables.
func WithTables(t *Tables) Option {
	return func(a *Analyzer) {
		a.tables = t
	}
}

// New creates an Analyzer. With no options it runs on the built-in v1
// tables.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{tables: DefaultTables()}
	for _, opt := range opts {
		opt(a)
	}

	a.posPatterns = compileWordPatterns(a.tables.PositiveKeywords)
	a.negPatterns = compileWordPatterns(a.tables.NegativeKeywords)
	a.entityInfoRE = regexp.MustCompile(a.tables.EntityInfoPattern)
	a.freshnessRE = regexp.MustCompile(a.tables.FreshnessPattern)
	return a
}

// Analyze composes every sub-analysis for one audit's records. The
// record slice may hold records in any status; each scorer applies its
// own eligibility rules.
func (a *Analyzer) Analyze(records []model.QueryRecord, kind model.EntityKind, industry string) *Result {
	sourceAnalysis := a.AnalyzeSourceDistribution(ExtractCitations(records))

	scores := DimensionScores{
		Visibility:    a.Visibility(records),
		Authority:     a.Authority(records),
		Sentiment:     a.Sentiment(records),
		Completeness:  a.Completeness(records, kind),
		SourceQuality: a.sourceQualityFrom(sourceAnalysis),
		Optimization:  a.Optimization(records),
	}
	overall := OverallScore(scores)

	return &Result{
		OverallScore:       overall,
		Scores:             scores,
		Benchmark:          a.BenchmarkFor(industry, overall),
		Insights:           BuildInsights(scores),
		Recommendations:    BuildRecommendations(scores),
		SourceAnalysis:     sourceAnalysis,
		PlatformComparison: a.ComparePlatforms(records),
		TableVersion:       a.tables.Version,
	}
}

// Analyze runs a one-shot analysis on the default tables.
func Analyze(records []model.QueryRecord, kind model.EntityKind, industry string) *Result {
	return New().Analyze(records, kind, industry)
}

// TableVersion reports the version of the table set the Analyzer was
// built with.
func (a *Analyzer) TableVersion() string {
	return a.tables.Version
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
