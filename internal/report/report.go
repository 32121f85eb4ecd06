// Package report renders audit analytics into shareable markdown, CSV,
// and XLSX files.
package report

import (
	"fmt"
	"strings"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
)

// Data bundles everything one report needs.
type Data struct {
	Entity  model.Entity
	Audit   model.Audit
	Result  *analytics.Result
	Records []model.QueryRecord
}

func (d Data) completedQueries() int {
	n := 0
	for _, rec := range d.Records {
		if rec.Status == model.QueryStatusCompleted {
			n++
		}
	}
	return n
}

func (d Data) tokenTotals() (input, output int) {
	for _, rec := range d.Records {
		input += rec.InputTokens
		output += rec.OutputTokens
	}
	return input, output
}

// Markdown generates the human-readable audit report.
func Markdown(d Data) string {
	var b strings.Builder
	r := d.Result

	fmt.Fprintf(&b, "# AI Presence Report: %s\n", d.Entity.Name)
	fmt.Fprintf(&b, "Kind: %s\n", d.Entity.Kind)
	if d.Entity.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", d.Entity.Industry)
	}
	fmt.Fprintf(&b, "Audit: %s (%s)\n\n", d.Audit.ID, d.Audit.UpdatedAt.Format("2006-01-02"))

	// Summary.
	input, output := d.tokenTotals()
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Overall score: %.1f (%s)\n", r.OverallScore, analytics.Grade(r.OverallScore))
	fmt.Fprintf(&b, "- Industry benchmark: %.1f average, %dth percentile\n",
		r.Benchmark.AverageScore, r.Benchmark.Percentile)
	fmt.Fprintf(&b, "- Queries: %d completed of %d\n", d.completedQueries(), len(d.Records))
	fmt.Fprintf(&b, "- Sources cited: %d (diversity %.1f)\n",
		r.SourceAnalysis.TotalSources, r.SourceAnalysis.DiversityScore)
	fmt.Fprintf(&b, "- Token usage: %d input, %d output\n", input, output)
	fmt.Fprintf(&b, "- Estimated cost: $%.4f\n\n", d.Audit.TotalCost)

	// Dimension scores.
	b.WriteString("## Dimension Scores\n")
	fmt.Fprintf(&b, "- Visibility: %.1f\n", r.Scores.Visibility)
	fmt.Fprintf(&b, "- Authority: %.1f\n", r.Scores.Authority)
	fmt.Fprintf(&b, "- Sentiment: %.1f\n", r.Scores.Sentiment)
	fmt.Fprintf(&b, "- Completeness: %.1f\n", r.Scores.Completeness)
	fmt.Fprintf(&b, "- Source quality: %.1f\n", r.Scores.SourceQuality)
	fmt.Fprintf(&b, "- Optimization: %.1f\n\n", r.Scores.Optimization)

	// SWOT.
	b.WriteString("## SWOT\n")
	writeBucket(&b, "Strengths", r.Insights.Strengths)
	writeBucket(&b, "Weaknesses", r.Insights.Weaknesses)
	writeBucket(&b, "Opportunities", r.Insights.Opportunities)
	writeBucket(&b, "Threats", r.Insights.Threats)

	// Platform comparison.
	b.WriteString("## Platform Comparison\n")
	if len(r.PlatformComparison) == 0 {
		b.WriteString("No platform data.\n\n")
	} else {
		b.WriteString("| Platform | Queries | Visibility | Sentiment | Completeness | Sources | Quality |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, p := range r.PlatformComparison {
			fmt.Fprintf(&b, "| %s | %d | %.1f | %.1f | %.1f | %d | %.1f |\n",
				p.Platform, p.QueryCount, p.Visibility, p.Sentiment,
				p.Completeness, p.SourceCount, p.ResponseQuality)
		}
		b.WriteString("\n")
	}

	// Source breakdown.
	sa := r.SourceAnalysis
	b.WriteString("## Top Sources\n")
	fmt.Fprintf(&b, "Tier 1: %d, tier 2: %d, tier 3: %d, structured data: %d\n",
		sa.Tier1Sources, sa.Tier2Sources, sa.Tier3Sources, sa.StructuredDataSources)
	for _, ds := range sa.TopDomains {
		fmt.Fprintf(&b, "- %s: %d citations [T%d]\n", ds.Domain, ds.Count, ds.Tier)
	}
	b.WriteString("\n")

	// Recommendations.
	b.WriteString("## Recommendations\n")
	if len(r.Recommendations) == 0 {
		b.WriteString("No recommendations. All dimensions are above their trigger thresholds.\n")
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "### [%s] %s\n", strings.ToUpper(rec.Priority), rec.Title)
		fmt.Fprintf(&b, "%s\n", rec.Description)
		fmt.Fprintf(&b, "Impact: %s. Effort: %s. Timeline: %s.\n", rec.Impact, rec.Effort, rec.Timeline)
		for _, action := range rec.SpecificActions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeBucket(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "### %s\n", title)
	if len(items) == 0 {
		b.WriteString("- None identified.\n")
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
