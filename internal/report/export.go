package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/halosight/presence-cli/internal/analytics"
)

// summaryHeader is the column layout of the one-row summary CSV. The row
// shape is stable so audits can be concatenated into one longitudinal
// file.
var summaryHeader = []string{
	"audit_id", "entity", "kind", "industry", "audited",
	"overall", "grade", "visibility", "authority", "sentiment",
	"completeness", "source_quality", "optimization",
	"percentile", "total_sources", "total_tokens", "cost_usd",
}

// WriteSummaryCSV writes the audit as one CSV row under a header.
func WriteSummaryCSV(w io.Writer, d Data) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(summaryHeader); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}

	r := d.Result
	input, output := d.tokenTotals()
	row := []string{
		d.Audit.ID,
		d.Entity.Name,
		string(d.Entity.Kind),
		d.Entity.Industry,
		d.Audit.UpdatedAt.Format("2006-01-02"),
		fmt.Sprintf("%.1f", r.OverallScore),
		analytics.Grade(r.OverallScore),
		fmt.Sprintf("%.1f", r.Scores.Visibility),
		fmt.Sprintf("%.1f", r.Scores.Authority),
		fmt.Sprintf("%.1f", r.Scores.Sentiment),
		fmt.Sprintf("%.1f", r.Scores.Completeness),
		fmt.Sprintf("%.1f", r.Scores.SourceQuality),
		fmt.Sprintf("%.1f", r.Scores.Optimization),
		fmt.Sprintf("%d", r.Benchmark.Percentile),
		fmt.Sprintf("%d", r.SourceAnalysis.TotalSources),
		fmt.Sprintf("%d", input+output),
		fmt.Sprintf("%.4f", d.Audit.TotalCost),
	}
	if err := cw.Write(row); err != nil {
		return eris.Wrap(err, "report: write CSV row")
	}
	return nil
}

// WriteXLSX writes a multi-sheet workbook: overview, platform
// comparison, top domains, and recommendations.
func WriteXLSX(path string, d Data) error {
	f := xlsx.NewFile()

	if err := addOverviewSheet(f, d); err != nil {
		return err
	}
	if err := addPlatformSheet(f, d); err != nil {
		return err
	}
	if err := addDomainSheet(f, d); err != nil {
		return err
	}
	if err := addRecommendationSheet(f, d); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "report: save workbook %s", path)
}

func addOverviewSheet(f *xlsx.File, d Data) error {
	sheet, err := f.AddSheet("Overview")
	if err != nil {
		return eris.Wrap(err, "report: add overview sheet")
	}

	kv := func(key string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		cell := row.AddCell()
		switch v := value.(type) {
		case string:
			cell.SetString(v)
		case int:
			cell.SetInt(v)
		case float64:
			cell.SetFloat(v)
		}
	}

	r := d.Result
	input, output := d.tokenTotals()
	kv("Entity", d.Entity.Name)
	kv("Kind", string(d.Entity.Kind))
	kv("Industry", d.Entity.Industry)
	kv("Audit", d.Audit.ID)
	kv("Audited", d.Audit.UpdatedAt.Format("2006-01-02"))
	kv("Overall score", r.OverallScore)
	kv("Grade", analytics.Grade(r.OverallScore))
	kv("Industry average", r.Benchmark.AverageScore)
	kv("Percentile", r.Benchmark.Percentile)
	kv("Visibility", r.Scores.Visibility)
	kv("Authority", r.Scores.Authority)
	kv("Sentiment", r.Scores.Sentiment)
	kv("Completeness", r.Scores.Completeness)
	kv("Source quality", r.Scores.SourceQuality)
	kv("Optimization", r.Scores.Optimization)
	kv("Total sources", r.SourceAnalysis.TotalSources)
	kv("Diversity score", r.SourceAnalysis.DiversityScore)
	kv("Input tokens", input)
	kv("Output tokens", output)
	kv("Cost (USD)", d.Audit.TotalCost)
	return nil
}

func addPlatformSheet(f *xlsx.File, d Data) error {
	sheet, err := f.AddSheet("Platforms")
	if err != nil {
		return eris.Wrap(err, "report: add platforms sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Platform", "Queries", "Visibility", "Sentiment", "Completeness", "Sources", "Quality"} {
		header.AddCell().SetString(h)
	}
	for _, p := range d.Result.PlatformComparison {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Platform)
		row.AddCell().SetInt(p.QueryCount)
		row.AddCell().SetFloat(p.Visibility)
		row.AddCell().SetFloat(p.Sentiment)
		row.AddCell().SetFloat(p.Completeness)
		row.AddCell().SetInt(p.SourceCount)
		row.AddCell().SetFloat(p.ResponseQuality)
	}
	return nil
}

func addDomainSheet(f *xlsx.File, d Data) error {
	sheet, err := f.AddSheet("Top Domains")
	if err != nil {
		return eris.Wrap(err, "report: add domains sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Domain", "Citations", "Tier", "Authority Weight"} {
		header.AddCell().SetString(h)
	}
	for _, ds := range d.Result.SourceAnalysis.TopDomains {
		row := sheet.AddRow()
		row.AddCell().SetString(ds.Domain)
		row.AddCell().SetInt(ds.Count)
		row.AddCell().SetInt(ds.Tier)
		row.AddCell().SetFloat(ds.AuthorityWeight)
	}
	return nil
}

func addRecommendationSheet(f *xlsx.File, d Data) error {
	sheet, err := f.AddSheet("Recommendations")
	if err != nil {
		return eris.Wrap(err, "report: add recommendations sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Priority", "Category", "Title", "Impact", "Effort", "Timeline", "Description"} {
		header.AddCell().SetString(h)
	}
	for _, rec := range d.Result.Recommendations {
		row := sheet.AddRow()
		row.AddCell().SetString(rec.Priority)
		row.AddCell().SetString(rec.Category)
		row.AddCell().SetString(rec.Title)
		row.AddCell().SetString(rec.Impact)
		row.AddCell().SetString(rec.Effort)
		row.AddCell().SetString(rec.Timeline)
		row.AddCell().SetString(rec.Description)
	}
	return nil
}

// Filename builds a slug-style report file name from the entity name and
// a short audit id prefix.
func Filename(entityName, auditID, ext string) string {
	slug := slugify(entityName)
	if slug == "" {
		slug = "entity"
	}
	short := auditID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("presence-%s-%s.%s", slug, short, ext)
}

func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
		default:
			pendingDash = true
		}
	}
	return b.String()
}
