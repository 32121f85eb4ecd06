package analytics

import (
	"math"
	"regexp"
	"strings"

	"github.com/halosight/presence-cli/internal/model"
)

// Visibility scores how prominently the entity surfaces in responses.
// The mean runs over every scorable record, including those short enough
// to contribute 0.
func (a *Analyzer) Visibility(records []model.QueryRecord) float64 {
	var total float64
	var n int
	for i := range records {
		r := &records[i]
		if !r.Scorable() {
			continue
		}
		n++
		total += a.visibilityForRecord(r.QueryText, r.Response())
	}
	if n == 0 {
		return 0
	}
	return round2(math.Min(total/float64(n), 100))
}

// visibilityForRecord combines where the query text first appears in the
// response, how long the response is, and a bonus for substantive entity
// info. Responses of 50 characters or fewer count as a miss. The 0.4/0.4
// weighting plus bonus tops out under the cap on purpose; it is kept
// as-is so scores stay comparable across audits.
func (a *Analyzer) visibilityForRecord(query, response string) float64 {
	if len(response) <= 50 {
		return 0
	}

	var position float64
	if idx := strings.Index(strings.ToLower(response), strings.ToLower(query)); idx >= 0 {
		position = 100 - float64(idx)/float64(len(response))*100
	}

	length := math.Min(float64(len(response))/500*100, 100)

	var bonus float64
	if a.entityInfoRE.MatchString(response) {
		bonus = 20
	}

	return 0.4*position + 0.4*length + bonus
}

// Authority scores citation credibility as the mean tier weight over all
// extracted sources. No sources means no authority signal, scored 0.
func (a *Analyzer) Authority(records []model.QueryRecord) float64 {
	sources := ExtractCitations(records)
	if len(sources) == 0 {
		return 0
	}

	var total float64
	for _, src := range sources {
		total += TierWeight(a.tables.Tier(Domain(src.URL)))
	}
	return round2(math.Min(total/float64(len(sources)), 100))
}

// Sentiment scores tone on a -100..100 scale. Each record's score is 20
// points per net positive keyword occurrence, clamped, and the final
// value is the clamped mean.
func (a *Analyzer) Sentiment(records []model.QueryRecord) float64 {
	var total float64
	var n int
	for i := range records {
		r := &records[i]
		if !r.Scorable() {
			continue
		}
		n++
		total += clamp(float64(a.KeywordNet(r.Response()))*20, -100, 100)
	}
	if n == 0 {
		return 0
	}
	return round2(clamp(total/float64(n), -100, 100))
}

// KeywordNet counts positive keyword occurrences minus negative ones in
// a single response text. This is the raw quantity the Sentiment
// dimension scores from; the lexicon cross-check reads it directly.
func (a *Analyzer) KeywordNet(text string) int {
	return countMatches(text, a.posPatterns) - countMatches(text, a.negPatterns)
}

// countMatches totals whole-word, case-insensitive occurrences across
// all patterns. Occurrences, not matched-keyword count: three "award"
// mentions score three.
func countMatches(text string, patterns []*regexp.Regexp) int {
	var n int
	for _, re := range patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// compileWordPatterns builds one whole-word case-insensitive matcher per
// keyword. QuoteMeta keeps table-supplied keywords from being read as
// regex syntax.
func compileWordPatterns(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return patterns
}

// Completeness scores coverage of the expected fact checklist for the
// entity kind. Required fields carry 70% of the weight, optional fields
// 30%. A field counts as covered when its name appears verbatim in the
// lower-cased response.
func (a *Analyzer) Completeness(records []model.QueryRecord, kind model.EntityKind) float64 {
	required, optional := a.tables.checklists(kind)

	var total float64
	var n int
	for i := range records {
		r := &records[i]
		if !r.Scorable() {
			continue
		}
		n++
		total += completenessForRecord(r.Response(), required, optional)
	}
	if n == 0 {
		return 0
	}
	return round2(total / float64(n))
}

func completenessForRecord(response string, required, optional []string) float64 {
	lower := strings.ToLower(response)

	var score float64
	if len(required) > 0 {
		score += float64(countContained(lower, required)) / float64(len(required)) * 70
	}
	if len(optional) > 0 {
		score += float64(countContained(lower, optional)) / float64(len(optional)) * 30
	}
	return score
}

func countContained(lowerText string, fields []string) int {
	var n int
	for _, f := range fields {
		if strings.Contains(lowerText, strings.ToLower(f)) {
			n++
		}
	}
	return n
}

// SourceQuality blends the tier mix, source diversity, and presence of
// structured data at 40/30/30.
func (a *Analyzer) SourceQuality(records []model.QueryRecord) float64 {
	return a.sourceQualityFrom(a.AnalyzeSourceDistribution(ExtractCitations(records)))
}

func (a *Analyzer) sourceQualityFrom(analysis SourceAnalysis) float64 {
	if analysis.TotalSources == 0 {
		return 0
	}

	total := float64(analysis.TotalSources)
	tierComponent := float64(analysis.Tier1Sources)/total*100*1.0 +
		float64(analysis.Tier2Sources)/total*100*0.6 +
		float64(analysis.Tier3Sources)/total*100*0.3

	var structuredComponent float64
	if analysis.StructuredDataSources > 0 {
		structuredComponent = 100
	}

	return round2(0.4*tierComponent + 0.3*analysis.DiversityScore + 0.3*structuredComponent)
}

// Optimization scores machine-readability signals additively: an
// encyclopedia citation (25), knowledge-graph presence (20), structured
// platforms (20), major media coverage (20), and a freshness marker in
// any scorable response (15). The checks sum to 100; the clamp guards
// table overrides.
func (a *Analyzer) Optimization(records []model.QueryRecord) float64 {
	sources := ExtractCitations(records)
	domains := make([]string, len(sources))
	for i, src := range sources {
		domains[i] = Domain(src.URL)
	}

	var score float64
	if anyDomainContains(domains, a.tables.EncyclopediaMarkers) {
		score += 25
	}
	if anyDomainContains(domains, a.tables.KnowledgeGraphMarkers) {
		score += 20
	}
	if anyDomainContains(domains, a.tables.StructuredPlatformMarkers) {
		score += 20
	}
	if anyDomainContains(domains, a.tables.MajorMediaMarkers) {
		score += 20
	}
	if a.freshnessSignal(records) {
		score += 15
	}
	return round2(math.Min(score, 100))
}

func anyDomainContains(domains, markers []string) bool {
	for _, d := range domains {
		ld := strings.ToLower(d)
		for _, m := range markers {
			if strings.Contains(ld, m) {
				return true
			}
		}
	}
	return false
}

func (a *Analyzer) freshnessSignal(records []model.QueryRecord) bool {
	for i := range records {
		r := &records[i]
		if !r.Scorable() {
			continue
		}
		if a.freshnessRE.MatchString(r.Response()) {
			return true
		}
	}
	return false
}
