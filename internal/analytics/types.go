package analytics

// SourceRef is a citation normalized at the extraction boundary. The
// tagged-union shapes of stored citation payloads never leak past
// ExtractCitations.
type SourceRef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// DimensionScores holds the six raw dimension values. Sentiment keeps
// its native -100..100 range here and is rescaled to 0..100 only inside
// the composite blend.
type DimensionScores struct {
	Visibility    float64 `json:"visibility"`
	Authority     float64 `json:"authority"`
	Sentiment     float64 `json:"sentiment"`
	Completeness  float64 `json:"completeness"`
	SourceQuality float64 `json:"sourceQuality"`
	Optimization  float64 `json:"optimization"`
}

// Benchmark relates an overall score to the expected average for an
// industry.
type Benchmark struct {
	Industry     string  `json:"industry"`
	AverageScore float64 `json:"averageScore"`
	// Percentile is a linear approximation of position against the
	// industry average, clamped to [1, 99]. It is not derived from a
	// score distribution.
	Percentile int `json:"percentile"`
}

// Insights buckets qualitative findings into the four SWOT categories.
type Insights struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Recommendation is one structured remediation item.
type Recommendation struct {
	Priority        string   `json:"priority"`
	Category        string   `json:"category"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Impact          string   `json:"impact"`
	Effort          string   `json:"effort"`
	Timeline        string   `json:"timeline"`
	SpecificActions []string `json:"specificActions"`
}

// DomainStat is one row of the top-domain ranking.
type DomainStat struct {
	Domain          string  `json:"domain"`
	Count           int     `json:"count"`
	Tier            int     `json:"tier"`
	AuthorityWeight float64 `json:"authorityWeight"`
}

// SourceAnalysis aggregates extracted sources into tier counts, a
// structured-data count, a diversity score, and a top-10 domain ranking.
type SourceAnalysis struct {
	TotalSources          int          `json:"totalSources"`
	Tier1Sources          int          `json:"tier1Sources"`
	Tier2Sources          int          `json:"tier2Sources"`
	Tier3Sources          int          `json:"tier3Sources"`
	StructuredDataSources int          `json:"structuredDataSources"`
	DiversityScore        float64      `json:"diversityScore"`
	TopDomains            []DomainStat `json:"topDomains"`
}

// PlatformStats is one row of the per-platform comparison. Rows exist
// only for platforms that actually have records.
type PlatformStats struct {
	Platform        string  `json:"platform"`
	QueryCount      int     `json:"queryCount"`
	Visibility      float64 `json:"visibility"`
	Sentiment       float64 `json:"sentiment"`
	Completeness    float64 `json:"completeness"`
	SourceCount     int     `json:"sourceCount"`
	ResponseQuality float64 `json:"responseQuality"`
}

// Result is the full analytics output for one audit.
type Result struct {
	OverallScore       float64          `json:"overallScore"`
	Scores             DimensionScores  `json:"scores"`
	Benchmark          Benchmark        `json:"benchmark"`
	Insights           Insights         `json:"insights"`
	Recommendations    []Recommendation `json:"recommendations"`
	SourceAnalysis     SourceAnalysis   `json:"sourceAnalysis"`
	PlatformComparison []PlatformStats  `json:"platformComparison"`
	TableVersion       string           `json:"tableVersion"`
}
