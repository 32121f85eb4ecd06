package analytics

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/halosight/presence-cli/internal/model"
)

// Tables holds the versioned lookup data behind the scoring heuristics:
// domain tier allow-lists, sentiment keywords, completeness checklists,
// optimization markers, and industry benchmarks. Scores are only
// comparable across audits computed with the same table version, so an
// edit is a version bump, not a tweak.
type Tables struct {
	Version string `yaml:"version" mapstructure:"version"`

	Tier1Domains []string `yaml:"tier1_domains" mapstructure:"tier1_domains"`
	Tier2Domains []string `yaml:"tier2_domains" mapstructure:"tier2_domains"`

	// StructuredMarkers flag knowledge-graph, registry, and markup
	// vocabulary sources in the distribution analysis.
	StructuredMarkers []string `yaml:"structured_markers" mapstructure:"structured_markers"`

	PositiveKeywords []string `yaml:"positive_keywords" mapstructure:"positive_keywords"`
	NegativeKeywords []string `yaml:"negative_keywords" mapstructure:"negative_keywords"`

	PersonRequired  []string `yaml:"person_required" mapstructure:"person_required"`
	PersonOptional  []string `yaml:"person_optional" mapstructure:"person_optional"`
	CompanyRequired []string `yaml:"company_required" mapstructure:"company_required"`
	CompanyOptional []string `yaml:"company_optional" mapstructure:"company_optional"`

	// Optimization checklist marker sets. Point values live in the
	// scorer; these sets decide whether each check fires.
	EncyclopediaMarkers       []string `yaml:"encyclopedia_markers" mapstructure:"encyclopedia_markers"`
	KnowledgeGraphMarkers     []string `yaml:"knowledge_graph_markers" mapstructure:"knowledge_graph_markers"`
	StructuredPlatformMarkers []string `yaml:"structured_platform_markers" mapstructure:"structured_platform_markers"`
	MajorMediaMarkers         []string `yaml:"major_media_markers" mapstructure:"major_media_markers"`

	// EntityInfoPattern marks a response as substantive for the
	// visibility bonus; FreshnessPattern detects recency signals for
	// the optimization scorer.
	EntityInfoPattern string `yaml:"entity_info_pattern" mapstructure:"entity_info_pattern"`
	FreshnessPattern  string `yaml:"freshness_pattern" mapstructure:"freshness_pattern"`

	IndustryBenchmarks map[string]float64 `yaml:"industry_benchmarks" mapstructure:"industry_benchmarks"`
	DefaultBenchmark   float64            `yaml:"default_benchmark" mapstructure:"default_benchmark"`
}

// DefaultTables returns the v1 table set.
func DefaultTables() *Tables {
	return &Tables{
		Version: "v1",

		Tier1Domains: []string{
			"wikipedia.org", "britannica.com", "reuters.com", "apnews.com",
			"bbc.com", "nytimes.com", "wsj.com", "ft.com", "bloomberg.com",
			"forbes.com", "theguardian.com", "economist.com", "npr.org",
			"nature.com", "science.org", ".gov", ".edu",
		},
		Tier2Domains: []string{
			"linkedin.com", "crunchbase.com", "techcrunch.com", "wired.com",
			"theverge.com", "venturebeat.com", "businessinsider.com",
			"fastcompany.com", "inc.com", "entrepreneur.com", "medium.com",
			"glassdoor.com", "g2.com", "capterra.com", "trustpilot.com",
			"producthunt.com", "github.com", "schema.org", "wikidata.org",
		},

		StructuredMarkers: []string{"wikidata", "crunchbase", "schema.org"},

		PositiveKeywords: []string{
			"leading", "innovative", "successful", "trusted", "excellent",
			"renowned", "award", "growth", "pioneer", "best", "top",
			"reliable", "expert", "acclaimed",
		},
		NegativeKeywords: []string{
			"controversial", "scandal", "lawsuit", "failure", "criticized",
			"fraud", "decline", "bankruptcy", "investigation", "complaint",
			"negative", "poor", "worst", "fined",
		},

		PersonRequired:  []string{"name", "title", "company", "background", "expertise"},
		PersonOptional:  []string{"education", "award", "publication", "linkedin", "achievement"},
		CompanyRequired: []string{"name", "founded", "founder", "product", "industry", "headquarters"},
		CompanyOptional: []string{"employee", "revenue", "mission", "website", "customer"},

		EncyclopediaMarkers:       []string{"wikipedia"},
		KnowledgeGraphMarkers:     []string{"wikidata"},
		StructuredPlatformMarkers: []string{"crunchbase", "linkedin", "schema.org"},
		MajorMediaMarkers:         []string{"forbes", "bloomberg", "reuters", "techcrunch", "wsj"},

		EntityInfoPattern: `(?i)founded|ceo|company|product|service`,
		FreshnessPattern:  `(?i)2024|2025|2026|recently|latest|current`,

		IndustryBenchmarks: map[string]float64{
			"technology":    72,
			"finance":       68,
			"healthcare":    65,
			"retail":        62,
			"manufacturing": 60,
		},
		DefaultBenchmark: 55,
	}
}

// LoadTables reads a table override file in YAML form. Fields absent from
// the file keep their default values, so an override may replace only the
// lists it cares about.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "analytics: read tables %s", path)
	}

	t := DefaultTables()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, eris.Wrapf(err, "analytics: parse tables %s", path)
	}
	if err := ValidateTables(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ValidateTables checks a table set for the problems an override file can
// introduce. All violations are collected into a single error.
func ValidateTables(t *Tables) error {
	var errs []string

	if t.Version == "" {
		errs = append(errs, "version must be set")
	}
	for name, list := range map[string][]string{
		"tier1_domains":     t.Tier1Domains,
		"tier2_domains":     t.Tier2Domains,
		"positive_keywords": t.PositiveKeywords,
		"negative_keywords": t.NegativeKeywords,
		"person_required":   t.PersonRequired,
		"company_required":  t.CompanyRequired,
	} {
		if len(list) == 0 {
			errs = append(errs, name+" must not be empty")
		}
	}
	if t.DefaultBenchmark <= 0 {
		errs = append(errs, "default_benchmark must be > 0")
	}
	for industry, avg := range t.IndustryBenchmarks {
		if avg <= 0 {
			errs = append(errs, "industry_benchmarks."+industry+" must be > 0")
		}
	}
	if _, err := regexp.Compile(t.EntityInfoPattern); err != nil {
		errs = append(errs, "entity_info_pattern does not compile")
	}
	if _, err := regexp.Compile(t.FreshnessPattern); err != nil {
		errs = append(errs, "freshness_pattern does not compile")
	}

	if len(errs) > 0 {
		return eris.Errorf("analytics: invalid tables: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Tier classifies a domain into credibility tier 1, 2, or 3 by substring
// containment against the allow-lists, tier 1 checked first.
func (t *Tables) Tier(domain string) int {
	d := strings.ToLower(domain)
	for _, m := range t.Tier1Domains {
		if strings.Contains(d, m) {
			return 1
		}
	}
	for _, m := range t.Tier2Domains {
		if strings.Contains(d, m) {
			return 2
		}
	}
	return 3
}

// structured reports whether the domain carries a knowledge-graph,
// registry, or markup-vocabulary indicator.
func (t *Tables) structured(domain string) bool {
	d := strings.ToLower(domain)
	for _, m := range t.StructuredMarkers {
		if strings.Contains(d, m) {
			return true
		}
	}
	return false
}

// checklists returns the required and optional completeness fields for
// the entity kind.
func (t *Tables) checklists(kind model.EntityKind) (required, optional []string) {
	if kind == model.EntityKindPerson {
		return t.PersonRequired, t.PersonOptional
	}
	return t.CompanyRequired, t.CompanyOptional
}
