package audit

import (
	"strings"

	"github.com/halosight/presence-cli/internal/model"
)

// Question templates per entity kind. {name} and {industry} expand from
// the entity being audited. Industry questions probe unprompted recall
// (does the entity come up when it isn't named?) and are skipped for
// entities without an industry.
var (
	companyQueries = []string{
		"What is {name}?",
		"What products or services does {name} offer?",
		"Is {name} a reputable company? What do customers say about it?",
		"Who founded {name} and who leads it today?",
		"Who are the main competitors of {name}?",
	}

	companyIndustryQueries = []string{
		"What are the best {industry} companies?",
		"Which {industry} company would you recommend, and why?",
	}

	personQueries = []string{
		"Who is {name}?",
		"What is {name} known for professionally?",
		"What is {name}'s background and career history?",
	}

	personIndustryQueries = []string{
		"Who are the most recognized experts in {industry}?",
		"Whose work in {industry} is worth following?",
	}
)

// GenerateQueries renders the question set for one entity. Unknown kinds
// fall back to the company set.
func GenerateQueries(entity model.Entity) []string {
	templates := companyQueries
	industryTemplates := companyIndustryQueries
	if entity.Kind == model.EntityKindPerson {
		templates = personQueries
		industryTemplates = personIndustryQueries
	}

	queries := make([]string, 0, len(templates)+len(industryTemplates))
	for _, t := range templates {
		queries = append(queries, strings.ReplaceAll(t, "{name}", entity.Name))
	}
	if entity.Industry != "" {
		for _, t := range industryTemplates {
			queries = append(queries, strings.ReplaceAll(t, "{industry}", entity.Industry))
		}
	}
	return queries
}

// ExpandPlatforms inserts the search variant after each base platform
// when variants are requested. Duplicates collapse; identifiers that are
// already variants, or not known platforms, pass through unchanged.
func ExpandPlatforms(platforms []string, includeSearch bool) []string {
	out := make([]string, 0, len(platforms)*2)
	seen := make(map[string]bool, len(platforms)*2)
	add := func(p string) {
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, p := range platforms {
		add(p)
		if includeSearch && model.KnownPlatform(p) && !model.IsSearchVariant(p) {
			add(model.SearchVariant(p))
		}
	}
	return out
}
