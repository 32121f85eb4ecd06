package analytics

import "sort"

// Recommendation trigger thresholds. Sentiment triggers on any negative
// net tone; the others trigger below 60.
const (
	recTrigger          = 60.0
	recSentimentTrigger = 0.0

	visibilityCriticalBelow = 30.0
	sentimentCriticalBelow  = -50.0
	optimizationHighBelow   = 30.0
)

// priorityRank orders recommendation priorities for sorting.
var priorityRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

// BuildRecommendations emits one remediation item per dimension under
// its trigger threshold and sorts them critical first. The sort is
// stable, so items of equal priority keep dimension order.
func BuildRecommendations(s DimensionScores) []Recommendation {
	recs := make([]Recommendation, 0, 6)

	if s.Visibility < recTrigger {
		priority := "high"
		if s.Visibility < visibilityCriticalBelow {
			priority = "critical"
		}
		recs = append(recs, Recommendation{
			Priority:    priority,
			Category:    "visibility",
			Title:       "Increase AI platform visibility",
			Description: "AI platforms return thin or generic answers about the entity. Publish authoritative, crawlable content that answers the questions people actually ask about it.",
			Impact:      "high",
			Effort:      "medium",
			Timeline:    "1-3 months",
			SpecificActions: []string{
				"Publish a detailed About page covering history, leadership, and offerings",
				"Answer common questions about the entity directly on owned pages",
				"Issue press releases for notable milestones so crawlers pick them up",
			},
		})
	}

	if s.Authority < recTrigger {
		recs = append(recs, Recommendation{
			Priority:    "high",
			Category:    "authority",
			Title:       "Earn citations from high-authority sources",
			Description: "Responses cite mostly low-credibility sources. Coverage in top-tier news, reference, and academic outlets raises the weight AI platforms give the entity.",
			Impact:      "high",
			Effort:      "high",
			Timeline:    "3-6 months",
			SpecificActions: []string{
				"Pitch expert commentary to journalists at major outlets",
				"Secure or expand a Wikipedia article backed by independent coverage",
				"Publish citable research or data that reporters will reference",
			},
		})
	}

	if s.Sentiment < recSentimentTrigger {
		priority := "high"
		if s.Sentiment < sentimentCriticalBelow {
			priority = "critical"
		}
		recs = append(recs, Recommendation{
			Priority:    priority,
			Category:    "sentiment",
			Title:       "Counter negative sentiment in AI responses",
			Description: "AI responses lean on negative language about the entity. Fresh positive coverage and direct responses to criticism shift the balance over time.",
			Impact:      "high",
			Effort:      "medium",
			Timeline:    "1-3 months",
			SpecificActions: []string{
				"Publish customer success stories and third-party endorsements",
				"Address recurring criticisms head-on with public responses",
				"Promote awards, certifications, and community work",
			},
		})
	}

	if s.Completeness < recTrigger {
		recs = append(recs, Recommendation{
			Priority:    "medium",
			Category:    "completeness",
			Title:       "Fill gaps in the entity's public record",
			Description: "AI responses are missing expected facts about the entity. Making the full fact set easy to find closes those gaps.",
			Impact:      "medium",
			Effort:      "low",
			Timeline:    "2-4 weeks",
			SpecificActions: []string{
				"Publish founding date, leadership, headquarters, and product facts on owned pages",
				"Keep Crunchbase and LinkedIn profiles complete and current",
				"Add an FAQ covering the facts people ask about most",
			},
		})
	}

	if s.SourceQuality < recTrigger {
		recs = append(recs, Recommendation{
			Priority:    "medium",
			Category:    "sourceQuality",
			Title:       "Diversify and upgrade the citation mix",
			Description: "Citations are concentrated in a few low-tier domains. A broader mix of credible sources makes responses more robust and harder to skew.",
			Impact:      "medium",
			Effort:      "medium",
			Timeline:    "2-4 months",
			SpecificActions: []string{
				"Place bylined articles across several industry publications",
				"Add structured data markup so machine-readable sources exist",
				"Build profiles on the directories AI platforms actually cite",
			},
		})
	}

	if s.Optimization < recTrigger {
		priority := "medium"
		if s.Optimization < optimizationHighBelow {
			priority = "high"
		}
		recs = append(recs, Recommendation{
			Priority:    priority,
			Category:    "optimization",
			Title:       "Optimize for machine-readable presence",
			Description: "The entity lacks the structured signals AI platforms prefer. Encyclopedia entries, knowledge-graph records, and schema markup make it directly machine-readable.",
			Impact:      "high",
			Effort:      "medium",
			Timeline:    "1-2 months",
			SpecificActions: []string{
				"Create or claim a Wikidata entry with complete statements",
				"Add schema.org Organization or Person markup to owned pages",
				"Keep dated, current content live so freshness signals fire",
			},
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	return recs
}
