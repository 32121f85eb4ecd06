package analytics

// Insight thresholds. A dimension above the high bar is a strength and
// below the low bar a weakness, except sentiment (which files as a
// threat) and optimization (which files as an opportunity). Everything
// between the bars produces nothing.
const (
	insightHigh = 70.0
	insightLow  = 40.0

	sentimentInsightHigh = 30.0
	sentimentInsightLow  = -30.0
)

// BuildInsights applies the fixed threshold rules to each dimension in
// dimension order, so insight lists are deterministic for a given score
// set. At most one insight per dimension.
func BuildInsights(s DimensionScores) Insights {
	ins := Insights{
		Strengths:     []string{},
		Weaknesses:    []string{},
		Opportunities: []string{},
		Threats:       []string{},
	}

	if s.Visibility > insightHigh {
		ins.Strengths = append(ins.Strengths,
			"Strong AI visibility: platforms surface the entity prominently and in detail")
	} else if s.Visibility < insightLow {
		ins.Weaknesses = append(ins.Weaknesses,
			"Low AI visibility: platforms return little or no substantive information about the entity")
	}

	if s.Authority > insightHigh {
		ins.Strengths = append(ins.Strengths,
			"High-authority citations: responses draw on top-tier news, reference, and academic sources")
	} else if s.Authority < insightLow {
		ins.Weaknesses = append(ins.Weaknesses,
			"Weak citation authority: responses lean on low-credibility or unknown sources")
	}

	if s.Sentiment > sentimentInsightHigh {
		ins.Strengths = append(ins.Strengths,
			"Positive sentiment: AI responses describe the entity in favorable terms")
	} else if s.Sentiment < sentimentInsightLow {
		ins.Threats = append(ins.Threats,
			"Negative sentiment: AI responses carry unfavorable language that can shape perception at scale")
	}

	if s.Completeness > insightHigh {
		ins.Strengths = append(ins.Strengths,
			"Complete coverage: responses include most of the expected facts about the entity")
	} else if s.Completeness < insightLow {
		ins.Weaknesses = append(ins.Weaknesses,
			"Incomplete coverage: key facts about the entity are missing from AI responses")
	}

	if s.SourceQuality > insightHigh {
		ins.Strengths = append(ins.Strengths,
			"Healthy source mix: citations are diverse and include structured data")
	} else if s.SourceQuality < insightLow {
		ins.Weaknesses = append(ins.Weaknesses,
			"Poor source mix: citations are concentrated, low-tier, or lack structured data")
	}

	if s.Optimization > insightHigh {
		ins.Strengths = append(ins.Strengths,
			"Well optimized for AI: encyclopedia, knowledge-graph, and fresh content signals are in place")
	} else if s.Optimization < insightLow {
		ins.Opportunities = append(ins.Opportunities,
			"Optimization headroom: establishing encyclopedia, knowledge-graph, and structured-data presence would lift every platform's answers")
	}

	return ins
}
