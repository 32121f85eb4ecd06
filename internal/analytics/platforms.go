package analytics

import "github.com/halosight/presence-cli/internal/model"

// ComparePlatforms recomputes the response-facing dimensions per base
// platform, in the canonical platform order. A record belongs to a base
// platform when it matches directly or through the platform's search
// variant. Platforms with no records are omitted rather than zero-filled
// so consumers can tell "not audited" from "audited and scored 0".
func (a *Analyzer) ComparePlatforms(records []model.QueryRecord) []PlatformStats {
	stats := make([]PlatformStats, 0, len(model.BasePlatforms()))

	for _, base := range model.BasePlatforms() {
		subset := filterPlatform(records, base)
		if len(subset) == 0 {
			continue
		}

		visibility := a.Visibility(subset)
		sentiment := a.Sentiment(subset)
		// Always the company checklist here, whatever kind is being
		// audited. Kept for parity with stored historical rows.
		completeness := a.Completeness(subset, model.EntityKindCompany)

		stats = append(stats, PlatformStats{
			Platform:        base,
			QueryCount:      len(subset),
			Visibility:      visibility,
			Sentiment:       sentiment,
			Completeness:    completeness,
			SourceCount:     len(ExtractCitations(subset)),
			ResponseQuality: round2((visibility + (sentiment+100)/2 + completeness) / 3),
		})
	}
	return stats
}

func filterPlatform(records []model.QueryRecord, base string) []model.QueryRecord {
	var subset []model.QueryRecord
	for i := range records {
		if model.BasePlatform(records[i].Platform) == base {
			subset = append(subset, records[i])
		}
	}
	return subset
}
