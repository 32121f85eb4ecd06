package analytics

import (
	"net/url"
	"strings"
)

// Tier authority weights. Tier 1 is major news, reference, and academic
// domains; tier 2 trade press and structured-data platforms; tier 3
// everything else.
const (
	tier1Weight = 100.0
	tier2Weight = 60.0
	tier3Weight = 30.0
)

// Domain normalizes a citation URL to a lower-cased hostname with any
// leading "www." stripped. Inputs that do not parse as URLs with a host
// (bare source names like "wikipedia.org" are common) are passed through
// verbatim so classification degrades to substring matching instead of
// failing.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// TierWeight maps a credibility tier to its authority weight.
func TierWeight(tier int) float64 {
	switch tier {
	case 1:
		return tier1Weight
	case 2:
		return tier2Weight
	default:
		return tier3Weight
	}
}
