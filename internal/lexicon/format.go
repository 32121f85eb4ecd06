package lexicon

import (
	"fmt"
	"strings"
)

// Format renders a cross-check report in the markdown layout the CLI
// prints.
func Format(rep Report) string {
	var b strings.Builder

	b.WriteString("# Sentiment Lexicon Cross-Check\n\n")
	fmt.Fprintf(&b, "- Table version: %s\n", rep.TableVersion)
	fmt.Fprintf(&b, "- Responses checked: %d (%d skipped)\n", rep.Checked, rep.Skipped)
	fmt.Fprintf(&b, "- Agreements: %d\n", rep.Agreements)
	fmt.Fprintf(&b, "- Disagreement rate: %.2f%%\n\n", rep.DisagreementRate)

	if len(rep.Disagreements) == 0 {
		b.WriteString("No disagreements. The keyword table tracks VADER on this record set.\n")
		return b.String()
	}

	b.WriteString("## Disagreements\n\n")
	for _, v := range rep.Disagreements {
		fmt.Fprintf(&b, "- [%s] %s: keywords %s (net %+d), VADER %s (compound %+.3f)\n",
			v.Platform, truncate(v.Query, 60), v.KeywordLabel, v.KeywordNet, v.VaderLabel, v.Compound)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
