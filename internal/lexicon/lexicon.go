// Package lexicon cross-checks the sentiment keyword tables against the
// VADER model. The sentiment dimension classifies responses from a
// small versioned keyword list; this package replays stored responses
// through both that list and VADER, collects the records where the two
// disagree on polarity, and reports the disagreement rate. It is a QA
// tool for table edits and never feeds back into scoring.
package lexicon

import (
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
)

// compoundThreshold splits the VADER compound score into the three
// polarity labels. 0.20 either way is the conventional cut.
const compoundThreshold = 0.20

// Verdict is the two-model classification of one response.
type Verdict struct {
	RecordID     string  `json:"recordId,omitempty"`
	Platform     string  `json:"platform,omitempty"`
	Query        string  `json:"query,omitempty"`
	KeywordNet   int     `json:"keywordNet"`
	KeywordLabel string  `json:"keywordLabel"`
	Compound     float64 `json:"compound"`
	VaderLabel   string  `json:"vaderLabel"`
	Agree        bool    `json:"agree"`
}

// Report summarizes a cross-check over one record set. DisagreementRate
// is a percentage of the checked records.
type Report struct {
	TableVersion     string    `json:"tableVersion"`
	Checked          int       `json:"checked"`
	Skipped          int       `json:"skipped"`
	Agreements       int       `json:"agreements"`
	Disagreements    []Verdict `json:"disagreements,omitempty"`
	DisagreementRate float64   `json:"disagreementRate"`
}

// Checker pairs the keyword analyzer with a VADER analyzer so both
// sides of the comparison run over the same responses.
type Checker struct {
	analyzer *analytics.Analyzer
	vader    *govader.SentimentIntensityAnalyzer
}

// NewChecker builds a Checker. Options are forwarded to the analytics
// engine, so a table override file checks the same lists it scores
// with.
func NewChecker(opts ...analytics.Option) *Checker {
	return &Checker{
		analyzer: analytics.New(opts...),
		vader:    govader.NewSentimentIntensityAnalyzer(),
	}
}

// Check classifies one response text under both models. The keyword
// side reads the raw text exactly as the sentiment dimension does; the
// VADER side reads the markdown-stripped rendering, since URLs and
// markup would otherwise register as tokens.
func (c *Checker) Check(text string) Verdict {
	net := c.analyzer.KeywordNet(text)
	compound := c.vader.PolarityScores(Plaintext(text)).Compound

	v := Verdict{
		KeywordNet:   net,
		KeywordLabel: labelFromNet(net),
		Compound:     compound,
		VaderLabel:   labelFromCompound(compound),
	}
	v.Agree = v.KeywordLabel == v.VaderLabel
	return v
}

// CheckRecords cross-checks every scorable record in the set. Records
// that never produced a response count as skipped, not as empty text.
func (c *Checker) CheckRecords(records []model.QueryRecord) Report {
	rep := Report{TableVersion: c.analyzer.TableVersion()}
	for i := range records {
		r := &records[i]
		if !r.Scorable() {
			rep.Skipped++
			continue
		}
		rep.Checked++

		v := c.Check(r.Response())
		v.RecordID = r.ID
		v.Platform = r.Platform
		v.Query = r.QueryText
		if v.Agree {
			rep.Agreements++
		} else {
			rep.Disagreements = append(rep.Disagreements, v)
		}
	}
	if rep.Checked > 0 {
		rep.DisagreementRate = round2(100 * float64(len(rep.Disagreements)) / float64(rep.Checked))
	}
	return rep
}

var (
	htmlTagRE = regexp.MustCompile(`<[^>]*>`)
	bareURLRE = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// Plaintext reduces a markdown response to plain text. The markdown is
// rendered and the tags stripped, entities are resolved, and bare URLs
// are dropped so domain names do not count as words.
func Plaintext(input string) string {
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	text := htmlTagRE.ReplaceAllString(string(rendered), " ")
	text = html.UnescapeString(text)
	text = bareURLRE.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func labelFromNet(net int) string {
	switch {
	case net > 0:
		return "positive"
	case net < 0:
		return "negative"
	default:
		return "neutral"
	}
}

func labelFromCompound(compound float64) string {
	switch {
	case compound >= compoundThreshold:
		return "positive"
	case compound <= -compoundThreshold:
		return "negative"
	default:
		return "neutral"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
