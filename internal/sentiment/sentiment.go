// Package sentiment scores text polarity on a [-1, 1] scale with the VADER
// lexicon and rules.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
	"golang.org/x/text/unicode/norm"
)

// OCR output often carries typographic quotes, which would hide contractions
// such as "don’t" from the negation rules.
var quotes = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`)

// Analyzer computes polarity. It is safe for concurrent use.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

func New() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the VADER compound score: negative, neutral (0, also for
// empty or unrecognized text) or positive.
func (a *Analyzer) Polarity(text string) float64 {
	text = strings.TrimSpace(quotes.Replace(norm.NFKC.String(text)))
	if text == "" {
		return 0
	}
	return clamp(a.vader.PolarityScores(text).Compound)
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
