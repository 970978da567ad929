package telemetry

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

const (
	ValencePositive = "positive"
	ValenceNegative = "negative"
	ValenceNeutral  = "neutral"

	valenceCutoff = 0.20
)

var (
	analyzer    = govader.NewSentimentIntensityAnalyzer()
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

// PlainText renders markdown, drops the HTML tags and links, and collapses
// whitespace.
func PlainText(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	text := tagPattern.ReplaceAllString(string(rendered), " ")
	text = urlPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Valence returns the VADER compound score of text in [-1,1] and its polarity.
// VADER's lexicon is English, so callers pass pivot-language text.
func Valence(text string) (float64, string) {
	score := analyzer.PolarityScores(PlainText(text)).Compound

	switch {
	case score >= valenceCutoff:
		return score, ValencePositive
	case score <= -valenceCutoff:
		return score, ValenceNegative
	default:
		return score, ValenceNeutral
	}
}
