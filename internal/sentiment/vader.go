package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

// vaderLogitScale stretches VADER's compound score in [-1, 1] into a logit
// gap wide enough that clear-cut texts land well above 0.5 confidence.
const vaderLogitScale = 4.0

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern          = regexp.MustCompile(`https?://\S+|www\.\S+`)
	htmlTagPattern      = regexp.MustCompile(`<[^>]*>`)
)

// VaderBackend scores text with the VADER lexicon. It needs no model
// artifacts and serves local development and tests.
type VaderBackend struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderBackend() *VaderBackend {
	return &VaderBackend{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderBackend) Logits(text string) ([]float64, error) {
	score := v.analyzer.PolarityScores(ConvertMarkdownToText(text)).Compound
	return []float64{-vaderLogitScale * score, vaderLogitScale * score}, nil
}

func (v *VaderBackend) Close() error { return nil }

func RemoveLinks(input string) string {
	input = markdownLinkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input),
		blackfriday.WithNoExtensions(),
		// no smartypants: curly quotes would hide contractions from the lexicon
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{})))
	plainText := html.UnescapeString(htmlTagPattern.ReplaceAllString(string(output), " "))
	plainText = strings.Join(strings.Fields(plainText), " ")

	return RemoveLinks(plainText)
}
