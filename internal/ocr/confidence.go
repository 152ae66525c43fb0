package ocr

import (
	"regexp"
	"strings"
)

var (
	reDateish = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`)
	reCurr    = regexp.MustCompile(`\b(usd|vnd|eur|gbp)\b|[$£€₫]|đ`)
	reAmount  = regexp.MustCompile(`\b\d{1,3}([,.]\d{3})+\b|\b\d+[.,]\d{2}\b`)
)

// heuristicConfidence scores decoded text on a 0-100 scale based on receipt
// artifacts (date-ish, currency-ish, amount-ish tokens and overall length).
// Only used when the engine produced no per-word confidence.
func heuristicConfidence(txt string) float64 {
	txtL := strings.ToLower(txt)
	score := 20.0 // base
	if reDateish.MatchString(txtL) {
		score += 20
	}
	if reCurr.MatchString(txtL) {
		score += 15
	}
	if reAmount.MatchString(txtL) {
		score += 15
	}
	if len(txt) > 120 {
		score += 10
	} // enough content
	if score > 100 {
		score = 100
	}
	return score
}
