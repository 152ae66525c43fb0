package expense

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fepa-project/expense-ocr/constants"
)

// Amount rules are tried in order; the first match wins. A labeled total
// beats a bare number with a currency marker.
type amountRule struct {
	name string
	re   *regexp.Regexp
}

var amountRules = []amountRule{
	{"labeled", regexp.MustCompile(`(?i)(?:total|amount|tổng|thanh toán)[:\s]*([0-9,.]+)`)},
	{"currency", regexp.MustCompile(`(?i)([0-9,.]+)\s*(?:đ|vnd|₫|usd|\$)`)},
}

var dateRe = regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)

// day-first; receipts here are D/M/Y
var dateLayouts = []string{"2/1/2006", "2/1/06"}

// Parse extracts expense fields from normalized OCR text. It never fails:
// missing fields fall back to zero amount, now for the date, and a stock
// description. now is injected so callers and tests control the fallback clock.
func Parse(text string, confidence float64, now time.Time) Data {
	return Data{
		Amount:      parseAmount(text),
		Description: parseDescription(text),
		SpentAt:     parseDate(text, now),
		Category:    parseCategory(text),
		Confidence:  confidence,
	}
}

func parseAmount(text string) float64 {
	for _, rule := range amountRules {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// receipts write thousands with '.' or ','; strip both and read digits
		digits := strings.NewReplacer(",", "", ".", "").Replace(m[1])
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil || v <= 0 {
			continue
		}
		return v
	}
	return 0
}

func parseDescription(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return FallbackDescription
}

func parseDate(text string, now time.Time) time.Time {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return now.UTC()
	}
	raw := strings.ReplaceAll(m[1], "-", "/")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

func parseCategory(text string) constants.Category {
	if cat, ok := constants.DetectCategory(text); ok {
		return cat
	}
	return ""
}
