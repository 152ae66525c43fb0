// Package expense distills structured expense fields out of raw receipt
// OCR text. Parsing is pure and total: every input yields a usable Data
// value through ordered fallback rules, never an error.
package expense

import (
	"time"

	"github.com/fepa-project/expense-ocr/constants"
)

// FallbackDescription is used when the text has no non-blank line at all.
const FallbackDescription = "OCR Scanned Receipt"

// Data is the immutable parse outcome.
type Data struct {
	Amount      float64
	Description string
	SpentAt     time.Time
	Category    constants.Category // empty when no keyword set matched
	Confidence  float64            // copied through from the OCR result
}

// Payload is the JSON shape of Data used in the persisted result payload
// and on the completion event.
type Payload struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	SpentAt     string  `json:"spentAt"`
	Category    string  `json:"category,omitempty"`
	Confidence  float64 `json:"confidence"`
}

func (d Data) Payload() Payload {
	return Payload{
		Amount:      d.Amount,
		Description: d.Description,
		SpentAt:     d.SpentAt.UTC().Format(time.RFC3339),
		Category:    string(d.Category),
		Confidence:  d.Confidence,
	}
}

// Result is the full payload persisted on a completed job.
type Result struct {
	RawText     string  `json:"rawText"`
	Confidence  float64 `json:"confidence"`
	ExpenseData Payload `json:"expenseData"`
}
