package expense

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resultSchema guards the persisted payload shape. A schema violation here
// means a programming error upstream, not bad input, but it is cheaper to
// reject the payload than to store a malformed one.
const resultSchemaJSON = `{
  "type": "object",
  "required": ["rawText", "confidence", "expenseData"],
  "properties": {
    "rawText": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 100},
    "expenseData": {
      "type": "object",
      "required": ["amount", "description", "spentAt", "confidence"],
      "properties": {
        "amount": {"type": "number", "minimum": 0},
        "description": {"type": "string", "minLength": 1},
        "spentAt": {"type": "string"},
        "category": {"type": "string", "enum": ["food", "transport", "shopping", "health", "entertainment"]},
        "confidence": {"type": "number", "minimum": 0, "maximum": 100}
      }
    }
  }
}`

var resultSchema = jsonschema.MustCompileString("result.schema.json", resultSchemaJSON)

// BuildResult assembles and validates the payload stored on a completed job.
func BuildResult(rawText string, confidence float64, data Data) ([]byte, error) {
	res := Result{
		RawText:     rawText,
		Confidence:  confidence,
		ExpenseData: data.Payload(),
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode result for validation: %w", err)
	}
	if err := resultSchema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("result payload invalid: %w", err)
	}
	return raw, nil
}
