package design

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidResult marks a generation backend response that fails the
// structural contract.
var ErrInvalidResult = errors.New("INVALID_GENERATION_RESULT")

// requiredKeys are the top-level keys every generation result must carry.
// Checked in this order; the first missing key wins.
var requiredKeys = []string{"services", "databases", "apis", "diagrams", "notes"}

// Violation describes the first structural problem found in a result.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v *Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// CheckResult inspects an already-parsed generation result and returns the
// first structural violation, or nil when the result is acceptable.
//
// The check is deliberately shallow: it verifies key presence, not semantic
// correctness. It exists to catch backend contract drift and truncated or
// garbled responses.
func CheckResult(result map[string]interface{}) *Violation {
	if result == nil {
		return &Violation{Field: "$", Message: "result is not a keyed mapping"}
	}

	for _, key := range requiredKeys {
		if _, ok := result[key]; !ok {
			return &Violation{Field: key, Message: "required field missing"}
		}
	}

	if diagrams, ok := result["diagrams"].([]interface{}); ok && len(diagrams) > 0 {
		first, ok := diagrams[0].(map[string]interface{})
		if !ok {
			return &Violation{Field: "diagrams[0]", Message: "first diagram is not a mapping"}
		}
		if _, ok := first["type"]; !ok {
			return &Violation{Field: "diagrams[0].type", Message: "required field missing"}
		}
		if _, ok := first["content"]; !ok {
			return &Violation{Field: "diagrams[0].content", Message: "required field missing"}
		}
	}

	return nil
}

// ValidateResult is CheckResult folded into an error for pipeline use.
func ValidateResult(result map[string]interface{}) error {
	if v := CheckResult(result); v != nil {
		return fmt.Errorf("%w: %s", ErrInvalidResult, v)
	}
	return nil
}

// ValidateRaw parses raw JSON and validates the resulting mapping.
// Unparseable input is invalid.
func ValidateRaw(raw []byte) error {
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", ErrInvalidResult, err)
	}
	return ValidateResult(result)
}
