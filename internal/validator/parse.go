package validator

import (
	"encoding/json"
	"fmt"
)

// ParseTemplate decodes raw model output into a Template. It does not run
// the validation layers — that is a separate, explicit step so a caller can
// inspect a malformed-but-parseable template's errors rather than only
// seeing a decode failure.
func ParseTemplate(raw []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return &t, nil
}
