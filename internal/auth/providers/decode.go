package providers

import (
	"bytes"
	"encoding/json"
)

// decodeOutcome separates "nothing to parse" from "could not parse".
type decodeOutcome int

const (
	outcomeParsed decodeOutcome = iota
	outcomeEmpty
	outcomeMalformed
)

func decodeJSON(body []byte, v any) (decodeOutcome, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return outcomeEmpty, nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return outcomeMalformed, err
	}
	return outcomeParsed, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
