package store

import (
	"bytes"
	"encoding/json"
)

// JSONColumn normalizes a client-supplied value for persistence in a JSON
// text column. Callers may send either an already-serialized JSON string or
// a structured value; both are reduced to serialized text through this one
// codec so every write path stores the same shape.
func JSONColumn(raw json.RawMessage, fallback string) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fallback
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// NullableJSONColumn is JSONColumn for columns that store NULL when the
// client sent nothing.
func NullableJSONColumn(raw json.RawMessage) *string {
	v := JSONColumn(raw, "")
	if v == "" {
		return nil
	}
	return &v
}
