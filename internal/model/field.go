package model

import (
	"encoding/json"
	"strings"
)

// Unknown is the sentinel string upstream AI providers use for scalar fields
// they could not resolve. It exists only at the JSON boundary; business logic
// checks Field.Known() instead of string-matching the sentinel.
const Unknown = "Unknown"

// Field is a research scalar that is either a known value or unresolved.
// It marshals unresolved values as the "Unknown" sentinel and treats the
// sentinel (and empty strings) as unresolved when unmarshaling.
type Field struct {
	value string
	known bool
}

// Known returns a resolved Field holding value. An empty or sentinel value
// yields an unresolved Field.
func Known(value string) Field {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, Unknown) {
		return Field{}
	}
	return Field{value: value, known: true}
}

// Unresolved returns the zero Field.
func Unresolved() Field {
	return Field{}
}

// IsKnown reports whether the field holds a resolved value.
func (f Field) IsKnown() bool {
	return f.known
}

// Value returns the resolved value, or "" when unresolved.
func (f Field) Value() string {
	if !f.known {
		return ""
	}
	return f.value
}

// String returns the resolved value, or the sentinel when unresolved.
func (f Field) String() string {
	if !f.known {
		return Unknown
	}
	return f.value
}

// MarshalJSON serializes the sentinel for unresolved fields.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts any JSON scalar; non-string scalars (numbers emitted
// by a sloppy model) are kept as their literal text.
func (f *Field) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Tolerate numbers/booleans from loosely-formatted completions.
		raw := strings.TrimSpace(string(data))
		if raw == "null" {
			*f = Field{}
			return nil
		}
		*f = Known(raw)
		return nil
	}
	*f = Known(s)
	return nil
}
