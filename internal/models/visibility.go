package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// VisibilityKind tells which representation a Visibility carries.
type VisibilityKind int

const (
	VisibilityUnset VisibilityKind = iota
	VisibilityNumeric
	VisibilityText
)

// Visibility is the prevailing visibility of a forecast period. Upstream reports it
// either as a number of statute miles (6) or as a token ("6+"); both forms are kept
// exactly as received.
type Visibility struct {
	kind  VisibilityKind
	miles int
	text  string
}

// NumericVisibility returns a visibility reported as whole statute miles.
func NumericVisibility(miles int) Visibility {
	return Visibility{kind: VisibilityNumeric, miles: miles}
}

// TextVisibility returns a visibility reported as a token such as "6+" or "P6SM".
func TextVisibility(text string) Visibility {
	return Visibility{kind: VisibilityText, text: text}
}

func (v Visibility) Kind() VisibilityKind { return v.kind }

// Miles returns the numeric form; ok is false for textual or unset visibility.
func (v Visibility) Miles() (miles int, ok bool) {
	return v.miles, v.kind == VisibilityNumeric
}

// Text returns the textual form; ok is false for numeric or unset visibility.
func (v Visibility) Text() (text string, ok bool) {
	return v.text, v.kind == VisibilityText
}

func (v Visibility) String() string {
	switch v.kind {
	case VisibilityNumeric:
		return strconv.Itoa(v.miles)
	case VisibilityText:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON writes the original literal: a number for numeric visibility, a string otherwise.
func (v Visibility) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case VisibilityNumeric:
		return []byte(strconv.Itoa(v.miles)), nil
	case VisibilityText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts an integral number or a string. Strings are never converted to numbers.
func (v *Visibility) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Visibility{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, reason, msg := coerceVisibility(raw)
	if reason != "" {
		return &ValidationError{Field: "visib", Reason: reason, Message: msg}
	}
	*v = parsed
	return nil
}

func coerceVisibility(raw any) (Visibility, Reason, string) {
	switch val := raw.(type) {
	case string:
		return TextVisibility(val), "", ""
	case json.Number, float64, int, int64:
		miles, reason, msg := coerceInt(val)
		if reason != "" {
			return Visibility{}, reason, msg
		}
		return NumericVisibility(miles), "", ""
	default:
		return Visibility{}, ReasonWrongType, fmt.Sprintf("expected number or string, got %s", jsonKind(raw))
	}
}
