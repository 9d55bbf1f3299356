package models

import "fmt"

// Reason classifies why a field failed validation.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonWrongType   Reason = "wrong_type"
	ReasonWrongFormat Reason = "wrong_format"
)

// ValidationError reports the first field of a record that could not be validated.
// Field is a dotted path relative to the record, e.g. "fcsts[1].clouds[0].cover".
type ValidationError struct {
	Field   string
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s: %s", e.Reason, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s: %s", e.Field, e.Reason, e.Message)
}
