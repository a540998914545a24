package core

import (
	"encoding/csv"
	"errors"
	"fmt"
)

// MalformedInputError reports input text that cannot be parsed into a
// header plus rows. It is fatal for the file.
type MalformedInputError struct {
	Line   int    // 1-based line, 0 if unknown
	Reason string // What was wrong
	Err    error  // Underlying parser error, if any
}

func (e *MalformedInputError) Error() string {
	msg := "malformed input"
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d", msg, e.Line)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// NormalizationInvariantError reports a value that passed validation but
// could not be coerced. It signals a mismatch between validation rules and
// normalization coercions and is fatal for the file.
type NormalizationInvariantError struct {
	Row   int
	Field string
	Value string
	Type  FieldType
	Err   error
}

func (e *NormalizationInvariantError) Error() string {
	return fmt.Sprintf("normalization invariant violated: row %d field %q value %q is not a valid %s: %v",
		e.Row, e.Field, e.Value, e.Type, e.Err)
}

func (e *NormalizationInvariantError) Unwrap() error {
	return e.Err
}

// IsMalformedInput reports whether err is or wraps a MalformedInputError.
func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}

// IsNormalizationInvariant reports whether err is or wraps a NormalizationInvariantError.
func IsNormalizationInvariant(err error) bool {
	var target *NormalizationInvariantError
	return errors.As(err, &target)
}

// malformedFromCSV converts an encoding/csv error into a MalformedInputError.
func malformedFromCSV(err error) *MalformedInputError {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &MalformedInputError{Line: pe.Line, Reason: pe.Err.Error(), Err: err}
	}
	return &MalformedInputError{Reason: err.Error(), Err: err}
}
