// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import "fmt"

// SyntaxError reports a lex/parse failure at a source position, with the
// token kind(s) that would have been accepted there.
type SyntaxError struct {
	Position int
	Expected string
	Message  string
}

func (e *SyntaxError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("syntax error at %d: expected %s: %s", e.Position, e.Expected, e.Message)
	}
	return fmt.Sprintf("syntax error at %d: %s", e.Position, e.Message)
}

// UnknownFieldError reports a pipeline command referencing a field absent
// from the current aggregate/result schema.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Name)
}

// TypeMismatchError reports a stats aggregation applied to a field whose
// runtime type does not match what the function requires.
type TypeMismatchError struct {
	Field    string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch on field %q: expected %s, got %s", e.Field, e.Expected, e.Got)
}
