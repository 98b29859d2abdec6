// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package translate

import (
	"fmt"
)

// UnsupportedFunctionError is returned when a function name is not in the
// dispatch table.
type UnsupportedFunctionError struct {
	Name string
}

func (e UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("unsupported function %q", e.Name)
}

// ArgumentArityError is returned when an operator or function receives the
// wrong number of operands or arguments.
type ArgumentArityError struct {
	Op   string
	Want string
	Got  int
}

func (e ArgumentArityError) Error() string {
	return fmt.Sprintf("%q expects %s argument(s), got %d", e.Op, e.Want, e.Got)
}

// SemanticValidationError is returned when a structurally valid construct has
// an argument of an invalid kind, e.g. a non-boolean where condition. It
// indicates a fault in the expression itself.
type SemanticValidationError struct {
	Op     string
	Reason string
}

func (e SemanticValidationError) Error() string {
	return fmt.Sprintf("%q: %s", e.Op, e.Reason)
}

// EvaluationCardinalityError is returned when a construct is applied to a
// value whose shape cannot satisfy it, e.g. iif invoked on a multi-element
// collection. It indicates a mismatch with the data rather than a fault in
// the expression, and callers report it differently from
// SemanticValidationError.
type EvaluationCardinalityError struct {
	Op     string
	Reason string
}

func (e EvaluationCardinalityError) Error() string {
	return fmt.Sprintf("%q: %s", e.Op, e.Reason)
}
