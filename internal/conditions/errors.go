package conditions

import (
	"errors"
	"fmt"
)

// Domain errors for the conditions package.
//
// Parse failures are returned as *ParseError values wrapping one of the
// sentinels below, so both errors.Is and errors.As work:
//
//	var perr *conditions.ParseError
//	if errors.As(err, &perr) {
//	    log.Warn("bad condition", "pos", perr.Pos, "detail", perr.Msg)
//	}
var (
	// ErrParse is returned for malformed input (bad token, unbalanced
	// parentheses, trailing garbage, empty expression).
	ErrParse = errors.New("conditions: parse error")

	// ErrUnknownField is returned when an identifier does not match any
	// declared scalar or set field.
	ErrUnknownField = errors.New("conditions: unknown field")

	// ErrTypeMismatch is returned when operand types are incompatible
	// with an operator.
	ErrTypeMismatch = errors.New("conditions: type mismatch")

	// ErrEvaluation is returned by Eval for runtime failures such as
	// integer division by zero.
	ErrEvaluation = errors.New("conditions: evaluation failed")
)

// ParseError describes where and why parsing failed.
type ParseError struct {
	// Input is the full expression being parsed.
	Input string

	// Pos is the byte offset of the offending token.
	Pos int

	// Msg is a human-readable description of the failure.
	Msg string

	cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s in %q", e.cause, e.Pos, e.Msg, e.Input)
}

// Unwrap returns the sentinel this parse error wraps
// (ErrParse, ErrUnknownField or ErrTypeMismatch).
func (e *ParseError) Unwrap() error {
	return e.cause
}

func newParseError(cause error, input string, pos int, format string, args ...any) *ParseError {
	return &ParseError{
		Input: input,
		Pos:   pos,
		Msg:   fmt.Sprintf(format, args...),
		cause: cause,
	}
}
