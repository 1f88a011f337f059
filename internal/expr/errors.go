package expr

import "errors"

var (
	// ErrPrecondition marks a programming error: a nil or empty operand
	// handed to a combinator. Combinators panic with an error wrapping it.
	ErrPrecondition = errors.New("expr: precondition violated")

	// ErrInvalidArgument is returned when an n-ary combinator or decoder
	// receives fewer operands than it needs.
	ErrInvalidArgument = errors.New("expr: invalid argument")

	// ErrNotSupported is returned for an unrecognized operator or function.
	ErrNotSupported = errors.New("expr: operation not supported")

	// ErrUnlinked is returned when a Lookup node is compiled without a
	// Linker able to bind it.
	ErrUnlinked = errors.New("expr: unlinked lookup")

	// ErrType is returned when an operand has the wrong kind at evaluation
	// time, e.g. a string where a bool is required.
	ErrType = errors.New("expr: type mismatch")
)
