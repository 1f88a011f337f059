package filter

import "errors"

var (
	// ErrDuplicateKey is returned by Graph.Add when a node with the same
	// key is already registered. Callers look up first and merge on a hit.
	ErrDuplicateKey = errors.New("filter: duplicate key")

	// ErrTypeMismatch is returned when a node registered under a key does
	// not have the Go types the caller asked for.
	ErrTypeMismatch = errors.New("filter: type mismatch")
)
