package store

import (
	"github.com/google/uuid"
)

// HandleGenerator produces ids for seeded records that carry none.
type HandleGenerator interface {
	Generate() string
}

// HandleFunc adapts a function to HandleGenerator.
type HandleFunc func() string

// Generate implements HandleGenerator.
func (f HandleFunc) Generate() string { return f() }

// UUIDv7Generator generates time-sortable UUIDv7 handles.
//
// UUIDv7 embeds a timestamp in the most significant bits, so records
// seeded later sort after earlier ones in Scan.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
