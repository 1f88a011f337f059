package relcache

import "errors"

var (
	// ErrNoRelation is returned by Get when the key selector yields
	// NoRelation and no default is configured.
	ErrNoRelation = errors.New("relcache: no relation")

	// ErrInvalidKey is returned when the key selector yields a value that
	// cannot name a record (anything but a string, an int or null).
	ErrInvalidKey = errors.New("relcache: invalid key")

	// ErrInvalidOption is returned by New for an option that does not fit
	// the cache's type parameters.
	ErrInvalidOption = errors.New("relcache: invalid option")
)
