package relcache

import (
	"context"
	"log/slog"
)

type settings struct {
	logger *slog.Logger
	deflt  any
}

// Option configures a Cache.
type Option func(*settings)

// WithLogger sets the logger used for resolution and invalidation events.
// Defaults to a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithDefault supplies the value for sources whose key selector yields
// NoRelation. Without it Get fails with ErrNoRelation. The function's
// types must match the cache's source and value types; New checks this.
//
// A typical default falls back to a field read directly on the source.
func WithDefault[S, V any](fn func(ctx context.Context, source S) (V, error)) Option {
	return func(s *settings) {
		s.deflt = fn
	}
}
