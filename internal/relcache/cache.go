package relcache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/ir"
)

// ID names a referenced record within its store.
type ID string

// NoRelation is the ID a key selector yields for a source that references
// nothing.
const NoRelation ID = ""

// Resolver loads the referenced record named by an ID.
type Resolver[R any] interface {
	Resolve(ctx context.Context, id ID) (R, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[R any] func(ctx context.Context, id ID) (R, error)

// Resolve implements Resolver.
func (f ResolverFunc[R]) Resolve(ctx context.Context, id ID) (R, error) {
	return f(ctx, id)
}

// Selector derives the cached value from a resolved record.
type Selector[R, V any] func(ctx context.Context, referenced R) (V, error)

// Stats counts cache traffic since creation.
type Stats struct {
	Hits        int `json:"hits"`
	Misses      int `json:"misses"`
	Resolutions int `json:"resolutions"`
}

// Cache memoizes Selector(Resolve(key(source))) per ID.
//
// Invariant: an ID present in entries maps to the value computed by the
// current selector from the record Resolve returned for it.
//
// Thread-safety: Cache is not safe for concurrent use. Get fills entries
// and handlers run synchronously inside the call that made the change.
//
// Example:
//
//	c, _ := relcache.New[Entity](byLayer, layers, func(_ context.Context, l Layer) (bool, error) {
//		return !l.Locked, nil
//	})
//	ok, err := c.Get(ctx, entity) // resolves the layer once per ID
//	c.Invalidate(relcache.ID(entity.LayerID))
type Cache[S expr.Record, R any, V any] struct {
	key       *expr.Lazy
	resolver  Resolver[R]
	selector  Selector[R, V]
	deflt     func(context.Context, S) (V, error)
	entries   map[ID]V
	observers observers
	stats     Stats
	logger    *slog.Logger
}

// New creates a cache. key maps a source to the ID of the record it
// references; see KeyOf for the conversion rules.
func New[S expr.Record, R any, V any](key expr.Lambda, resolver Resolver[R], selector Selector[R, V], opts ...Option) (*Cache[S, R, V], error) {
	if key.IsZero() {
		return nil, fmt.Errorf("%w: empty key selector", expr.ErrPrecondition)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: nil resolver", expr.ErrPrecondition)
	}
	if selector == nil {
		return nil, fmt.Errorf("%w: nil selector", expr.ErrPrecondition)
	}

	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	c := &Cache[S, R, V]{
		key:      expr.NewLazy(key),
		resolver: resolver,
		selector: selector,
		entries:  make(map[ID]V),
		logger:   s.logger,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if s.deflt != nil {
		fn, ok := s.deflt.(func(context.Context, S) (V, error))
		if !ok {
			var src S
			var val V
			return nil, fmt.Errorf("%w: default is %T, want func(context.Context, %T) (%T, error)",
				ErrInvalidOption, s.deflt, src, val)
		}
		c.deflt = fn
	}
	return c, nil
}

// KeySelector returns the key selector expression.
func (c *Cache[S, R, V]) KeySelector() expr.Lambda {
	return c.key.Expression()
}

// KeyOf evaluates the key selector for source. Strings are IDs as is, ints
// are formatted in decimal, and null or a missing field is NoRelation.
func (c *Cache[S, R, V]) KeyOf(ctx context.Context, source S) (ID, error) {
	v, err := c.key.Invoke(ctx, source)
	if err != nil {
		return NoRelation, fmt.Errorf("key %s: %w", c.key, err)
	}
	return ToID(v)
}

// ToID converts a key selector result to an ID.
func ToID(v ir.IRValue) (ID, error) {
	switch k := v.(type) {
	case ir.IRString:
		return ID(k), nil
	case ir.IRInt:
		return ID(strconv.FormatInt(int64(k), 10)), nil
	case ir.IRNull, nil:
		return NoRelation, nil
	default:
		return NoRelation, fmt.Errorf("%w: %s", ErrInvalidKey, ir.KindOf(v))
	}
}

// Get returns the value for the record source references, resolving and
// computing it on the first request for that ID.
//
// Resolver and selector errors are returned wrapped and nothing is stored,
// so the next Get for the ID tries again.
func (c *Cache[S, R, V]) Get(ctx context.Context, source S) (V, error) {
	var zero V
	id, err := c.KeyOf(ctx, source)
	if err != nil {
		return zero, err
	}
	if id == NoRelation {
		if c.deflt != nil {
			return c.deflt(ctx, source)
		}
		return zero, fmt.Errorf("%w: %s", ErrNoRelation, c.key)
	}
	return c.lookup(ctx, id)
}

// GetID is Get for a known ID.
func (c *Cache[S, R, V]) GetID(ctx context.Context, id ID) (V, error) {
	if id == NoRelation {
		var zero V
		return zero, ErrNoRelation
	}
	return c.lookup(ctx, id)
}

func (c *Cache[S, R, V]) lookup(ctx context.Context, id ID) (V, error) {
	if v, ok := c.entries[id]; ok {
		c.stats.Hits++
		return v, nil
	}
	c.stats.Misses++

	var zero V
	c.stats.Resolutions++
	referenced, err := c.resolver.Resolve(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("resolve %s: %w", id, err)
	}
	v, err := c.selector(ctx, referenced)
	if err != nil {
		return zero, fmt.Errorf("select %s: %w", id, err)
	}
	c.entries[id] = v
	c.logger.Debug("relation resolved", "id", string(id), "key", c.key.String())

	if len(c.observers) > 0 {
		c.observers.notify(Change{Kind: Added, ID: id})
	}
	return v, nil
}

// Peek returns the cached value for id without resolving.
func (c *Cache[S, R, V]) Peek(id ID) (V, bool) {
	v, ok := c.entries[id]
	return v, ok
}

// Len returns the number of cached entries.
func (c *Cache[S, R, V]) Len() int {
	return len(c.entries)
}

// IDs returns the cached IDs in sorted order.
func (c *Cache[S, R, V]) IDs() []ID {
	ids := make([]ID, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Stats returns the traffic counters.
func (c *Cache[S, R, V]) Stats() Stats {
	return c.stats
}

// Invalidate drops the entry for id. Reports whether one was present.
func (c *Cache[S, R, V]) Invalidate(id ID) bool {
	if _, ok := c.entries[id]; !ok {
		return false
	}
	delete(c.entries, id)
	c.logger.Debug("relation invalidated", "id", string(id))
	if len(c.observers) > 0 {
		c.observers.notify(Change{Kind: Removed, ID: id})
	}
	return true
}

// InvalidateAll drops every entry. Handlers see one Cleared change, and
// only if there was something to clear.
func (c *Cache[S, R, V]) InvalidateAll() {
	if len(c.entries) == 0 {
		return
	}
	n := len(c.entries)
	clear(c.entries)
	c.logger.Debug("cache cleared", "entries", n, "key", c.key.String())
	if len(c.observers) > 0 {
		c.observers.notify(Change{Kind: Cleared})
	}
}

// InvalidateWhere drops every entry whose ID satisfies match and returns
// how many were dropped. Handlers see one Removed change per ID, in ID
// order.
func (c *Cache[S, R, V]) InvalidateWhere(match func(ID) bool) int {
	var removed []ID
	for id := range c.entries {
		if match(id) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(c.entries, id)
	}
	if len(removed) > 0 {
		c.logger.Debug("relations invalidated", "entries", len(removed))
	}
	if len(c.observers) > 0 {
		slices.Sort(removed)
		for _, id := range removed {
			c.observers.notify(Change{Kind: Removed, ID: id})
		}
	}
	return len(removed)
}

// SetSelector replaces the value selector. Cached values were computed by
// the old selector, so the cache is cleared.
func (c *Cache[S, R, V]) SetSelector(selector Selector[R, V]) {
	if selector == nil {
		panic(fmt.Errorf("%w: nil selector", expr.ErrPrecondition))
	}
	c.selector = selector
	c.InvalidateAll()
}

// Subscribe registers h for change notifications.
func (c *Cache[S, R, V]) Subscribe(h Handler) Subscription {
	if h == nil {
		panic(fmt.Errorf("%w: nil handler", expr.ErrPrecondition))
	}
	return c.observers.add(h)
}

// Unsubscribe removes the handler registered under sub. Reports whether it
// was registered.
func (c *Cache[S, R, V]) Unsubscribe(sub Subscription) bool {
	return c.observers.remove(sub)
}

// Observed reports whether any handler is registered.
func (c *Cache[S, R, V]) Observed() bool {
	return len(c.observers) > 0
}
