package relcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/ir"
)

type entity struct {
	ID      string
	LayerID ir.IRValue
}

func (e entity) Field(name string) (ir.IRValue, bool) {
	switch name {
	case "id":
		return ir.IRString(e.ID), true
	case "layer_id":
		return e.LayerID, e.LayerID != nil
	}
	return nil, false
}

type layer struct {
	ID     ID
	Locked bool
}

// countingResolver serves layers from a map and counts calls per ID.
type countingResolver struct {
	layers map[ID]layer
	calls  map[ID]int
	fail   error
}

func newResolver(layers ...layer) *countingResolver {
	r := &countingResolver{layers: map[ID]layer{}, calls: map[ID]int{}}
	for _, l := range layers {
		r.layers[l.ID] = l
	}
	return r
}

func (r *countingResolver) Resolve(_ context.Context, id ID) (layer, error) {
	r.calls[id]++
	if r.fail != nil {
		return layer{}, r.fail
	}
	l, ok := r.layers[id]
	if !ok {
		return layer{}, fmt.Errorf("layer %s not found", id)
	}
	return l, nil
}

func (r *countingResolver) total() int {
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

var layerKey = expr.Fn("e", expr.Field("e", "layer_id"))

func unlocked(_ context.Context, l layer) (bool, error) { return !l.Locked, nil }

func newCache(t *testing.T, r *countingResolver, opts ...Option) *Cache[entity, layer, bool] {
	t.Helper()
	c, err := New[entity](layerKey, Resolver[layer](r), Selector[layer, bool](unlocked), opts...)
	require.NoError(t, err)
	return c
}

func on(id, layerID string) entity {
	return entity{ID: id, LayerID: ir.IRString(layerID)}
}

func TestCache_Memoization(t *testing.T) {
	r := newResolver(layer{ID: "L1"})
	selects := 0
	c, err := New[entity](layerKey, Resolver[layer](r), func(_ context.Context, l layer) (bool, error) {
		selects++
		return !l.Locked, nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		ok, err := c.Get(ctx, on(fmt.Sprintf("E%d", i), "L1"))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, 1, r.calls["L1"])
	assert.Equal(t, 1, selects)
	assert.Equal(t, Stats{Hits: 49, Misses: 1, Resolutions: 1}, c.Stats())
	assert.Equal(t, 1, c.Len())
}

func TestCache_InvalidateOne(t *testing.T) {
	r := newResolver(layer{ID: "L1"}, layer{ID: "L2"})
	c := newCache(t, r)
	ctx := context.Background()

	for _, e := range []entity{on("E1", "L1"), on("E2", "L2")} {
		_, err := c.Get(ctx, e)
		require.NoError(t, err)
	}

	assert.True(t, c.Invalidate("L1"))
	assert.False(t, c.Invalidate("L1"))
	assert.False(t, c.Invalidate("L9"))

	_, err := c.Get(ctx, on("E3", "L1"))
	require.NoError(t, err)
	_, err = c.Get(ctx, on("E4", "L2"))
	require.NoError(t, err)

	assert.Equal(t, 2, r.calls["L1"], "invalidated ID resolves again exactly once")
	assert.Equal(t, 1, r.calls["L2"], "other IDs are unaffected")
}

func TestCache_ResolveErrorIsNotCached(t *testing.T) {
	boom := errors.New("store closed")
	r := newResolver(layer{ID: "L1"})
	r.fail = boom
	c := newCache(t, r)
	ctx := context.Background()

	_, err := c.Get(ctx, on("E1", "L1"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	r.fail = nil
	ok, err := c.Get(ctx, on("E1", "L1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, r.calls["L1"])
}

func TestCache_SelectorErrorIsNotCached(t *testing.T) {
	boom := errors.New("bad layer")
	r := newResolver(layer{ID: "L1"})
	c, err := New[entity](layerKey, Resolver[layer](r), func(context.Context, layer) (bool, error) {
		return false, boom
	})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), on("E1", "L1"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestCache_NoRelation(t *testing.T) {
	r := newResolver(layer{ID: "L1"})
	c := newCache(t, r)
	ctx := context.Background()

	_, err := c.Get(ctx, entity{ID: "orphan"})
	assert.ErrorIs(t, err, ErrNoRelation)

	_, err = c.Get(ctx, entity{ID: "null", LayerID: ir.IRNull{}})
	assert.ErrorIs(t, err, ErrNoRelation)

	ok, err := c.Get(ctx, on("E1", "L1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, r.total())
}

func TestCache_WithDefault(t *testing.T) {
	r := newResolver()
	var seen []string
	c := newCache(t, r, WithDefault(func(_ context.Context, e entity) (bool, error) {
		seen = append(seen, e.ID)
		return true, nil
	}))

	ok, err := c.Get(context.Background(), entity{ID: "orphan"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"orphan"}, seen)
	assert.Equal(t, 0, r.total())
	assert.Equal(t, 0, c.Len(), "defaults are not cached")
}

func TestCache_WithDefaultWrongTypes(t *testing.T) {
	_, err := New[entity](layerKey, Resolver[layer](newResolver()), Selector[layer, bool](unlocked),
		WithDefault(func(context.Context, entity) (string, error) { return "", nil }))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestCache_NewPreconditions(t *testing.T) {
	_, err := New[entity](expr.Lambda{}, Resolver[layer](newResolver()), Selector[layer, bool](unlocked))
	assert.ErrorIs(t, err, expr.ErrPrecondition)

	_, err = New[entity, layer, bool](layerKey, nil, unlocked)
	assert.ErrorIs(t, err, expr.ErrPrecondition)

	_, err = New[entity](layerKey, Resolver[layer](newResolver()), Selector[layer, bool](nil))
	assert.ErrorIs(t, err, expr.ErrPrecondition)
}

func TestToID(t *testing.T) {
	tests := []struct {
		name    string
		in      ir.IRValue
		want    ID
		wantErr bool
	}{
		{"string", ir.IRString("L1"), "L1", false},
		{"int", ir.IRInt(42), "42", false},
		{"negative int", ir.IRInt(-7), "-7", false},
		{"null", ir.IRNull{}, NoRelation, false},
		{"nil", nil, NoRelation, false},
		{"empty string", ir.IRString(""), NoRelation, false},
		{"bool", ir.IRBool(true), NoRelation, true},
		{"array", ir.IRArray{}, NoRelation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ToID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestCache_IntKeys(t *testing.T) {
	r := newResolver(layer{ID: "7"})
	c := newCache(t, r)

	ok, err := c.Get(context.Background(), entity{ID: "E1", LayerID: ir.IRInt(7)})
	require.NoError(t, err)
	assert.True(t, ok)
	_, cached := c.Peek("7")
	assert.True(t, cached)
}

func TestCache_InvalidKey(t *testing.T) {
	c := newCache(t, newResolver())

	_, err := c.Get(context.Background(), entity{ID: "E1", LayerID: ir.IRBool(true)})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestCache_GetID(t *testing.T) {
	r := newResolver(layer{ID: "L1", Locked: true})
	c := newCache(t, r)

	ok, err := c.GetID(context.Background(), "L1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.GetID(context.Background(), NoRelation)
	assert.ErrorIs(t, err, ErrNoRelation)
}

func TestCache_InvalidateWhere(t *testing.T) {
	r := newResolver(layer{ID: "a/1"}, layer{ID: "a/2"}, layer{ID: "b/1"})
	c := newCache(t, r)
	ctx := context.Background()
	for _, id := range []string{"a/1", "a/2", "b/1"} {
		_, err := c.Get(ctx, on("E-"+id, id))
		require.NoError(t, err)
	}

	var changes []Change
	c.Subscribe(func(ch Change) { changes = append(changes, ch) })

	n := c.InvalidateWhere(func(id ID) bool { return strings.HasPrefix(string(id), "a/") })
	assert.Equal(t, 2, n)
	assert.Equal(t, []ID{"b/1"}, c.IDs())
	assert.Equal(t, []Change{{Kind: Removed, ID: "a/1"}, {Kind: Removed, ID: "a/2"}}, changes)
}

func TestCache_SetSelectorClears(t *testing.T) {
	r := newResolver(layer{ID: "L1"})
	c := newCache(t, r)
	ctx := context.Background()

	ok, err := c.Get(ctx, on("E1", "L1"))
	require.NoError(t, err)
	assert.True(t, ok)

	c.SetSelector(func(_ context.Context, l layer) (bool, error) { return l.Locked, nil })
	assert.Equal(t, 0, c.Len())

	ok, err = c.Get(ctx, on("E1", "L1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, r.calls["L1"])
}

func TestCache_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newCache(t, newResolver(layer{ID: "L1"}), WithLogger(logger))

	_, err := c.Get(context.Background(), on("E1", "L1"))
	require.NoError(t, err)
	c.InvalidateAll()

	out := buf.String()
	assert.Contains(t, out, `msg="relation resolved" id=L1`)
	assert.Contains(t, out, `msg="cache cleared" entries=1`)
}

func TestCache_KeySelector(t *testing.T) {
	c := newCache(t, newResolver())
	assert.True(t, expr.Equal(layerKey, c.KeySelector()))
}
