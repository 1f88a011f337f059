package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/relcache"
)

func TestKey_StructuralIdentity(t *testing.T) {
	a, err := NewKey("filter.layer", expr.Fn("e", expr.Field("e", "layer_id")))
	require.NoError(t, err)
	b, err := NewKey("filter.layer", expr.Fn("x", expr.Field("x", "layer_id")))
	require.NoError(t, err)
	c, err := NewKey("filter.owner", expr.Fn("x", expr.Field("x", "layer_id")))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a.Ref(), b.Ref())
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a.Ref(), c.Ref())
	assert.Equal(t, "filter.layer@"+a.Expr[:12], a.String())

	_, err = NewKey("t", expr.Lambda{})
	assert.ErrorIs(t, err, expr.ErrPrecondition)
}

type kindResolver struct {
	*table[layer]
	kind string
}

func (k kindResolver) Kind() string { return k.kind }

func TestTypeName(t *testing.T) {
	assert.Equal(t, "filter.layer", TypeName[layer](layerTable()))
	assert.Equal(t, "filter.layer:archive", TypeName[layer](kindResolver{table: layerTable(), kind: "archive"}))
	assert.Equal(t, "filter.layer", TypeName[layer](nil))
}

func TestGraph_RootAndLookup(t *testing.T) {
	f := newLayerFilter(t, layerTable())
	g := f.Graph()

	require.Equal(t, 1, g.Len())
	assert.Equal(t, Node[entity](f), g.Root())

	n, ok := g.Lookup(f.Key())
	require.True(t, ok)
	assert.Equal(t, Node[entity](f), n)

	n, ok = g.LookupRelation("filter.layer", expr.Fn("other", expr.Field("other", "layer_id")))
	require.True(t, ok)
	assert.Equal(t, f.Key(), n.Key())

	_, ok = g.LookupRelation("filter.owner", byLayer)
	assert.False(t, ok)
	_, ok = g.LookupRelation("filter.layer", expr.Lambda{})
	assert.False(t, ok)
}

func TestGraph_AddDuplicate(t *testing.T) {
	f := newLayerFilter(t, layerTable())
	twin := newLayerFilter(t, layerTable())

	err := f.Graph().Add(twin)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, f.Graph().Len())
}

func TestGraph_DistinctKindsAreDistinctNodes(t *testing.T) {
	f := newLayerFilter(t, layerTable())
	archive := kindResolver{table: layerTable(), kind: "archive"}

	child, err := Add[entity, layer, layer](f, byLayer, notLocked, archive)
	require.NoError(t, err)

	assert.NotSame(t, f, child)
	assert.Equal(t, 2, f.Graph().Len())
	assert.Equal(t, "filter.layer:archive", child.Key().Type)
}

func TestGraph_ChildrenAndStats(t *testing.T) {
	layers := layerTable()
	owners := ownerTable()
	f := newLayerFilter(t, layers)
	child, err := Add[entity, layer, owner](f, byOwner, isActive, owners)
	require.NoError(t, err)

	parent, ok := child.Parent()
	require.True(t, ok)
	assert.Equal(t, f.Key(), parent)
	_, ok = f.Parent()
	assert.False(t, ok)

	children := f.Graph().Children(f.Key())
	require.Len(t, children, 1)
	assert.Equal(t, child.Key(), children[0].Key())

	nodes := f.Graph().Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, f.Key(), nodes[0].Key())

	_, err = Select(context.Background(), f, entities(12))
	require.NoError(t, err)
	stats := f.Graph().Stats()
	assert.Equal(t, layers.total()+owners.total(), stats.Resolutions)

	f.Graph().InvalidateAll()
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, 0, child.Len())
}

func TestGraph_Link(t *testing.T) {
	f := newLayerFilter(t, layerTable())
	g := f.Graph()

	_, err := g.Link("nope")
	assert.ErrorIs(t, err, expr.ErrUnlinked)

	lookup, err := g.Link(f.Key().Ref())
	require.NoError(t, err)

	ok, err := lookup(context.Background(), entity{ID: "E1", LayerID: "L1"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = lookup(context.Background(), layer{ID: "L1"})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestGraph_InvalidateWhereAcrossScope(t *testing.T) {
	f := newLayerFilter(t, layerTable())
	_, err := Select(context.Background(), f, entities(3))
	require.NoError(t, err)

	n := f.InvalidateWhere(func(id relcache.ID) bool { return id != "L1" })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, f.Len())
}
