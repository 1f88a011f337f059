package compiler

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/expr"
)

func TestCompileQueryBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		query: unlocked: {
			source:   "entities"
			relation: "layers"
			key:      "layer_id"
			criteria: not: field: "locked"
			where: field: "visible"
			related: [{relation: "owners", key: {field: "owner_id"}, criteria: field: "active"}]
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileQuery(v.LookupPath(cue.ParsePath("query.unlocked")))
	require.NoError(t, err)

	assert.Equal(t, "unlocked", spec.Name)
	assert.Equal(t, "entities", spec.Source)
	assert.Equal(t, "layers", spec.Relation)
	assert.Equal(t, "s => s.layer_id", spec.Key.String())
	assert.Equal(t, "r => !r.locked", spec.Criteria.String())
	assert.Equal(t, "s => s.visible", spec.Where.String())
	require.Len(t, spec.Related, 1)
	assert.Equal(t, "owners", spec.Related[0].Relation)
	assert.Equal(t, "s => s.owner_id", spec.Related[0].Key.String())
	assert.Equal(t, "r => r.active", spec.Related[0].Criteria.String())
}

func TestCompileQueryDefaults(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		query: all: {
			name:     "everything"
			source:   "entities"
			relation: "layers"
			key:      "layer_id"
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileQuery(v.LookupPath(cue.ParsePath("query.all")))
	require.NoError(t, err)

	assert.Equal(t, "everything", spec.Name, "explicit name wins over the label")
	assert.True(t, expr.IsTrue(spec.Criteria))
	assert.True(t, spec.Where.IsZero())
	assert.Empty(t, spec.Related)
}

func TestCompileQueryMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"source", `query: q: {relation: "layers", key: "layer_id"}`, "source"},
		{"relation", `query: q: {source: "entities", key: "layer_id"}`, "relation"},
		{"key", `query: q: {source: "entities", relation: "layers"}`, "key"},
		{"related relation", `query: q: {source: "entities", relation: "layers", key: "layer_id", related: [{key: "x"}]}`, "related[0].relation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileQuery(v.LookupPath(cue.ParsePath("query.q")))
			var ce *CompileError
			require.True(t, errors.As(err, &ce), "want CompileError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileQueryBadExpressionHasPosition(t *testing.T) {
	v := cuecontext.New().CompileString(`query: q: {
	source:   "entities"
	relation: "layers"
	key:      "layer_id"
	criteria: frobnicate: true
}`, cue.Filename("bad.cue"))
	require.NoError(t, v.Err())

	_, err := CompileQuery(v.LookupPath(cue.ParsePath("query.q")))
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "criteria", ce.Field)
	assert.Contains(t, ce.Message, "frobnicate")
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, 5, ce.Pos.Line())
	assert.True(t, strings.HasPrefix(err.Error(), "bad.cue:5:"))
}

func TestCompileQueryRelatedErrorPath(t *testing.T) {
	v := cuecontext.New().CompileString(`query: q: {
	source:   "entities"
	relation: "layers"
	key:      "layer_id"
	related: [{relation: "owners", key: "owner_id", criteria: eq: [1]}]
}`)
	require.NoError(t, v.Err())

	_, err := CompileQuery(v.LookupPath(cue.ParsePath("query.q")))
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "related[0].criteria", ce.Field)
	assert.True(t, ce.Pos.IsValid())
}

func TestCompileQueryCUEError(t *testing.T) {
	v := cuecontext.New().CompileString(`query: q: {source: "a" & "b"}`)

	_, err := CompileQuery(v.LookupPath(cue.ParsePath("query.q")))
	require.Error(t, err)
}

func TestLoadQueries(t *testing.T) {
	src := []byte(`
query: b: {source: "entities", relation: "layers", key: "layer_id"}
query: a: {source: "entities", relation: "owners", key: "owner_id"}
`)
	specs, err := LoadQueries("inline.cue", src)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "b", specs[0].Name, "declaration order")
	assert.Equal(t, "a", specs[1].Name)

	_, err = LoadQueries("empty.cue", []byte(`other: 1`))
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "query", ce.Field)

	_, err = LoadQueries("broken.cue", []byte(`query: {`))
	require.Error(t, err)
}

func TestLoadQueryYAML(t *testing.T) {
	spec, err := LoadQueryYAML(strings.NewReader(`
name: by_owner
source: entities
relation: owners
key: {field: owner_id}
criteria: {field: active}
related:
  - relation: layers
    key: layer_id
`))
	require.NoError(t, err)

	assert.Equal(t, "by_owner", spec.Name)
	assert.Equal(t, "s => s.owner_id", spec.Key.String())
	assert.Equal(t, "r => r.active", spec.Criteria.String())
	require.Len(t, spec.Related, 1)
	assert.True(t, expr.IsTrue(spec.Related[0].Criteria))
}

func TestLoadQueryYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "empty query document"},
		{"unknown field", "source: e\nrelation: l\nkey: k\ncritera: true\n", "critera"},
		{"no source", "relation: l\nkey: k\n", "source is required"},
		{"no relation", "source: e\nkey: k\n", "relation is required"},
		{"bool key", "source: e\nrelation: l\nkey: true\n", "key cannot be true"},
		{"bad where", "source: e\nrelation: l\nkey: k\nwhere: {eq: [1, 2, 3]}\n", "where"},
		{"bad related key", "source: e\nrelation: l\nkey: k\nrelated: [{relation: o}]\n", "related[0].key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQueryYAML(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadQueryFile(t *testing.T) {
	specs, err := LoadQueryFile(filepath.Join("testdata", "queries", "layers.cue"))
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "unlocked", specs[0].Name)
	assert.Equal(t, "visible_active", specs[1].Name)
	assert.Len(t, specs[1].Related, 1)

	specs, err = LoadQueryFile(filepath.Join("testdata", "queries", "x_layers.yaml"))
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "x_layers", specs[0].Name, "name defaults to the file name")
	assert.Equal(t, `r => !r.locked && starts_with(r.name, "X")`, specs[0].Criteria.String())

	_, err = LoadQueryFile(filepath.Join("testdata", "queries", "missing.yaml"))
	require.Error(t, err)

	_, err = LoadQueryFile("query.json")
	require.Error(t, err)
}

func TestLoadQueryFileUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.toml")
	require.NoError(t, writeFile(path, "source = 'e'"))

	_, err := LoadQueryFile(path)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
