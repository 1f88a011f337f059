package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
)

const seedYAML = `
layers:
  - id: L1
    name: Xeno
  - id: L3
    name: Xtra
    locked: true
entities:
  - id: 7
    layer_id: L1
  - layer_id: L3
    tags: [a, b]
`

func counter(prefix string) HandleFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestLoadSeed(t *testing.T) {
	s := createTestStore(t, WithHandleGenerator(counter("h")))
	ctx := context.Background()

	n, err := s.LoadSeed(ctx, strings.NewReader(seedYAML))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ents, err := s.Scan(ctx, "entities")
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, "7", ents[0].ID)
	assert.Equal(t, "h-1", ents[1].ID)
	assert.Equal(t, ir.IRArray{ir.IRString("a"), ir.IRString("b")}, ents[1].Fields["tags"])
	_, hasID := ents[0].Fields["id"]
	assert.False(t, hasID)

	l3, err := s.Get(ctx, "layers", "L3")
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(true), l3.Fields["locked"])
}

func TestLoadSeed_DefaultHandlesAreUUIDv7(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LoadSeed(ctx, strings.NewReader("notes:\n  - text: hi\n"))
	require.NoError(t, err)

	notes, err := s.Scan(ctx, "notes")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	parsed, err := uuid.Parse(notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestLoadSeed_Empty(t *testing.T) {
	s := createTestStore(t)

	n, err := s.LoadSeed(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoadSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"not a map", "- a\n- b\n", "decode seed"},
		{"float field", "layers:\n  - id: L1\n    weight: 1.5\n", "layers[0]: field weight"},
		{"bool id", "layers:\n  - id: true\n", "id must be a string or integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			_, err := s.LoadSeed(context.Background(), strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeed_RecordsDeterministic(t *testing.T) {
	seed, err := DecodeSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	first, err := seed.Records(counter("x"))
	require.NoError(t, err)
	second, err := seed.Records(counter("x"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "entities", first[0].Kind, "kinds visited in sorted order")
}
