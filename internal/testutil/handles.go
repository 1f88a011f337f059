// Package testutil provides deterministic record handles for tests and
// scenario runs.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceHandles generates "<prefix>-1", "<prefix>-2", ... so seeded
// records without an id get the same handles on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceHandles struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceHandles creates a generator starting at 0. An empty prefix
// becomes "handle".
//
// The first call to Generate() returns "<prefix>-1".
func NewSequenceHandles(prefix string) *SequenceHandles {
	if prefix == "" {
		prefix = "handle"
	}
	return &SequenceHandles{prefix: prefix}
}

// Generate returns the next handle. Implements store.HandleGenerator.
func (g *SequenceHandles) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Current returns how many handles have been generated.
func (g *SequenceHandles) Current() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next Generate() returns "<prefix>-1".
func (g *SequenceHandles) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedHandles returns predetermined handles in order.
//
// Thread-safety: FixedHandles is safe for concurrent use via internal mutex.
type FixedHandles struct {
	mu      sync.Mutex
	handles []string
	idx     int
}

// NewFixedHandles creates a generator that returns handles in order.
//
//	gen := NewFixedHandles("a", "b")
//	gen.Generate() // "a"
//	gen.Generate() // "b"
//	gen.Generate() // panic: all handles exhausted
func NewFixedHandles(handles ...string) *FixedHandles {
	return &FixedHandles{handles: handles}
}

// Generate returns the next predetermined handle.
//
// Panics if all handles have been consumed, which means the test seeded
// more anonymous records than it planned for.
func (g *FixedHandles) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.handles) {
		panic("FixedHandles: all handles exhausted")
	}
	h := g.handles[g.idx]
	g.idx++
	return h
}
