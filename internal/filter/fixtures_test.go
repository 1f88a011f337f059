package filter

import (
	"context"
	"fmt"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/relcache"
)

type entity struct {
	ID      string
	LayerID string
	OwnerID string
	Visible bool
}

func (e entity) Field(name string) (ir.IRValue, bool) {
	switch name {
	case "id":
		return ir.IRString(e.ID), true
	case "layer_id":
		return optional(e.LayerID), true
	case "owner_id":
		return optional(e.OwnerID), true
	case "visible":
		return ir.IRBool(e.Visible), true
	}
	return nil, false
}

type layer struct {
	ID     string
	Name   string
	Locked bool
}

func (l layer) Field(name string) (ir.IRValue, bool) {
	switch name {
	case "id":
		return ir.IRString(l.ID), true
	case "name":
		return ir.IRString(l.Name), true
	case "locked":
		return ir.IRBool(l.Locked), true
	}
	return nil, false
}

type owner struct {
	ID     string
	Active bool
}

func (o owner) Field(name string) (ir.IRValue, bool) {
	switch name {
	case "id":
		return ir.IRString(o.ID), true
	case "active":
		return ir.IRBool(o.Active), true
	}
	return nil, false
}

func optional(s string) ir.IRValue {
	if s == "" {
		return ir.IRNull{}
	}
	return ir.IRString(s)
}

// table is an in-memory resolver that counts resolutions per ID.
type table[R any] struct {
	rows  map[relcache.ID]R
	calls map[relcache.ID]int
}

func newTable[R any](rows map[relcache.ID]R) *table[R] {
	return &table[R]{rows: rows, calls: map[relcache.ID]int{}}
}

func (t *table[R]) Resolve(_ context.Context, id relcache.ID) (R, error) {
	t.calls[id]++
	r, ok := t.rows[id]
	if !ok {
		var zero R
		return zero, fmt.Errorf("no row %s", id)
	}
	return r, nil
}

func (t *table[R]) total() int {
	n := 0
	for _, c := range t.calls {
		n += c
	}
	return n
}

func layerTable() *table[layer] {
	return newTable(map[relcache.ID]layer{
		"L1": {ID: "L1", Name: "Xeno"},
		"L2": {ID: "L2", Name: "Base"},
		"L3": {ID: "L3", Name: "Xtra", Locked: true},
	})
}

func ownerTable() *table[owner] {
	return newTable(map[relcache.ID]owner{
		"O1": {ID: "O1", Active: true},
		"O2": {ID: "O2", Active: false},
	})
}

// entities spreads n entities over L1..L3 and O1..O2 round robin.
func entities(n int) []entity {
	out := make([]entity, n)
	for i := range out {
		out[i] = entity{
			ID:      fmt.Sprintf("E%03d", i),
			LayerID: fmt.Sprintf("L%d", i%3+1),
			OwnerID: fmt.Sprintf("O%d", i%2+1),
			Visible: i%5 != 0,
		}
	}
	return out
}

var (
	byLayer    = expr.Fn("e", expr.Field("e", "layer_id"))
	byOwner    = expr.Fn("e", expr.Field("e", "owner_id"))
	notLocked  = expr.Not(expr.Fn("l", expr.Field("l", "locked")))
	nameStarts = expr.Fn("l", expr.Apply("starts_with", expr.Field("l", "name"), expr.Lit("X")))
	isActive   = expr.Fn("o", expr.Field("o", "active"))
	isVisible  = expr.Fn("e", expr.Field("e", "visible"))
)

func count[T any](items []T, pred func(T) bool) int {
	n := 0
	for _, it := range items {
		if pred(it) {
			n++
		}
	}
	return n
}
