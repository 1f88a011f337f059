package filter

import (
	"fmt"
	"reflect"

	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/ir"
)

// Key identifies a node in a Graph: the referenced record type and the
// structural hash of the key selector.
type Key struct {
	Type string
	Expr string
}

// NewKey builds the key for a relation to records of typ reached through
// selector.
func NewKey(typ string, selector expr.Lambda) (Key, error) {
	h, err := expr.Hash(selector)
	if err != nil {
		return Key{}, fmt.Errorf("key selector: %w", err)
	}
	return Key{Type: typ, Expr: h}, nil
}

// Ref is the reference Lookup nodes use to address the node with this key.
func (k Key) Ref() string {
	return ir.MustHash(ir.DomainRelation, map[string]any{"type": k.Type, "expr": k.Expr})
}

// String returns a short form for logs and errors.
func (k Key) String() string {
	if len(k.Expr) > 12 {
		return k.Type + "@" + k.Expr[:12]
	}
	return k.Type + "@" + k.Expr
}

// kinded is implemented by resolvers serving one kind of a dynamic record
// type, such as a store table.
type kinded interface {
	Kind() string
}

// TypeName returns the referenced type name for records of type R served
// by resolver. Dynamic record types are told apart by the resolver's Kind.
func TypeName[R any](resolver any) string {
	name := reflect.TypeFor[R]().String()
	if k, ok := resolver.(kinded); ok && k.Kind() != "" {
		return name + ":" + k.Kind()
	}
	return name
}
