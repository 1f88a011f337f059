// Package expr provides the predicate expression trees evaluated by relq
// filters.
//
// An expression is data before it is code. Trees are built from a sealed set
// of node variants, compared and hashed structurally, combined with a small
// boolean algebra, and only then compiled into a Go closure.
//
// ARCHITECTURE:
//
//	[Decode / builders] → Lambda (tree) → Hash / Equal / String
//	                                    → Compile → Func (closure)
//
// SEALED INTERFACE:
//
// Node is a sealed interface using the marker method pattern. Only types in
// this package implement it, so the compiler, renderer and hasher can switch
// exhaustively over:
//
//	Const, Default, Param, Member, Logical, Negate, Comparison, Call, Lookup
//
// STRUCTURAL IDENTITY:
//
// Two lambdas are Equal when their bodies have identical structure modulo the
// parameter name: `e => e.layer_id` and `x => x.layer_id` are the same
// expression. Hash is the domain-separated SHA-256 of the canonical JSON
// encoding, with the parameter replaced by a positional marker.
//
// NEUTRAL ELEMENTS:
//
// True and False are Default nodes, a distinguished variant rather than a
// literal. False doubles as the "no predicate yet" starting point: combining
// any expression with False through And or Or returns that expression
// unchanged. True is the identity of And and absorbs Or.
//
// LAZY COMPILATION:
//
// Lazy holds a tree plus the compiled closure. It compiles at most once per
// tree, on first use, and drops the closure when the tree is replaced by one
// that is not structurally equal.
package expr
