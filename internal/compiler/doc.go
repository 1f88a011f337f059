// Package compiler turns query definitions into filters.
//
// A query names a source kind, the relation its key points at, the
// criteria related records must meet, and optional predicates over the
// source itself:
//
//	query: unlocked: {
//		source:   "entities"
//		relation: "layers"
//		key:      "layer_id"
//		criteria: not: field: "locked"
//		where:    field: "visible"
//		related: [{relation: "owners", key: "owner_id", criteria: field: "active"}]
//	}
//
// Definitions are written in CUE (CompileQuery, LoadQueries) or YAML
// (LoadQueryYAML). Expressions use the forms accepted by expr.DecodeLambda;
// a bare string key is shorthand for {field: key}. Key and where
// expressions range over the source record (param "s"); criteria range
// over the related record (param "r").
//
// Build wires a QuerySpec to a store: one filter per relation, sharing a
// graph, each backed by a store.Table.
package compiler
