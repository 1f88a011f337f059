package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/relq/internal/expr"
)

// Lambda parameter names used for decoded expressions.
const (
	SourceParam  = "s"
	RelatedParam = "r"
)

// QuerySpec is a compiled query definition.
type QuerySpec struct {
	Name     string
	Source   string // kind of the records being filtered
	Relation string // kind of the records the key points at
	Key      expr.Lambda
	Criteria expr.Lambda
	Where    expr.Lambda // zero when absent
	Related  []RelationSpec
}

// RelationSpec is an additional relation the source must satisfy.
type RelationSpec struct {
	Relation string
	Key      expr.Lambda
	Criteria expr.Lambda
}

// QueryDef is the decoded, not yet compiled, form of a query. The
// expression fields hold the generic values produced by the YAML and CUE
// decoders.
type QueryDef struct {
	Name     string        `yaml:"name" json:"name"`
	Source   string        `yaml:"source" json:"source"`
	Relation string        `yaml:"relation" json:"relation"`
	Key      any           `yaml:"key" json:"key"`
	Criteria any           `yaml:"criteria" json:"criteria"`
	Where    any           `yaml:"where" json:"where"`
	Related  []RelationDef `yaml:"related" json:"related"`
}

// RelationDef is the decoded form of a RelationSpec.
type RelationDef struct {
	Relation string `yaml:"relation" json:"relation"`
	Key      any    `yaml:"key" json:"key"`
	Criteria any    `yaml:"criteria" json:"criteria"`
}

// Compile decodes the definition's expressions. Missing criteria default
// to true. Structural problems such as an empty source are left to
// Validate.
func (d QueryDef) Compile() (*QuerySpec, error) {
	q := &QuerySpec{
		Name:     d.Name,
		Source:   d.Source,
		Relation: d.Relation,
	}

	var err error
	if q.Key, err = decodeKey(d.Key); err != nil {
		return nil, &CompileError{Field: "key", Message: err.Error()}
	}
	if q.Criteria, err = decodeCriteria(d.Criteria); err != nil {
		return nil, &CompileError{Field: "criteria", Message: err.Error()}
	}
	if d.Where != nil {
		if q.Where, err = expr.DecodeLambda(SourceParam, d.Where); err != nil {
			return nil, &CompileError{Field: "where", Message: err.Error()}
		}
	}

	for i, rd := range d.Related {
		rel, err := rd.compile()
		if err != nil {
			var ce *CompileError
			if errors.As(err, &ce) {
				ce.Field = fmt.Sprintf("related[%d].%s", i, ce.Field)
			}
			return nil, err
		}
		q.Related = append(q.Related, rel)
	}
	return q, nil
}

func (d RelationDef) compile() (RelationSpec, error) {
	rel := RelationSpec{Relation: d.Relation}
	var err error
	if rel.Key, err = decodeKey(d.Key); err != nil {
		return RelationSpec{}, &CompileError{Field: "key", Message: err.Error()}
	}
	if rel.Criteria, err = decodeCriteria(d.Criteria); err != nil {
		return RelationSpec{}, &CompileError{Field: "criteria", Message: err.Error()}
	}
	return rel, nil
}

// decodeKey accepts a field path string or a full expression.
func decodeKey(v any) (expr.Lambda, error) {
	switch k := v.(type) {
	case nil:
		return expr.Lambda{}, fmt.Errorf("%w: key is required", expr.ErrInvalidArgument)
	case string:
		v = map[string]any{"field": k}
	case bool:
		return expr.Lambda{}, fmt.Errorf("%w: key cannot be %t", expr.ErrInvalidArgument, k)
	}
	return expr.DecodeLambda(SourceParam, v)
}

func decodeCriteria(v any) (expr.Lambda, error) {
	if v == nil {
		return expr.True, nil
	}
	return expr.DecodeLambda(RelatedParam, v)
}
