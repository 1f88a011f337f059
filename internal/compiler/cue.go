package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileQuery parses a CUE value into a QuerySpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the query struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: unlocked: { ... }`)
//	spec, err := CompileQuery(v.LookupPath(cue.ParsePath("query.unlocked")))
func CompileQuery(v cue.Value) (*QuerySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var def QueryDef
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}
	if name, ok, err := optionalString(v, "name"); err != nil {
		return nil, err
	} else if ok {
		def.Name = name
	}

	var err error
	if def.Source, err = requiredString(v, "source"); err != nil {
		return nil, err
	}
	if def.Relation, err = requiredString(v, "relation"); err != nil {
		return nil, err
	}

	pos := map[string]token.Pos{}
	if def.Key, err = decodeField(v, "key", "key", pos); err != nil {
		return nil, err
	}
	if def.Criteria, err = decodeField(v, "criteria", "criteria", pos); err != nil {
		return nil, err
	}
	if def.Where, err = decodeField(v, "where", "where", pos); err != nil {
		return nil, err
	}

	relVal := v.LookupPath(cue.ParsePath("related"))
	if relVal.Exists() {
		iter, err := relVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			rv := iter.Value()
			prefix := fmt.Sprintf("related[%d].", i)
			var rd RelationDef
			if rd.Relation, err = requiredString(rv, "relation"); err != nil {
				var ce *CompileError
				if errors.As(err, &ce) {
					ce.Field = prefix + ce.Field
				}
				return nil, err
			}
			if rd.Key, err = decodeField(rv, "key", prefix+"key", pos); err != nil {
				return nil, err
			}
			if rd.Criteria, err = decodeField(rv, "criteria", prefix+"criteria", pos); err != nil {
				return nil, err
			}
			def.Related = append(def.Related, rd)
		}
	}

	spec, err := def.Compile()
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) && !ce.Pos.IsValid() {
			if p, ok := pos[ce.Field]; ok {
				ce.Pos = p
			} else {
				ce.Pos = v.Pos()
			}
		}
		return nil, err
	}
	return spec, nil
}

// LoadQueries compiles every query under the top-level "query" field of
// a CUE source, in declaration order.
func LoadQueries(filename string, src []byte) ([]*QuerySpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	queries := v.LookupPath(cue.ParsePath("query"))
	if !queries.Exists() {
		return nil, &CompileError{Field: "query", Message: "no queries defined", Pos: v.Pos()}
	}
	iter, err := queries.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []*QuerySpec
	for iter.Next() {
		spec, err := CompileQuery(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", iter.Label(), err)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, &CompileError{Field: "query", Message: "no queries defined", Pos: queries.Pos()}
	}
	return specs, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	s, ok, err := optionalString(v, field)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

// decodeField decodes an optional expression field to its generic form
// and records its position under name.
func decodeField(v cue.Value, field, name string, pos map[string]token.Pos) (any, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	pos[name] = fv.Pos()
	var x any
	if err := fv.Decode(&x); err != nil {
		return nil, formatCUEError(err)
	}
	return x, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
