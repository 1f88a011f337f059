package compiler

import (
	"fmt"

	"github.com/roach88/relq/internal/expr"
)

// Validation error codes (E100-E199)
const (
	// Query structure errors (E101-E109)
	ErrQuerySourceEmpty   = "E101" // source kind is required
	ErrQueryRelationEmpty = "E102" // relation kind is required
	ErrInvalidKey         = "E103" // key expression is invalid
	ErrInvalidCriteria    = "E104" // criteria expression is invalid
	ErrInvalidWhere       = "E105" // where expression is invalid
	ErrNeutralKey         = "E106" // key is a constant true/false

	// Related relation errors (E110-E119)
	ErrRelatedRelationEmpty = "E110" // related relation kind is required
	ErrRelatedDuplicate     = "E111" // same relation and key listed twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"` // source line when known
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled query. Returns all errors found (does not
// fail-fast).
func Validate(q *QuerySpec) []ValidationError {
	var errs []ValidationError

	if q.Source == "" {
		errs = append(errs, ValidationError{
			Field:   "source",
			Message: "source is required and must be non-empty",
			Code:    ErrQuerySourceEmpty,
		})
	}
	if q.Relation == "" {
		errs = append(errs, ValidationError{
			Field:   "relation",
			Message: "relation is required and must be non-empty",
			Code:    ErrQueryRelationEmpty,
		})
	}

	errs = append(errs, validateKey("key", q.Key)...)
	errs = append(errs, validateExpr("criteria", q.Criteria, ErrInvalidCriteria)...)
	if !q.Where.IsZero() {
		errs = append(errs, validateExpr("where", q.Where, ErrInvalidWhere)...)
	}

	seen := map[string]int{}
	if keyHash, err := expr.Hash(q.Key); err == nil {
		seen[q.Relation+"\x00"+keyHash] = -1
	}
	for i, rel := range q.Related {
		prefix := fmt.Sprintf("related[%d].", i)
		if rel.Relation == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + "relation",
				Message: "relation is required and must be non-empty",
				Code:    ErrRelatedRelationEmpty,
			})
		}
		errs = append(errs, validateKey(prefix+"key", rel.Key)...)
		errs = append(errs, validateExpr(prefix+"criteria", rel.Criteria, ErrInvalidCriteria)...)

		// Repeats are legal (criteria are merged) but usually a mistake.
		keyHash, err := expr.Hash(rel.Key)
		if err != nil {
			continue
		}
		id := rel.Relation + "\x00" + keyHash
		if prev, ok := seen[id]; ok {
			other := "the root relation"
			if prev >= 0 {
				other = fmt.Sprintf("related[%d]", prev)
			}
			errs = append(errs, ValidationError{
				Field:   prefix + "key",
				Message: fmt.Sprintf("relation %s with this key duplicates %s; combine the criteria instead", rel.Relation, other),
				Code:    ErrRelatedDuplicate,
			})
			continue
		}
		seen[id] = i
	}

	return errs
}

func validateKey(field string, key expr.Lambda) []ValidationError {
	if expr.IsDefault(key) {
		return []ValidationError{{
			Field:   field,
			Message: "key must read the source record, not a constant",
			Code:    ErrNeutralKey,
		}}
	}
	return validateExpr(field, key, ErrInvalidKey)
}

func validateExpr(field string, l expr.Lambda, code string) []ValidationError {
	var errs []ValidationError
	for _, issue := range expr.Validate(l) {
		errs = append(errs, ValidationError{
			Field:   field + "." + issue.Path,
			Message: issue.Message,
			Code:    code,
		})
	}
	return errs
}
