package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/relq/internal/compiler"
	"github.com/roach88/relq/internal/store"
)

// LoadError represents an error that occurred while loading a query file
// or opening a database.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueries reads the queries defined in path. A non-empty name selects
// a single query by name.
func LoadQueries(path, name string) ([]*compiler.QuerySpec, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing query file: %v", err)}
	}

	queries, err := compiler.LoadQueryFile(path)
	if err != nil {
		return nil, toLoadError(err)
	}
	if name == "" {
		return queries, nil
	}
	for _, q := range queries {
		if q.Name == name {
			return []*compiler.QuerySpec{q}, nil
		}
	}
	return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query %q not found in %s", name, path)}
}

// toLoadError converts a compiler error to a LoadError, keeping the CUE
// position when there is one.
func toLoadError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	if errors.Is(err, compiler.ErrUnknownFormat) {
		return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading query: %v", err)}
}

// openStore opens the database at path, creating it if needed.
func openStore(path string, opts ...store.Option) (*store.Store, error) {
	if path == "" {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "--db is required"}
	}
	st, err := store.Open(path, opts...)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("opening database: %v", err)}
	}
	return st, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // Query file could not be read or parsed
	ErrCodeNotFound    = "E005" // Path or query not found
	ErrCodeBuildFailed = "E006" // Filter graph could not be built
	ErrCodeStore       = "E007" // Database error
	ErrCodeQueryFailed = "E008" // Query evaluation failed
)

// MapFieldToErrorCode maps a compiler error field to a validation code.
func MapFieldToErrorCode(field string) string {
	related := strings.HasPrefix(field, "related")
	switch {
	case field == "source":
		return compiler.ErrQuerySourceEmpty
	case field == "relation":
		return compiler.ErrQueryRelationEmpty
	case related && strings.HasSuffix(field, ".relation"):
		return compiler.ErrRelatedRelationEmpty
	case field == "key" || related && strings.HasSuffix(field, ".key"):
		return compiler.ErrInvalidKey
	case field == "criteria" || related && strings.HasSuffix(field, ".criteria"):
		return compiler.ErrInvalidCriteria
	case field == "where":
		return compiler.ErrInvalidWhere
	case field == "query":
		return ErrCodeLoadFailed
	default:
		return ErrCodeGeneric
	}
}
