package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for query files that are neither CUE nor
// YAML.
var ErrUnknownFormat = errors.New("unknown query file format")

// LoadQueryYAML decodes and compiles a single YAML query definition.
// Unknown fields are rejected.
func LoadQueryYAML(r io.Reader) (*QuerySpec, error) {
	var def QueryDef
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &CompileError{Field: "query", Message: "empty query document"}
		}
		return nil, fmt.Errorf("decode query: %w", err)
	}
	if def.Source == "" {
		return nil, &CompileError{Field: "source", Message: "source is required"}
	}
	if def.Relation == "" {
		return nil, &CompileError{Field: "relation", Message: "relation is required"}
	}
	return def.Compile()
}

// LoadQueryFile reads a query file, dispatching on its extension: .cue
// files may define several queries, .yaml and .yml files define one. A
// YAML query without a name takes the file's base name.
func LoadQueryFile(path string) ([]*QuerySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".cue":
		return LoadQueries(path, data)
	case ".yaml", ".yml":
		spec, err := LoadQueryYAML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if spec.Name == "" {
			spec.Name = filepath.Base(path[:len(path)-len(ext)])
		}
		return []*QuerySpec{spec}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
