package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relq/internal/ir"
)

// Seed is the YAML shape of seed data: records grouped by kind.
//
//	layers:
//	  - id: L1
//	    name: Xeno
//	  - id: L3
//	    locked: true
//	entities:
//	  - layer_id: L1     # no id: a handle is generated
type Seed map[string][]map[string]any

// DecodeSeed reads a YAML seed document. An empty document is an empty
// seed.
func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return Seed{}, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if seed == nil {
		seed = Seed{}
	}
	return seed, nil
}

// Records converts the seed to records. Kinds are visited in sorted order
// and rows in document order, so a deterministic generator yields
// deterministic handles.
func (sd Seed) Records(handles HandleGenerator) ([]Record, error) {
	if handles == nil {
		handles = UUIDv7Generator{}
	}
	kinds := make([]string, 0, len(sd))
	for kind := range sd {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)

	var out []Record
	for _, kind := range kinds {
		for i, row := range sd[kind] {
			rec, err := seedRecord(kind, row, handles)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func seedRecord(kind string, row map[string]any, handles HandleGenerator) (Record, error) {
	rec := Record{Kind: kind, Fields: ir.IRObject{}}
	for name, raw := range row {
		if name == "id" {
			id, err := idOf(raw)
			if err != nil {
				return Record{}, err
			}
			rec.ID = id
			continue
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return Record{}, fmt.Errorf("field %s: %w", name, err)
		}
		rec.Fields[name] = v
	}
	if rec.ID == "" {
		rec.ID = handles.Generate()
	}
	return rec, nil
}

func idOf(raw any) (string, error) {
	if raw == nil {
		return "", nil
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return "", fmt.Errorf("id: %w", err)
	}
	switch id := v.(type) {
	case ir.IRString:
		return string(id), nil
	case ir.IRInt:
		return strconv.FormatInt(int64(id), 10), nil
	}
	return "", fmt.Errorf("%w: id must be a string or integer, got %s", ErrInvalidRecord, ir.KindOf(v))
}

// PutSeed stores every record of the seed in one transaction and returns
// how many were written.
func (s *Store) PutSeed(ctx context.Context, seed Seed) (int, error) {
	recs, err := seed.Records(s.handles)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if err := s.PutAll(ctx, recs); err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	return len(recs), nil
}

// LoadSeed decodes a YAML seed document and stores it.
func (s *Store) LoadSeed(ctx context.Context, r io.Reader) (int, error) {
	seed, err := DecodeSeed(r)
	if err != nil {
		return 0, err
	}
	return s.PutSeed(ctx, seed)
}
